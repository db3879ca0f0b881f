package tui

import (
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// NotebookView is the right-hand pane: a read-only viewport over the
// selected session's rendered content, swapped for a textarea while the
// user edits.
type NotebookView struct {
	vp      viewport.Model
	editor  textarea.Model
	editing bool
}

func NewNotebookView() NotebookView {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.Prompt = ""
	ta.CharLimit = 0
	return NotebookView{
		vp:     viewport.New(0, 0),
		editor: ta,
	}
}

func (v *NotebookView) SetSize(width, height int) {
	v.vp.Width = width
	v.vp.Height = height
	v.editor.SetWidth(width)
	v.editor.SetHeight(height)
}

// ShowContent replaces the viewport content with the session's rendered
// markup, styling highlight spans for the terminal.
func (v *NotebookView) ShowContent(rendered string) {
	v.vp.SetContent(renderMarkup(rendered))
}

// Editing reports whether the textarea currently owns the pane.
func (v *NotebookView) Editing() bool { return v.editing }

// StartEdit switches the pane to the textarea, seeded with the current
// buffer content.
func (v *NotebookView) StartEdit(content string) {
	v.editor.SetValue(content)
	v.editor.Focus()
	v.editing = true
}

// StopEdit returns the pane to the viewport. The buffer keeps whatever
// the editor held; callers read Value first.
func (v *NotebookView) StopEdit() {
	v.editor.Blur()
	v.editing = false
}

// Value returns the editor's current text.
func (v *NotebookView) Value() string { return v.editor.Value() }

// Update routes messages to whichever widget owns the pane.
func (v *NotebookView) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	if v.editing {
		v.editor, cmd = v.editor.Update(msg)
	} else {
		v.vp, cmd = v.vp.Update(msg)
	}
	return cmd
}

var dirtyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

// View renders the pane body plus an unsaved-edit marker line.
func (v NotebookView) View(dirty bool) string {
	var body string
	if v.editing {
		body = v.editor.View()
	} else {
		body = v.vp.View()
	}
	if dirty {
		return dirtyStyle.Render("● edited") + "\n" + body
	}
	return body
}
