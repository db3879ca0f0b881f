package controller

import (
	"github.com/lotas/labbook/internal/directory"
	"github.com/lotas/labbook/internal/types"
)

// Focus identifies which input surface currently owns the keyboard.
// Routing every key through this explicit state — instead of ambient
// listeners reading mutable globals — is what keeps the delete shortcut
// from firing mid-edit.
type Focus int

const (
	FocusList Focus = iota
	FocusRename
	FocusEditor
	FocusSearch
	FocusCommand
)

// Controller binds discrete gestures to the session directory, one at a
// time. A row is either viewing or editing-title; at most one row is in
// editing-title process-wide (enforced by the directory's rename lock).
type Controller struct {
	dir   *directory.Directory
	focus Focus
	draft string
}

func New(dir *directory.Directory) *Controller {
	return &Controller{dir: dir}
}

// Focus returns the surface that currently owns the keyboard.
func (c *Controller) Focus() Focus { return c.focus }

// SetFocus moves keyboard ownership. Leaving the rename field is a blur,
// which commits like Enter.
func (c *Controller) SetFocus(f Focus) (id int64, title string, committed bool) {
	if c.focus == FocusRename && f != FocusRename {
		return c.commit(f)
	}
	c.focus = f
	return 0, "", false
}

// Editing reports whether a title edit is in progress.
func (c *Controller) Editing() bool { return c.focus == FocusRename }

// BeginRename enters editing-title for one session, capturing its
// current title as the draft. Refused while another edit is open or the
// keyboard is owned by a text surface.
func (c *Controller) BeginRename(id int64) bool {
	if c.focus != FocusList {
		return false
	}
	if !c.dir.BeginRename(id) {
		return false
	}
	c.draft = ""
	if s := c.dir.Get(id); s != nil {
		c.draft = s.Title
	}
	c.focus = FocusRename
	return true
}

// Draft returns the in-progress title text.
func (c *Controller) Draft() string { return c.draft }

// SetDraft replaces the draft as the user types.
func (c *Controller) SetDraft(s string) {
	if c.focus == FocusRename {
		c.draft = s
	}
}

// CommitRename is the Enter key: exits editing mode and resolves the
// draft (empty falls back to "Session <id>"). The caller owes the
// gateway a title round-trip; the title applies locally only on success.
func (c *Controller) CommitRename() (id int64, title string, ok bool) {
	if c.focus != FocusRename {
		return 0, "", false
	}
	return c.commit(FocusList)
}

func (c *Controller) commit(next Focus) (int64, string, bool) {
	c.focus = next
	id, title, ok := c.dir.CommitRename(c.draft)
	c.draft = ""
	return id, title, ok
}

// CancelRename is the Escape key: discards the draft.
func (c *Controller) CancelRename() {
	if c.focus != FocusRename {
		return
	}
	c.dir.CancelRename()
	c.draft = ""
	c.focus = FocusList
}

// DeleteKey handles Backspace/Delete. It archives the selected session,
// but only while the list owns the keyboard — never while the rename
// field, editor, or any other text input is mid-edit.
func (c *Controller) DeleteKey() (directory.ArchiveChange, bool) {
	if c.focus != FocusList {
		return directory.ArchiveChange{}, false
	}
	return c.dir.DeleteActive()
}

// DropOn is the drag-and-drop landing: the drag payload is just the
// session id, and the target is one of the three buckets.
func (c *Controller) DropOn(id int64, bucket types.Bucket) (directory.ArchiveChange, bool) {
	return c.dir.MoveTo(id, bucket)
}
