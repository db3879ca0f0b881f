package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/labbook/internal/directory"
	"github.com/lotas/labbook/internal/types"
)

// row is one visible line in the directory pane: a bucket header or a
// session.
type row struct {
	Bucket  *types.Bucket
	Session *types.Session
}

// SessionTree renders the three bucket views with a movable cursor,
// adapted per refresh from the directory's derived lists.
type SessionTree struct {
	dir      *directory.Directory
	expanded map[types.Bucket]bool

	Cursor int
	Offset int
	Width  int
	Height int
}

var buckets = []types.Bucket{types.BucketFavorites, types.BucketActive, types.BucketArchived}

func NewSessionTree(dir *directory.Directory) SessionTree {
	return SessionTree{
		dir: dir,
		expanded: map[types.Bucket]bool{
			types.BucketFavorites: true,
			types.BucketActive:    true,
			types.BucketArchived:  false,
		},
	}
}

// VisibleRows returns the flat list of currently visible rows.
func (t SessionTree) VisibleRows() []row {
	var rows []row
	for _, b := range buckets {
		bucket := b
		rows = append(rows, row{Bucket: &bucket})
		if t.expanded[b] {
			for _, s := range t.dir.Bucket(b) {
				rows = append(rows, row{Session: s})
			}
		}
	}
	return rows
}

// CurrentRow returns the row under the cursor.
func (t SessionTree) CurrentRow() *row {
	rows := t.VisibleRows()
	if t.Cursor < 0 || t.Cursor >= len(rows) {
		return nil
	}
	return &rows[t.Cursor]
}

// CurrentSession returns the session under the cursor, nil on headers.
func (t SessionTree) CurrentSession() *types.Session {
	if r := t.CurrentRow(); r != nil {
		return r.Session
	}
	return nil
}

// CurrentBucket returns the bucket the cursor is in: the header itself,
// or the bucket owning the session row.
func (t SessionTree) CurrentBucket() types.Bucket {
	rows := t.VisibleRows()
	bucket := types.BucketActive
	for i := 0; i <= t.Cursor && i < len(rows); i++ {
		if rows[i].Bucket != nil {
			bucket = *rows[i].Bucket
		}
	}
	return bucket
}

func (t *SessionTree) MoveUp() {
	if t.Cursor > 0 {
		t.Cursor--
	}
	t.scroll()
}

func (t *SessionTree) MoveDown() {
	if t.Cursor < len(t.VisibleRows())-1 {
		t.Cursor++
	}
	t.scroll()
}

// Toggle collapses or expands the bucket under the cursor.
func (t *SessionTree) Toggle() {
	if r := t.CurrentRow(); r != nil && r.Bucket != nil {
		t.expanded[*r.Bucket] = !t.expanded[*r.Bucket]
		t.Clamp()
	}
}

// MoveCursorTo places the cursor on the given session if visible.
func (t *SessionTree) MoveCursorTo(id int64) {
	for i, r := range t.VisibleRows() {
		if r.Session != nil && r.Session.ID == id {
			t.Cursor = i
			t.scroll()
			return
		}
	}
}

// Clamp keeps the cursor inside the visible range after a refresh
// changed the row count.
func (t *SessionTree) Clamp() {
	n := len(t.VisibleRows())
	if t.Cursor >= n {
		t.Cursor = n - 1
	}
	if t.Cursor < 0 {
		t.Cursor = 0
	}
	t.scroll()
}

func (t *SessionTree) scroll() {
	visible := t.Height
	if visible < 1 {
		visible = 1
	}
	if t.Cursor < t.Offset {
		t.Offset = t.Cursor
	}
	if t.Cursor >= t.Offset+visible {
		t.Offset = t.Cursor - visible + 1
	}
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// View renders the directory pane. The session under rename shows the
// live draft instead of its title.
func (t SessionTree) View(selected, renaming int64, draft string) string {
	rows := t.VisibleRows()
	var b strings.Builder

	end := t.Offset + t.Height
	if end > len(rows) {
		end = len(rows)
	}
	for i := t.Offset; i < end; i++ {
		r := rows[i]
		var line string
		switch {
		case r.Bucket != nil:
			marker := "▸"
			if t.expanded[*r.Bucket] {
				marker = "▾"
			}
			count := len(t.dir.Bucket(*r.Bucket))
			line = headerStyle.Render(fmt.Sprintf("%s %s (%d)", marker, r.Bucket.String(), count))
		case r.Session.ID == renaming:
			line = "  " + cursorStyle.Render(draft+"▎")
		default:
			line = "  " + sessionLabel(r.Session, r.Session.ID == selected)
			if i == t.Cursor {
				line = cursorStyle.Render(line)
			}
		}
		b.WriteString(truncate(line, t.Width))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func sessionLabel(s *types.Session, selected bool) string {
	title := s.Title
	if title == "" {
		title = directory.FallbackTitle(s.ID)
	}
	label := fmt.Sprintf("#%d %s", s.ID, title)
	if s.EndedAt == "" && s.StartedAt != "" {
		label += dimStyle.Render(" · ongoing")
	}
	if selected {
		return selectedStyle.Render("● " + label)
	}
	return "  " + label
}

func truncate(s string, width int) string {
	if width <= 0 || lipgloss.Width(s) <= width {
		return s
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(s)
}
