package controller

import (
	"testing"

	"github.com/lotas/labbook/internal/directory"
	"github.com/lotas/labbook/internal/types"
)

type memStore struct{ ids []int64 }

func (m *memStore) LoadFavorites() ([]int64, error) { return m.ids, nil }
func (m *memStore) SaveFavorites(ids []int64) error { m.ids = ids; return nil }

func setup(t *testing.T) (*Controller, *directory.Directory) {
	t.Helper()
	dir := directory.New(&memStore{})
	dir.ApplyFetch([]types.Session{
		{ID: 1, Title: "Monday run"},
		{ID: 2, Title: "Titration"},
	})
	return New(dir), dir
}

func TestRenameLifecycle(t *testing.T) {
	c, dir := setup(t)

	if !c.BeginRename(1) {
		t.Fatal("begin rename refused")
	}
	if c.Draft() != "Monday run" {
		t.Errorf("draft = %q, want captured title", c.Draft())
	}
	c.SetDraft("Monday run v2")

	id, title, ok := c.CommitRename()
	if !ok || id != 1 || title != "Monday run v2" {
		t.Fatalf("commit: id=%d title=%q ok=%v", id, title, ok)
	}
	if c.Editing() {
		t.Error("still editing after commit")
	}
	// Commit does not apply locally; that waits for the gateway.
	if dir.Get(1).Title != "Monday run" {
		t.Errorf("title applied early: %q", dir.Get(1).Title)
	}
}

func TestEscapeDiscardsDraft(t *testing.T) {
	c, dir := setup(t)
	c.BeginRename(1)
	c.SetDraft("scratch this")
	c.CancelRename()

	if c.Editing() || c.Draft() != "" {
		t.Error("cancel did not reset editing state")
	}
	if dir.Get(1).Title != "Monday run" {
		t.Errorf("title changed on cancel: %q", dir.Get(1).Title)
	}
	if dir.Renaming() != 0 {
		t.Error("directory rename lock not released")
	}
}

func TestBlurCommitsLikeEnter(t *testing.T) {
	c, _ := setup(t)
	c.BeginRename(2)
	c.SetDraft("  ")

	id, title, committed := c.SetFocus(FocusEditor)
	if !committed || id != 2 {
		t.Fatalf("blur: id=%d committed=%v", id, committed)
	}
	if title != "Session 2" {
		t.Errorf("blur with empty draft = %q, want fallback", title)
	}
	if c.Focus() != FocusEditor {
		t.Errorf("focus = %v", c.Focus())
	}
}

func TestSingleEditorProcessWide(t *testing.T) {
	c, _ := setup(t)
	c.BeginRename(1)
	if c.BeginRename(2) {
		t.Error("second row entered editing-title while first still open")
	}
}

func TestDeleteKeyGuards(t *testing.T) {
	c, dir := setup(t)

	if _, ok := c.DeleteKey(); ok {
		t.Error("delete with no selection should be a no-op")
	}

	dir.Select(1)
	c.BeginRename(1)
	if _, ok := c.DeleteKey(); ok {
		t.Error("delete must not fire while the rename field is focused")
	}
	c.CancelRename()

	c.SetFocus(FocusEditor)
	if _, ok := c.DeleteKey(); ok {
		t.Error("delete must not fire while the editor is focused")
	}
	c.SetFocus(FocusList)

	ch, ok := c.DeleteKey()
	if !ok || ch.ID != 1 {
		t.Fatalf("delete: %+v ok=%v", ch, ok)
	}
	if !dir.Get(1).IsArchived {
		t.Error("selected session not archived")
	}
}

func TestDropOnArchivedBucket(t *testing.T) {
	c, dir := setup(t)
	dir.SetFavorite(3, true) // unknown id, no-op
	dir.ApplyFetch([]types.Session{{ID: 3, Title: "Drag me"}})
	dir.SetFavorite(3, true)
	dir.Select(3)

	_, mutated := c.DropOn(3, types.BucketArchived)
	if !mutated {
		t.Fatal("expected archive mutation")
	}
	s := dir.Get(3)
	if !s.IsArchived || s.IsFavorite || dir.Selected() != 0 {
		t.Errorf("archived=%v favorite=%v selected=%d", s.IsArchived, s.IsFavorite, dir.Selected())
	}
}
