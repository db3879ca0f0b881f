package history

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/lotas/labbook/internal/storage"
)

func testStore(t *testing.T) *storage.Store {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return storage.NewStore(db)
}

func entry(id int64, title, bucket string) storage.SnapshotSession {
	return storage.SnapshotSession{ID: id, Title: title, Bucket: bucket}
}

func TestCreateSkipsIdentical(t *testing.T) {
	store := testStore(t)
	sessions := []storage.SnapshotSession{entry(1, "A", "active")}

	rev, created, _, err := Create(store, sessions, "")
	if err != nil || !created || rev != 1 {
		t.Fatalf("first create: rev=%d created=%v err=%v", rev, created, err)
	}

	rev, created, _, err = Create(store, sessions, "")
	if err != nil {
		t.Fatalf("second create: %v", err)
	}
	if created || rev != 1 {
		t.Errorf("identical snapshot should be skipped: rev=%d created=%v", rev, created)
	}
}

func TestCreateReturnsDiff(t *testing.T) {
	store := testStore(t)
	Create(store, []storage.SnapshotSession{
		entry(1, "A", "active"),
		entry(2, "B", "active"),
	}, "")

	_, created, diff, err := Create(store, []storage.SnapshotSession{
		entry(1, "A renamed", "favorites"),
		entry(3, "C", "active"),
	}, "")
	if err != nil || !created {
		t.Fatalf("create: created=%v err=%v", created, err)
	}
	if diff == nil {
		t.Fatal("expected a diff against the previous snapshot")
	}
	if len(diff.Added) != 1 || diff.Added[0].ID != 3 {
		t.Errorf("added: %+v", diff.Added)
	}
	if len(diff.Removed) != 1 || diff.Removed[0].ID != 2 {
		t.Errorf("removed: %+v", diff.Removed)
	}
	if len(diff.Retitled) != 1 || diff.Retitled[0].To != "A renamed" {
		t.Errorf("retitled: %+v", diff.Retitled)
	}
	if len(diff.Moved) != 1 || diff.Moved[0].To != "favorites" {
		t.Errorf("moved: %+v", diff.Moved)
	}
}

func TestDiffRevisions(t *testing.T) {
	store := testStore(t)
	Create(store, []storage.SnapshotSession{entry(1, "A", "active")}, "")
	Create(store, []storage.SnapshotSession{entry(2, "B", "active")}, "")

	d, err := DiffRevisions(store, 1, 2)
	if err != nil {
		t.Fatalf("DiffRevisions: %v", err)
	}
	if d.RevFrom != 1 || d.RevTo != 2 {
		t.Errorf("revs = %d → %d", d.RevFrom, d.RevTo)
	}
	if len(d.Added) != 1 || len(d.Removed) != 1 {
		t.Errorf("added=%d removed=%d", len(d.Added), len(d.Removed))
	}

	if _, err := DiffRevisions(store, 1, 99); err == nil {
		t.Error("expected error for missing rev")
	}
}

func TestDiffAgainstCurrent(t *testing.T) {
	store := testStore(t)
	Create(store, []storage.SnapshotSession{entry(1, "A", "active")}, "")

	d, err := DiffAgainstCurrent(store, 0, []storage.SnapshotSession{entry(1, "A", "archived")})
	if err != nil {
		t.Fatalf("DiffAgainstCurrent: %v", err)
	}
	if len(d.Moved) != 1 || d.Moved[0].To != "archived" {
		t.Errorf("moved: %+v", d.Moved)
	}
}

func TestFormatDiff(t *testing.T) {
	d := &DiffResult{RevFrom: 2, RevTo: 3}
	d.Added = append(d.Added, entry(5, "New", "active"))
	out := FormatDiff(d)
	if !strings.Contains(out, "#2 → #3") || !strings.Contains(out, "+ #5 New [active]") {
		t.Errorf("unexpected format:\n%s", out)
	}

	empty := FormatDiff(&DiffResult{RevFrom: 1})
	if !strings.Contains(empty, "No changes.") || !strings.Contains(empty, "current") {
		t.Errorf("unexpected empty format:\n%s", empty)
	}
}
