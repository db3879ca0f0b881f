package history

import (
	"fmt"
	"strings"

	"github.com/lotas/labbook/internal/storage"
)

// Retitle records a title change for one session between two snapshots.
type Retitle struct {
	ID   int64
	From string
	To   string
}

// Move records a bucket change for one session between two snapshots.
type Move struct {
	ID    int64
	Title string
	From  string
	To    string
}

// DiffResult holds the comparison of two directory snapshots. Sessions
// are matched by id.
type DiffResult struct {
	RevFrom int
	RevTo   int // 0 when comparing against live state

	Added    []storage.SnapshotSession // in new but not in old
	Removed  []storage.SnapshotSession // in old but not in new
	Retitled []Retitle
	Moved    []Move
}

// Empty reports whether the diff found no changes.
func (d *DiffResult) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Retitled) == 0 && len(d.Moved) == 0
}

func diffSessions(old, cur []storage.SnapshotSession) *DiffResult {
	oldByID := make(map[int64]storage.SnapshotSession, len(old))
	for _, s := range old {
		oldByID[s.ID] = s
	}

	result := &DiffResult{}
	seen := make(map[int64]bool, len(cur))
	for _, s := range cur {
		seen[s.ID] = true
		prev, ok := oldByID[s.ID]
		if !ok {
			result.Added = append(result.Added, s)
			continue
		}
		if prev.Title != s.Title {
			result.Retitled = append(result.Retitled, Retitle{ID: s.ID, From: prev.Title, To: s.Title})
		}
		if prev.Bucket != s.Bucket {
			result.Moved = append(result.Moved, Move{ID: s.ID, Title: s.Title, From: prev.Bucket, To: s.Bucket})
		}
	}
	for _, s := range old {
		if !seen[s.ID] {
			result.Removed = append(result.Removed, s)
		}
	}
	return result
}

// FormatDiff returns a human-readable representation of a DiffResult.
func FormatDiff(d *DiffResult) string {
	var sb strings.Builder

	if d.RevTo > 0 {
		fmt.Fprintf(&sb, "Diff snapshot #%d → #%d\n", d.RevFrom, d.RevTo)
	} else {
		fmt.Fprintf(&sb, "Diff snapshot #%d → current\n", d.RevFrom)
	}
	fmt.Fprintf(&sb, "Added: %d  Removed: %d  Retitled: %d  Moved: %d\n",
		len(d.Added), len(d.Removed), len(d.Retitled), len(d.Moved))

	if len(d.Added) > 0 {
		sb.WriteString("\n+ Added:\n")
		for _, s := range d.Added {
			fmt.Fprintf(&sb, "  + #%d %s [%s]\n", s.ID, s.Title, s.Bucket)
		}
	}
	if len(d.Removed) > 0 {
		sb.WriteString("\n- Removed:\n")
		for _, s := range d.Removed {
			fmt.Fprintf(&sb, "  - #%d %s [%s]\n", s.ID, s.Title, s.Bucket)
		}
	}
	if len(d.Retitled) > 0 {
		sb.WriteString("\n~ Retitled:\n")
		for _, r := range d.Retitled {
			fmt.Fprintf(&sb, "  ~ #%d %q → %q\n", r.ID, r.From, r.To)
		}
	}
	if len(d.Moved) > 0 {
		sb.WriteString("\n> Moved:\n")
		for _, m := range d.Moved {
			fmt.Fprintf(&sb, "  > #%d %s [%s → %s]\n", m.ID, m.Title, m.From, m.To)
		}
	}

	if d.Empty() {
		sb.WriteString("\nNo changes.\n")
	}
	return sb.String()
}
