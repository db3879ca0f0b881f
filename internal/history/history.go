package history

import (
	"fmt"

	"github.com/lotas/labbook/internal/applog"
	"github.com/lotas/labbook/internal/directory"
	"github.com/lotas/labbook/internal/notebook"
	"github.com/lotas/labbook/internal/storage"
	"github.com/lotas/labbook/internal/types"
)

// Capture materializes the current directory state (plus rendered
// notebook content when available) into snapshot entries.
func Capture(dir *directory.Directory, sync *notebook.Synchronizer) []storage.SnapshotSession {
	all := dir.Sessions()
	out := make([]storage.SnapshotSession, 0, len(all))
	for _, s := range all {
		entry := storage.SnapshotSession{
			ID:        s.ID,
			Title:     s.Title,
			Bucket:    bucketName(s),
			StartedAt: s.StartedAt,
		}
		if sync != nil {
			if content, ok := sync.Rendered(s.ID); ok {
				entry.Content = content
			}
		}
		out = append(out, entry)
	}
	return out
}

// CaptureFetched materializes a raw gateway fetch into snapshot entries,
// for the CLI path where no directory store is running.
func CaptureFetched(sessions []types.Session) []storage.SnapshotSession {
	out := make([]storage.SnapshotSession, 0, len(sessions))
	for i := range sessions {
		s := &sessions[i]
		out = append(out, storage.SnapshotSession{
			ID:        s.ID,
			Title:     s.Title,
			Bucket:    bucketName(s),
			Content:   notebook.Render(s.Blocks, ""),
			StartedAt: s.StartedAt,
		})
	}
	return out
}

func bucketName(s *types.Session) string {
	switch {
	case s.IsArchived:
		return "archived"
	case s.IsFavorite:
		return "favorites"
	default:
		return "active"
	}
}

// Create persists a snapshot unless it is identical to the latest one
// (same ids, titles, and buckets). Returns the rev number, whether a new
// snapshot was created, and the diff against the previous snapshot (nil
// if first).
func Create(store *storage.Store, sessions []storage.SnapshotSession, label string) (rev int, created bool, diff *DiffResult, err error) {
	latest, err := store.GetSnapshot(0)
	if err != nil {
		return 0, false, nil, fmt.Errorf("get latest snapshot: %w", err)
	}

	if latest != nil && identical(latest.Sessions, sessions) {
		applog.Info("snapshot.skipped", "rev", latest.Rev)
		return latest.Rev, false, nil, nil
	}

	newRev, err := store.CreateSnapshot(sessions, label)
	if err != nil {
		return 0, false, nil, err
	}
	applog.Info("snapshot.created", "rev", newRev, "sessions", len(sessions))

	if latest != nil {
		d := diffSessions(latest.Sessions, sessions)
		d.RevFrom = latest.Rev
		d.RevTo = newRev
		diff = d
	}
	return newRev, true, diff, nil
}

func identical(a, b []storage.SnapshotSession) bool {
	if len(a) != len(b) {
		return false
	}
	index := make(map[int64]storage.SnapshotSession, len(a))
	for _, s := range a {
		index[s.ID] = s
	}
	for _, s := range b {
		prev, ok := index[s.ID]
		if !ok || prev.Title != s.Title || prev.Bucket != s.Bucket {
			return false
		}
	}
	return true
}

// DiffRevisions compares two stored snapshots.
func DiffRevisions(store *storage.Store, rev1, rev2 int) (*DiffResult, error) {
	from, err := store.GetSnapshot(rev1)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return nil, fmt.Errorf("snapshot #%d not found", rev1)
	}
	to, err := store.GetSnapshot(rev2)
	if err != nil {
		return nil, err
	}
	if to == nil {
		return nil, fmt.Errorf("snapshot #%d not found", rev2)
	}

	d := diffSessions(from.Sessions, to.Sessions)
	d.RevFrom = from.Rev
	d.RevTo = to.Rev
	return d, nil
}

// DiffAgainstCurrent compares a stored snapshot (rev 0 = latest) with the
// live directory state.
func DiffAgainstCurrent(store *storage.Store, rev int, current []storage.SnapshotSession) (*DiffResult, error) {
	from, err := store.GetSnapshot(rev)
	if err != nil {
		return nil, err
	}
	if from == nil {
		return nil, fmt.Errorf("no snapshot to diff against")
	}

	d := diffSessions(from.Sessions, current)
	d.RevFrom = from.Rev
	return d, nil
}
