package directory

import (
	"fmt"
	"strings"

	"github.com/lotas/labbook/internal/applog"
	"github.com/lotas/labbook/internal/types"
)

// FavoriteStore persists the favorite id set across runs. Every mutation
// rewrites the whole set; corrupt or missing durable state loads as empty.
type FavoriteStore interface {
	LoadFavorites() ([]int64, error)
	SaveFavorites(ids []int64) error
}

// Directory owns the session collection and the favorite set. It merges
// server fetches with local classification overlays and exposes the three
// derived bucket views. All methods are synchronous; the caller wires
// gateway round-trips and feeds results back in.
type Directory struct {
	sessions []*types.Session // fetch order
	byID     map[int64]*types.Session

	store     FavoriteStore
	favorites map[int64]bool

	selected int64 // 0 = none
	renaming int64 // 0 = no rename in progress
	reversed bool
}

func New(store FavoriteStore) *Directory {
	d := &Directory{
		byID:      make(map[int64]*types.Session),
		store:     store,
		favorites: make(map[int64]bool),
	}
	if store != nil {
		ids, err := store.LoadFavorites()
		if err != nil {
			// Fail soft: unreadable favorites are an empty set.
			applog.Error("favorites.load", err)
		}
		for _, id := range ids {
			d.favorites[id] = true
		}
	}
	return d
}

// ApplyFetch merges a session-list poll result into local state, matching
// on id. Incoming order becomes the new base order; sessions missing from
// the fetch (filtered query, partial response) are kept, trailing in
// their previous relative order. Known ids keep the local favorite flag;
// ids new to this client consult the durable favorite set, seeded from
// the server's flag on first sight.
func (d *Directory) ApplyFetch(fetched []types.Session) {
	seen := make(map[int64]bool, len(fetched))
	merged := make([]*types.Session, 0, len(fetched))

	for i := range fetched {
		in := fetched[i]
		seen[in.ID] = true

		if cur, ok := d.byID[in.ID]; ok {
			cur.Title = in.Title
			cur.Description = in.Description
			cur.StartedAt = in.StartedAt
			cur.EndedAt = in.EndedAt
			cur.IsArchived = in.IsArchived
			if cur.IsArchived {
				cur.IsFavorite = false
			}
			merged = append(merged, cur)
			continue
		}

		s := in
		s.IsFavorite = d.favorites[s.ID]
		if in.IsFavorite && !s.IsArchived && !d.favorites[s.ID] {
			s.IsFavorite = true
			d.favorites[s.ID] = true
			d.persistFavorites()
		}
		if s.IsArchived {
			s.IsFavorite = false
		}
		d.byID[s.ID] = &s
		merged = append(merged, &s)
	}

	// Retain sessions absent from this fetch.
	for _, s := range d.sessions {
		if !seen[s.ID] {
			merged = append(merged, s)
		}
	}
	d.sessions = merged
}

// Get returns the session with the given id, or nil.
func (d *Directory) Get(id int64) *types.Session {
	return d.byID[id]
}

// Sessions returns all sessions in the current display order.
func (d *Directory) Sessions() []*types.Session {
	return d.ordered(d.sessions)
}

// Bucket returns the derived view for one classification, in display
// order. The reversal flag applies uniformly to all three views.
func (d *Directory) Bucket(b types.Bucket) []*types.Session {
	var out []*types.Session
	for _, s := range d.sessions {
		switch b {
		case types.BucketArchived:
			if s.IsArchived {
				out = append(out, s)
			}
		case types.BucketFavorites:
			if !s.IsArchived && s.IsFavorite {
				out = append(out, s)
			}
		default:
			if !s.IsArchived && !s.IsFavorite {
				out = append(out, s)
			}
		}
	}
	return d.ordered(out)
}

func (d *Directory) ordered(in []*types.Session) []*types.Session {
	if !d.reversed {
		return in
	}
	out := make([]*types.Session, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}

// ToggleReversed inverts the display order of every bucket view.
func (d *Directory) ToggleReversed() { d.reversed = !d.reversed }

// Reversed reports the current order flag.
func (d *Directory) Reversed() bool { return d.reversed }

// Stats computes aggregate counts for the status bar.
func (d *Directory) Stats() types.Stats {
	st := types.Stats{Total: len(d.sessions)}
	for _, s := range d.sessions {
		switch {
		case s.IsArchived:
			st.Archived++
		case s.IsFavorite:
			st.Favorites++
		default:
			st.Active++
		}
	}
	return st
}

// --- Selection ---

// Select marks a session as active-for-viewing. Unknown ids clear the
// selection instead.
func (d *Directory) Select(id int64) {
	if _, ok := d.byID[id]; !ok {
		d.selected = 0
		return
	}
	d.selected = id
}

// Selected returns the currently selected session id, 0 when none.
func (d *Directory) Selected() int64 { return d.selected }

// ClearSelection drops the active selection.
func (d *Directory) ClearSelection() { d.selected = 0 }

// --- Rename ---

// FallbackTitle is the committed title when the draft is empty.
func FallbackTitle(id int64) string {
	return fmt.Sprintf("Session %d", id)
}

// BeginRename enters title-editing mode for one session. Only one rename
// may be in progress process-wide; a second begin is refused.
func (d *Directory) BeginRename(id int64) bool {
	if d.renaming != 0 {
		return false
	}
	if _, ok := d.byID[id]; !ok {
		return false
	}
	d.renaming = id
	return true
}

// Renaming returns the id under rename, 0 when none.
func (d *Directory) Renaming() int64 { return d.renaming }

// CommitRename exits editing mode and resolves the draft: whitespace-only
// drafts fall back to "Session <id>". The new title is NOT applied
// locally — the caller round-trips it through the gateway and calls
// ApplyTitle on success, so a failed mutation leaves the prior title
// standing.
func (d *Directory) CommitRename(draft string) (id int64, title string, ok bool) {
	if d.renaming == 0 {
		return 0, "", false
	}
	id = d.renaming
	d.renaming = 0
	title = strings.TrimSpace(draft)
	if title == "" {
		title = FallbackTitle(id)
	}
	return id, title, true
}

// CancelRename discards the draft and exits editing mode.
func (d *Directory) CancelRename() { d.renaming = 0 }

// ApplyTitle sets a session's title after the rename mutation succeeded.
func (d *Directory) ApplyTitle(id int64, title string) {
	if s, ok := d.byID[id]; ok {
		s.Title = title
	}
}

// --- Favorite ---

// SetFavorite flips the favorite classification. Favorites are
// client-authoritative: the durable set and the session flag update
// synchronously with no server round-trip. Unfavoriting the selected
// session while it is archived clears the selection.
func (d *Directory) SetFavorite(id int64, value bool) {
	s, ok := d.byID[id]
	if !ok {
		return
	}
	if value && s.IsArchived {
		// Archived sessions cannot be favorited.
		return
	}
	s.IsFavorite = value
	if value {
		d.favorites[id] = true
	} else {
		delete(d.favorites, id)
		if d.selected == id && s.IsArchived {
			d.ClearSelection()
		}
	}
	d.persistFavorites()
}

// IsFavorite reports durable favorite membership.
func (d *Directory) IsFavorite(id int64) bool { return d.favorites[id] }

func (d *Directory) persistFavorites() {
	if d.store == nil {
		return
	}
	ids := make([]int64, 0, len(d.favorites))
	for _, s := range d.sessions {
		if d.favorites[s.ID] {
			ids = append(ids, s.ID)
		}
	}
	// Favorites for sessions not currently fetched still persist.
	for id := range d.favorites {
		known := false
		for _, have := range ids {
			if have == id {
				known = true
				break
			}
		}
		if !known {
			ids = append(ids, id)
		}
	}
	if err := d.store.SaveFavorites(ids); err != nil {
		applog.Error("favorites.save", err)
	}
}

// --- Archive ---

// ArchiveChange captures pre-mutation state so a failed gateway call can
// roll the optimistic update back.
type ArchiveChange struct {
	ID           int64
	Archived     bool
	WasFavorite  bool
	WasSelected  bool
	PrevArchived bool
}

// SetArchived applies the archive flag optimistically and returns the
// change to round-trip. Archiving clears the favorite flag and, if the
// session was selected, the selection. Re-archiving an already-archived
// session is a no-op (ok=false): the gateway call is idempotent but we
// skip issuing it at all.
func (d *Directory) SetArchived(id int64, value bool) (ArchiveChange, bool) {
	s, ok := d.byID[id]
	if !ok || s.IsArchived == value {
		return ArchiveChange{}, false
	}
	ch := ArchiveChange{
		ID:           id,
		Archived:     value,
		WasFavorite:  s.IsFavorite,
		WasSelected:  d.selected == id,
		PrevArchived: s.IsArchived,
	}
	s.IsArchived = value
	if value {
		if s.IsFavorite {
			s.IsFavorite = false
			delete(d.favorites, id)
			d.persistFavorites()
		}
		if d.selected == id {
			d.ClearSelection()
		}
	}
	return ch, true
}

// RollbackArchive reverts an optimistic archive change after the gateway
// call failed. Restoring the archived flag also strips any favorite state
// acquired after the capture (a composite move sets the favorite between
// capture and rollback), since archived sessions are never favorites.
func (d *Directory) RollbackArchive(ch ArchiveChange) {
	s, ok := d.byID[ch.ID]
	if !ok {
		return
	}
	s.IsArchived = ch.PrevArchived
	if s.IsArchived && s.IsFavorite {
		s.IsFavorite = false
		delete(d.favorites, ch.ID)
		d.persistFavorites()
	}
	if ch.WasFavorite && !s.IsArchived {
		s.IsFavorite = true
		d.favorites[ch.ID] = true
		d.persistFavorites()
	}
	if ch.WasSelected && d.selected == 0 {
		d.selected = ch.ID
	}
	applog.Info("archive.rollback", "id", ch.ID)
}

// MoveTo is the drag-and-drop composite: archive or unarchive as needed,
// then match the favorite flag to the target bucket. The returned change
// is meaningful only when mutated is true — that is when the caller owes
// the gateway an archive round-trip.
func (d *Directory) MoveTo(id int64, bucket types.Bucket) (ArchiveChange, bool) {
	if _, ok := d.byID[id]; !ok {
		return ArchiveChange{}, false
	}
	switch bucket {
	case types.BucketArchived:
		return d.SetArchived(id, true)
	case types.BucketFavorites:
		ch, mutated := d.SetArchived(id, false)
		d.SetFavorite(id, true)
		return ch, mutated
	default:
		ch, mutated := d.SetArchived(id, false)
		d.SetFavorite(id, false)
		return ch, mutated
	}
}

// DeleteActive archives the selected session. It is the handler behind
// the Backspace/Delete key and refuses to act while a rename is open.
func (d *Directory) DeleteActive() (ArchiveChange, bool) {
	if d.selected == 0 || d.renaming != 0 {
		return ArchiveChange{}, false
	}
	return d.SetArchived(d.selected, true)
}
