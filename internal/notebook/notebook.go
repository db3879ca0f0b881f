package notebook

import (
	"github.com/lotas/labbook/internal/applog"
	"github.com/lotas/labbook/internal/types"
)

// Buffer is the per-session edit state. Rendered holds the current
// materialized view of the session's blocks — server-derived until the
// user edits, then user-owned. While Dirty is set, background refreshes
// must leave Rendered alone.
type Buffer struct {
	Rendered string
	Dirty    bool
}

// Synchronizer owns the edit buffer map keyed by session id. It is the
// only component that mutates buffers; the directory never touches them.
type Synchronizer struct {
	buffers map[int64]*Buffer
	term    string
}

func NewSynchronizer() *Synchronizer {
	return &Synchronizer{buffers: make(map[int64]*Buffer)}
}

// ApplyFetch folds a notebook poll result into the buffer map. Sessions
// with a dirty buffer keep the user's edit; everything else is re-derived
// from the fetched blocks and the current search term. Sessions absent
// from the fetch are not evicted — a transient failure or partial
// response must not drop state.
func (s *Synchronizer) ApplyFetch(sessions []types.Session) {
	for _, sess := range sessions {
		buf, ok := s.buffers[sess.ID]
		if ok && buf.Dirty {
			continue
		}
		if !ok {
			buf = &Buffer{}
			s.buffers[sess.ID] = buf
		}
		buf.Rendered = Render(sess.Blocks, s.term)
	}
}

// SetSearchTerm records the active term and recomputes every non-dirty
// buffer. Dirty sessions keep their user-edited content and do not
// re-highlight until the edit is cleared.
func (s *Synchronizer) SetSearchTerm(term string, sessions []types.Session) {
	s.term = term
	s.ApplyFetch(sessions)
}

// Term returns the active search term.
func (s *Synchronizer) Term() string { return s.term }

// Rendered returns the materialized content for a session.
func (s *Synchronizer) Rendered(id int64) (string, bool) {
	buf, ok := s.buffers[id]
	if !ok {
		return "", false
	}
	return buf.Rendered, true
}

// Dirty reports whether the session has unsaved local edits.
func (s *Synchronizer) Dirty(id int64) bool {
	buf, ok := s.buffers[id]
	return ok && buf.Dirty
}

// OnEdit records a user edit. Called on every keystroke while the editor
// has input focus; edits without focus (programmatic content swaps) are
// ignored and do not mark the buffer dirty.
func (s *Synchronizer) OnEdit(id int64, content string, focused bool) {
	if !focused {
		return
	}
	buf, ok := s.buffers[id]
	if !ok {
		buf = &Buffer{}
		s.buffers[id] = buf
	}
	if !buf.Dirty {
		applog.Info("notebook.dirty", "id", id)
	}
	buf.Rendered = content
	buf.Dirty = true
}

// Switch re-derives a session's content on selection change. A dirty
// buffer is left untouched — nothing short of an explicit user action
// discards an unsaved edit.
func (s *Synchronizer) Switch(id int64, blocks []types.ContentBlock) {
	buf, ok := s.buffers[id]
	if ok && buf.Dirty {
		return
	}
	if !ok {
		buf = &Buffer{}
		s.buffers[id] = buf
	}
	buf.Rendered = Render(blocks, s.term)
}

// ForceReload is the explicit discard: it re-derives the buffer from the
// given blocks and clears the dirty flag, losing any local edit.
func (s *Synchronizer) ForceReload(id int64, blocks []types.ContentBlock) {
	buf, ok := s.buffers[id]
	if !ok {
		buf = &Buffer{}
		s.buffers[id] = buf
	}
	if buf.Dirty {
		applog.Info("notebook.discard", "id", id)
	}
	buf.Rendered = Render(blocks, s.term)
	buf.Dirty = false
}
