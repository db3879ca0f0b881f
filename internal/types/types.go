package types

import "encoding/json"

// BlockKind identifies what a content block holds.
type BlockKind string

const (
	BlockParagraph BlockKind = "paragraph"
	BlockChart     BlockKind = "chart"
	BlockGraph     BlockKind = "graph"
	BlockTable     BlockKind = "table"
	BlockLog       BlockKind = "log"
)

// ContentBlock is one renderable unit within a session's notebook.
// Blocks are immutable on the client; edits go through the per-session
// edit buffer instead.
type ContentBlock struct {
	ID      int64           `json:"id"`
	Kind    BlockKind       `json:"kind"`
	Text    string          `json:"text,omitempty"`    // paragraph body
	Title   string          `json:"title,omitempty"`   // chart/graph label
	Payload json.RawMessage `json:"payload,omitempty"` // kind-dependent structured data
}

// Session is one unit of notebook work.
type Session struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	StartedAt   string `json:"started_at,omitempty"`
	EndedAt     string `json:"ended_at,omitempty"` // empty while ongoing
	IsFavorite  bool   `json:"is_favorite"`
	IsArchived  bool   `json:"is_archived"`

	Blocks []ContentBlock `json:"blocks,omitempty"`
}

// Bucket is one of the three directory classifications.
type Bucket int

const (
	BucketActive Bucket = iota
	BucketFavorites
	BucketArchived
)

func (b Bucket) String() string {
	switch b {
	case BucketFavorites:
		return "Favorites"
	case BucketArchived:
		return "Archived"
	default:
		return "Active"
	}
}

// Stats holds aggregate directory counts for the status bar.
type Stats struct {
	Total     int
	Active    int
	Favorites int
	Archived  int
}
