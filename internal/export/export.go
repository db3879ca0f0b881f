package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lotas/labbook/internal/notebook"
	"github.com/lotas/labbook/internal/types"
)

// Notebook groups sessions by bucket for export.
type Notebook struct {
	Sessions []types.Session
}

func bucketOf(s types.Session) types.Bucket {
	switch {
	case s.IsArchived:
		return types.BucketArchived
	case s.IsFavorite:
		return types.BucketFavorites
	default:
		return types.BucketActive
	}
}

var bucketOrder = []types.Bucket{types.BucketFavorites, types.BucketActive, types.BucketArchived}

// Markdown formats the notebook as a markdown document, one section per
// bucket, one subsection per session with its rendered content.
func Markdown(nb *Notebook) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Lab notebook\n")
	fmt.Fprintf(&b, "> Exported %s\n", time.Now().Format("2006-01-02 15:04"))

	for _, bucket := range bucketOrder {
		var sessions []types.Session
		for _, s := range nb.Sessions {
			if bucketOf(s) == bucket {
				sessions = append(sessions, s)
			}
		}
		if len(sessions) == 0 {
			continue
		}

		n := len(sessions)
		noun := "sessions"
		if n == 1 {
			noun = "session"
		}
		fmt.Fprintf(&b, "\n## %s (%d %s)\n", bucket, n, noun)

		for _, s := range sessions {
			fmt.Fprintf(&b, "\n### %s\n\n", sessionHeading(s))
			if s.Description != "" {
				fmt.Fprintf(&b, "_%s_\n\n", s.Description)
			}
			content := notebook.Render(s.Blocks, "")
			if content == "" {
				b.WriteString("(no content)\n")
			} else {
				b.WriteString(content)
				b.WriteString("\n")
			}
		}
	}

	return b.String()
}

func sessionHeading(s types.Session) string {
	title := s.Title
	if title == "" {
		title = fmt.Sprintf("Session %d", s.ID)
	}
	if s.StartedAt == "" {
		return title
	}
	if s.EndedAt == "" {
		return fmt.Sprintf("%s — %s (ongoing)", title, s.StartedAt)
	}
	return fmt.Sprintf("%s — %s", title, s.StartedAt)
}

type jsonExport struct {
	ExportedAt time.Time     `json:"exported_at"`
	Sessions   []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Bucket      string `json:"bucket"`
	StartedAt   string `json:"started_at,omitempty"`
	EndedAt     string `json:"ended_at,omitempty"`
	Content     string `json:"content"`
}

// JSON formats the notebook as a JSON document.
func JSON(nb *Notebook) (string, error) {
	out := jsonExport{
		ExportedAt: time.Now(),
		Sessions:   make([]jsonSession, 0, len(nb.Sessions)),
	}
	for _, s := range nb.Sessions {
		out.Sessions = append(out.Sessions, jsonSession{
			ID:          s.ID,
			Title:       s.Title,
			Description: s.Description,
			Bucket:      strings.ToLower(bucketOf(s).String()),
			StartedAt:   s.StartedAt,
			EndedAt:     s.EndedAt,
			Content:     notebook.Render(s.Blocks, ""),
		})
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b) + "\n", nil
}
