package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/lotas/labbook/internal/types"
)

func sampleNotebook() *Notebook {
	return &Notebook{Sessions: []types.Session{
		{
			ID: 1, Title: "Monday run", StartedAt: "2026-08-17T09:00:00Z",
			Blocks: []types.ContentBlock{
				{ID: 1, Kind: types.BlockParagraph, Text: "prepared agar plates"},
				{ID: 2, Kind: types.BlockLog, Text: "stt window 5s"},
			},
		},
		{ID: 2, Title: "Titration", IsFavorite: true},
		{ID: 3, Title: "Old notes", IsArchived: true},
	}}
}

func TestMarkdownSections(t *testing.T) {
	out := Markdown(sampleNotebook())

	for _, want := range []string{
		"# Lab notebook",
		"## Favorites (1 session)",
		"## Active (1 session)",
		"## Archived (1 session)",
		"### Monday run — 2026-08-17T09:00:00Z (ongoing)",
		"prepared agar plates",
		"(no content)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "stt window") {
		t.Error("log block leaked into export")
	}
}

func TestJSONExport(t *testing.T) {
	out, err := JSON(sampleNotebook())
	if err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var decoded struct {
		Sessions []struct {
			ID      int64  `json:"id"`
			Bucket  string `json:"bucket"`
			Content string `json:"content"`
		} `json:"sessions"`
	}
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(decoded.Sessions) != 3 {
		t.Fatalf("sessions = %d", len(decoded.Sessions))
	}
	if decoded.Sessions[0].Bucket != "active" || decoded.Sessions[2].Bucket != "archived" {
		t.Errorf("buckets: %+v", decoded.Sessions)
	}
	if !strings.Contains(decoded.Sessions[0].Content, "agar") {
		t.Errorf("content: %q", decoded.Sessions[0].Content)
	}
}
