package notebook

import (
	"encoding/json"
	"testing"

	"github.com/lotas/labbook/internal/types"
)

func paragraph(id int64, text string) types.ContentBlock {
	return types.ContentBlock{ID: id, Kind: types.BlockParagraph, Text: text}
}

func TestRenderParagraphHighlight(t *testing.T) {
	blocks := []types.ContentBlock{paragraph(1, "warm bath")}
	got := Render(blocks, "bat")
	if got != "warm <mark>bat</mark>h" {
		t.Errorf("unexpected render: %q", got)
	}
}

func TestRenderChartTitleAndDefault(t *testing.T) {
	blocks := []types.ContentBlock{
		{ID: 1, Kind: types.BlockChart, Title: "Growth curve"},
		{ID: 2, Kind: types.BlockChart},
	}
	got := Render(blocks, "")
	want := "[chart] Growth curve\n\n[chart] Chart"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRenderExcludesLogBlocks(t *testing.T) {
	blocks := []types.ContentBlock{
		paragraph(1, "visible"),
		{ID: 2, Kind: types.BlockLog, Text: "stt latency 120ms"},
	}
	got := Render(blocks, "")
	if got != "visible" {
		t.Errorf("log block leaked into output: %q", got)
	}
}

func TestRenderFallbackDumpIsEscaped(t *testing.T) {
	payload := json.RawMessage(`{"rows":["<a>"]}`)
	blocks := []types.ContentBlock{{ID: 1, Kind: types.BlockTable, Payload: payload}}
	got := Render(blocks, "")
	want := `{"rows":["&lt;a&gt;"]}`
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestApplyFetchIdempotentWithoutEdits(t *testing.T) {
	s := NewSynchronizer()
	sessions := []types.Session{{ID: 1, Blocks: []types.ContentBlock{paragraph(1, "hello")}}}

	s.ApplyFetch(sessions)
	first, _ := s.Rendered(1)
	s.ApplyFetch(sessions)
	second, _ := s.Rendered(1)

	if first != second || first != "hello" {
		t.Errorf("refresh not idempotent: %q vs %q", first, second)
	}
}

func TestDirtyBufferSurvivesRefresh(t *testing.T) {
	s := NewSynchronizer()
	sessions := []types.Session{{ID: 1, Blocks: []types.ContentBlock{paragraph(1, "server text")}}}
	s.ApplyFetch(sessions)

	s.OnEdit(1, "my in-progress note", true)

	// Poll lands with fresh server content; the edit must win.
	sessions[0].Blocks[0].Text = "newer server text"
	s.ApplyFetch(sessions)

	got, _ := s.Rendered(1)
	if got != "my in-progress note" {
		t.Errorf("refresh clobbered dirty buffer: %q", got)
	}
	if !s.Dirty(1) {
		t.Error("buffer should still be dirty")
	}
}

func TestOnEditWithoutFocusIgnored(t *testing.T) {
	s := NewSynchronizer()
	s.ApplyFetch([]types.Session{{ID: 1, Blocks: []types.ContentBlock{paragraph(1, "a")}}})

	s.OnEdit(1, "programmatic swap", false)

	if s.Dirty(1) {
		t.Error("unfocused edit must not mark dirty")
	}
	if got, _ := s.Rendered(1); got != "a" {
		t.Errorf("unfocused edit must not change content: %q", got)
	}
}

func TestSwitchKeepsDirtyBuffer(t *testing.T) {
	s := NewSynchronizer()
	s.ApplyFetch([]types.Session{{ID: 1, Blocks: []types.ContentBlock{paragraph(1, "a")}}})
	s.OnEdit(1, "edited", true)

	s.Switch(1, []types.ContentBlock{paragraph(1, "b")})

	if got, _ := s.Rendered(1); got != "edited" {
		t.Errorf("switch discarded dirty buffer: %q", got)
	}
}

func TestForceReloadClearsDirty(t *testing.T) {
	s := NewSynchronizer()
	s.OnEdit(1, "edited", true)

	s.ForceReload(1, []types.ContentBlock{paragraph(1, "fresh")})

	if s.Dirty(1) {
		t.Error("force reload should clear dirty flag")
	}
	if got, _ := s.Rendered(1); got != "fresh" {
		t.Errorf("force reload content: %q", got)
	}
}

func TestSetSearchTermRecomputesNonDirtyOnly(t *testing.T) {
	s := NewSynchronizer()
	sessions := []types.Session{
		{ID: 1, Blocks: []types.ContentBlock{paragraph(1, "agar plate")}},
		{ID: 2, Blocks: []types.ContentBlock{paragraph(1, "agar stock")}},
	}
	s.ApplyFetch(sessions)
	s.OnEdit(2, "user text", true)

	s.SetSearchTerm("agar", sessions)

	if got, _ := s.Rendered(1); got != "<mark>agar</mark> plate" {
		t.Errorf("clean buffer not re-highlighted: %q", got)
	}
	if got, _ := s.Rendered(2); got != "user text" {
		t.Errorf("dirty buffer re-highlighted: %q", got)
	}
}
