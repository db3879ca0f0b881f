package notebook

import (
	"strings"

	"github.com/lotas/labbook/internal/search"
	"github.com/lotas/labbook/internal/types"
)

// Render maps a session's block sequence to a single markup string.
//
//   - paragraph blocks render their text with search matches wrapped in
//     <mark> markers;
//   - chart blocks render a placeholder label from their title field
//     ("Chart" when absent);
//   - log blocks are diagnostic-only and never appear in output;
//   - every other kind renders an escaped dump of its payload.
//
// Render is pure: identical blocks and term always produce identical
// output, which is what lets the poller replace non-dirty buffers
// idempotently.
func Render(blocks []types.ContentBlock, term string) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case types.BlockLog:
			continue
		case types.BlockParagraph:
			parts = append(parts, search.Highlight(b.Text, term))
		case types.BlockChart:
			title := b.Title
			if title == "" {
				title = "Chart"
			}
			parts = append(parts, "[chart] "+search.Escape(title))
		default:
			parts = append(parts, search.Escape(rawDump(b)))
		}
	}
	return strings.Join(parts, "\n\n")
}

// rawDump picks the best textual representation for kinds without a
// dedicated renderer.
func rawDump(b types.ContentBlock) string {
	if len(b.Payload) > 0 {
		return string(b.Payload)
	}
	if b.Text != "" {
		return b.Text
	}
	return b.Title
}
