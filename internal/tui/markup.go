package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var markStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("229")).
	Background(lipgloss.Color("63")).
	Bold(true)

// renderMarkup converts the notebook's rendered markup (escaped text with
// <mark> spans) into styled terminal output. Only the markers produced by
// the highlighter are interpreted; everything else is literal.
func renderMarkup(s string) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "<mark>")
		if start < 0 {
			b.WriteString(unescape(s))
			break
		}
		end := strings.Index(s[start:], "</mark>")
		if end < 0 {
			b.WriteString(unescape(s))
			break
		}
		end += start

		b.WriteString(unescape(s[:start]))
		b.WriteString(markStyle.Render(unescape(s[start+len("<mark>") : end])))
		s = s[end+len("</mark>"):]
	}
	return b.String()
}

// unescape reverses the renderer's escaping for terminal display.
func unescape(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}
