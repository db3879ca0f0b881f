package search

import (
	"regexp"
	"strings"
)

// Escape makes text safe to embed in the rendered markup. The notebook
// renderer and the highlighter both route user content through here so a
// stray "<" in a transcript cannot break block structure.
func Escape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

// Highlight wraps every case-insensitive occurrence of term in text with
// <mark> markers. The term is treated as literal user input, not a
// pattern. All non-marker output is escaped. An empty (or
// whitespace-only) term returns the escaped text unchanged, and any
// failure to build the matcher degrades the same way.
func Highlight(text, term string) string {
	term = strings.TrimSpace(term)
	if term == "" {
		return Escape(text)
	}

	re, err := regexp.Compile("(?i)" + regexp.QuoteMeta(term))
	if err != nil {
		return Escape(text)
	}

	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return Escape(text)
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(Escape(text[last:m[0]]))
		b.WriteString("<mark>")
		b.WriteString(Escape(text[m[0]:m[1]]))
		b.WriteString("</mark>")
		last = m[1]
	}
	b.WriteString(Escape(text[last:]))
	return b.String()
}
