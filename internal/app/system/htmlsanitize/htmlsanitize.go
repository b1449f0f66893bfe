// Package htmlsanitize strips markup from user-supplied free text before it
// is stored. Work-order fields are plain text; the client renders them
// escaped, so nothing here needs to survive as HTML.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// PlainText removes every tag (and the contents of script/style elements),
// then decodes entities so "O'Neil & Sons" is stored as typed.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// PlainTextAll applies PlainText to each element, dropping values that end up empty.
func PlainTextAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if v := PlainText(s); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsPlainText reports whether s contains nothing that looks like a tag.
func IsPlainText(s string) bool {
	return !strings.Contains(s, "<") || !strings.Contains(s, ">")
}
