// Package htmlsanitize cleans free-text fields supplied by coordinators
// (donor notes, target descriptions) before they are stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strict = bluemonday.StrictPolicy()
	ugc    = bluemonday.UGCPolicy()
)

// PlainText strips every tag, decodes entities and trims whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// Sanitize keeps safe formatting markup and removes scripts, event
// handlers and unsafe URLs.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return ugc.Sanitize(s)
}

// IsPlainText reports whether s contains no tag-like sequence.
func IsPlainText(s string) bool {
	open := strings.Index(s, "<")
	return open < 0 || !strings.Contains(s[open:], ">")
}
