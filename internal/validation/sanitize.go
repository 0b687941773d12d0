// Package validation sanitizes and validates user input before it reaches
// email bodies, log rows or KV keys.
package validation

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy strips every tag; script and style contents are dropped entirely.
var strictPolicy = bluemonday.StrictPolicy()

// Sanitize removes all HTML markup from s, decodes HTML entities and trims
// surrounding whitespace. The result is plain text; callers embedding it in
// HTML must escape it again.
func Sanitize(s string) string {
	stripped := strictPolicy.Sanitize(s)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
