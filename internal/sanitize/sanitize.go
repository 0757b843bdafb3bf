package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict removes every tag and attribute.
var strict = bluemonday.StrictPolicy()

// Text strips HTML from user-supplied plain text (names, testimonial messages,
// event fields) and trims surrounding whitespace. Entities escaped by the
// policy are decoded again since the result is stored as plain text.
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(input)))
}

// OptionalText is Text for nullable fields; blank input yields nil.
func OptionalText(input string) *string {
	out := Text(input)
	if out == "" {
		return nil
	}
	return &out
}
