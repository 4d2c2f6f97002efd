// Package sanitize cleans user-provided text before it is stored or fed to
// prompts. Complaint text arrives from web forms and may carry markup or
// encoded tags; everything downstream assumes plain text.
package sanitize

import (
	"html"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// Text strips markup from multi-line text such as complaint bodies and
// dialogue answers. Tags are removed, entities decoded, and the result
// stripped again so an encoded tag cannot survive the decode.
func Text(s string) string {
	out := tagPattern.ReplaceAllString(s, "")
	out = html.UnescapeString(out)
	out = tagPattern.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}

// Line is Text for single-line fields such as company and customer names:
// any run of whitespace, including newlines, collapses to one space.
func Line(s string) string {
	return whitespacePattern.ReplaceAllString(Text(s), " ")
}
