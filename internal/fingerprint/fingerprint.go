// Package fingerprint derives stable grouping keys for error payloads.
// Two captures of the same underlying fault must map to the same key even
// when runtimes format messages or stack frames with different whitespace.
package fingerprint

import (
	"regexp"
	"strings"

	"faultline/pkg/models"
)

var whitespaceRuns = regexp.MustCompile(`\s+`)

// collapse removes every whitespace run, then trims. "foo  bar" and
// "foob ar" both normalize to "foobar".
func collapse(s string) string {
	return strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, ""))
}

// Compute joins the identity fields kind|name|message|stack|source and
// hashes them. Absent fields contribute an empty segment so the separator
// positions stay fixed.
func Compute(p models.ErrorPayload) string {
	parts := []string{
		string(p.Kind),
		strings.TrimSpace(p.Name),
		collapse(p.Message),
		collapse(p.Stack),
		strings.TrimSpace(p.Source),
	}
	return Hash(strings.Join(parts, "|"))
}
