// Package sanitize strips secrets and oversized fields from error payloads
// before they are fingerprinted or handed to a sink. Sanitization operates
// on a copy; the caller's payload is never written to.
package sanitize

import (
	"net/url"
	"strings"

	"faultline/internal/constants"
	"faultline/pkg/models"
)

// Query parameter and metadata names are matched case-insensitively by
// substring, so refresh_token and X-Api-Key style names are caught too.
var sensitiveTerms = []string{
	"token",
	"auth",
	"authorization",
	"password",
	"passwd",
	"secret",
	"api_key",
	"apikey",
	"access_key",
	"session",
	"cookie",
}

type Config struct {
	MaxMessageLen int
	MaxStackLen   int
	MaxSourceLen  int
}

func DefaultConfig() Config {
	return Config{
		MaxMessageLen: constants.MaxMessageLen,
		MaxStackLen:   constants.MaxStackLen,
		MaxSourceLen:  constants.MaxSourceLen,
	}
}

type Sanitizer struct {
	cfg Config
}

func New(cfg Config) *Sanitizer {
	def := DefaultConfig()
	if cfg.MaxMessageLen <= 0 {
		cfg.MaxMessageLen = def.MaxMessageLen
	}
	if cfg.MaxStackLen <= 0 {
		cfg.MaxStackLen = def.MaxStackLen
	}
	if cfg.MaxSourceLen <= 0 {
		cfg.MaxSourceLen = def.MaxSourceLen
	}
	return &Sanitizer{cfg: cfg}
}

// Sanitize returns a redacted, size-capped copy of p.
func (s *Sanitizer) Sanitize(p models.ErrorPayload) models.ErrorPayload {
	out := p.Clone()

	out.URL = RedactURL(out.URL)
	out.Message = truncate(out.Message, s.cfg.MaxMessageLen)
	out.Stack = truncate(out.Stack, s.cfg.MaxStackLen)
	out.Source = truncate(out.Source, s.cfg.MaxSourceLen)

	for key := range out.Metadata {
		if isSensitive(key) {
			out.Metadata[key] = constants.RedactedValue
		}
	}

	return out
}

// RedactURL replaces the value of every sensitive query parameter with the
// redaction literal. The rewrite is textual, so parameter order and every
// byte outside the query survive unchanged. Unparseable input passes
// through as-is.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.RawQuery == "" {
		return raw
	}

	redacted, changed := redactQuery(parsed.RawQuery)
	if !changed {
		return raw
	}

	qIdx := strings.Index(raw, "?")
	if qIdx < 0 {
		return raw
	}
	rest := raw[qIdx+1:]
	fragment := ""
	if fIdx := strings.Index(rest, "#"); fIdx >= 0 {
		fragment = rest[fIdx:]
	}
	return raw[:qIdx+1] + redacted + fragment
}

func redactQuery(rawQuery string) (string, bool) {
	segments := strings.Split(rawQuery, "&")
	changed := false

	for i, segment := range segments {
		name := segment
		if eq := strings.Index(segment, "="); eq >= 0 {
			name = segment[:eq]
		}
		if !isSensitive(queryName(name)) {
			continue
		}
		segments[i] = name + "=" + constants.RedactedValue
		changed = true
	}

	return strings.Join(segments, "&"), changed
}

// queryName unescapes a parameter name for matching only; the original
// spelling is what ends up in the rewritten query.
func queryName(name string) string {
	if unescaped, err := url.QueryUnescape(name); err == nil {
		return unescaped
	}
	return name
}

func isSensitive(name string) bool {
	lowered := strings.ToLower(name)
	for _, term := range sensitiveTerms {
		if strings.Contains(lowered, term) {
			return true
		}
	}
	return false
}

// truncate slices to max bytes and appends the marker. Slicing strictly at
// max keeps the operation idempotent: re-truncating an already-marked value
// reproduces it exactly instead of stacking markers.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + constants.TruncationMarker
}
