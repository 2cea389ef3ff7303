package models

import "time"

// Kind categorizes where an error was captured, not what caused it.
type Kind string

const (
	KindRuntimeError       Kind = "runtime_error"
	KindUnhandledRejection Kind = "unhandled_rejection"
	KindRenderError        Kind = "render_error"
	KindNetworkError       Kind = "network_error"
	KindHTTPError          Kind = "http_error"
	KindExplicitRejection  Kind = "explicit_rejection"
)

func (k Kind) Valid() bool {
	switch k {
	case KindRuntimeError, KindUnhandledRejection, KindRenderError,
		KindNetworkError, KindHTTPError, KindExplicitRejection:
		return true
	}
	return false
}

// TimestampLayout is ISO-8601 with millisecond precision. Timestamps are
// stamped once at capture and carried as opaque strings from then on.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

func Now() string {
	return time.Now().UTC().Format(TimestampLayout)
}

type ErrorPayload struct {
	EventID     string            `json:"event_id,omitempty"`
	Kind        Kind              `json:"kind"`
	Name        string            `json:"name,omitempty"`
	Message     string            `json:"message,omitempty"`
	Stack       string            `json:"stack,omitempty"`
	Source      string            `json:"source,omitempty"`
	Position    string            `json:"position,omitempty"` // "line:col"
	URL         string            `json:"url,omitempty"`
	Route       string            `json:"route,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	Environment string            `json:"environment,omitempty"`
	SessionID   string            `json:"session_id,omitempty"`
	Timestamp   string            `json:"timestamp"`
	Fingerprint string            `json:"fingerprint,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Clone returns a copy that shares no mutable state with the receiver.
func (p ErrorPayload) Clone() ErrorPayload {
	clone := p
	if p.Metadata != nil {
		clone.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			clone.Metadata[k] = v
		}
	}
	return clone
}
