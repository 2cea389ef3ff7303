package models

import "github.com/google/uuid"

type ErrorPayloadBuilder struct {
	payload ErrorPayload
}

func NewErrorPayloadBuilder(kind Kind) *ErrorPayloadBuilder {
	return &ErrorPayloadBuilder{
		payload: ErrorPayload{Kind: kind},
	}
}

func (b *ErrorPayloadBuilder) WithName(name string) *ErrorPayloadBuilder {
	b.payload.Name = name
	return b
}

func (b *ErrorPayloadBuilder) WithMessage(message string) *ErrorPayloadBuilder {
	b.payload.Message = message
	return b
}

func (b *ErrorPayloadBuilder) WithStack(stack string) *ErrorPayloadBuilder {
	b.payload.Stack = stack
	return b
}

func (b *ErrorPayloadBuilder) WithSource(source string) *ErrorPayloadBuilder {
	b.payload.Source = source
	return b
}

func (b *ErrorPayloadBuilder) WithPosition(position string) *ErrorPayloadBuilder {
	b.payload.Position = position
	return b
}

func (b *ErrorPayloadBuilder) WithURL(url string) *ErrorPayloadBuilder {
	b.payload.URL = url
	return b
}

func (b *ErrorPayloadBuilder) WithRoute(route string) *ErrorPayloadBuilder {
	b.payload.Route = route
	return b
}

func (b *ErrorPayloadBuilder) WithUserAgent(userAgent string) *ErrorPayloadBuilder {
	b.payload.UserAgent = userAgent
	return b
}

func (b *ErrorPayloadBuilder) WithEnvironment(environment string) *ErrorPayloadBuilder {
	b.payload.Environment = environment
	return b
}

func (b *ErrorPayloadBuilder) WithSessionID(sessionID string) *ErrorPayloadBuilder {
	b.payload.SessionID = sessionID
	return b
}

func (b *ErrorPayloadBuilder) WithTimestamp(timestamp string) *ErrorPayloadBuilder {
	b.payload.Timestamp = timestamp
	return b
}

func (b *ErrorPayloadBuilder) WithMetadataEntry(key, value string) *ErrorPayloadBuilder {
	if b.payload.Metadata == nil {
		b.payload.Metadata = make(map[string]string)
	}
	b.payload.Metadata[key] = value
	return b
}

// Build stamps the timestamp and event id unless the caller already did.
// The timestamp is never recomputed downstream of this point.
func (b *ErrorPayloadBuilder) Build() ErrorPayload {
	if b.payload.Timestamp == "" {
		b.payload.Timestamp = Now()
	}
	if b.payload.EventID == "" {
		b.payload.EventID = uuid.NewString()
	}
	return b.payload
}
