package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateErrorPayload(p *ErrorPayload) error {
	if p == nil {
		return &ValidationError{
			Field:   "payload",
			Message: "error payload cannot be nil",
		}
	}

	if p.Kind == "" {
		return &ValidationError{
			Field:   "kind",
			Message: "error kind is required",
		}
	}

	if !p.Kind.Valid() {
		return &ValidationError{
			Field:   "kind",
			Message: fmt.Sprintf("unknown error kind '%s'", p.Kind),
		}
	}

	if p.Timestamp == "" {
		return &ValidationError{
			Field:   "timestamp",
			Message: "capture timestamp is required",
		}
	}

	return nil
}
