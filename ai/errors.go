package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies generator failures into the small set of user-facing
// apology variants the orchestrator knows about
type ErrorKind int

const (
	// ErrKindGeneric covers everything without a more specific mapping
	ErrKindGeneric ErrorKind = iota
	// ErrKindOverloaded means the provider is rate limiting or at capacity
	ErrKindOverloaded
	// ErrKindAuth means credentials are missing or rejected
	ErrKindAuth
)

// GeneratorError wraps a provider failure with its HTTP status when known
type GeneratorError struct {
	StatusCode int
	Message    string
}

func (e *GeneratorError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generator request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}

// Classify maps an error from a generator call site to an ErrorKind
func Classify(err error) ErrorKind {
	var genErr *GeneratorError
	if errors.As(err, &genErr) {
		switch genErr.StatusCode {
		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusBadGateway:
			return ErrKindOverloaded
		case http.StatusUnauthorized, http.StatusForbidden:
			return ErrKindAuth
		}
	}
	return ErrKindGeneric
}
