package core

import "errors"

// Error codes sent in signaling error envelopes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeUnsupported  = "unsupported"
	ErrCodeRateLimited  = "rate_limited"
)

// ErrHubClosed is returned after the hub loop has stopped.
var ErrHubClosed = errors.New("hub closed")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// NewError builds a CoreError.
func NewError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
