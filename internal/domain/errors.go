package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	ErrorConfig         ErrorKind = "CONFIG_ERROR"
	ErrorValidation     ErrorKind = "VALIDATION_ERROR"
	ErrorFetch          ErrorKind = "FETCH_ERROR"
	ErrorExtraction     ErrorKind = "EXTRACTION_ERROR"
	ErrorUpstream       ErrorKind = "UPSTREAM_ERROR"
	ErrorUpstreamStream ErrorKind = "UPSTREAM_STREAM_ERROR"
)

// Error carries a kind that the HTTP layer maps to a status code.
// Reason is safe to show to clients, Err is not.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func NewError(kind ErrorKind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
