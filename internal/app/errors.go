package app

import (
	"fmt"
	"time"
)

// ErrorKind classifies an application failure so the HTTP layer can map it to
// a status code and callers can tell "we generated content but failed to save
// it" apart from "we never generated anything".
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindForbidden      ErrorKind = "forbidden"
	KindAuthentication ErrorKind = "upstream_auth"
	KindRateLimited    ErrorKind = "rate_limited"
	KindUpstream       ErrorKind = "upstream"
	KindPersistence    ErrorKind = "persistence"
)

// Error is the single structured error shape the app layer produces.
type Error struct {
	Kind       ErrorKind
	Message    string
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	return e.Message
}

func validationError(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func forbiddenError(format string, args ...any) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf(format, args...)}
}

func persistenceError(err error) *Error {
	return &Error{Kind: KindPersistence, Message: fmt.Sprintf("storage failure: %v", err)}
}
