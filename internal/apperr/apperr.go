package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindUpstream
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	default:
		return "internal"
	}
}

// Status maps a kind to its HTTP status. Conflicts are reported as 400 to
// match the duplicate-email contract clients already handle.
func (k Kind) Status() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Validation(msg string) *Error { return New(KindValidation, msg) }
func Conflict(msg string) *Error { return New(KindConflict, msg) }
func Unauthenticated(msg string) *Error { return New(KindAuthentication, msg) }
func Forbidden(msg string) *Error { return New(KindAuthorization, msg) }
func NotFound(msg string) *Error { return New(KindNotFound, msg) }

func Upstream(msg string, err error) *Error { return Wrap(KindUpstream, msg, err) }
func Internal(err error) *Error { return Wrap(KindInternal, "", err) }

// KindOf reports the kind of the first *Error in err's chain, or
// KindInternal for anything unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// PublicMessage is the text safe to return to a client. Internal errors are
// redacted unless expose is set.
func PublicMessage(err error, expose bool) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		if e.Message != "" {
			return e.Message
		}
		return e.Error()
	}
	if expose && err != nil {
		return err.Error()
	}
	return "internal server error"
}
