package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind sentinels. Every error returned by repo and service functions wraps
// exactly one of these, so callers can branch with errors.Is or KindOf.

// ErrNotFound is returned by repo and service functions when the requested
// record does not exist. Handlers map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (missing field, mismatched confirmation, unmet precondition).
// Handlers map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrUnauthorized is returned when credentials are wrong, a session is
// missing or expired, or the acting user lacks the permission an operation
// needs. Handlers map this to HTTP 401 or 403.
var ErrUnauthorized = errors.New("unauthorized")

// ErrConflict is returned when a unique key is already taken or a versioned
// write lost a race. Handlers map this to HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrTransient wraps network and backend failures. Nothing retries these
// automatically; they are logged and reported.
var ErrTransient = errors.New("backend unavailable")

// Specific errors. Each wraps its kind so errors.Is matches both.
var (
	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrForbidden          = fmt.Errorf("%w: you do not have permission to do this", ErrUnauthorized)
	ErrDuplicateEmail     = fmt.Errorf("%w: an account with this email already exists", ErrConflict)
	ErrDuplicateInvite    = fmt.Errorf("%w: an invite for this trip was already sent to this user", ErrConflict)
	ErrVersionConflict    = fmt.Errorf("%w: the record was changed by someone else, reload and try again", ErrConflict)
	ErrNoAccount          = fmt.Errorf("%w: no account found with this email", ErrValidation)
	ErrAlreadyParticipant = fmt.Errorf("%w: this user already participates in the trip", ErrValidation)
)

// Kind is the tagged category of a domain error.
type Kind string

const (
	KindNone          Kind = ""
	KindValidation    Kind = "validation"
	KindAuthorization Kind = "authorization"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindTransient     Kind = "transient"
	KindInternal      Kind = "internal"
)

// KindOf reports which kind sentinel err wraps. Errors that wrap none of
// them are KindInternal; a nil error is KindNone.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnauthorized):
		return KindAuthorization
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrTransient):
		return KindTransient
	default:
		return KindInternal
	}
}

// Message extracts the user-facing part of a wrapped domain error.
// e.g. "service.InviteService.Invite: validation error: no account found with this email"
// becomes "no account found with this email".
func Message(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []error{ErrValidation, ErrUnauthorized, ErrConflict, ErrNotFound, ErrTransient} {
		marker := sentinel.Error() + ": "
		if i := strings.LastIndex(msg, marker); i >= 0 {
			return msg[i+len(marker):]
		}
	}
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

// Invalid builds a validation error with a user-facing message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Transient wraps a backend failure so it classifies as KindTransient.
func Transient(err error) error {
	return fmt.Errorf("%w: %w", ErrTransient, err)
}
