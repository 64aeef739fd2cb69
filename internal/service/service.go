// Package service contains the business logic for PlanejaTrip.
// Services validate inputs, enforce permission rules, and orchestrate repo
// calls. No storage code lives here; services depend on repo interfaces, so
// any backend (memory, redis, postgres) can sit underneath.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/pkordes/planejatrip/internal/domain"
)

// maxConflictAttempts bounds how often a server-side read-modify-write is
// replayed after losing a version race.
const maxConflictAttempts = 3

// minPasswordLen is the shortest password accepted at registration or change.
const minPasswordLen = 6

var validate = validator.New(validator.WithRequiredStructEnabled())

// retryOnConflict runs fn until it succeeds, fails with anything other than
// a version conflict, or the attempts run out. fn must reload the record it
// writes on every call.
func retryOnConflict(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxConflictAttempts; attempt++ {
		err = fn()
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}

// validEmail reports whether email is a syntactically valid address.
func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
