// Package repo is the record store adapter for PlanejaTrip.
// Each record kind has an interface here and three implementations:
// Postgres (user.go, trip.go, invite.go, session.go), an ephemeral
// in-memory store (memory.go) and a Redis key/value store (redis.go).
// One backend is selected at startup; they are never mixed at runtime.
// No business logic lives here, only persistence and type mapping.
package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/domain"
)

// UserRepo defines the persistence operations for Users.
type UserRepo interface {
	// Create inserts a new user. Returns domain.ErrDuplicateEmail if the
	// email is already registered.
	Create(ctx context.Context, user domain.User) (domain.User, error)

	// GetByID returns domain.ErrNotFound if no user has that ID.
	GetByID(ctx context.Context, id uuid.UUID) (domain.User, error)

	// GetByEmail returns domain.ErrNotFound if no user has that email.
	GetByEmail(ctx context.Context, email string) (domain.User, error)

	// List returns every user ordered by email.
	List(ctx context.Context) ([]domain.User, error)

	// Update overwrites name and password hash. Email is immutable.
	Update(ctx context.Context, user domain.User) (domain.User, error)

	// Delete removes a user. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// TripRepo defines the persistence operations for Trips.
type TripRepo interface {
	// Create inserts a new trip with Version 1 and returns the stored record.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID returns domain.ErrNotFound if no trip has that ID.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// List returns every trip ordered by start date.
	List(ctx context.Context) ([]domain.Trip, error)

	// ListByParticipant returns the trips whose participant set contains email,
	// ordered by start date.
	ListByParticipant(ctx context.Context, email string) ([]domain.Trip, error)

	// Update overwrites the trip if trip.Version matches the stored version,
	// and returns the record with Version incremented.
	// Returns domain.ErrVersionConflict on mismatch, domain.ErrNotFound if missing.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// Delete removes a trip. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// InviteRepo defines the persistence operations for Invites.
type InviteRepo interface {
	// Create inserts a new invite with Version 1. Returns
	// domain.ErrDuplicateInvite if one already exists for (TripID, GuestEmail).
	Create(ctx context.Context, invite domain.Invite) (domain.Invite, error)

	// GetByID returns domain.ErrNotFound if no invite has that ID.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Invite, error)

	// List returns every invite ordered by creation time.
	List(ctx context.Context) ([]domain.Invite, error)

	// ListActionable returns the pending invites addressed to email and the
	// rejected invites sent by email, ordered by creation time.
	ListActionable(ctx context.Context, email string) ([]domain.Invite, error)

	// FindByTripAndGuest returns domain.ErrNotFound when no invite exists for the pair.
	FindByTripAndGuest(ctx context.Context, tripID uuid.UUID, guestEmail string) (domain.Invite, error)

	// Update overwrites status and permission if invite.Version matches.
	// Returns domain.ErrVersionConflict on mismatch, domain.ErrNotFound if missing.
	Update(ctx context.Context, invite domain.Invite) (domain.Invite, error)

	// Delete removes an invite. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepo stores signed-in sessions: the sign-in, current-session and
// sign-out primitive of the backend.
type SessionRepo interface {
	Create(ctx context.Context, session domain.Session) (domain.Session, error)

	// Get returns domain.ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id uuid.UUID) (domain.Session, error)

	// Delete is idempotent: deleting a missing session is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// Store bundles one backend's repos.
type Store struct {
	Users    UserRepo
	Trips    TripRepo
	Invites  InviteRepo
	Sessions SessionRepo
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing the scan
// helpers to be reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}
