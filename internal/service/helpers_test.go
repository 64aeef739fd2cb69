package service_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pkordes/planejatrip/internal/auth"
	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/repo"
	"github.com/pkordes/planejatrip/internal/service"
)

// mockTripRepo is a hand-written test double for repo.TripRepo.
// Each method is a function field; set only the ones your test needs.
type mockTripRepo struct {
	create            func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID           func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	list              func(ctx context.Context) ([]domain.Trip, error)
	listByParticipant func(ctx context.Context, email string) ([]domain.Trip, error)
	update            func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	delete            func(ctx context.Context, id uuid.UUID) error
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	return m.list(ctx)
}
func (m *mockTripRepo) ListByParticipant(ctx context.Context, email string) ([]domain.Trip, error) {
	return m.listByParticipant(ctx, email)
}
func (m *mockTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.update(ctx, trip)
}
func (m *mockTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}

// compile-time check: mockTripRepo must satisfy repo.TripRepo.
var _ repo.TripRepo = (*mockTripRepo)(nil)

// mockNotifier records invites and returns err.
type mockNotifier struct {
	sent []domain.Invite
	err  error
}

func (m *mockNotifier) InviteCreated(_ context.Context, inv domain.Invite) error {
	m.sent = append(m.sent, inv)
	return m.err
}

// ---- environment -----------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// env wires every service over one memory store.
type env struct {
	store    repo.Store
	auth     *service.AuthService
	trips    *service.TripService
	invites  *service.InviteService
	project  *service.ProjectionService
	notifier *mockNotifier
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := repo.NewMemoryStore()
	log := discardLogger()
	notifier := &mockNotifier{}
	return &env{
		store:    store,
		auth:     service.NewAuthService(store.Users, store.Sessions, auth.Hasher{Cost: bcrypt.MinCost}, auth.NewTokens("test-secret"), time.Hour, log),
		trips:    service.NewTripService(store.Trips, log),
		invites:  service.NewInviteService(store.Users, store.Trips, store.Invites, notifier, log),
		project:  service.NewProjectionService(store.Trips, store.Invites),
		notifier: notifier,
	}
}

// register creates an account and fails the test on error.
func (e *env) register(t *testing.T, name, email string) domain.User {
	t.Helper()
	u, err := e.auth.Register(context.Background(), name, email, "secret1")
	require.NoError(t, err)
	return u
}

// newTrip creates a valid three-day trip owned by owner.
func (e *env) newTrip(t *testing.T, owner domain.User, name string) domain.Trip {
	t.Helper()
	trip, err := e.trips.Create(context.Background(), owner, tripInput(name))
	require.NoError(t, err)
	return trip
}

func tripInput(name string) domain.Trip {
	return domain.Trip{
		Name:        name,
		Destination: name + ", Portugal",
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC),
		Budget:      1000,
		Currency:    domain.CurrencyEUR,
	}
}
