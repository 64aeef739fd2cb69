package repo_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/repo"
	"github.com/pkordes/planejatrip/testutil"
)

// backend builds a fresh, empty Store for one test.
type backend struct {
	name string
	open func(t *testing.T) repo.Store
}

func backends() []backend {
	return []backend{
		{"memory", func(*testing.T) repo.Store { return repo.NewMemoryStore() }},
		{"redis", func(t *testing.T) repo.Store {
			_, client := newRedis(t)
			return repo.NewRedisStore(client)
		}},
		{"postgres", newPostgresStore},
	}
}

// forEachBackend runs fn once per backend as a subtest, so every backend is
// held to the same contract.
func forEachBackend(t *testing.T, fn func(t *testing.T, s repo.Store)) {
	t.Helper()
	for _, b := range backends() {
		t.Run(b.name, func(t *testing.T) {
			fn(t, b.open(t))
		})
	}
}

// newRedis starts an in-process Redis server that is shut down with the test.
func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// newPostgresStore returns a Store inside a transaction that is rolled
// back when the test finishes. Skips without TEST_DATABASE_URL.
func newPostgresStore(t *testing.T) repo.Store {
	t.Helper()
	return repo.NewPostgresStore(testutil.NewTx(t))
}

// ---- fixtures --------------------------------------------------------------

func userFixture(email string) domain.User {
	return domain.User{Name: "User " + email, Email: email, PasswordHash: "$2a$10$hash"}
}

// tripFixture returns a trip owned by owner with sensible defaults.
// Callers can override individual fields after calling this function.
func tripFixture(owner string) domain.Trip {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
	return domain.Trip{
		Name:        "Lisbon",
		Destination: "Lisbon, Portugal",
		StartDate:   start,
		EndDate:     end,
		Budget:      1000,
		Currency:    domain.CurrencyEUR,
		OwnerEmail:  owner,
		Days:        domain.BuildDays(start, end),
		Categories:  domain.DefaultCategories(),
		Participants: []domain.Participant{
			{Name: "Owner", Email: owner, Permission: domain.PermissionEdit},
		},
		Preferences: domain.DefaultPreferences(),
	}
}

func inviteFixture(trip domain.Trip, guest string) domain.Invite {
	return domain.Invite{
		TripID:     trip.ID,
		TripName:   trip.Name,
		HostEmail:  trip.OwnerEmail,
		HostName:   "Owner",
		GuestEmail: guest,
		Permission: domain.PermissionViewOnly,
		Status:     domain.InvitePending,
	}
}
