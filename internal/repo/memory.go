package repo

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/domain"
)

// memoryStore is the ephemeral backend. All four repos share one mutex so a
// reader never observes a half-applied write.
type memoryStore struct {
	mu       sync.RWMutex
	now      func() time.Time
	users    map[uuid.UUID]domain.User
	trips    map[uuid.UUID]domain.Trip
	invites  map[uuid.UUID]domain.Invite
	sessions map[uuid.UUID]domain.Session
}

// NewMemoryStore returns a Store whose records live only in process memory.
func NewMemoryStore() Store {
	m := &memoryStore{
		now:      func() time.Time { return time.Now().UTC() },
		users:    map[uuid.UUID]domain.User{},
		trips:    map[uuid.UUID]domain.Trip{},
		invites:  map[uuid.UUID]domain.Invite{},
		sessions: map[uuid.UUID]domain.Session{},
	}
	return Store{
		Users:    memUsers{m},
		Trips:    memTrips{m},
		Invites:  memInvites{m},
		Sessions: memSessions{m},
	}
}

// ---- users -----------------------------------------------------------------

type memUsers struct{ m *memoryStore }

func (r memUsers) Create(_ context.Context, user domain.User) (domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	user.Email = domain.NormalizeEmail(user.Email)
	for _, u := range r.m.users {
		if u.Email == user.Email {
			return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", domain.ErrDuplicateEmail)
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.CreatedAt = r.m.now()
	user.UpdatedAt = user.CreatedAt
	r.m.users[user.ID] = user
	return user, nil
}

func (r memUsers) GetByID(_ context.Context, id uuid.UUID) (domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	u, ok := r.m.users[id]
	if !ok {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", domain.ErrNotFound)
	}
	return u, nil
}

func (r memUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	for _, u := range r.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, fmt.Errorf("repo.UserRepo.GetByEmail: %w", domain.ErrNotFound)
}

func (r memUsers) List(_ context.Context) ([]domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	users := make([]domain.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (r memUsers) Update(_ context.Context, user domain.User) (domain.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.users[user.ID]
	if !ok {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Update: %w", domain.ErrNotFound)
	}
	stored.Name = user.Name
	stored.PasswordHash = user.PasswordHash
	stored.UpdatedAt = r.m.now()
	r.m.users[user.ID] = stored
	return stored, nil
}

func (r memUsers) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.users[id]; !ok {
		return fmt.Errorf("repo.UserRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.m.users, id)
	return nil
}

// ---- trips -----------------------------------------------------------------

type memTrips struct{ m *memoryStore }

func (r memTrips) Create(_ context.Context, trip domain.Trip) (domain.Trip, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	if _, exists := r.m.trips[trip.ID]; exists {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", domain.ErrConflict)
	}
	trip = cloneTrip(trip.WithDefaults())
	trip.OwnerEmail = domain.NormalizeEmail(trip.OwnerEmail)
	trip.Participants = normalizeParticipants(trip.Participants)
	trip.Version = 1
	trip.CreatedAt = r.m.now()
	trip.UpdatedAt = trip.CreatedAt
	r.m.trips[trip.ID] = trip
	return cloneTrip(trip), nil
}

func (r memTrips) GetByID(_ context.Context, id uuid.UUID) (domain.Trip, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	t, ok := r.m.trips[id]
	if !ok {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", domain.ErrNotFound)
	}
	return cloneTrip(t), nil
}

func (r memTrips) List(_ context.Context) ([]domain.Trip, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return r.m.sortedTrips(), nil
}

func (r memTrips) ListByParticipant(_ context.Context, email string) ([]domain.Trip, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return domain.ProjectTrips(email, r.m.sortedTrips()), nil
}

func (r memTrips) Update(_ context.Context, trip domain.Trip) (domain.Trip, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.trips[trip.ID]
	if !ok {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", domain.ErrNotFound)
	}
	if stored.Version != trip.Version {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", domain.ErrVersionConflict)
	}
	trip = cloneTrip(trip.WithDefaults())
	trip.OwnerEmail = domain.NormalizeEmail(trip.OwnerEmail)
	trip.Participants = normalizeParticipants(trip.Participants)
	trip.Version = stored.Version + 1
	trip.CreatedAt = stored.CreatedAt
	trip.UpdatedAt = r.m.now()
	r.m.trips[trip.ID] = trip
	return cloneTrip(trip), nil
}

func (r memTrips) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.trips[id]; !ok {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.m.trips, id)
	return nil
}

// sortedTrips must be called with mu held.
func (m *memoryStore) sortedTrips() []domain.Trip {
	trips := make([]domain.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		trips = append(trips, cloneTrip(t))
	}
	sortTrips(trips)
	return trips
}

// ---- invites ---------------------------------------------------------------

type memInvites struct{ m *memoryStore }

func (r memInvites) Create(_ context.Context, invite domain.Invite) (domain.Invite, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	invite.HostEmail = domain.NormalizeEmail(invite.HostEmail)
	invite.GuestEmail = domain.NormalizeEmail(invite.GuestEmail)
	for _, inv := range r.m.invites {
		if inv.TripID == invite.TripID && inv.GuestEmail == invite.GuestEmail {
			return domain.Invite{}, fmt.Errorf("repo.InviteRepo.Create: %w", domain.ErrDuplicateInvite)
		}
	}
	if invite.ID == uuid.Nil {
		invite.ID = uuid.New()
	}
	if invite.Status == "" {
		invite.Status = domain.InvitePending
	}
	invite.Version = 1
	invite.CreatedAt = r.m.now()
	invite.UpdatedAt = invite.CreatedAt
	r.m.invites[invite.ID] = invite
	return invite, nil
}

func (r memInvites) GetByID(_ context.Context, id uuid.UUID) (domain.Invite, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	inv, ok := r.m.invites[id]
	if !ok {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.GetByID: %w", domain.ErrNotFound)
	}
	return inv, nil
}

func (r memInvites) List(_ context.Context) ([]domain.Invite, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return r.m.sortedInvites(), nil
}

func (r memInvites) ListActionable(_ context.Context, email string) ([]domain.Invite, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return domain.ProjectInvites(email, r.m.sortedInvites()), nil
}

func (r memInvites) FindByTripAndGuest(_ context.Context, tripID uuid.UUID, guestEmail string) (domain.Invite, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	guestEmail = domain.NormalizeEmail(guestEmail)
	for _, inv := range r.m.invites {
		if inv.TripID == tripID && inv.GuestEmail == guestEmail {
			return inv, nil
		}
	}
	return domain.Invite{}, fmt.Errorf("repo.InviteRepo.FindByTripAndGuest: %w", domain.ErrNotFound)
}

func (r memInvites) Update(_ context.Context, invite domain.Invite) (domain.Invite, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	stored, ok := r.m.invites[invite.ID]
	if !ok {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.Update: %w", domain.ErrNotFound)
	}
	if stored.Version != invite.Version {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.Update: %w", domain.ErrVersionConflict)
	}
	stored.Status = invite.Status
	stored.Permission = invite.Permission
	stored.Version++
	stored.UpdatedAt = r.m.now()
	r.m.invites[invite.ID] = stored
	return stored, nil
}

func (r memInvites) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.invites[id]; !ok {
		return fmt.Errorf("repo.InviteRepo.Delete: %w", domain.ErrNotFound)
	}
	delete(r.m.invites, id)
	return nil
}

// sortedInvites must be called with mu held.
func (m *memoryStore) sortedInvites() []domain.Invite {
	invites := make([]domain.Invite, 0, len(m.invites))
	for _, inv := range m.invites {
		invites = append(invites, inv)
	}
	sortInvites(invites)
	return invites
}

// ---- sessions --------------------------------------------------------------

type memSessions struct{ m *memoryStore }

func (r memSessions) Create(_ context.Context, session domain.Session) (domain.Session, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = r.m.now()
	r.m.sessions[session.ID] = session
	return session, nil
}

func (r memSessions) Get(_ context.Context, id uuid.UUID) (domain.Session, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	s, ok := r.m.sessions[id]
	if !ok || s.Expired(r.m.now()) {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Get: %w", domain.ErrNotFound)
	}
	return s, nil
}

func (r memSessions) Delete(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.sessions, id)
	return nil
}

// ---- shared helpers (also used by the redis backend) -----------------------

func sortTrips(trips []domain.Trip) {
	sort.SliceStable(trips, func(i, j int) bool {
		if !trips[i].StartDate.Equal(trips[j].StartDate) {
			return trips[i].StartDate.Before(trips[j].StartDate)
		}
		return trips[i].CreatedAt.Before(trips[j].CreatedAt)
	})
}

func sortInvites(invites []domain.Invite) {
	sort.SliceStable(invites, func(i, j int) bool {
		if !invites[i].CreatedAt.Equal(invites[j].CreatedAt) {
			return invites[i].CreatedAt.Before(invites[j].CreatedAt)
		}
		return invites[i].ID.String() < invites[j].ID.String()
	})
}

// cloneTrip copies every nested slice so stored records never alias caller memory.
func cloneTrip(t domain.Trip) domain.Trip {
	if t.Days != nil {
		days := make([]domain.Day, len(t.Days))
		for i, d := range t.Days {
			if d.Activities != nil {
				acts := make([]domain.Activity, len(d.Activities))
				for j, a := range d.Activities {
					a.Participants = slices.Clone(a.Participants)
					if a.RealCost != nil {
						cost := *a.RealCost
						a.RealCost = &cost
					}
					acts[j] = a
				}
				d.Activities = acts
			}
			days[i] = d
		}
		t.Days = days
	}
	t.Categories = slices.Clone(t.Categories)
	t.Participants = slices.Clone(t.Participants)
	t.Preferences.Likes = slices.Clone(t.Preferences.Likes)
	t.Preferences.Dislikes = slices.Clone(t.Preferences.Dislikes)
	return t
}
