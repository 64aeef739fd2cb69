package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/planejatrip/internal/domain"
)

// Redis key layout. Records are JSON documents in hashes keyed by their
// natural key; the *:by-* hashes are secondary indexes kept in step.
const (
	keyUsers         = "planejatrip:users"            // email -> user JSON
	keyUserIDs       = "planejatrip:users:by-id"      // id -> email
	keyTrips         = "planejatrip:trips"            // id -> trip JSON
	keyInvites       = "planejatrip:invites"          // id -> invite JSON
	keyInvitePairs   = "planejatrip:invites:by-pair"  // tripID|guestEmail -> id
	keyLegacyInvites = "planejatrip:invites:by-guest" // guestEmail -> JSON array (old layout)
	keySessionPrefix = "planejatrip:session:"
)

// maxTxAttempts bounds how often a WATCH transaction is replayed when another
// writer touched the same hash between read and commit.
const maxTxAttempts = 5

type redisStore struct {
	client redis.UniversalClient
	now    func() time.Time
}

// NewRedisStore returns a Store persisted in Redis.
func NewRedisStore(client redis.UniversalClient) Store {
	s := &redisStore{client: client, now: func() time.Time { return time.Now().UTC() }}
	return Store{
		Users:    redisUsers{s},
		Trips:    redisTrips{s},
		Invites:  redisInvites{s},
		Sessions: redisSessions{s},
	}
}

// classifyRedis maps client errors onto the domain taxonomy. Errors that
// already carry a domain kind pass through untouched.
func classifyRedis(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, redis.Nil):
		return domain.ErrNotFound
	case domain.KindOf(err) != domain.KindInternal:
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.DeadlineExceeded) {
		return domain.Transient(err)
	}
	return err
}

// modify read-modify-writes one hash field under WATCH. apply receives the
// stored document and returns its replacement; a missing field is
// domain.ErrNotFound. Aborted transactions are replayed up to maxTxAttempts.
func (s *redisStore) modify(ctx context.Context, key, field string, apply func(raw []byte) ([]byte, error)) error {
	for attempt := 0; attempt < maxTxAttempts; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.HGet(ctx, key, field).Bytes()
			if err != nil {
				return classifyRedis(err)
			}
			next, err := apply(raw)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
				p.HSet(ctx, key, field, next)
				return nil
			})
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return classifyRedis(err)
	}
	return domain.ErrVersionConflict
}

// ---- users -----------------------------------------------------------------

// userRecord is the stored form of a user; unlike domain.User it keeps the hash.
type userRecord struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (u userRecord) user() domain.User {
	return domain.User(u)
}

type redisUsers struct{ s *redisStore }

func (r redisUsers) Create(ctx context.Context, user domain.User) (domain.User, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = domain.NormalizeEmail(user.Email)
	user.CreatedAt = r.s.now()
	user.UpdatedAt = user.CreatedAt

	data, err := json.Marshal(userRecord(user))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: encode: %w", err)
	}
	ok, err := r.s.client.HSetNX(ctx, keyUsers, user.Email, data).Result()
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", classifyRedis(err))
	}
	if !ok {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: %w", domain.ErrDuplicateEmail)
	}
	if err := r.s.client.HSet(ctx, keyUserIDs, user.ID.String(), user.Email).Err(); err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Create: index: %w", classifyRedis(err))
	}
	return user, nil
}

func (r redisUsers) GetByID(ctx context.Context, id uuid.UUID) (domain.User, error) {
	email, err := r.s.client.HGet(ctx, keyUserIDs, id.String()).Result()
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", classifyRedis(err))
	}
	u, err := r.get(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByID: %w", err)
	}
	return u, nil
}

func (r redisUsers) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	u, err := r.get(ctx, domain.NormalizeEmail(email))
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.GetByEmail: %w", err)
	}
	return u, nil
}

func (r redisUsers) get(ctx context.Context, email string) (domain.User, error) {
	raw, err := r.s.client.HGet(ctx, keyUsers, email).Bytes()
	if err != nil {
		return domain.User{}, classifyRedis(err)
	}
	var rec userRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return domain.User{}, fmt.Errorf("decode user %s: %w", email, err)
	}
	return rec.user(), nil
}

func (r redisUsers) List(ctx context.Context) ([]domain.User, error) {
	vals, err := r.s.client.HVals(ctx, keyUsers).Result()
	if err != nil {
		return nil, fmt.Errorf("repo.UserRepo.List: %w", classifyRedis(err))
	}
	users := make([]domain.User, 0, len(vals))
	for _, v := range vals {
		var rec userRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("repo.UserRepo.List: decode: %w", err)
		}
		users = append(users, rec.user())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (r redisUsers) Update(ctx context.Context, user domain.User) (domain.User, error) {
	email, err := r.s.client.HGet(ctx, keyUserIDs, user.ID.String()).Result()
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Update: %w", classifyRedis(err))
	}

	var result domain.User
	err = r.s.modify(ctx, keyUsers, email, func(raw []byte) ([]byte, error) {
		var rec userRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", email, err)
		}
		rec.Name = user.Name
		rec.PasswordHash = user.PasswordHash
		rec.UpdatedAt = r.s.now()
		result = rec.user()
		return json.Marshal(rec)
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("repo.UserRepo.Update: %w", err)
	}
	return result, nil
}

func (r redisUsers) Delete(ctx context.Context, id uuid.UUID) error {
	email, err := r.s.client.HGet(ctx, keyUserIDs, id.String()).Result()
	if err != nil {
		return fmt.Errorf("repo.UserRepo.Delete: %w", classifyRedis(err))
	}
	_, err = r.s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, keyUsers, email)
		p.HDel(ctx, keyUserIDs, id.String())
		return nil
	})
	if err != nil {
		return fmt.Errorf("repo.UserRepo.Delete: %w", classifyRedis(err))
	}
	return nil
}

// ---- trips -----------------------------------------------------------------

type redisTrips struct{ s *redisStore }

func (r redisTrips) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	trip = trip.WithDefaults()
	trip.OwnerEmail = domain.NormalizeEmail(trip.OwnerEmail)
	trip.Participants = normalizeParticipants(trip.Participants)
	trip.Version = 1
	trip.CreatedAt = r.s.now()
	trip.UpdatedAt = trip.CreatedAt

	data, err := json.Marshal(trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: encode: %w", err)
	}
	ok, err := r.s.client.HSetNX(ctx, keyTrips, trip.ID.String(), data).Result()
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", classifyRedis(err))
	}
	if !ok {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", domain.ErrConflict)
	}
	return trip, nil
}

func (r redisTrips) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	raw, err := r.s.client.HGet(ctx, keyTrips, id.String()).Bytes()
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", classifyRedis(err))
	}
	t, err := decodeTrip(raw)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return t, nil
}

func (r redisTrips) List(ctx context.Context) ([]domain.Trip, error) {
	trips, err := r.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	return trips, nil
}

// ListByParticipant filters in process; the hash has no participant index.
func (r redisTrips) ListByParticipant(ctx context.Context, email string) ([]domain.Trip, error) {
	trips, err := r.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByParticipant: %w", err)
	}
	return domain.ProjectTrips(email, trips), nil
}

func (r redisTrips) all(ctx context.Context) ([]domain.Trip, error) {
	vals, err := r.s.client.HVals(ctx, keyTrips).Result()
	if err != nil {
		return nil, classifyRedis(err)
	}
	trips := make([]domain.Trip, 0, len(vals))
	for _, v := range vals {
		t, err := decodeTrip([]byte(v))
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	sortTrips(trips)
	return trips, nil
}

func (r redisTrips) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	var result domain.Trip
	err := r.s.modify(ctx, keyTrips, trip.ID.String(), func(raw []byte) ([]byte, error) {
		stored, err := decodeTrip(raw)
		if err != nil {
			return nil, err
		}
		if stored.Version != trip.Version {
			return nil, domain.ErrVersionConflict
		}
		next := trip.WithDefaults()
		next.OwnerEmail = domain.NormalizeEmail(next.OwnerEmail)
		next.Participants = normalizeParticipants(next.Participants)
		next.Version = stored.Version + 1
		next.CreatedAt = stored.CreatedAt
		next.UpdatedAt = r.s.now()
		result = next
		return json.Marshal(next)
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

func (r redisTrips) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.s.client.HDel(ctx, keyTrips, id.String()).Result()
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", classifyRedis(err))
	}
	if n == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func decodeTrip(raw []byte) (domain.Trip, error) {
	var t domain.Trip
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Trip{}, fmt.Errorf("decode trip: %w", err)
	}
	return t.WithDefaults(), nil
}

// ---- invites ---------------------------------------------------------------

type redisInvites struct{ s *redisStore }

func pairField(tripID uuid.UUID, guestEmail string) string {
	return tripID.String() + "|" + domain.NormalizeEmail(guestEmail)
}

func (r redisInvites) Create(ctx context.Context, invite domain.Invite) (domain.Invite, error) {
	if invite.ID == uuid.Nil {
		invite.ID = uuid.New()
	}
	if invite.Status == "" {
		invite.Status = domain.InvitePending
	}
	invite.HostEmail = domain.NormalizeEmail(invite.HostEmail)
	invite.GuestEmail = domain.NormalizeEmail(invite.GuestEmail)
	invite.Version = 1
	invite.CreatedAt = r.s.now()
	invite.UpdatedAt = invite.CreatedAt

	if err := insertInvite(ctx, r.s.client, invite); err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.Create: %w", err)
	}
	return invite, nil
}

// insertInvite claims the (trip, guest) pair before writing the record so two
// concurrent invites for the same guest cannot both succeed.
func insertInvite(ctx context.Context, client redis.UniversalClient, invite domain.Invite) error {
	data, err := json.Marshal(invite)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	pair := pairField(invite.TripID, invite.GuestEmail)
	ok, err := client.HSetNX(ctx, keyInvitePairs, pair, invite.ID.String()).Result()
	if err != nil {
		return classifyRedis(err)
	}
	if !ok {
		if err := reclaimPair(ctx, client, pair, invite.ID); err != nil {
			return err
		}
	}
	if err := client.HSet(ctx, keyInvites, invite.ID.String(), data).Err(); err != nil {
		err = classifyRedis(err)
		if delErr := client.HDel(ctx, keyInvitePairs, pair).Err(); delErr != nil {
			return errors.Join(err, fmt.Errorf("release pair %s: %w", pair, classifyRedis(delErr)))
		}
		return err
	}
	return nil
}

// reclaimPair takes over a pair entry whose invite record does not exist,
// as left behind when releasing the pair after a failed insert also failed.
// A pair held by a stored invite is domain.ErrDuplicateInvite.
func reclaimPair(ctx context.Context, client redis.UniversalClient, pair string, id uuid.UUID) error {
	err := client.Watch(ctx, func(tx *redis.Tx) error {
		holder, err := tx.HGet(ctx, keyInvitePairs, pair).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return classifyRedis(err)
		default:
			live, err := tx.HExists(ctx, keyInvites, holder).Result()
			if err != nil {
				return classifyRedis(err)
			}
			if live {
				return domain.ErrDuplicateInvite
			}
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, keyInvitePairs, pair, id.String())
			return nil
		})
		return err
	}, keyInvitePairs, keyInvites)
	if errors.Is(err, redis.TxFailedErr) {
		return domain.ErrVersionConflict
	}
	return classifyRedis(err)
}

func (r redisInvites) GetByID(ctx context.Context, id uuid.UUID) (domain.Invite, error) {
	raw, err := r.s.client.HGet(ctx, keyInvites, id.String()).Bytes()
	if err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.GetByID: %w", classifyRedis(err))
	}
	inv, err := decodeInvite(raw)
	if err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.GetByID: %w", err)
	}
	return inv, nil
}

func (r redisInvites) List(ctx context.Context) ([]domain.Invite, error) {
	invites, err := r.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.InviteRepo.List: %w", err)
	}
	return invites, nil
}

func (r redisInvites) ListActionable(ctx context.Context, email string) ([]domain.Invite, error) {
	invites, err := r.all(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.InviteRepo.ListActionable: %w", err)
	}
	return domain.ProjectInvites(email, invites), nil
}

func (r redisInvites) all(ctx context.Context) ([]domain.Invite, error) {
	vals, err := r.s.client.HVals(ctx, keyInvites).Result()
	if err != nil {
		return nil, classifyRedis(err)
	}
	invites := make([]domain.Invite, 0, len(vals))
	for _, v := range vals {
		inv, err := decodeInvite([]byte(v))
		if err != nil {
			return nil, err
		}
		invites = append(invites, inv)
	}
	sortInvites(invites)
	return invites, nil
}

func (r redisInvites) FindByTripAndGuest(ctx context.Context, tripID uuid.UUID, guestEmail string) (domain.Invite, error) {
	id, err := r.s.client.HGet(ctx, keyInvitePairs, pairField(tripID, guestEmail)).Result()
	if err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.FindByTripAndGuest: %w", classifyRedis(err))
	}
	raw, err := r.s.client.HGet(ctx, keyInvites, id).Bytes()
	if err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.FindByTripAndGuest: %w", classifyRedis(err))
	}
	inv, err := decodeInvite(raw)
	if err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.FindByTripAndGuest: %w", err)
	}
	return inv, nil
}

func (r redisInvites) Update(ctx context.Context, invite domain.Invite) (domain.Invite, error) {
	var result domain.Invite
	err := r.s.modify(ctx, keyInvites, invite.ID.String(), func(raw []byte) ([]byte, error) {
		stored, err := decodeInvite(raw)
		if err != nil {
			return nil, err
		}
		if stored.Version != invite.Version {
			return nil, domain.ErrVersionConflict
		}
		stored.Status = invite.Status
		stored.Permission = invite.Permission
		stored.Version++
		stored.UpdatedAt = r.s.now()
		result = stored
		return json.Marshal(stored)
	})
	if err != nil {
		return domain.Invite{}, fmt.Errorf("repo.InviteRepo.Update: %w", err)
	}
	return result, nil
}

func (r redisInvites) Delete(ctx context.Context, id uuid.UUID) error {
	inv, err := r.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("repo.InviteRepo.Delete: %w", err)
	}
	_, err = r.s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, keyInvites, id.String())
		p.HDel(ctx, keyInvitePairs, pairField(inv.TripID, inv.GuestEmail))
		return nil
	})
	if err != nil {
		return fmt.Errorf("repo.InviteRepo.Delete: %w", classifyRedis(err))
	}
	return nil
}

func decodeInvite(raw []byte) (domain.Invite, error) {
	var inv domain.Invite
	if err := json.Unmarshal(raw, &inv); err != nil {
		return domain.Invite{}, fmt.Errorf("decode invite: %w", err)
	}
	return inv, nil
}

// legacyInvite is the per-guest invite shape written before invites had a
// status: ids were opaque strings and every stored invite was pending.
type legacyInvite struct {
	ID         string            `json:"id"`
	TripID     string            `json:"tripId"`
	TripName   string            `json:"tripName"`
	HostEmail  string            `json:"hostEmail"`
	HostName   string            `json:"hostName"`
	GuestEmail string            `json:"guestEmail"`
	Permission domain.Permission `json:"permission"`
}

// legacyNamespace derives stable UUIDs for legacy ids that are not UUIDs.
var legacyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("planejatrip:legacy"))

func legacyUUID(id string) uuid.UUID {
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed
	}
	return uuid.NewSHA1(legacyNamespace, []byte(id))
}

// MigrateLegacyInvites moves invites from the per-guest layout into the
// global invite hash with status PENDING and removes the legacy key.
// Running it again once the legacy key is gone is a no-op. It returns the
// number of invites migrated; pairs that already have an invite are skipped.
func MigrateLegacyInvites(ctx context.Context, client redis.UniversalClient) (int, error) {
	byGuest, err := client.HGetAll(ctx, keyLegacyInvites).Result()
	if err != nil {
		return 0, fmt.Errorf("repo.MigrateLegacyInvites: %w", classifyRedis(err))
	}
	if len(byGuest) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	migrated := 0
	for guest, raw := range byGuest {
		var legacy []legacyInvite
		if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
			return migrated, fmt.Errorf("repo.MigrateLegacyInvites: decode %s: %w", guest, err)
		}
		for _, l := range legacy {
			inv := domain.Invite{
				ID:         legacyUUID(l.ID),
				TripID:     legacyUUID(l.TripID),
				TripName:   l.TripName,
				HostEmail:  domain.NormalizeEmail(l.HostEmail),
				HostName:   l.HostName,
				GuestEmail: domain.NormalizeEmail(l.GuestEmail),
				Permission: l.Permission,
				Status:     domain.InvitePending,
				Version:    1,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if inv.GuestEmail == "" {
				inv.GuestEmail = domain.NormalizeEmail(guest)
			}
			if !inv.Permission.Valid() {
				inv.Permission = domain.PermissionViewOnly
			}
			err := insertInvite(ctx, client, inv)
			if errors.Is(err, domain.ErrDuplicateInvite) {
				continue
			}
			if err != nil {
				return migrated, fmt.Errorf("repo.MigrateLegacyInvites: %w", err)
			}
			migrated++
		}
	}

	if err := client.Del(ctx, keyLegacyInvites).Err(); err != nil {
		return migrated, fmt.Errorf("repo.MigrateLegacyInvites: drop legacy key: %w", classifyRedis(err))
	}
	return migrated, nil
}

// ---- sessions --------------------------------------------------------------

type redisSessions struct{ s *redisStore }

func sessionKey(id uuid.UUID) string { return keySessionPrefix + id.String() }

// Create stores the session with a TTL so Redis expires it on its own.
func (r redisSessions) Create(ctx context.Context, session domain.Session) (domain.Session, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.CreatedAt = r.s.now()
	ttl := session.ExpiresAt.Sub(session.CreatedAt)
	if ttl <= 0 {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Create: %w", domain.Invalid("session expiry must be in the future"))
	}

	data, err := json.Marshal(session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Create: encode: %w", err)
	}
	if err := r.s.client.Set(ctx, sessionKey(session.ID), data, ttl).Err(); err != nil {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Create: %w", classifyRedis(err))
	}
	return session, nil
}

func (r redisSessions) Get(ctx context.Context, id uuid.UUID) (domain.Session, error) {
	raw, err := r.s.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Get: %w", classifyRedis(err))
	}
	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Get: decode: %w", err)
	}
	if sess.Expired(r.s.now()) {
		return domain.Session{}, fmt.Errorf("repo.SessionRepo.Get: %w", domain.ErrNotFound)
	}
	return sess, nil
}

func (r redisSessions) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.s.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("repo.SessionRepo.Delete: %w", classifyRedis(err))
	}
	return nil
}
