package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/pkordes/planejatrip/internal/domain"
)

// pgTripRepo is the Postgres implementation of TripRepo.
// The embedded itinerary, categories, participants and preferences are
// stored as JSONB columns; participants are queried by containment.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, name, destination, description, start_date, end_date, budget, currency,
		is_completed, owner_email, days, categories, participants, preferences,
		version, created_at, updated_at`

func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (id, name, destination, description, start_date, end_date, budget, currency,
		                   is_completed, owner_email, days, categories, participants, preferences)
		VALUES (@id, @name, @destination, @description, @start_date, @end_date, @budget, @currency,
		        @is_completed, @owner_email, @days, @categories, @participants, @preferences)
		RETURNING ` + tripColumns

	if trip.ID == uuid.Nil {
		trip.ID = uuid.New()
	}
	args, err := tripArgs(trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", classifyPG(err, domain.ErrConflict))
	}
	return result, nil
}

func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", classifyPG(err, nil))
	}
	return result, nil
}

func (r *pgTripRepo) List(ctx context.Context) ([]domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips ORDER BY start_date, created_at`

	trips, err := r.query(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.List: %w", err)
	}
	return trips, nil
}

// ListByParticipant uses JSONB containment so the GIN index on participants applies.
func (r *pgTripRepo) ListByParticipant(ctx context.Context, email string) ([]domain.Trip, error) {
	const q = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE participants @> jsonb_build_array(jsonb_build_object('email', @email::text))
		ORDER BY start_date, created_at`

	trips, err := r.query(ctx, q, pgx.NamedArgs{"email": domain.NormalizeEmail(email)})
	if err != nil {
		return nil, fmt.Errorf("repo.TripRepo.ListByParticipant: %w", err)
	}
	return trips, nil
}

// Update only matches the row when the caller's version is current; a
// miss is disambiguated into not-found versus version conflict.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET name         = @name,
		    destination  = @destination,
		    description  = @description,
		    start_date   = @start_date,
		    end_date     = @end_date,
		    budget       = @budget,
		    currency     = @currency,
		    is_completed = @is_completed,
		    owner_email  = @owner_email,
		    days         = @days,
		    categories   = @categories,
		    participants = @participants,
		    preferences  = @preferences,
		    version      = version + 1,
		    updated_at   = now()
		WHERE id = @id AND version = @version
		RETURNING ` + tripColumns

	args, err := tripArgs(trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	args["version"] = trip.Version

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err == nil {
		return result, nil
	}
	err = classifyPG(err, nil)
	if errors.Is(err, domain.ErrNotFound) {
		err = missOrConflict(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = @id)`, trip.ID)
	}
	return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
}

func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM trips WHERE id = @id`, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", classifyPG(err, nil))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

func (r *pgTripRepo) query(ctx context.Context, q string, args pgx.NamedArgs) ([]domain.Trip, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if args == nil {
		rows, err = r.db.Query(ctx, q)
	} else {
		rows, err = r.db.Query(ctx, q, args)
	}
	if err != nil {
		return nil, classifyPG(err, nil)
	}
	defer rows.Close()

	var trips []domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", classifyPG(err, nil))
	}
	return trips, nil
}

// missOrConflict decides why a versioned UPDATE matched no row.
func missOrConflict(ctx context.Context, db db, existsQuery string, id uuid.UUID) error {
	var exists bool
	if err := db.QueryRow(ctx, existsQuery, pgx.NamedArgs{"id": id}).Scan(&exists); err != nil {
		return classifyPG(err, nil)
	}
	if exists {
		return domain.ErrVersionConflict
	}
	return domain.ErrNotFound
}

// tripArgs maps a trip onto named query arguments, encoding the embedded
// collections as JSON for the JSONB columns.
func tripArgs(t domain.Trip) (pgx.NamedArgs, error) {
	t = t.WithDefaults()
	t.Participants = normalizeParticipants(t.Participants)
	days, err := json.Marshal(t.Days)
	if err != nil {
		return nil, fmt.Errorf("encode days: %w", err)
	}
	categories, err := json.Marshal(t.Categories)
	if err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	participants, err := json.Marshal(t.Participants)
	if err != nil {
		return nil, fmt.Errorf("encode participants: %w", err)
	}
	preferences, err := json.Marshal(t.Preferences)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}
	return pgx.NamedArgs{
		"id":           t.ID,
		"name":         t.Name,
		"destination":  t.Destination,
		"description":  t.Description,
		"start_date":   t.StartDate,
		"end_date":     t.EndDate,
		"budget":       t.Budget,
		"currency":     string(t.Currency),
		"is_completed": t.IsCompleted,
		"owner_email":  domain.NormalizeEmail(t.OwnerEmail),
		"days":         days,
		"categories":   categories,
		"participants": participants,
		"preferences":  preferences,
	}, nil
}

// scanTrip maps a single database row into a domain.Trip.
// A NULL preferences column (rows written before preferences existed)
// yields the default preference block.
func scanTrip(s scanner) (domain.Trip, error) {
	var (
		t                                   domain.Trip
		id                                  pgtype.UUID
		start, end                          pgtype.Date
		currency                            string
		days, categories, participants, prf []byte
	)

	err := s.Scan(&id, &t.Name, &t.Destination, &t.Description, &start, &end, &t.Budget, &currency,
		&t.IsCompleted, &t.OwnerEmail, &days, &categories, &participants, &prf,
		&t.Version, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.StartDate = start.Time
	t.EndDate = end.Time
	t.Currency = domain.Currency(currency)

	for _, col := range []struct {
		raw  []byte
		dest any
	}{
		{days, &t.Days},
		{categories, &t.Categories},
		{participants, &t.Participants},
		{prf, &t.Preferences},
	} {
		if len(col.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(col.raw, col.dest); err != nil {
			return domain.Trip{}, fmt.Errorf("decode trip %s: %w", t.ID, err)
		}
	}
	return t.WithDefaults(), nil
}

// normalizeParticipants returns a copy of ps with canonical emails, so the
// containment query and in-process comparisons agree.
func normalizeParticipants(ps []domain.Participant) []domain.Participant {
	out := make([]domain.Participant, len(ps))
	for i, p := range ps {
		p.Email = domain.NormalizeEmail(p.Email)
		out[i] = p
	}
	return out
}
