package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/repo"
)

// TripService implements the trip mutation handlers. Every write is a
// versioned read-modify-write; the ones that build the new record on the
// server are replayed on a version conflict, while Update, which carries the
// caller's own copy, reports the conflict back.
type TripService struct {
	trips repo.TripRepo
	log   *slog.Logger
}

// NewTripService constructs a TripService backed by the provided TripRepo.
func NewTripService(trips repo.TripRepo, log *slog.Logger) *TripService {
	return &TripService{trips: trips, log: log}
}

// UpdateResult is the outcome of Update. StillParticipant is false when the
// change removed the acting user from the trip.
type UpdateResult struct {
	Trip             domain.Trip `json:"trip"`
	StillParticipant bool        `json:"stillParticipant"`
}

// Create validates and persists a new trip owned by actor. The owner is
// always an EDIT participant. Days are generated from the date range when
// none are supplied, and absent categories and preferences get defaults.
func (s *TripService) Create(ctx context.Context, actor domain.User, trip domain.Trip) (domain.Trip, error) {
	if trip.Currency == "" {
		trip.Currency = domain.CurrencyBRL
	}
	if err := validateTrip(trip); err != nil {
		return domain.Trip{}, err
	}

	trip.ID = uuid.Nil
	trip.Version = 0
	trip.IsCompleted = false
	trip.OwnerEmail = domain.NormalizeEmail(actor.Email)
	trip.Participants = ensureEditor(dedupeParticipants(trip.Participants), actor)
	if len(trip.Days) == 0 {
		trip.Days = domain.BuildDays(trip.StartDate, trip.EndDate)
	}
	assignActivityIDs(trip.Days)
	if len(trip.Categories) == 0 {
		trip.Categories = domain.DefaultCategories()
	}
	trip = trip.WithDefaults()

	created, err := s.trips.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	s.log.Info("trip created", "trip_id", created.ID, "owner", created.OwnerEmail)
	return created, nil
}

// Get returns a trip the actor participates in. Non-participants get
// domain.ErrForbidden.
func (s *TripService) Get(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, error) {
	trip, err := s.trips.GetByID(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Get: %w", err)
	}
	if !trip.HasParticipant(actor.Email) {
		return domain.Trip{}, fmt.Errorf("service.TripService.Get: %w", domain.ErrForbidden)
	}
	return trip.WithDefaults(), nil
}

// Update overwrites the trip with the caller's copy. The actor must hold EDIT
// on the stored record and trip.Version must be current, otherwise
// domain.ErrVersionConflict is returned for the caller to reload. Owner and
// creation time cannot be changed here.
func (s *TripService) Update(ctx context.Context, actor domain.User, trip domain.Trip) (UpdateResult, error) {
	if err := validateTrip(trip); err != nil {
		return UpdateResult{}, err
	}
	stored, err := s.trips.GetByID(ctx, trip.ID)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	if !stored.CanEdit(actor.Email) {
		return UpdateResult{}, fmt.Errorf("service.TripService.Update: %w", domain.ErrForbidden)
	}
	if err := requireOpen(stored); err != nil {
		return UpdateResult{}, err
	}

	trip.OwnerEmail = stored.OwnerEmail
	trip.CreatedAt = stored.CreatedAt
	trip.Participants = dedupeParticipants(trip.Participants)
	assignActivityIDs(trip.Days)
	if err := validateParticipants(trip.Participants); err != nil {
		return UpdateResult{}, err
	}

	updated, err := s.trips.Update(ctx, trip)
	if err != nil {
		return UpdateResult{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	still := updated.HasParticipant(actor.Email)
	if !still {
		s.log.Info("user left trip through update", "trip_id", updated.ID, "user_id", actor.ID)
	}
	return UpdateResult{Trip: updated, StillParticipant: still}, nil
}

// Conclude marks a trip completed. A missing trip is a silent no-op and
// returns found=false; concluding twice is harmless.
func (s *TripService) Conclude(ctx context.Context, actor domain.User, id uuid.UUID) (trip domain.Trip, found bool, err error) {
	trip, err = s.mutate(ctx, actor, id, "Conclude", func(t *domain.Trip) error {
		t.IsCompleted = true
		return nil
	})
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Info("conclude on missing trip ignored", "trip_id", id)
		return domain.Trip{}, false, nil
	}
	if err != nil {
		return domain.Trip{}, false, err
	}
	return trip, true, nil
}

// UpdateBudget sets the trip budget.
func (s *TripService) UpdateBudget(ctx context.Context, actor domain.User, id uuid.UUID, budget float64) (domain.Trip, error) {
	if budget < 0 {
		return domain.Trip{}, domain.Invalid("budget must not be negative")
	}
	return s.mutate(ctx, actor, id, "UpdateBudget", func(t *domain.Trip) error {
		if err := requireOpen(*t); err != nil {
			return err
		}
		t.Budget = budget
		return nil
	})
}

// Summary returns the financial overview of a trip for any participant.
// traveler, when set, must be the display name used on activities.
func (s *TripService) Summary(ctx context.Context, actor domain.User, id uuid.UUID, traveler string) (domain.Summary, error) {
	trip, err := s.Get(ctx, actor, id)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("service.TripService.Summary: %w", err)
	}
	return domain.Summarize(trip, strings.TrimSpace(traveler)), nil
}

// mutate reloads the trip, checks EDIT permission, applies fn and writes the
// result back, replaying the whole cycle on a version conflict.
func (s *TripService) mutate(ctx context.Context, actor domain.User, id uuid.UUID, op string, fn func(*domain.Trip) error) (domain.Trip, error) {
	var result domain.Trip
	err := retryOnConflict(ctx, func() error {
		trip, err := s.trips.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !trip.CanEdit(actor.Email) {
			return domain.ErrForbidden
		}
		if err := fn(&trip); err != nil {
			return err
		}
		result, err = s.trips.Update(ctx, trip)
		return err
	})
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.%s: %w", op, err)
	}
	return result, nil
}

// requireOpen rejects edits of any kind on a concluded trip.
func requireOpen(t domain.Trip) error {
	if t.IsCompleted {
		return domain.Invalid("the trip is concluded and can no longer be edited")
	}
	return nil
}

// validateTrip enforces the rules common to Create and Update.
func validateTrip(t domain.Trip) error {
	switch {
	case blank(t.Name):
		return domain.Invalid("name is required")
	case blank(t.Destination):
		return domain.Invalid("destination is required")
	case t.StartDate.IsZero() || t.EndDate.IsZero():
		return domain.Invalid("start and end dates are required")
	case t.EndDate.Before(t.StartDate):
		return domain.Invalid("end date must not be before start date")
	case domain.DayCount(t.StartDate, t.EndDate) > domain.MaxTripDays || len(t.Days) > domain.MaxTripDays:
		return domain.Invalid("a trip can last at most %d days", domain.MaxTripDays)
	case t.Budget < 0:
		return domain.Invalid("budget must not be negative")
	case !t.Currency.Valid():
		return domain.Invalid("currency must be one of BRL, USD, EUR")
	}
	if t.Preferences.BudgetStyle != "" && !t.Preferences.BudgetStyle.Valid() {
		return domain.Invalid("unknown budget style %q", t.Preferences.BudgetStyle)
	}
	return validateParticipants(t.Participants)
}

func validateParticipants(ps []domain.Participant) error {
	for _, p := range ps {
		if !validEmail(domain.NormalizeEmail(p.Email)) {
			return domain.Invalid("participant email %q is not valid", p.Email)
		}
		if !p.Permission.Valid() {
			return domain.Invalid("participant permission must be EDIT or VIEW_ONLY")
		}
	}
	return nil
}

// dedupeParticipants keeps the first entry per email.
func dedupeParticipants(ps []domain.Participant) []domain.Participant {
	var out domain.Trip
	for _, p := range ps {
		out.AddParticipant(p)
	}
	if out.Participants == nil {
		return []domain.Participant{}
	}
	return out.Participants
}

// ensureEditor makes actor an EDIT participant, upgrading an existing entry.
func ensureEditor(ps []domain.Participant, actor domain.User) []domain.Participant {
	email := domain.NormalizeEmail(actor.Email)
	for i := range ps {
		if ps[i].Email == email {
			ps[i].Permission = domain.PermissionEdit
			if ps[i].Name == "" {
				ps[i].Name = actor.Name
			}
			return ps
		}
	}
	return append([]domain.Participant{{Name: actor.Name, Email: email, Permission: domain.PermissionEdit}}, ps...)
}

func assignActivityIDs(days []domain.Day) {
	for d := range days {
		for a := range days[d].Activities {
			if days[d].Activities[a].ID == uuid.Nil {
				days[d].Activities[a].ID = uuid.New()
			}
		}
	}
}
