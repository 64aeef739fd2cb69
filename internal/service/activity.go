package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/domain"
)

// AddActivity appends a new, unconfirmed activity to the day numbered dayNumber.
func (s *TripService) AddActivity(ctx context.Context, actor domain.User, tripID uuid.UUID, dayNumber int, act domain.Activity) (domain.Trip, error) {
	if err := validateActivity(act); err != nil {
		return domain.Trip{}, err
	}
	act.ID = uuid.New()
	act.IsConfirmed = false
	act.RealCost = nil
	if act.Participants == nil {
		act.Participants = []string{}
	}

	return s.mutate(ctx, actor, tripID, "AddActivity", func(t *domain.Trip) error {
		if err := requireOpen(*t); err != nil {
			return err
		}
		for i := range t.Days {
			if t.Days[i].DayNumber == dayNumber {
				t.Days[i].Activities = append(t.Days[i].Activities, act)
				return nil
			}
		}
		return domain.Invalid("the trip has no day %d", dayNumber)
	})
}

// UpdateActivity replaces an activity's planning fields. Confirmation state
// and real cost are kept; use ConfirmActivity to change them.
func (s *TripService) UpdateActivity(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID, act domain.Activity) (domain.Trip, error) {
	if err := validateActivity(act); err != nil {
		return domain.Trip{}, err
	}
	return s.mutate(ctx, actor, tripID, "UpdateActivity", func(t *domain.Trip) error {
		if err := requireOpen(*t); err != nil {
			return err
		}
		d, a, ok := t.FindActivity(activityID)
		if !ok {
			return domain.ErrNotFound
		}
		current := &t.Days[d].Activities[a]
		current.Name = act.Name
		current.Time = act.Time
		current.Description = act.Description
		current.EstimatedCost = act.EstimatedCost
		current.Category = act.Category
		if act.Participants != nil {
			current.Participants = act.Participants
		}
		return nil
	})
}

// DeleteActivity removes an activity from whichever day holds it.
func (s *TripService) DeleteActivity(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID) (domain.Trip, error) {
	return s.mutate(ctx, actor, tripID, "DeleteActivity", func(t *domain.Trip) error {
		if err := requireOpen(*t); err != nil {
			return err
		}
		d, a, ok := t.FindActivity(activityID)
		if !ok {
			return domain.ErrNotFound
		}
		acts := t.Days[d].Activities
		t.Days[d].Activities = append(acts[:a:a], acts[a+1:]...)
		return nil
	})
}

// ConfirmActivity records what an activity really cost and who took part.
// participants are display names; nil keeps the planned list.
func (s *TripService) ConfirmActivity(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID, realCost float64, participants []string) (domain.Trip, error) {
	if realCost < 0 {
		return domain.Trip{}, domain.Invalid("real cost must not be negative")
	}
	return s.mutate(ctx, actor, tripID, "ConfirmActivity", func(t *domain.Trip) error {
		if err := requireOpen(*t); err != nil {
			return err
		}
		d, a, ok := t.FindActivity(activityID)
		if !ok {
			return domain.ErrNotFound
		}
		current := &t.Days[d].Activities[a]
		cost := realCost
		current.IsConfirmed = true
		current.RealCost = &cost
		if participants != nil {
			current.Participants = participants
		}
		return nil
	})
}

func validateActivity(a domain.Activity) error {
	switch {
	case blank(a.Name):
		return domain.Invalid("activity name is required")
	case blank(a.Category):
		return domain.Invalid("activity category is required")
	case a.EstimatedCost < 0:
		return domain.Invalid("estimated cost must not be negative")
	}
	if a.Time != "" {
		if _, err := time.Parse("15:04", a.Time); err != nil {
			return domain.Invalid("activity time must be HH:MM")
		}
	}
	return nil
}
