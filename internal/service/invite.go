package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/repo"
)

// InviteNotifier is told about new invites. Delivery is best effort: a
// failure is logged and never fails the invite.
type InviteNotifier interface {
	InviteCreated(ctx context.Context, invite domain.Invite) error
}

// InviteService implements the invite lifecycle:
// PENDING -> accepted (participant added, invite deleted)
// PENDING -> REJECTED -> resent (PENDING) or dismissed (deleted).
type InviteService struct {
	users    repo.UserRepo
	trips    repo.TripRepo
	invites  repo.InviteRepo
	notifier InviteNotifier
	log      *slog.Logger
}

// NewInviteService constructs an InviteService.
func NewInviteService(users repo.UserRepo, trips repo.TripRepo, invites repo.InviteRepo, notifier InviteNotifier, log *slog.Logger) *InviteService {
	return &InviteService{users: users, trips: trips, invites: invites, notifier: notifier, log: log}
}

// Invite asks guestEmail to join the trip with the given permission.
// The actor must hold EDIT on the trip. Fails with domain.ErrNoAccount,
// domain.ErrAlreadyParticipant or domain.ErrDuplicateInvite when the guest
// has no account, already participates, or was already invited.
func (s *InviteService) Invite(ctx context.Context, actor domain.User, tripID uuid.UUID, guestEmail string, permission domain.Permission) (domain.Invite, error) {
	guestEmail = domain.NormalizeEmail(guestEmail)
	if permission == "" {
		permission = domain.PermissionViewOnly
	}
	switch {
	case !validEmail(guestEmail):
		return domain.Invite{}, domain.Invalid("a valid guest email is required")
	case !permission.Valid():
		return domain.Invite{}, domain.Invalid("permission must be EDIT or VIEW_ONLY")
	}

	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return domain.Invite{}, fmt.Errorf("service.InviteService.Invite: %w", err)
	}
	if !trip.CanEdit(actor.Email) {
		return domain.Invite{}, fmt.Errorf("service.InviteService.Invite: %w", domain.ErrForbidden)
	}
	if _, err := s.users.GetByEmail(ctx, guestEmail); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrNoAccount
		}
		return domain.Invite{}, fmt.Errorf("service.InviteService.Invite: %w", err)
	}
	if trip.HasParticipant(guestEmail) {
		return domain.Invite{}, fmt.Errorf("service.InviteService.Invite: %w", domain.ErrAlreadyParticipant)
	}
	_, err = s.invites.FindByTripAndGuest(ctx, tripID, guestEmail)
	switch {
	case err == nil:
		return domain.Invite{}, fmt.Errorf("service.InviteService.Invite: %w", domain.ErrDuplicateInvite)
	case !errors.Is(err, domain.ErrNotFound):
		return domain.Invite{}, fmt.Errorf("service.InviteService.Invite: %w", err)
	}

	invite, err := s.invites.Create(ctx, domain.Invite{
		TripID:     trip.ID,
		TripName:   trip.Name,
		HostEmail:  domain.NormalizeEmail(actor.Email),
		HostName:   actor.Name,
		GuestEmail: guestEmail,
		Permission: permission,
		Status:     domain.InvitePending,
	})
	if err != nil {
		return domain.Invite{}, fmt.Errorf("service.InviteService.Invite: %w", err)
	}

	if err := s.notifier.InviteCreated(ctx, invite); err != nil {
		s.log.Warn("invite notification failed", "invite_id", invite.ID, "error", err)
	}
	return invite, nil
}

// Accept turns a pending invite addressed to actor into a trip participant
// and deletes the invite. If the trip is gone the orphaned invite is
// removed and domain.ErrNotFound returned. Adding the participant is
// idempotent, so a retry after a failed delete finishes the job.
func (s *InviteService) Accept(ctx context.Context, actor domain.User, inviteID uuid.UUID) (domain.Trip, error) {
	invite, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.InviteService.Accept: %w", err)
	}
	if invite.GuestEmail != domain.NormalizeEmail(actor.Email) {
		return domain.Trip{}, fmt.Errorf("service.InviteService.Accept: %w", domain.ErrForbidden)
	}
	if invite.Status != domain.InvitePending {
		return domain.Trip{}, domain.Invalid("only pending invites can be accepted")
	}

	var trip domain.Trip
	err = retryOnConflict(ctx, func() error {
		current, err := s.trips.GetByID(ctx, invite.TripID)
		if err != nil {
			return err
		}
		if !current.AddParticipant(domain.Participant{Name: actor.Name, Email: actor.Email, Permission: invite.Permission}) {
			trip = current
			return nil
		}
		trip, err = s.trips.Update(ctx, current)
		return err
	})
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("invite points at a missing trip, removing it", "invite_id", invite.ID, "trip_id", invite.TripID)
		if delErr := s.invites.Delete(ctx, invite.ID); delErr != nil && !errors.Is(delErr, domain.ErrNotFound) {
			s.log.Error("remove orphaned invite", "invite_id", invite.ID, "error", delErr)
		}
		return domain.Trip{}, fmt.Errorf("service.InviteService.Accept: %w: the trip no longer exists", domain.ErrNotFound)
	}
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.InviteService.Accept: %w", err)
	}

	if err := s.invites.Delete(ctx, invite.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.log.Error("participant added but invite not removed", "invite_id", invite.ID, "error", err)
		return domain.Trip{}, fmt.Errorf("service.InviteService.Accept: %w", err)
	}
	s.log.Info("invite accepted", "invite_id", invite.ID, "trip_id", trip.ID)
	return trip, nil
}

// Decline marks a pending invite REJECTED so the host sees a notice.
// Only the guest may decline.
func (s *InviteService) Decline(ctx context.Context, actor domain.User, inviteID uuid.UUID) (domain.Invite, error) {
	return s.transition(ctx, inviteID, "Decline", func(inv domain.Invite) (domain.Invite, error) {
		if inv.GuestEmail != domain.NormalizeEmail(actor.Email) {
			return inv, domain.ErrForbidden
		}
		if inv.Status != domain.InvitePending {
			return inv, domain.Invalid("only pending invites can be declined")
		}
		inv.Status = domain.InviteRejected
		return inv, nil
	})
}

// Resend puts a rejected invite back to PENDING. Only the host may resend.
func (s *InviteService) Resend(ctx context.Context, actor domain.User, inviteID uuid.UUID) (domain.Invite, error) {
	return s.transition(ctx, inviteID, "Resend", func(inv domain.Invite) (domain.Invite, error) {
		if inv.HostEmail != domain.NormalizeEmail(actor.Email) {
			return inv, domain.ErrForbidden
		}
		if inv.Status != domain.InviteRejected {
			return inv, domain.Invalid("only rejected invites can be resent")
		}
		inv.Status = domain.InvitePending
		return inv, nil
	})
}

// Dismiss deletes an invite permanently. Only the host may dismiss.
func (s *InviteService) Dismiss(ctx context.Context, actor domain.User, inviteID uuid.UUID) error {
	inv, err := s.invites.GetByID(ctx, inviteID)
	if err != nil {
		return fmt.Errorf("service.InviteService.Dismiss: %w", err)
	}
	if inv.HostEmail != domain.NormalizeEmail(actor.Email) {
		return fmt.Errorf("service.InviteService.Dismiss: %w", domain.ErrForbidden)
	}
	if err := s.invites.Delete(ctx, inviteID); err != nil {
		return fmt.Errorf("service.InviteService.Dismiss: %w", err)
	}
	return nil
}

// transition reloads the invite, applies fn and writes it back, replaying
// on a version conflict.
func (s *InviteService) transition(ctx context.Context, id uuid.UUID, op string, fn func(domain.Invite) (domain.Invite, error)) (domain.Invite, error) {
	var result domain.Invite
	err := retryOnConflict(ctx, func() error {
		inv, err := s.invites.GetByID(ctx, id)
		if err != nil {
			return err
		}
		next, err := fn(inv)
		if err != nil {
			return err
		}
		result, err = s.invites.Update(ctx, next)
		return err
	})
	if err != nil {
		return domain.Invite{}, fmt.Errorf("service.InviteService.%s: %w", op, err)
	}
	return result, nil
}
