package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/repo"
)

// ProjectionService computes a user's derived view of the record set.
// It is recomputed on demand; nothing keeps it live.
type ProjectionService struct {
	trips   repo.TripRepo
	invites repo.InviteRepo
}

// NewProjectionService constructs a ProjectionService.
func NewProjectionService(trips repo.TripRepo, invites repo.InviteRepo) *ProjectionService {
	return &ProjectionService{trips: trips, invites: invites}
}

// Load returns the trips user participates in and the invites they can act
// on. Both queries run concurrently; either failing fails the load.
func (s *ProjectionService) Load(ctx context.Context, user domain.User) (domain.Projection, error) {
	var trips []domain.Trip
	var invites []domain.Invite

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		trips, err = s.trips.ListByParticipant(gctx, user.Email)
		return err
	})
	g.Go(func() error {
		var err error
		invites, err = s.invites.ListActionable(gctx, user.Email)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Projection{}, fmt.Errorf("service.ProjectionService.Load: %w", err)
	}

	// ProjectTrips also defaults preference blocks missing from older records.
	return domain.Projection{
		User:    user,
		Trips:   domain.ProjectTrips(user.Email, trips),
		Invites: domain.ProjectInvites(user.Email, invites),
	}, nil
}
