// Package app holds the single-session application controller: the signed-in
// user, their projected trips and invites, and the screen being shown.
// Front ends (the terminal client, tests) drive it; it owns no storage and
// talks to the services through the interfaces below.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/auth"
	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/service"
)

// View is the screen the controller currently shows.
type View string

const (
	ViewLogin         View = "LOGIN"
	ViewProfile       View = "PROFILE"
	ViewTripForm      View = "TRIP_FORM"
	ViewTripDashboard View = "TRIP_DASHBOARD"
)

// ErrSignedOut is returned by operations that need a signed-in user.
var ErrSignedOut = fmt.Errorf("%w: sign in first", domain.ErrUnauthorized)

// Accounts is satisfied by *service.AuthService.
type Accounts interface {
	Register(ctx context.Context, name, email, password string) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.User, error)
	Resume(ctx context.Context, email string) (domain.User, error)
	UpdateProfile(ctx context.Context, actor domain.User, in service.ProfileUpdate) (domain.User, error)
}

// Trips is satisfied by *service.TripService.
type Trips interface {
	Create(ctx context.Context, actor domain.User, trip domain.Trip) (domain.Trip, error)
	Update(ctx context.Context, actor domain.User, trip domain.Trip) (service.UpdateResult, error)
	Conclude(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, bool, error)
}

// Invites is satisfied by *service.InviteService.
type Invites interface {
	Invite(ctx context.Context, actor domain.User, tripID uuid.UUID, guestEmail string, permission domain.Permission) (domain.Invite, error)
	Accept(ctx context.Context, actor domain.User, inviteID uuid.UUID) (domain.Trip, error)
	Decline(ctx context.Context, actor domain.User, inviteID uuid.UUID) (domain.Invite, error)
	Resend(ctx context.Context, actor domain.User, inviteID uuid.UUID) (domain.Invite, error)
	Dismiss(ctx context.Context, actor domain.User, inviteID uuid.UUID) error
}

// Projector is satisfied by *service.ProjectionService.
type Projector interface {
	Load(ctx context.Context, user domain.User) (domain.Projection, error)
}

// State is a snapshot of the controller. User is nil when signed out.
type State struct {
	User         *domain.User
	Trips        []domain.Trip
	Invites      []domain.Invite
	View         View
	SelectedTrip uuid.UUID
}

// Deps are the collaborators a Controller needs.
type Deps struct {
	Accounts  Accounts
	Trips     Trips
	Invites   Invites
	Projector Projector
	Marker    auth.IdentityMarker
	Log       *slog.Logger
}

// Controller runs every user action as validate, write through the
// services, then update the local projection in place. Failed actions leave
// the previous state untouched.
type Controller struct {
	deps Deps

	mu       sync.Mutex
	user     *domain.User
	trips    []domain.Trip
	invites  []domain.Invite
	view     View
	selected uuid.UUID
}

// New returns a signed-out Controller showing the login view.
func New(deps Deps) *Controller {
	return &Controller{deps: deps, view: ViewLogin}
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		Trips:        slices.Clone(c.trips),
		Invites:      slices.Clone(c.invites),
		View:         c.view,
		SelectedTrip: c.selected,
	}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	return s
}

// SelectedTrip returns the trip shown on the dashboard, if any.
func (c *Controller) SelectedTrip() (domain.Trip, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.view != ViewTripDashboard {
		return domain.Trip{}, false
	}
	i := c.tripIndex(c.selected)
	if i < 0 {
		return domain.Trip{}, false
	}
	return c.trips[i], true
}

// Start resumes the remembered identity if there is one. An empty marker or
// one naming an unknown account leaves the controller on the login view.
func (c *Controller) Start(ctx context.Context) error {
	email, err := c.deps.Marker.Load(ctx)
	if err != nil {
		c.deps.Log.Warn("read identity marker", "error", err)
		return nil
	}
	if email == "" {
		return nil
	}

	user, err := c.deps.Accounts.Resume(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		c.deps.Log.Info("remembered identity has no account, forgetting it", "email", email)
		if err := c.deps.Marker.Clear(ctx); err != nil {
			c.deps.Log.Warn("clear identity marker", "error", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("app.Controller.Start: %w", err)
	}
	return c.signIn(ctx, user)
}

// Login signs in with email and password.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	user, err := c.deps.Accounts.Login(ctx, email, password)
	if err != nil {
		return fmt.Errorf("app.Controller.Login: %w", err)
	}
	return c.signIn(ctx, user)
}

// Register creates an account and signs straight into it.
func (c *Controller) Register(ctx context.Context, name, email, password string) error {
	user, err := c.deps.Accounts.Register(ctx, name, email, password)
	if err != nil {
		return fmt.Errorf("app.Controller.Register: %w", err)
	}
	return c.signIn(ctx, user)
}

// Logout forgets the remembered identity and discards every piece of
// derived state. No stored record is touched.
func (c *Controller) Logout(ctx context.Context) error {
	if err := c.deps.Marker.Clear(ctx); err != nil {
		c.deps.Log.Warn("clear identity marker", "error", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = nil
	c.trips = nil
	c.invites = nil
	c.selected = uuid.Nil
	c.view = ViewLogin
	return nil
}

// NavigateToProfile recomputes the projection and shows the profile view.
func (c *Controller) NavigateToProfile(ctx context.Context) error {
	user, err := c.current()
	if err != nil {
		return err
	}
	if err := c.refresh(ctx, user); err != nil {
		return fmt.Errorf("app.Controller.NavigateToProfile: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = uuid.Nil
	c.view = ViewProfile
	return nil
}

// NewTrip shows the trip form.
func (c *Controller) NewTrip() error {
	if _, err := c.current(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.view = ViewTripForm
	return nil
}

// SelectTrip opens the dashboard of a projected trip. A trip outside the
// projection sends the user back to the profile view.
func (c *Controller) SelectTrip(ctx context.Context, id uuid.UUID) error {
	if _, err := c.current(); err != nil {
		return err
	}
	c.mu.Lock()
	found := c.tripIndex(id) >= 0
	if found {
		c.selected = id
		c.view = ViewTripDashboard
	}
	c.mu.Unlock()
	if !found {
		return c.NavigateToProfile(ctx)
	}
	return nil
}

// SaveTrip creates a trip owned by the current user and opens its dashboard.
func (c *Controller) SaveTrip(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	user, err := c.current()
	if err != nil {
		return domain.Trip{}, err
	}
	created, err := c.deps.Trips.Create(ctx, user, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("app.Controller.SaveTrip: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trips = append(c.trips, created)
	c.selected = created.ID
	c.view = ViewTripDashboard
	return created, nil
}

// UpdateTrip writes the caller's copy of a trip. When the change removes the
// current user from the trip, the trip is dropped locally, the profile view
// shown and the projection reloaded. On a version conflict the projection is reloaded so the caller
// can retry against fresh data.
func (c *Controller) UpdateTrip(ctx context.Context, trip domain.Trip) error {
	user, err := c.current()
	if err != nil {
		return err
	}
	res, err := c.deps.Trips.Update(ctx, user, trip)
	if errors.Is(err, domain.ErrVersionConflict) {
		if rerr := c.refresh(ctx, user); rerr != nil {
			c.deps.Log.Warn("reload after conflict", "error", rerr)
		}
	}
	if err != nil {
		return fmt.Errorf("app.Controller.UpdateTrip: %w", err)
	}

	c.mu.Lock()
	if res.StillParticipant {
		c.replaceTrip(res.Trip)
		c.mu.Unlock()
		return nil
	}
	c.removeTrip(res.Trip.ID)
	c.selected = uuid.Nil
	c.view = ViewProfile
	c.mu.Unlock()

	// The profile view shows a freshly loaded projection. The write has
	// already succeeded, so a failed reload keeps the local copy.
	if err := c.refresh(ctx, user); err != nil {
		c.deps.Log.Warn("reload after leaving trip", "trip_id", res.Trip.ID, "error", err)
	}
	return nil
}

// ConcludeTrip marks a trip completed. A trip that no longer exists is
// ignored.
func (c *Controller) ConcludeTrip(ctx context.Context, id uuid.UUID) error {
	user, err := c.current()
	if err != nil {
		return err
	}
	trip, found, err := c.deps.Trips.Conclude(ctx, user, id)
	if err != nil {
		return fmt.Errorf("app.Controller.ConcludeTrip: %w", err)
	}
	if !found {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.replaceTrip(trip)
	return nil
}

// Invite asks guestEmail to join a trip. Precondition failures come back as
// validation or conflict errors whose domain.Message is meant for the user.
func (c *Controller) Invite(ctx context.Context, tripID uuid.UUID, guestEmail string, permission domain.Permission) error {
	user, err := c.current()
	if err != nil {
		return err
	}
	if _, err := c.deps.Invites.Invite(ctx, user, tripID, guestEmail, permission); err != nil {
		return fmt.Errorf("app.Controller.Invite: %w", err)
	}
	return nil
}

// AcceptInvite joins the invite's trip and adds it to the projection.
// An invite whose trip is gone disappears from the list and the error is
// returned.
func (c *Controller) AcceptInvite(ctx context.Context, inviteID uuid.UUID) error {
	user, err := c.current()
	if err != nil {
		return err
	}
	trip, err := c.deps.Invites.Accept(ctx, user, inviteID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.dropInvite(inviteID)
		}
		return fmt.Errorf("app.Controller.AcceptInvite: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeInvite(inviteID)
	c.replaceTrip(trip)
	return nil
}

// DeclineInvite rejects a pending invite; the host sees it as a notice.
func (c *Controller) DeclineInvite(ctx context.Context, inviteID uuid.UUID) error {
	user, err := c.current()
	if err != nil {
		return err
	}
	if _, err := c.deps.Invites.Decline(ctx, user, inviteID); err != nil {
		return fmt.Errorf("app.Controller.DeclineInvite: %w", err)
	}
	c.dropInvite(inviteID)
	return nil
}

// ResendInvite puts a rejected invite back to pending.
func (c *Controller) ResendInvite(ctx context.Context, inviteID uuid.UUID) error {
	user, err := c.current()
	if err != nil {
		return err
	}
	if _, err := c.deps.Invites.Resend(ctx, user, inviteID); err != nil {
		return fmt.Errorf("app.Controller.ResendInvite: %w", err)
	}
	c.dropInvite(inviteID)
	return nil
}

// DismissRejection deletes a rejected invite for good.
func (c *Controller) DismissRejection(ctx context.Context, inviteID uuid.UUID) error {
	user, err := c.current()
	if err != nil {
		return err
	}
	if err := c.deps.Invites.Dismiss(ctx, user, inviteID); err != nil {
		return fmt.Errorf("app.Controller.DismissRejection: %w", err)
	}
	c.dropInvite(inviteID)
	return nil
}

// UpdateProfile renames the current user and optionally changes the password.
func (c *Controller) UpdateProfile(ctx context.Context, in service.ProfileUpdate) error {
	user, err := c.current()
	if err != nil {
		return err
	}
	updated, err := c.deps.Accounts.UpdateProfile(ctx, user, in)
	if err != nil {
		return fmt.Errorf("app.Controller.UpdateProfile: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = &updated
	return nil
}

// signIn makes user current, remembers the identity and loads the
// projection. A failed load keeps the user signed in with empty lists.
func (c *Controller) signIn(ctx context.Context, user domain.User) error {
	if err := c.deps.Marker.Save(ctx, user.Email); err != nil {
		c.deps.Log.Warn("save identity marker", "error", err)
	}
	c.mu.Lock()
	c.user = &user
	c.trips = []domain.Trip{}
	c.invites = []domain.Invite{}
	c.selected = uuid.Nil
	c.view = ViewProfile
	c.mu.Unlock()

	if err := c.refresh(ctx, user); err != nil {
		return fmt.Errorf("app.Controller.signIn: %w", err)
	}
	return nil
}

func (c *Controller) refresh(ctx context.Context, user domain.User) error {
	p, err := c.deps.Projector.Load(ctx, user)
	if err != nil {
		c.deps.Log.Error("load projection", "user_id", user.ID, "error", err)
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trips = p.Trips
	c.invites = p.Invites
	return nil
}

func (c *Controller) current() (domain.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.user == nil {
		return domain.User{}, ErrSignedOut
	}
	return *c.user, nil
}

func (c *Controller) dropInvite(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeInvite(id)
}

// The helpers below expect c.mu to be held.

func (c *Controller) tripIndex(id uuid.UUID) int {
	return slices.IndexFunc(c.trips, func(t domain.Trip) bool { return t.ID == id })
}

func (c *Controller) replaceTrip(t domain.Trip) {
	if i := c.tripIndex(t.ID); i >= 0 {
		c.trips[i] = t
		return
	}
	c.trips = append(c.trips, t)
}

func (c *Controller) removeTrip(id uuid.UUID) {
	c.trips = slices.DeleteFunc(c.trips, func(t domain.Trip) bool { return t.ID == id })
}

func (c *Controller) removeInvite(id uuid.UUID) {
	c.invites = slices.DeleteFunc(c.invites, func(i domain.Invite) bool { return i.ID == id })
}
