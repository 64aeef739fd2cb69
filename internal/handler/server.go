// Package handler implements the HTTP handlers for the PlanejaTrip API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (auth.go, trip.go, invite.go, etc.) but all share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/middleware"
	"github.com/pkordes/planejatrip/internal/service"
	"github.com/pkordes/planejatrip/internal/suggest"
)

// AuthServicer defines the session operations the auth handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the store or service layer.
type AuthServicer interface {
	Register(ctx context.Context, name, email, password string) (domain.User, error)
	Login(ctx context.Context, email, password string) (domain.User, error)
	OpenSession(ctx context.Context, user domain.User) (service.SignedIn, error)
	Authenticate(ctx context.Context, token string) (domain.User, domain.Session, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	UpdateProfile(ctx context.Context, actor domain.User, in service.ProfileUpdate) (domain.User, error)
}

// TripServicer defines the trip and itinerary operations.
type TripServicer interface {
	Create(ctx context.Context, actor domain.User, trip domain.Trip) (domain.Trip, error)
	Get(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, error)
	Update(ctx context.Context, actor domain.User, trip domain.Trip) (service.UpdateResult, error)
	Conclude(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, bool, error)
	UpdateBudget(ctx context.Context, actor domain.User, id uuid.UUID, budget float64) (domain.Trip, error)
	Summary(ctx context.Context, actor domain.User, id uuid.UUID, traveler string) (domain.Summary, error)
	AddActivity(ctx context.Context, actor domain.User, tripID uuid.UUID, dayNumber int, act domain.Activity) (domain.Trip, error)
	UpdateActivity(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID, act domain.Activity) (domain.Trip, error)
	DeleteActivity(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID) (domain.Trip, error)
	ConfirmActivity(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID, realCost float64, participants []string) (domain.Trip, error)
}

// InviteServicer defines the invite lifecycle operations.
type InviteServicer interface {
	Invite(ctx context.Context, actor domain.User, tripID uuid.UUID, guestEmail string, permission domain.Permission) (domain.Invite, error)
	Accept(ctx context.Context, actor domain.User, inviteID uuid.UUID) (domain.Trip, error)
	Decline(ctx context.Context, actor domain.User, inviteID uuid.UUID) (domain.Invite, error)
	Resend(ctx context.Context, actor domain.User, inviteID uuid.UUID) (domain.Invite, error)
	Dismiss(ctx context.Context, actor domain.User, inviteID uuid.UUID) error
}

// Projector loads the signed-in user's view of the record set.
type Projector interface {
	Load(ctx context.Context, user domain.User) (domain.Projection, error)
}

// Suggester produces itinerary ideas for a trip. It never fails; callers
// get fallback content when the model is unavailable.
type Suggester interface {
	ActivitySuggestions(ctx context.Context, trip domain.Trip) []suggest.Suggestion
	TravelText(ctx context.Context, trip domain.Trip) string
	Chat(ctx context.Context, trip domain.Trip, history []suggest.Message, prompt string) string
}

// Pinger reports whether the record store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators a Server needs. Health and Suggest may be nil:
// health then always reports ok and suggestion routes answer 404.
type Deps struct {
	Auth       AuthServicer
	Trips      TripServicer
	Invites    InviteServicer
	Projection Projector
	Suggest    Suggester
	Health     Pinger
	Log        *slog.Logger

	// AuthRatePerMinute limits register and login per client. Zero disables it.
	AuthRatePerMinute int
}

// Server holds the dependencies shared by every handler.
type Server struct {
	auth     AuthServicer
	trips    TripServicer
	invites  InviteServicer
	projects Projector
	suggest  Suggester
	health   Pinger
	log      *slog.Logger
	limiter  *middleware.RateLimiter
}

// NewServer constructs the Server with all its dependencies.
func NewServer(d Deps) *Server {
	s := &Server{
		auth:     d.Auth,
		trips:    d.Trips,
		invites:  d.Invites,
		projects: d.Projection,
		suggest:  d.Suggest,
		health:   d.Health,
		log:      d.Log,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if d.AuthRatePerMinute > 0 {
		s.limiter = middleware.NewRateLimiter(d.AuthRatePerMinute)
	}
	return s
}

// Routes returns the API router. Cross-cutting middleware (request IDs,
// logging, CORS, body limits) is applied by the caller around it.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.getHealth)
	r.Get("/openapi.yaml", s.getOpenAPI)

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(s.limiter.Handler)
		}
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(s.auth))

		r.Post("/auth/logout", s.logout)
		r.Get("/me", s.getMe)
		r.Put("/me", s.updateMe)

		r.Post("/trips", s.createTrip)
		r.Route("/trips/{tripID}", func(r chi.Router) {
			r.Get("/", s.getTrip)
			r.Put("/", s.updateTrip)
			r.Post("/conclude", s.concludeTrip)
			r.Put("/budget", s.updateBudget)
			r.Get("/summary", s.getSummary)
			r.Post("/days/{day}/activities", s.addActivity)
			r.Put("/activities/{activityID}", s.updateActivity)
			r.Delete("/activities/{activityID}", s.deleteActivity)
			r.Post("/activities/{activityID}/confirm", s.confirmActivity)
			r.Get("/suggestions/activities", s.activitySuggestions)
			r.Get("/suggestions/text", s.travelText)
			r.Post("/suggestions/chat", s.chat)
			r.Post("/invites", s.createInvite)
		})

		r.Post("/invites/{inviteID}/accept", s.acceptInvite)
		r.Post("/invites/{inviteID}/decline", s.declineInvite)
		r.Post("/invites/{inviteID}/resend", s.resendInvite)
		r.Delete("/invites/{inviteID}", s.dismissInvite)
	})

	return r
}

// actor returns the user RequireAuth stored on the request.
func actor(r *http.Request) domain.User {
	u, _, _ := middleware.ActorFrom(r.Context())
	return u
}
