package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/planejatrip/internal/domain"
)

// Day is the wire form of domain.Day, with a calendar date.
type Day struct {
	Date       openapi_types.Date `json:"date"`
	DayNumber  int                `json:"dayNumber"`
	Activities []domain.Activity  `json:"activities"`
}

// Trip is the wire form of domain.Trip. Dates travel as YYYY-MM-DD.
// Requests may omit the server-owned fields (id, owner, timestamps).
type Trip struct {
	ID           openapi_types.UUID   `json:"id"`
	Name         string               `json:"name"`
	Destination  string               `json:"destination"`
	Description  string               `json:"description,omitempty"`
	StartDate    openapi_types.Date   `json:"startDate"`
	EndDate      openapi_types.Date   `json:"endDate"`
	Budget       float64              `json:"budget"`
	Currency     domain.Currency      `json:"currency"`
	IsCompleted  bool                 `json:"isCompleted"`
	OwnerEmail   string               `json:"ownerEmail"`
	Days         []Day                `json:"days"`
	Categories   []domain.Category    `json:"categories"`
	Participants []domain.Participant `json:"participants"`
	Preferences  *domain.Preferences  `json:"preferences,omitempty"`
	Version      int64                `json:"version"`
	CreatedAt    time.Time            `json:"createdAt"`
	UpdatedAt    time.Time            `json:"updatedAt"`
}

// UpdateTripResponse is the body of PUT /trips/{tripID}. StillParticipant
// is false when the edit removed the caller from the trip.
type UpdateTripResponse struct {
	Trip             Trip `json:"trip"`
	StillParticipant bool `json:"stillParticipant"`
}

// BudgetRequest is the body of PUT /trips/{tripID}/budget.
type BudgetRequest struct {
	Budget *float64 `json:"budget"`
}

// ProjectionResponse is the body of GET /me.
type ProjectionResponse struct {
	User    domain.User     `json:"user"`
	Trips   []Trip          `json:"trips"`
	Invites []domain.Invite `json:"invites"`
}

// createTrip handles POST /trips.
func (s *Server) createTrip(w http.ResponseWriter, r *http.Request) {
	var body Trip
	if !decode(w, r, &body) {
		return
	}
	created, err := s.trips.Create(r.Context(), actor(r), requestToTrip(uuid.Nil, body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(created))
}

// getTrip handles GET /trips/{tripID}.
func (s *Server) getTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	trip, err := s.trips.Get(r.Context(), actor(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// updateTrip handles PUT /trips/{tripID}. The body is the caller's full copy
// of the trip; a stale version answers 409.
func (s *Server) updateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	var body Trip
	if !decode(w, r, &body) {
		return
	}
	res, err := s.trips.Update(r.Context(), actor(r), requestToTrip(id, body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateTripResponse{Trip: tripToResponse(res.Trip), StillParticipant: res.StillParticipant})
}

// concludeTrip handles POST /trips/{tripID}/conclude.
// A trip that no longer exists answers 204 with no body.
func (s *Server) concludeTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	trip, found, err := s.trips.Conclude(r.Context(), actor(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !found {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// updateBudget handles PUT /trips/{tripID}/budget.
func (s *Server) updateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	var body BudgetRequest
	if !decode(w, r, &body) {
		return
	}
	if body.Budget == nil {
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "budget is required")
		return
	}
	trip, err := s.trips.UpdateBudget(r.Context(), actor(r), id, *body.Budget)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// getSummary handles GET /trips/{tripID}/summary.
// Supports ?traveler= to split confirmed costs for one participant.
func (s *Server) getSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	sum, err := s.trips.Summary(r.Context(), actor(r), id, r.URL.Query().Get("traveler"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// --- mapping helpers --------------------------------------------------------

// pathUUID parses the named chi URL parameter. On failure it answers 400.
func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		requestBody(w, name+" is not a valid id")
		return uuid.Nil, false
	}
	return id, true
}

// requestToTrip converts a request body into a domain.Trip, taking the ID
// from the path.
func requestToTrip(id uuid.UUID, body Trip) domain.Trip {
	t := domain.Trip{
		ID:           id,
		Name:         body.Name,
		Destination:  body.Destination,
		Description:  body.Description,
		StartDate:    body.StartDate.Time,
		EndDate:      body.EndDate.Time,
		Budget:       body.Budget,
		Currency:     body.Currency,
		IsCompleted:  body.IsCompleted,
		Categories:   body.Categories,
		Participants: body.Participants,
		Version:      body.Version,
	}
	if body.Preferences != nil {
		t.Preferences = *body.Preferences
	}
	if body.Days != nil {
		t.Days = make([]domain.Day, len(body.Days))
		for i, d := range body.Days {
			t.Days[i] = domain.Day{Date: d.Date.Time, DayNumber: d.DayNumber, Activities: d.Activities}
		}
	}
	return t
}

// tripToResponse converts a domain.Trip into its wire form.
func tripToResponse(t domain.Trip) Trip {
	t = t.WithDefaults()
	prefs := t.Preferences
	resp := Trip{
		ID:           t.ID,
		Name:         t.Name,
		Destination:  t.Destination,
		Description:  t.Description,
		StartDate:    openapi_types.Date{Time: t.StartDate},
		EndDate:      openapi_types.Date{Time: t.EndDate},
		Budget:       t.Budget,
		Currency:     t.Currency,
		IsCompleted:  t.IsCompleted,
		OwnerEmail:   t.OwnerEmail,
		Days:         make([]Day, len(t.Days)),
		Categories:   t.Categories,
		Participants: t.Participants,
		Preferences:  &prefs,
		Version:      t.Version,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
	for i, d := range t.Days {
		acts := d.Activities
		if acts == nil {
			acts = []domain.Activity{}
		}
		resp.Days[i] = Day{Date: openapi_types.Date{Time: d.Date}, DayNumber: d.DayNumber, Activities: acts}
	}
	return resp
}

func projectionToResponse(p domain.Projection) ProjectionResponse {
	resp := ProjectionResponse{User: p.User, Trips: make([]Trip, len(p.Trips)), Invites: p.Invites}
	for i, t := range p.Trips {
		resp.Trips[i] = tripToResponse(t)
	}
	if resp.Invites == nil {
		resp.Invites = []domain.Invite{}
	}
	return resp
}
