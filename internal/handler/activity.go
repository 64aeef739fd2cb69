package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/suggest"
)

// ActivityRequest is the body of the add and update activity routes.
type ActivityRequest struct {
	Name          string   `json:"name"`
	Time          string   `json:"time"`
	Description   string   `json:"description"`
	EstimatedCost float64  `json:"estimatedCost"`
	Category      string   `json:"category"`
	Participants  []string `json:"participants"`
}

// ConfirmRequest is the body of POST .../activities/{activityID}/confirm.
// Participants are display names.
type ConfirmRequest struct {
	RealCost     float64  `json:"realCost"`
	Participants []string `json:"participants"`
}

// SuggestionsResponse is the body of GET .../suggestions/activities.
type SuggestionsResponse struct {
	Suggestions []suggest.Suggestion `json:"suggestions"`
}

// TravelTextResponse is the body of GET .../suggestions/text. Text is markdown.
type TravelTextResponse struct {
	Text string `json:"text"`
}

// ChatRequest is the body of POST .../suggestions/chat. History holds the
// earlier turns of the conversation, oldest first.
type ChatRequest struct {
	History []suggest.Message `json:"history"`
	Message string            `json:"message"`
}

// ChatResponse carries the assistant's markdown reply.
type ChatResponse struct {
	Reply string `json:"reply"`
}

// addActivity handles POST /trips/{tripID}/days/{day}/activities.
func (s *Server) addActivity(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	day, err := strconv.Atoi(chi.URLParam(r, "day"))
	if err != nil {
		requestBody(w, "day must be a number")
		return
	}
	var body ActivityRequest
	if !decode(w, r, &body) {
		return
	}
	trip, err := s.trips.AddActivity(r.Context(), actor(r), tripID, day, body.activity())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripToResponse(trip))
}

// updateActivity handles PUT /trips/{tripID}/activities/{activityID}.
func (s *Server) updateActivity(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	activityID, ok := pathUUID(w, r, "activityID")
	if !ok {
		return
	}
	var body ActivityRequest
	if !decode(w, r, &body) {
		return
	}
	trip, err := s.trips.UpdateActivity(r.Context(), actor(r), tripID, activityID, body.activity())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// deleteActivity handles DELETE /trips/{tripID}/activities/{activityID}.
func (s *Server) deleteActivity(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	activityID, ok := pathUUID(w, r, "activityID")
	if !ok {
		return
	}
	trip, err := s.trips.DeleteActivity(r.Context(), actor(r), tripID, activityID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// confirmActivity handles POST /trips/{tripID}/activities/{activityID}/confirm.
func (s *Server) confirmActivity(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(w, r, "tripID")
	if !ok {
		return
	}
	activityID, ok := pathUUID(w, r, "activityID")
	if !ok {
		return
	}
	var body ConfirmRequest
	if !decode(w, r, &body) {
		return
	}
	trip, err := s.trips.ConfirmActivity(r.Context(), actor(r), tripID, activityID, body.RealCost, body.Participants)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripToResponse(trip))
}

// activitySuggestions handles GET /trips/{tripID}/suggestions/activities.
func (s *Server) activitySuggestions(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.suggestTarget(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, SuggestionsResponse{Suggestions: s.suggest.ActivitySuggestions(r.Context(), trip)})
}

// travelText handles GET /trips/{tripID}/suggestions/text.
func (s *Server) travelText(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.suggestTarget(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TravelTextResponse{Text: s.suggest.TravelText(r.Context(), trip)})
}

// chat handles POST /trips/{tripID}/suggestions/chat.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	trip, ok := s.suggestTarget(w, r)
	if !ok {
		return
	}
	var req ChatRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, r, domain.Invalid("message is required"))
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Reply: s.suggest.Chat(r.Context(), trip, req.History, req.Message)})
}

// suggestTarget loads the trip suggestions are asked for. Any participant
// may ask.
func (s *Server) suggestTarget(w http.ResponseWriter, r *http.Request) (domain.Trip, bool) {
	if s.suggest == nil {
		writeErrorBody(w, http.StatusNotFound, "not_found", "suggestions are not enabled")
		return domain.Trip{}, false
	}
	id, ok := pathUUID(w, r, "tripID")
	if !ok {
		return domain.Trip{}, false
	}
	trip, err := s.trips.Get(r.Context(), actor(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return domain.Trip{}, false
	}
	return trip, true
}

func (a ActivityRequest) activity() domain.Activity {
	ps := a.Participants
	if ps == nil {
		ps = []string{}
	}
	return domain.Activity{
		Name:          a.Name,
		Time:          a.Time,
		Description:   a.Description,
		EstimatedCost: a.EstimatedCost,
		Category:      a.Category,
		Participants:  ps,
	}
}
