package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/handler"
	"github.com/pkordes/planejatrip/internal/suggest"
)

func TestAddActivity_parsesDayAndBody(t *testing.T) {
	tripID := uuid.New()
	var gotDay int
	var gotAct domain.Activity
	svc := &mockTripServicer{addActivity: func(_ context.Context, _ domain.User, id uuid.UUID, day int, act domain.Activity) (domain.Trip, error) {
		require.Equal(t, tripID, id)
		gotDay, gotAct = day, act
		return tripFixture(), nil
	}}
	h := newHTTPHandler(handler.Deps{Trips: svc})

	rec := do(t, h, http.MethodPost, "/trips/"+tripID.String()+"/days/2/activities", handler.ActivityRequest{
		Name: "Gulbenkian Museum", Time: "10:00", EstimatedCost: 80, Category: "Leisure",
	}, testToken)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 2, gotDay)
	assert.Equal(t, "Gulbenkian Museum", gotAct.Name)
	assert.Equal(t, 80.0, gotAct.EstimatedCost)
	assert.NotNil(t, gotAct.Participants)
	assert.False(t, gotAct.IsConfirmed)
}

func TestAddActivity_dayMustBeNumeric(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Trips: &mockTripServicer{}})

	rec := do(t, h, http.MethodPost, "/trips/"+uuid.NewString()+"/days/two/activities", handler.ActivityRequest{Name: "x"}, testToken)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAddActivity_concludedTripIs422(t *testing.T) {
	svc := &mockTripServicer{addActivity: func(context.Context, domain.User, uuid.UUID, int, domain.Activity) (domain.Trip, error) {
		return domain.Trip{}, domain.Invalid("the trip is concluded")
	}}
	h := newHTTPHandler(handler.Deps{Trips: svc})

	rec := do(t, h, http.MethodPost, "/trips/"+uuid.NewString()+"/days/1/activities", handler.ActivityRequest{Name: "x", Category: "Food"}, testToken)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "the trip is concluded", errorOf(t, rec).Message)
}

func TestUpdateAndDeleteActivity(t *testing.T) {
	tripID, actID := uuid.New(), uuid.New()
	var updated, deleted uuid.UUID
	svc := &mockTripServicer{
		updateActivity: func(_ context.Context, _ domain.User, _, id uuid.UUID, act domain.Activity) (domain.Trip, error) {
			updated = id
			require.Equal(t, "Dinner", act.Name)
			return tripFixture(), nil
		},
		deleteActivity: func(_ context.Context, _ domain.User, _, id uuid.UUID) (domain.Trip, error) {
			if deleted == id {
				return domain.Trip{}, fmt.Errorf("service.TripService.DeleteActivity: %w", domain.ErrNotFound)
			}
			deleted = id
			return tripFixture(), nil
		},
	}
	h := newHTTPHandler(handler.Deps{Trips: svc})
	path := "/trips/" + tripID.String() + "/activities/" + actID.String()

	rec := do(t, h, http.MethodPut, path, handler.ActivityRequest{Name: "Dinner", Category: "Food"}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actID, updated)

	rec = do(t, h, http.MethodDelete, path, nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, actID, deleted)

	rec = do(t, h, http.MethodDelete, path, nil, testToken)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmActivity_passesCostAndNames(t *testing.T) {
	var cost float64
	var names []string
	svc := &mockTripServicer{confirmActivity: func(_ context.Context, _ domain.User, _, _ uuid.UUID, realCost float64, ps []string) (domain.Trip, error) {
		cost, names = realCost, ps
		return tripFixture(), nil
	}}
	h := newHTTPHandler(handler.Deps{Trips: svc})

	rec := do(t, h, http.MethodPost, "/trips/"+uuid.NewString()+"/activities/"+uuid.NewString()+"/confirm",
		handler.ConfirmRequest{RealCost: 100, Participants: []string{"Ana", "Bruno"}}, testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100.0, cost)
	assert.Equal(t, []string{"Ana", "Bruno"}, names)
}

func TestSuggestions(t *testing.T) {
	trips := &mockTripServicer{get: func(context.Context, domain.User, uuid.UUID) (domain.Trip, error) {
		return tripFixture(), nil
	}}
	sug := &mockSuggester{
		suggestions: []suggest.Suggestion{{Name: "Boat Tour", Time: "14:00", EstimatedCost: 180, Category: "Leisure"}},
		text:        "## Budget Analysis",
	}
	h := newHTTPHandler(handler.Deps{Trips: trips, Suggest: sug})
	base := "/trips/" + uuid.NewString() + "/suggestions"

	rec := do(t, h, http.MethodGet, base+"/activities", nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[handler.SuggestionsResponse](t, rec)
	require.Len(t, list.Suggestions, 1)
	assert.Equal(t, "Boat Tour", list.Suggestions[0].Name)

	rec = do(t, h, http.MethodGet, base+"/text", nil, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "## Budget Analysis", decodeBody[handler.TravelTextResponse](t, rec).Text)
}

func TestSuggestions_outsidersAreForbidden(t *testing.T) {
	trips := &mockTripServicer{get: func(context.Context, domain.User, uuid.UUID) (domain.Trip, error) {
		return domain.Trip{}, domain.ErrForbidden
	}}
	h := newHTTPHandler(handler.Deps{Trips: trips, Suggest: &mockSuggester{}})

	rec := do(t, h, http.MethodGet, "/trips/"+uuid.NewString()+"/suggestions/text", nil, testToken)

	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSuggestions_disabledIs404(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Trips: &mockTripServicer{}})

	rec := do(t, h, http.MethodGet, "/trips/"+uuid.NewString()+"/suggestions/activities", nil, testToken)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChat_passesConversation(t *testing.T) {
	trips := &mockTripServicer{get: func(context.Context, domain.User, uuid.UUID) (domain.Trip, error) {
		return tripFixture(), nil
	}}
	var gotHistory []suggest.Message
	var gotPrompt, gotDest string
	sug := &mockSuggester{chat: func(trip domain.Trip, history []suggest.Message, prompt string) string {
		gotDest, gotHistory, gotPrompt = trip.Destination, history, prompt
		return "Try **Alfama**."
	}}
	h := newHTTPHandler(handler.Deps{Trips: trips, Suggest: sug})

	rec := do(t, h, http.MethodPost, "/trips/"+uuid.NewString()+"/suggestions/chat", handler.ChatRequest{
		History: []suggest.Message{{Role: suggest.RoleUser, Text: "Hi"}, {Role: suggest.RoleModel, Text: "Hello!"}},
		Message: "Where should we stay?",
	}, testToken)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Try **Alfama**.", decodeBody[handler.ChatResponse](t, rec).Reply)
	assert.Equal(t, "Lisbon, Portugal", gotDest)
	assert.Equal(t, "Where should we stay?", gotPrompt)
	assert.Len(t, gotHistory, 2)
}

func TestChat_rejectsBadRequests(t *testing.T) {
	trips := &mockTripServicer{get: func(context.Context, domain.User, uuid.UUID) (domain.Trip, error) {
		return tripFixture(), nil
	}}
	h := newHTTPHandler(handler.Deps{Trips: trips, Suggest: &mockSuggester{}})
	path := "/trips/" + uuid.NewString() + "/suggestions/chat"

	rec := do(t, h, http.MethodPost, path, handler.ChatRequest{Message: "   "}, testToken)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "message is required", errorOf(t, rec).Message)

	outsiders := newHTTPHandler(handler.Deps{Suggest: &mockSuggester{}, Trips: &mockTripServicer{
		get: func(context.Context, domain.User, uuid.UUID) (domain.Trip, error) { return domain.Trip{}, domain.ErrForbidden },
	}})
	rec = do(t, outsiders, http.MethodPost, path, handler.ChatRequest{Message: "hi"}, testToken)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
