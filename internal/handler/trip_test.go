package handler_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/handler"
	"github.com/pkordes/planejatrip/internal/service"
)

// TestCreateTrip_returns201 verifies the request dates reach the service as
// calendar days and the response carries them back as YYYY-MM-DD.
func TestCreateTrip_returns201(t *testing.T) {
	var got domain.Trip
	svc := &mockTripServicer{create: func(_ context.Context, actor domain.User, trip domain.Trip) (domain.Trip, error) {
		require.Equal(t, ana.ID, actor.ID)
		got = trip
		created := tripFixture()
		created.Name = trip.Name
		return created, nil
	}}
	h := newHTTPHandler(handler.Deps{Trips: svc})

	rec := do(t, h, http.MethodPost, "/trips", map[string]any{
		"name":        "Lisbon",
		"destination": "Lisbon, Portugal",
		"startDate":   "2025-06-01",
		"endDate":     "2025-06-02",
		"budget":      1000,
		"currency":    "EUR",
		"preferences": map[string]any{"likes": []string{"museums"}, "budgetStyle": "luxo"},
	}, testToken)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got.StartDate)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), got.EndDate)
	assert.Equal(t, domain.CurrencyEUR, got.Currency)
	assert.Equal(t, domain.BudgetLuxo, got.Preferences.BudgetStyle)
	assert.Equal(t, uuid.Nil, got.ID)

	body := decodeBody[handler.Trip](t, rec)
	assert.Equal(t, "Lisbon", body.Name)
	assert.Equal(t, "2025-06-01", body.StartDate.String())
	require.Len(t, body.Days, 2)
	assert.Equal(t, "2025-06-02", body.Days[1].Date.String())
}

func TestCreateTrip_validationIs422(t *testing.T) {
	svc := &mockTripServicer{create: func(context.Context, domain.User, domain.Trip) (domain.Trip, error) {
		return domain.Trip{}, domain.Invalid("the end date must not be before the start date")
	}}
	h := newHTTPHandler(handler.Deps{Trips: svc})

	rec := do(t, h, http.MethodPost, "/trips", map[string]any{
		"name": "x", "destination": "y", "startDate": "2025-06-03", "endDate": "2025-06-01",
	}, testToken)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	e := errorOf(t, rec)
	assert.Equal(t, "validation_error", e.Code)
	assert.Equal(t, "the end date must not be before the start date", e.Message)
}

func TestCreateTrip_badDateIs400(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Trips: &mockTripServicer{}})

	rec := do(t, h, http.MethodPost, "/trips", map[string]any{"name": "x", "startDate": "June 1st"}, testToken)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTrip_errorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"missing", fmt.Errorf("repo.TripRepo.GetByID: %w", domain.ErrNotFound), http.StatusNotFound, "not_found"},
		{"not a participant", fmt.Errorf("service.TripService.Get: %w", domain.ErrForbidden), http.StatusForbidden, "forbidden"},
		{"store down", domain.Transient(errors.New("i/o timeout")), http.StatusServiceUnavailable, "unavailable"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockTripServicer{get: func(context.Context, domain.User, uuid.UUID) (domain.Trip, error) {
				return domain.Trip{}, tc.err
			}}
			h := newHTTPHandler(handler.Deps{Trips: svc})

			rec := do(t, h, http.MethodGet, "/trips/"+uuid.NewString(), nil, testToken)

			require.Equal(t, tc.status, rec.Code)
			e := errorOf(t, rec)
			assert.Equal(t, tc.code, e.Code)
			assert.NotContains(t, e.Message, "boom", "internal details are not leaked")
		})
	}
}

func TestGetTrip_invalidIDIs400(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Trips: &mockTripServicer{}})

	rec := do(t, h, http.MethodGet, "/trips/not-a-uuid", nil, testToken)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "tripID is not a valid id", errorOf(t, rec).Message)
}

func TestUpdateTrip_usesPathIDAndVersion(t *testing.T) {
	trip := tripFixture()
	var got domain.Trip
	svc := &mockTripServicer{update: func(_ context.Context, _ domain.User, in domain.Trip) (service.UpdateResult, error) {
		got = in
		out := trip
		out.Version = in.Version + 1
		return service.UpdateResult{Trip: out, StillParticipant: true}, nil
	}}
	h := newHTTPHandler(handler.Deps{Trips: svc})

	body := map[string]any{
		"id":          uuid.NewString(),
		"name":        "Lisbon",
		"destination": "Lisbon, Portugal",
		"startDate":   "2025-06-01",
		"endDate":     "2025-06-02",
		"version":     3,
		"days": []map[string]any{
			{"date": "2025-06-01", "dayNumber": 1, "activities": []any{}},
		},
	}
	rec := do(t, h, http.MethodPut, "/trips/"+trip.ID.String(), body, testToken)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, trip.ID, got.ID, "the path wins over the body")
	assert.Equal(t, int64(3), got.Version)
	require.Len(t, got.Days, 1)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got.Days[0].Date)

	res := decodeBody[handler.UpdateTripResponse](t, rec)
	assert.True(t, res.StillParticipant)
	assert.Equal(t, int64(4), res.Trip.Version)
}

func TestUpdateTrip_staleVersionIs409(t *testing.T) {
	svc := &mockTripServicer{update: func(context.Context, domain.User, domain.Trip) (service.UpdateResult, error) {
		return service.UpdateResult{}, fmt.Errorf("service.TripService.Update: %w", domain.ErrVersionConflict)
	}}
	h := newHTTPHandler(handler.Deps{Trips: svc})

	rec := do(t, h, http.MethodPut, "/trips/"+uuid.NewString(), map[string]any{"name": "x"}, testToken)

	require.Equal(t, http.StatusConflict, rec.Code)
	e := errorOf(t, rec)
	assert.Equal(t, "conflict", e.Code)
	assert.Equal(t, "the record was changed by someone else, reload and try again", e.Message)
}

func TestConcludeTrip(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := &mockTripServicer{conclude: func(context.Context, domain.User, uuid.UUID) (domain.Trip, bool, error) {
			trip := tripFixture()
			trip.IsCompleted = true
			return trip, true, nil
		}}
		rec := do(t, newHTTPHandler(handler.Deps{Trips: svc}), http.MethodPost, "/trips/"+uuid.NewString()+"/conclude", nil, testToken)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decodeBody[handler.Trip](t, rec).IsCompleted)
	})
	t.Run("missing trip is a no-op", func(t *testing.T) {
		svc := &mockTripServicer{conclude: func(context.Context, domain.User, uuid.UUID) (domain.Trip, bool, error) {
			return domain.Trip{}, false, nil
		}}
		rec := do(t, newHTTPHandler(handler.Deps{Trips: svc}), http.MethodPost, "/trips/"+uuid.NewString()+"/conclude", nil, testToken)

		require.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})
}

func TestUpdateBudget(t *testing.T) {
	var got float64
	svc := &mockTripServicer{updateBudget: func(_ context.Context, _ domain.User, _ uuid.UUID, budget float64) (domain.Trip, error) {
		got = budget
		trip := tripFixture()
		trip.Budget = budget
		return trip, nil
	}}
	h := newHTTPHandler(handler.Deps{Trips: svc})

	rec := do(t, h, http.MethodPut, "/trips/"+uuid.NewString()+"/budget", map[string]any{"budget": 0}, testToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, got)

	rec = do(t, h, http.MethodPut, "/trips/"+uuid.NewString()+"/budget", map[string]any{}, testToken)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "budget is required", errorOf(t, rec).Message)
}

func TestGetSummary_passesTraveler(t *testing.T) {
	var traveler string
	svc := &mockTripServicer{summary: func(_ context.Context, _ domain.User, _ uuid.UUID, who string) (domain.Summary, error) {
		traveler = who
		return domain.Summary{Traveler: who, Budget: 1000, Remaining: 900, TotalReal: 50}, nil
	}}
	h := newHTTPHandler(handler.Deps{Trips: svc})

	rec := do(t, h, http.MethodGet, "/trips/"+uuid.NewString()+"/summary?traveler=Ana", nil, testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", traveler)
	sum := decodeBody[domain.Summary](t, rec)
	assert.Equal(t, 900.0, sum.Remaining)
	assert.Equal(t, 50.0, sum.TotalReal)
}
