package handler_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/handler"
	"github.com/pkordes/planejatrip/internal/service"
)

func TestRegister_returns201WithToken(t *testing.T) {
	var gotName, gotEmail, gotPassword string
	auth := &mockAuth{
		register: func(_ context.Context, name, email, password string) (domain.User, error) {
			gotName, gotEmail, gotPassword = name, email, password
			return ana, nil
		},
	}
	h := newHTTPHandler(handler.Deps{Auth: auth})

	rec := do(t, h, http.MethodPost, "/auth/register", map[string]string{
		"name": "Ana", "email": "ana@x.com", "password": "secret1",
	}, "")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody[service.SignedIn](t, rec)
	assert.Equal(t, "issued", body.Token)
	assert.Equal(t, ana.Email, body.User.Email)
	assert.Equal(t, "Ana", gotName)
	assert.Equal(t, "ana@x.com", gotEmail)
	assert.Equal(t, "secret1", gotPassword)
}

func TestRegister_errors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
		msg    string
	}{
		{"duplicate email", fmt.Errorf("service.AuthService.Register: %w", domain.ErrDuplicateEmail), http.StatusConflict, "conflict", "an account with this email already exists"},
		{"short password", domain.Invalid("password must be at least 6 characters"), http.StatusUnprocessableEntity, "validation_error", "password must be at least 6 characters"},
		{"store down", domain.Transient(fmt.Errorf("dial tcp: refused")), http.StatusServiceUnavailable, "unavailable", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &mockAuth{register: func(context.Context, string, string, string) (domain.User, error) {
				return domain.User{}, tc.err
			}}
			h := newHTTPHandler(handler.Deps{Auth: auth})

			rec := do(t, h, http.MethodPost, "/auth/register", map[string]string{
				"name": "Ana", "email": "ana@x.com", "password": "secret1",
			}, "")

			require.Equal(t, tc.status, rec.Code)
			e := errorOf(t, rec)
			assert.Equal(t, tc.code, e.Code)
			if tc.msg != "" {
				assert.Equal(t, tc.msg, e.Message)
			}
		})
	}
}

func TestRegister_malformedBodyIs400(t *testing.T) {
	h := newHTTPHandler(handler.Deps{Auth: &mockAuth{}})
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "bad_request", errorOf(t, rec).Code)
}

func TestLogin_wrongPasswordIs401(t *testing.T) {
	auth := &mockAuth{login: func(context.Context, string, string) (domain.User, error) {
		return domain.User{}, fmt.Errorf("service.AuthService.Login: %w", domain.ErrInvalidCredentials)
	}}
	h := newHTTPHandler(handler.Deps{Auth: auth})

	rec := do(t, h, http.MethodPost, "/auth/login", map[string]string{"email": "ana@x.com", "password": "nope"}, "")

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	e := errorOf(t, rec)
	assert.Equal(t, "unauthorized", e.Code)
	assert.Equal(t, "invalid email or password", e.Message)
}

func TestLogin_rateLimited(t *testing.T) {
	auth := &mockAuth{login: func(context.Context, string, string) (domain.User, error) {
		return ana, nil
	}}
	h := newHTTPHandler(handler.Deps{Auth: auth, AuthRatePerMinute: 2})
	body := map[string]string{"email": "ana@x.com", "password": "secret1"}

	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/auth/login", body, "").Code)
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/auth/login", body, "").Code)
	rec := do(t, h, http.MethodPost, "/auth/login", body, "")

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestProtectedRoutes_requireToken(t *testing.T) {
	h := newHTTPHandler(handler.Deps{})
	paths := []struct{ method, path string }{
		{http.MethodGet, "/me"},
		{http.MethodPost, "/auth/logout"},
		{http.MethodPost, "/trips"},
		{http.MethodGet, "/trips/" + uuid.NewString()},
		{http.MethodPost, "/invites/" + uuid.NewString() + "/accept"},
	}
	for _, p := range paths {
		rec := do(t, h, p.method, p.path, nil, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)

		rec = do(t, h, p.method, p.path, nil, "stolen")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", p.method, p.path)
	}
}

func TestLogout_closesTheRequestSession(t *testing.T) {
	var got uuid.UUID
	auth := &mockAuth{logout: func(_ context.Context, id uuid.UUID) error {
		got = id
		return nil
	}}
	h := newHTTPHandler(handler.Deps{Auth: auth})

	rec := do(t, h, http.MethodPost, "/auth/logout", nil, testToken)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, anaSession.ID, got)
}

func TestGetMe_returnsProjection(t *testing.T) {
	trip := tripFixture()
	proj := &mockProjector{load: func(_ context.Context, u domain.User) (domain.Projection, error) {
		return domain.Projection{User: u, Trips: []domain.Trip{trip}}, nil
	}}
	h := newHTTPHandler(handler.Deps{Projection: proj})

	rec := do(t, h, http.MethodGet, "/me", nil, testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"startDate":"2025-06-01"`)
	body := decodeBody[handler.ProjectionResponse](t, rec)
	assert.Equal(t, ana.Email, body.User.Email)
	require.Len(t, body.Trips, 1)
	assert.Equal(t, trip.ID, body.Trips[0].ID)
	assert.NotNil(t, body.Invites, "invites are always a list")
}

func TestUpdateMe_passesTheEdit(t *testing.T) {
	var got service.ProfileUpdate
	auth := &mockAuth{updateProfile: func(_ context.Context, actor domain.User, in service.ProfileUpdate) (domain.User, error) {
		got = in
		actor.Name = in.Name
		return actor, nil
	}}
	h := newHTTPHandler(handler.Deps{Auth: auth})

	rec := do(t, h, http.MethodPut, "/me", handler.ProfileRequest{
		Name: "Ana Maria", CurrentPassword: "secret1", NewPassword: "secret2", ConfirmPassword: "secret2",
	}, testToken)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana Maria", decodeBody[domain.User](t, rec).Name)
	assert.Equal(t, "secret2", got.NewPassword)
	assert.Equal(t, "secret1", got.CurrentPassword)
}
