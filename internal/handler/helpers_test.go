package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/handler"
	"github.com/pkordes/planejatrip/internal/service"
	"github.com/pkordes/planejatrip/internal/suggest"
)

// testToken is the bearer token mockAuth accepts for ana.
const testToken = "good-token"

var (
	ana        = domain.User{ID: uuid.New(), Name: "Ana", Email: "ana@x.com"}
	anaSession = domain.Session{ID: uuid.New(), UserID: ana.ID}
)

// mockAuth is a test double for handler.AuthServicer. Authenticate accepts
// testToken unless authenticate is set.
type mockAuth struct {
	register      func(ctx context.Context, name, email, password string) (domain.User, error)
	login         func(ctx context.Context, email, password string) (domain.User, error)
	openSession   func(ctx context.Context, user domain.User) (service.SignedIn, error)
	authenticate  func(ctx context.Context, token string) (domain.User, domain.Session, error)
	logout        func(ctx context.Context, sessionID uuid.UUID) error
	updateProfile func(ctx context.Context, actor domain.User, in service.ProfileUpdate) (domain.User, error)
}

func (m *mockAuth) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	return m.register(ctx, name, email, password)
}
func (m *mockAuth) Login(ctx context.Context, email, password string) (domain.User, error) {
	return m.login(ctx, email, password)
}
func (m *mockAuth) OpenSession(ctx context.Context, user domain.User) (service.SignedIn, error) {
	if m.openSession == nil {
		return service.SignedIn{User: user, Token: "issued"}, nil
	}
	return m.openSession(ctx, user)
}
func (m *mockAuth) Authenticate(ctx context.Context, token string) (domain.User, domain.Session, error) {
	if m.authenticate != nil {
		return m.authenticate(ctx, token)
	}
	if token != testToken {
		return domain.User{}, domain.Session{}, domain.ErrUnauthorized
	}
	return ana, anaSession, nil
}
func (m *mockAuth) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return m.logout(ctx, sessionID)
}
func (m *mockAuth) UpdateProfile(ctx context.Context, actor domain.User, in service.ProfileUpdate) (domain.User, error) {
	return m.updateProfile(ctx, actor, in)
}

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	create          func(ctx context.Context, actor domain.User, trip domain.Trip) (domain.Trip, error)
	get             func(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, error)
	update          func(ctx context.Context, actor domain.User, trip domain.Trip) (service.UpdateResult, error)
	conclude        func(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, bool, error)
	updateBudget    func(ctx context.Context, actor domain.User, id uuid.UUID, budget float64) (domain.Trip, error)
	summary         func(ctx context.Context, actor domain.User, id uuid.UUID, traveler string) (domain.Summary, error)
	addActivity     func(ctx context.Context, actor domain.User, tripID uuid.UUID, day int, act domain.Activity) (domain.Trip, error)
	updateActivity  func(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID, act domain.Activity) (domain.Trip, error)
	deleteActivity  func(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID) (domain.Trip, error)
	confirmActivity func(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID, realCost float64, participants []string) (domain.Trip, error)
}

func (m *mockTripServicer) Create(ctx context.Context, actor domain.User, t domain.Trip) (domain.Trip, error) {
	return m.create(ctx, actor, t)
}
func (m *mockTripServicer) Get(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, error) {
	return m.get(ctx, actor, id)
}
func (m *mockTripServicer) Update(ctx context.Context, actor domain.User, t domain.Trip) (service.UpdateResult, error) {
	return m.update(ctx, actor, t)
}
func (m *mockTripServicer) Conclude(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, bool, error) {
	return m.conclude(ctx, actor, id)
}
func (m *mockTripServicer) UpdateBudget(ctx context.Context, actor domain.User, id uuid.UUID, budget float64) (domain.Trip, error) {
	return m.updateBudget(ctx, actor, id, budget)
}
func (m *mockTripServicer) Summary(ctx context.Context, actor domain.User, id uuid.UUID, traveler string) (domain.Summary, error) {
	return m.summary(ctx, actor, id, traveler)
}
func (m *mockTripServicer) AddActivity(ctx context.Context, actor domain.User, tripID uuid.UUID, day int, act domain.Activity) (domain.Trip, error) {
	return m.addActivity(ctx, actor, tripID, day, act)
}
func (m *mockTripServicer) UpdateActivity(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID, act domain.Activity) (domain.Trip, error) {
	return m.updateActivity(ctx, actor, tripID, activityID, act)
}
func (m *mockTripServicer) DeleteActivity(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID) (domain.Trip, error) {
	return m.deleteActivity(ctx, actor, tripID, activityID)
}
func (m *mockTripServicer) ConfirmActivity(ctx context.Context, actor domain.User, tripID, activityID uuid.UUID, realCost float64, participants []string) (domain.Trip, error) {
	return m.confirmActivity(ctx, actor, tripID, activityID, realCost, participants)
}

// mockInviteServicer is a test double for handler.InviteServicer.
type mockInviteServicer struct {
	invite  func(ctx context.Context, actor domain.User, tripID uuid.UUID, email string, perm domain.Permission) (domain.Invite, error)
	accept  func(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, error)
	decline func(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Invite, error)
	resend  func(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Invite, error)
	dismiss func(ctx context.Context, actor domain.User, id uuid.UUID) error
}

func (m *mockInviteServicer) Invite(ctx context.Context, actor domain.User, tripID uuid.UUID, email string, perm domain.Permission) (domain.Invite, error) {
	return m.invite(ctx, actor, tripID, email, perm)
}
func (m *mockInviteServicer) Accept(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Trip, error) {
	return m.accept(ctx, actor, id)
}
func (m *mockInviteServicer) Decline(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Invite, error) {
	return m.decline(ctx, actor, id)
}
func (m *mockInviteServicer) Resend(ctx context.Context, actor domain.User, id uuid.UUID) (domain.Invite, error) {
	return m.resend(ctx, actor, id)
}
func (m *mockInviteServicer) Dismiss(ctx context.Context, actor domain.User, id uuid.UUID) error {
	return m.dismiss(ctx, actor, id)
}

type mockProjector struct {
	load func(ctx context.Context, user domain.User) (domain.Projection, error)
}

func (m *mockProjector) Load(ctx context.Context, user domain.User) (domain.Projection, error) {
	return m.load(ctx, user)
}

type mockSuggester struct {
	suggestions []suggest.Suggestion
	text        string
	chat        func(trip domain.Trip, history []suggest.Message, prompt string) string
}

func (m *mockSuggester) ActivitySuggestions(context.Context, domain.Trip) []suggest.Suggestion {
	return m.suggestions
}
func (m *mockSuggester) TravelText(context.Context, domain.Trip) string {
	return m.text
}
func (m *mockSuggester) Chat(_ context.Context, trip domain.Trip, history []suggest.Message, prompt string) string {
	if m.chat == nil {
		panic("mockSuggester.Chat called but not set")
	}
	return m.chat(trip, history, prompt)
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

// compile-time checks: the mocks must satisfy the handler interfaces.
var (
	_ handler.AuthServicer   = (*mockAuth)(nil)
	_ handler.TripServicer   = (*mockTripServicer)(nil)
	_ handler.InviteServicer = (*mockInviteServicer)(nil)
	_ handler.Projector      = (*mockProjector)(nil)
	_ handler.Suggester      = (*mockSuggester)(nil)
)

// ---- helpers ---------------------------------------------------------------

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newHTTPHandler wires a Server over d. A nil Auth gets a default mockAuth.
func newHTTPHandler(d handler.Deps) http.Handler {
	if d.Auth == nil {
		d.Auth = &mockAuth{}
	}
	d.Log = discardLogger()
	return handler.NewServer(d).Routes()
}

// do sends a request with an optional JSON body and bearer token.
func do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		r = jsonBody(t, body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) handler.ErrorDetail {
	t.Helper()
	return decodeBody[handler.ErrorResponse](t, rec).Error
}

func tripFixture() domain.Trip {
	return domain.Trip{
		ID:          uuid.New(),
		Name:        "Lisbon",
		Destination: "Lisbon, Portugal",
		StartDate:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC),
		Budget:      1000,
		Currency:    domain.CurrencyEUR,
		OwnerEmail:  ana.Email,
		Days:        domain.BuildDays(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)),
		Categories:  domain.DefaultCategories(),
		Participants: []domain.Participant{
			{Name: ana.Name, Email: ana.Email, Permission: domain.PermissionEdit},
		},
		Version:   1,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}
