package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkordes/planejatrip/internal/domain"
)

// Authenticator resolves a bearer token. *service.AuthService satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (domain.User, domain.Session, error)
}

type actorKey struct{}

type actor struct {
	user    domain.User
	session domain.Session
}

// WithActor returns a copy of ctx carrying the authenticated user and session.
func WithActor(ctx context.Context, user domain.User, session domain.Session) context.Context {
	return context.WithValue(ctx, actorKey{}, actor{user: user, session: session})
}

// ActorFrom returns the user and session RequireAuth stored in ctx.
func ActorFrom(ctx context.Context) (domain.User, domain.Session, bool) {
	a, ok := ctx.Value(actorKey{}).(actor)
	return a.user, a.session, ok
}

// RequireAuth rejects requests without a valid "Authorization: Bearer"
// token with 401 and otherwise stores the actor in the request context.
// Backend failures while resolving the session answer 503.
func RequireAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			user, session, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				if domain.KindOf(err) == domain.KindTransient {
					writeError(w, http.StatusServiceUnavailable, "unavailable", "the service is temporarily unavailable")
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", domain.Message(err))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), user, session)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// writeError writes the API's JSON error body.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
