package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pkordes/planejatrip/internal/auth"
	"github.com/pkordes/planejatrip/internal/domain"
	"github.com/pkordes/planejatrip/internal/repo"
)

// PasswordHasher is satisfied by auth.Hasher.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(hash, password string) bool
}

// TokenCodec is satisfied by *auth.Tokens.
type TokenCodec interface {
	Issue(session domain.Session) (string, error)
	Parse(token string) (auth.Claims, error)
}

// SignedIn is the result of opening a session: the session record and the
// bearer token that refers to it.
type SignedIn struct {
	User    domain.User    `json:"user"`
	Token   string         `json:"token"`
	Session domain.Session `json:"-"`
}

// ProfileUpdate carries a profile edit. Leave the password fields empty to
// change only the name.
type ProfileUpdate struct {
	Name            string
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
}

// AuthService is the session manager: registration, sign in and out,
// session resolution, and profile edits.
type AuthService struct {
	users    repo.UserRepo
	sessions repo.SessionRepo
	hasher   PasswordHasher
	tokens   TokenCodec
	ttl      time.Duration
	now      func() time.Time
	log      *slog.Logger
}

// NewAuthService constructs an AuthService. Sessions expire after ttl.
func NewAuthService(users repo.UserRepo, sessions repo.SessionRepo, hasher PasswordHasher, tokens TokenCodec, ttl time.Duration, log *slog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		sessions: sessions,
		hasher:   hasher,
		tokens:   tokens,
		ttl:      ttl,
		now:      time.Now,
		log:      log,
	}
}

// Register creates a user. Returns domain.ErrDuplicateEmail when the email is
// taken; the existing record is left untouched.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (domain.User, error) {
	name = strings.TrimSpace(name)
	email = domain.NormalizeEmail(email)
	switch {
	case name == "":
		return domain.User{}, domain.Invalid("name is required")
	case !validEmail(email):
		return domain.User{}, domain.Invalid("a valid email is required")
	case len(password) < minPasswordLen:
		return domain.User{}, domain.Invalid("password must be at least %d characters", minPasswordLen)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AuthService.Register: %w", err)
	}
	user, err := s.users.Create(ctx, domain.User{Name: name, Email: email, PasswordHash: hash})
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AuthService.Register: %w", err)
	}
	s.log.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials. An unknown email and a wrong password both fail
// with domain.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, fmt.Errorf("service.AuthService.Login: %w", domain.ErrInvalidCredentials)
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AuthService.Login: %w", err)
	}
	if !s.hasher.Check(user.PasswordHash, password) {
		return domain.User{}, fmt.Errorf("service.AuthService.Login: %w", domain.ErrInvalidCredentials)
	}
	return user, nil
}

// OpenSession stores a new session for user and issues its bearer token.
func (s *AuthService) OpenSession(ctx context.Context, user domain.User) (SignedIn, error) {
	session, err := s.sessions.Create(ctx, domain.Session{
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.ttl),
	})
	if err != nil {
		return SignedIn{}, fmt.Errorf("service.AuthService.OpenSession: %w", err)
	}
	token, err := s.tokens.Issue(session)
	if err != nil {
		return SignedIn{}, fmt.Errorf("service.AuthService.OpenSession: %w", err)
	}
	return SignedIn{User: user, Token: token, Session: session}, nil
}

// Authenticate resolves a bearer token to its live session and user.
// A session whose user no longer exists is closed and reported unauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (domain.User, domain.Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("service.AuthService.Authenticate: %w", err)
	}

	session, err := s.sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.Session{}, fmt.Errorf("service.AuthService.Authenticate: %w: session ended", domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("service.AuthService.Authenticate: %w", err)
	}
	if session.UserID != claims.UserID {
		return domain.User{}, domain.Session{}, fmt.Errorf("service.AuthService.Authenticate: %w: invalid token", domain.ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		s.log.Warn("session user missing, signing out", "user_id", session.UserID, "session_id", session.ID)
		if delErr := s.sessions.Delete(ctx, session.ID); delErr != nil {
			s.log.Error("close orphaned session", "session_id", session.ID, "error", delErr)
		}
		return domain.User{}, domain.Session{}, fmt.Errorf("service.AuthService.Authenticate: %w: account no longer exists", domain.ErrUnauthorized)
	}
	if err != nil {
		return domain.User{}, domain.Session{}, fmt.Errorf("service.AuthService.Authenticate: %w", err)
	}
	return user, session, nil
}

// Logout ends a session. Only the session record is removed.
func (s *AuthService) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("service.AuthService.Logout: %w", err)
	}
	return nil
}

// Resume resolves a remembered identity to its user. Returns
// domain.ErrNotFound when the marker is empty or names an unknown account.
func (s *AuthService) Resume(ctx context.Context, email string) (domain.User, error) {
	if blank(email) {
		return domain.User{}, fmt.Errorf("service.AuthService.Resume: %w", domain.ErrNotFound)
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AuthService.Resume: %w", err)
	}
	return user, nil
}

// UpdateProfile renames the actor and optionally changes their password.
// A password change re-checks the current password first, then requires
// the new one to be long enough and confirmed.
func (s *AuthService) UpdateProfile(ctx context.Context, actor domain.User, in ProfileUpdate) (domain.User, error) {
	stored, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AuthService.UpdateProfile: %w", err)
	}

	name := strings.TrimSpace(in.Name)
	changingName := name != "" && name != stored.Name
	changingPassword := in.NewPassword != "" || in.ConfirmPassword != ""

	if !changingName && !changingPassword {
		return domain.User{}, domain.Invalid("nothing to update")
	}
	if changingName {
		stored.Name = name
	}
	if changingPassword {
		if !s.hasher.Check(stored.PasswordHash, in.CurrentPassword) {
			return domain.User{}, fmt.Errorf("service.AuthService.UpdateProfile: %w: current password is incorrect", domain.ErrUnauthorized)
		}
		if len(in.NewPassword) < minPasswordLen {
			return domain.User{}, domain.Invalid("new password must be at least %d characters", minPasswordLen)
		}
		if in.NewPassword != in.ConfirmPassword {
			return domain.User{}, domain.Invalid("passwords do not match")
		}
		hash, err := s.hasher.Hash(in.NewPassword)
		if err != nil {
			return domain.User{}, fmt.Errorf("service.AuthService.UpdateProfile: %w", err)
		}
		stored.PasswordHash = hash
	}

	updated, err := s.users.Update(ctx, stored)
	if err != nil {
		return domain.User{}, fmt.Errorf("service.AuthService.UpdateProfile: %w", err)
	}
	return updated, nil
}
