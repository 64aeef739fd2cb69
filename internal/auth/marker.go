package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/planejatrip/internal/domain"
)

// IdentityMarker remembers which user signed in last so a client can resume
// without asking for credentials again. Load returns "" when nothing is stored.
type IdentityMarker interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, email string) error
	Clear(ctx context.Context) error
}

// DefaultMarkerPath is ~/.config/planejatrip/last_user, or the platform's
// equivalent user config directory.
func DefaultMarkerPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("auth.DefaultMarkerPath: %w", err)
	}
	return filepath.Join(dir, "planejatrip", "last_user"), nil
}

// FileMarker keeps the marker in a single file holding the email.
type FileMarker struct {
	Path string
}

func (m FileMarker) Load(_ context.Context) (string, error) {
	b, err := os.ReadFile(m.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("auth.FileMarker.Load: %w", err)
	}
	return domain.NormalizeEmail(string(b)), nil
}

func (m FileMarker) Save(_ context.Context, email string) error {
	if err := os.MkdirAll(filepath.Dir(m.Path), 0o700); err != nil {
		return fmt.Errorf("auth.FileMarker.Save: %w", err)
	}
	if err := os.WriteFile(m.Path, []byte(domain.NormalizeEmail(email)+"\n"), 0o600); err != nil {
		return fmt.Errorf("auth.FileMarker.Save: %w", err)
	}
	return nil
}

func (m FileMarker) Clear(_ context.Context) error {
	if err := os.Remove(m.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("auth.FileMarker.Clear: %w", err)
	}
	return nil
}

// RedisMarkerKey is where RedisMarker keeps the last user's email.
const RedisMarkerKey = "planejatrip:last-user"

// RedisMarker keeps the marker next to the records of the redis backend.
type RedisMarker struct {
	Client redis.UniversalClient
}

func (m RedisMarker) Load(ctx context.Context) (string, error) {
	email, err := m.Client.Get(ctx, RedisMarkerKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("auth.RedisMarker.Load: %w", domain.Transient(err))
	}
	return strings.TrimSpace(email), nil
}

func (m RedisMarker) Save(ctx context.Context, email string) error {
	if err := m.Client.Set(ctx, RedisMarkerKey, domain.NormalizeEmail(email), 0).Err(); err != nil {
		return fmt.Errorf("auth.RedisMarker.Save: %w", domain.Transient(err))
	}
	return nil
}

func (m RedisMarker) Clear(ctx context.Context) error {
	if err := m.Client.Del(ctx, RedisMarkerKey).Err(); err != nil {
		return fmt.Errorf("auth.RedisMarker.Clear: %w", domain.Transient(err))
	}
	return nil
}
