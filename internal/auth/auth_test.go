package auth_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pkordes/planejatrip/internal/auth"
	"github.com/pkordes/planejatrip/internal/domain"
)

func TestHasher(t *testing.T) {
	h := auth.Hasher{Cost: bcrypt.MinCost}

	hash, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hash)
	assert.True(t, h.Check(hash, "secret1"))
	assert.False(t, h.Check(hash, "secret2"))
	assert.False(t, h.Check("not-a-hash", "secret1"))
}

func TestTokens_RoundTrip(t *testing.T) {
	tokens := auth.NewTokens("test-secret")
	session := domain.Session{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}

	signed, err := tokens.Issue(session)
	require.NoError(t, err)

	claims, err := tokens.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, claims.UserID)
	assert.Equal(t, session.ID, claims.SessionID)
}

func TestTokens_RejectsOtherSecret(t *testing.T) {
	session := domain.Session{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)}
	signed, err := auth.NewTokens("secret-a").Issue(session)
	require.NoError(t, err)

	_, err = auth.NewTokens("secret-b").Parse(signed)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "invalid token signature", domain.Message(err))
}

func TestTokens_RejectsExpired(t *testing.T) {
	tokens := auth.NewTokens("test-secret")
	session := domain.Session{ID: uuid.New(), UserID: uuid.New(), ExpiresAt: time.Now().Add(-time.Minute)}
	signed, err := tokens.Issue(session)
	require.NoError(t, err)

	_, err = tokens.Parse(signed)

	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Equal(t, "session expired", domain.Message(err))
}

func TestTokens_RejectsGarbage(t *testing.T) {
	_, err := auth.NewTokens("test-secret").Parse("not.a.jwt")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

// markerContract exercises any IdentityMarker implementation.
func markerContract(t *testing.T, m auth.IdentityMarker) {
	t.Helper()
	ctx := context.Background()

	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got, "nothing stored yet")

	require.NoError(t, m.Save(ctx, " Ana@Example.com "))
	got, err = m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", got)

	require.NoError(t, m.Clear(ctx))
	got, err = m.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	assert.NoError(t, m.Clear(ctx), "clearing twice is fine")
}

func TestFileMarker(t *testing.T) {
	markerContract(t, auth.FileMarker{Path: filepath.Join(t.TempDir(), "nested", "last_user")})
}

func TestRedisMarker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	markerContract(t, auth.RedisMarker{Client: client})
}
