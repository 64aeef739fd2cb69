// Package bootstrap turns a config.Config into a running backend and the
// services built on it. Both binaries share it so the API server and the
// terminal client wire things the same way.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/planejatrip/internal/auth"
	"github.com/pkordes/planejatrip/internal/config"
	"github.com/pkordes/planejatrip/internal/notify"
	"github.com/pkordes/planejatrip/internal/repo"
	"github.com/pkordes/planejatrip/internal/service"
	"github.com/pkordes/planejatrip/internal/suggest"
	"github.com/pkordes/planejatrip/migrations"
)

// Backend is an open record store. Close releases its pool or client.
type Backend struct {
	Store repo.Store
	Kind  string

	pool  *pgxpool.Pool
	redis redis.UniversalClient
}

// Open connects the backend cfg.StoreBackend names and verifies it is
// reachable. Postgres runs migrations when cfg.MigrateOnStart is set;
// redis converts the legacy invite layout.
func Open(ctx context.Context, cfg config.Config, log *slog.Logger) (*Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("using the in-memory store, records are lost on exit")
		return &Backend{Store: repo.NewMemoryStore(), Kind: config.BackendMemory}, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap.Open: parse REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("bootstrap.Open: ping redis: %w", err)
		}
		n, err := repo.MigrateLegacyInvites(ctx, client)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("bootstrap.Open: %w", err)
		}
		if n > 0 {
			log.Info("migrated legacy invites", "count", n)
		}
		log.Info("redis connection established")
		return &Backend{Store: repo.NewRedisStore(client), Kind: config.BackendRedis, redis: client}, nil

	case config.BackendPostgres:
		// pgxpool.New does not open connections immediately; Ping does.
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap.Open: create pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap.Open: ping database: %w", err)
		}
		log.Info("database connection established")
		if cfg.MigrateOnStart {
			if err := Migrate(ctx, pool, log); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Backend{Store: repo.NewPostgresStore(pool), Kind: config.BackendPostgres, pool: pool}, nil
	}
	return nil, fmt.Errorf("bootstrap.Open: unknown store backend %q", cfg.StoreBackend)
}

// Migrate applies every pending goose migration.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := migrations.NewProvider(db)
	if err != nil {
		return fmt.Errorf("bootstrap.Migrate: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap.Migrate: %w", err)
	}
	for _, r := range results {
		log.Info("migration applied", "version", r.Source.Version, "duration", r.Duration)
	}
	return nil
}

// Ping reports whether the backend is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	switch {
	case b.pool != nil:
		return b.pool.Ping(ctx)
	case b.redis != nil:
		return b.redis.Ping(ctx).Err()
	}
	return nil
}

// Marker returns where the last signed-in identity is remembered: next to
// the records for redis, in a local file otherwise.
func (b *Backend) Marker(path string) (auth.IdentityMarker, error) {
	if b.redis != nil {
		return auth.RedisMarker{Client: b.redis}, nil
	}
	if path == "" {
		var err error
		if path, err = auth.DefaultMarkerPath(); err != nil {
			return nil, fmt.Errorf("bootstrap.Backend.Marker: %w", err)
		}
	}
	return auth.FileMarker{Path: path}, nil
}

// Close releases the backend's connections.
func (b *Backend) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.redis != nil {
		_ = b.redis.Close()
	}
}

// Services are the application services over one backend.
type Services struct {
	Auth       *service.AuthService
	Trips      *service.TripService
	Invites    *service.InviteService
	Projection *service.ProjectionService
	Suggest    *suggest.Service
}

// NewServices builds the services. Missing Gemini or SendGrid keys fall
// back to sample suggestions and log-only notifications.
func NewServices(ctx context.Context, cfg config.Config, store repo.Store, log *slog.Logger) (Services, error) {
	var notifier service.InviteNotifier = notify.Log{Logger: log}
	if cfg.SendGridAPIKey != "" {
		notifier = notify.NewSendGrid(cfg.SendGridAPIKey, cfg.AppName, cfg.SendGridFromEmail)
	}

	var gen suggest.Generator
	if cfg.GeminiAPIKey != "" {
		g, err := suggest.NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return Services{}, fmt.Errorf("bootstrap.NewServices: %w", err)
		}
		gen = g
	} else {
		log.Warn("GEMINI_API_KEY not set, suggestions use sample data")
	}

	return Services{
		Auth:       service.NewAuthService(store.Users, store.Sessions, auth.Hasher{}, auth.NewTokens(cfg.JWTSecret), cfg.SessionTTL, log),
		Trips:      service.NewTripService(store.Trips, log),
		Invites:    service.NewInviteService(store.Users, store.Trips, store.Invites, notifier, log),
		Projection: service.NewProjectionService(store.Trips, store.Invites),
		Suggest:    suggest.NewService(gen, log),
	}, nil
}

// Logger builds the JSON slog logger for level, falling back to info.
func Logger(level string, w io.Writer) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}
