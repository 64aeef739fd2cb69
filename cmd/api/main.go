// Package main is the entry point for the PlanejaTrip API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pkordes/planejatrip/internal/bootstrap"
	"github.com/pkordes/planejatrip/internal/config"
	"github.com/pkordes/planejatrip/internal/handler"
	"github.com/pkordes/planejatrip/internal/middleware"
)

func main() {
	// --- Config -----------------------------------------------------------
	if err := config.LoadDotEnv(".env"); err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger := bootstrap.Logger(cfg.LogLevel, os.Stdout)
	slog.SetDefault(logger)

	// --- Store ------------------------------------------------------------
	ctx := context.Background()
	backend, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		slog.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	svcs, err := bootstrap.NewServices(ctx, cfg, backend.Store, logger)
	if err != nil {
		slog.Error("failed to build services", "error", err)
		os.Exit(1)
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer
	// → CORS → body limit.
	// RealIP sets r.RemoteAddr from X-Forwarded-For / X-Real-IP, which the
	// auth rate limiter keys on.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	server := handler.NewServer(handler.Deps{
		Auth:              svcs.Auth,
		Trips:             svcs.Trips,
		Invites:           svcs.Invites,
		Projection:        svcs.Projection,
		Suggest:           svcs.Suggest,
		Health:            backend,
		Log:               logger,
		AuthRatePerMinute: cfg.AuthRatePerMinute,
	})
	r.Mount("/", server.Routes())

	// --- HTTP Server ------------------------------------------------------
	// Suggestion routes wait on the model, hence the longer write timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then give in-flight requests
	// up to 15 seconds to complete before forcefully closing.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", srv.Addr, "store", backend.Kind, "suggestions", svcs.Suggest.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-stop
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
