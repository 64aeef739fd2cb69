// Command planejatrip is a terminal client for PlanejaTrip. It talks to the
// record store directly through the same services as the API server and
// remembers the last signed-in user between runs.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pkordes/planejatrip/internal/app"
	"github.com/pkordes/planejatrip/internal/bootstrap"
	"github.com/pkordes/planejatrip/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "planejatrip:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logs go to stderr so they do not interleave with the prompt.
	logger := bootstrap.Logger(cfg.LogLevel, os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	backend, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close()

	svcs, err := bootstrap.NewServices(ctx, cfg, backend.Store, logger)
	if err != nil {
		return err
	}
	marker, err := backend.Marker(cfg.IdentityFile)
	if err != nil {
		return err
	}

	ctl := app.New(app.Deps{
		Accounts:  svcs.Auth,
		Trips:     svcs.Trips,
		Invites:   svcs.Invites,
		Projector: svcs.Projection,
		Marker:    marker,
		Log:       logger,
	})
	if err := ctl.Start(ctx); err != nil {
		return fmt.Errorf("resume session: %w", err)
	}

	sh := &shell{ctl: ctl, out: os.Stdout}
	return sh.run(ctx, os.Stdin)
}
