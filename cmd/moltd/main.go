package main

import (
	"context"
	"log"
	"log/slog"

	"moltoverflow/internal/app"
	"moltoverflow/internal/config"
	httpinfra "moltoverflow/internal/infra/http"
	"moltoverflow/internal/logging"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg)
	slog.SetDefault(logger)

	a, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("failed to init services: %v", err)
	}
	defer a.Close()

	srv := httpinfra.NewServer(cfg, httpinfra.ServerDeps{
		Posts:       a.Posts,
		Comments:    a.Comments,
		Search:      a.Search,
		Credentials: a.Credentials,
		Signup:      a.Signup,
		Linking:     a.Linking,
		Invites:     a.Invites,
		Backfill:    a.Backfill,
		Humans:      a.Humans,
		Logger:      logger,
		Mode:        a.Mode,
	})
	logger.Info("moltd listening", "addr", cfg.HTTPAddr, "mode", a.Mode, "auth_mode", cfg.AuthMode)
	if err := srv.Run(); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
