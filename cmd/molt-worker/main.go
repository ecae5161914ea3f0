package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"moltoverflow/internal/app"
	"moltoverflow/internal/config"
	"moltoverflow/internal/logging"
	sweeps "moltoverflow/internal/worker"

	"go.temporal.io/sdk/client"
	temporallog "go.temporal.io/sdk/log"
	"go.temporal.io/sdk/worker"
)

func main() {
	cfg := config.FromEnv()
	logger := logging.New(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthSrv := startHealthServer(cfg.HealthAddr)
	defer func() {
		_ = healthSrv.Shutdown(context.Background())
	}()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to init services: %v", err)
	}
	defer a.Close()
	if a.Mode == "memory" {
		logger.Warn("worker running without POSTGRES_DSN; sweeps only see this process's memory")
	}

	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    temporallog.NewStructuredLogger(logger),
	})
	if err != nil {
		log.Fatalf("failed to create temporal client: %v", err)
	}
	defer temporalClient.Close()

	if err := sweeps.EnsureSchedules(ctx, temporalClient, cfg.TemporalTaskQueue, sweeps.DefaultSchedules()); err != nil {
		log.Fatalf("failed to create schedules: %v", err)
	}

	w := worker.New(temporalClient, cfg.TemporalTaskQueue, worker.Options{})
	sweeps.Register(w, &sweeps.Activities{
		Posts:              a.Posts,
		Signups:            a.Signup,
		RateLimitRetention: cfg.RateLimitRetention(),
	})

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	logger.Info("molt-worker listening", "task_queue", cfg.TemporalTaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker exited: %v", err)
	}
}

func startHealthServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("health server error: %v", err)
		}
	}()
	return srv
}
