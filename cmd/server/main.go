package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/rps-backend/internal/config"
	"github.com/DoyleJ11/rps-backend/internal/httpapi"
	"github.com/DoyleJ11/rps-backend/internal/hub"
	"github.com/DoyleJ11/rps-backend/internal/store"
	"github.com/DoyleJ11/rps-backend/internal/ws"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development() {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	return zc.Build()
}

func run(cfg config.Config, log *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	opts := hub.Options{
		WinsNeeded:      cfg.WinsNeeded,
		LeaderboardSize: cfg.LeaderboardSize,
		Logger:          log,
	}

	if cfg.DatabaseURL != "" {
		db, openErr := store.Open(cfg.DatabaseURL)
		if openErr != nil {
			return openErr
		}
		defer func() { err = multierr.Append(err, store.Close(db)) }()

		rec := store.NewRecorder(db, 0, log)
		opts.Recorder = rec
		g.Go(func() error { return rec.Run(ctx) })
		log.Info("match history enabled")
	}

	h := hub.NewHub(ctx, opts)

	sched, err := hub.StartQueueTicker(h, cfg.QueueTick, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.Addr,
		Handler: httpapi.SetupRoutes(h, ws.Options{
			OriginPatterns: cfg.AllowedOrigins,
			OutboxSize:     cfg.OutboxSize,
			PingInterval:   cfg.PingInterval,
			Logger:         log,
		}, log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Info("listening", zap.String("addr", cfg.Addr), zap.Int("wins_needed", cfg.WinsNeeded))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		h.Post(hub.ShutdownHub{})
		<-h.Done()
		return multierr.Combine(
			srv.Shutdown(sctx),
			sched.Shutdown(),
		)
	})

	return g.Wait()
}
