package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "panic-list/internal/adapters/web"
	"panic-list/internal/app"
	"panic-list/internal/backend"
	"panic-list/internal/config"
	"panic-list/internal/core"
	"panic-list/internal/db"
	"panic-list/internal/logger"
	"panic-list/internal/session"

	"github.com/sirupsen/logrus"
)

const purgeInterval = 10 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if err := cfg.ValidateServer(); err != nil {
		logrus.Fatalf("config: %v", err)
	}

	log, closer, err := logger.New(cfg.Log)
	if err != nil {
		logrus.Fatalf("logger: %v", err)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, _ := cfg.Location()
	client, err := backend.New(cfg.BackendURL,
		backend.WithTimeout(cfg.BackendTimeout),
		backend.WithPageSize(cfg.OrdersPageSize),
		backend.WithLogger(log),
	)
	if err != nil {
		log.Fatalf("backend: %v", err)
	}

	var (
		store  session.Store
		purger session.Purger
	)
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer pool.Close()
		pg := session.NewPostgresStore(pool)
		store, purger = pg, pg
		log.Info("sessions stored in postgres")
	} else {
		mem := session.NewMemoryStore()
		store, purger = mem, mem
		log.Warn("DATABASE_URL not set; sessions are kept in memory and lost on restart")
	}
	waitPurge := session.StartPurge(ctx, purger, purgeInterval, log)
	defer waitPurge()

	svc := app.NewAppService(store,
		func(token string) core.Backend { return client.WithToken(token) },
		app.Options{
			ResolveConcurrency: cfg.ResolveConcurrency,
			SessionTTL:         cfg.SessionTTL,
			Location:           loc,
		},
		log,
	)

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           webAdapter.NewHandler(svc, cfg.AllowedOrigins, cfg.JWTSecret, cfg.SessionTTL, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ServerAddr).Info("server starting")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}
