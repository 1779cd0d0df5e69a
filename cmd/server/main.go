// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/baduk/internal/auth"
	"github.com/jason-s-yu/baduk/internal/cache"
	"github.com/jason-s-yu/baduk/internal/config"
	"github.com/jason-s-yu/baduk/internal/database"
	"github.com/jason-s-yu/baduk/internal/handlers"
	"github.com/jason-s-yu/baduk/internal/matchmaking"
	"github.com/jason-s-yu/baduk/internal/metrics"
	"github.com/jason-s-yu/baduk/internal/presence"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}
	logger := cfg.NewLogger()

	if err := run(cfg, logger); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}

func run(cfg config.Config, logger *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cache.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: cfg.Redis.DialTimeout,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()
	logger.WithField("addr", cfg.Redis.Addr).Info("connected to redis")

	if cfg.MigrateOnStart {
		if err := database.Migrate(cfg.Postgres.URL(), logger); err != nil {
			return err
		}
	}
	pool, err := database.Connect(ctx, cfg.Postgres.URL())
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.WithField("host", cfg.Postgres.Host).Info("connected to postgres")

	sessions, err := loadSessions(cfg, logger)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	lobbyMetrics := metrics.NewLobby(reg)

	store := cache.NewRedisStore(rdb)
	srv := &handlers.APIServer{
		Rooms:    matchmaking.NewRegistry(store, cfg.RoomTTL, logger.WithField("component", "rooms"), matchmaking.WithMetrics(lobbyMetrics)),
		Presence: presence.NewTracker(store, cfg.PresenceTTL, logger.WithField("component", "presence")),
		Users:    database.NewUsers(pool),
		Sessions: sessions,
		Store:    store,
		Metrics:  lobbyMetrics,
		Logger:   logger,
	}

	httpServer := &http.Server{
		Addr: net.JoinHostPort("", cfg.Port),
		Handler: srv.Routes(handlers.RouterOptions{
			ClientURL:   cfg.ClientURL,
			HTTPMetrics: metrics.NewHTTP(reg),
			Gatherer:    reg,
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func loadSessions(cfg config.Config, logger logrus.FieldLogger) (*auth.Sessions, error) {
	ttl, err := cfg.TokenTTL()
	if err != nil {
		return nil, err
	}
	if cfg.SessionPrivateKeyPath != "" && cfg.SessionPublicKeyPath != "" {
		return auth.LoadSessions(cfg.SessionPrivateKeyPath, cfg.SessionPublicKeyPath, ttl)
	}
	logger.Warn("no session key files configured; generated an ephemeral signing key")
	return auth.NewSessions(ttl)
}
