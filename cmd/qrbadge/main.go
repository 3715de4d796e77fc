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

	"github.com/redis/go-redis/v9"

	"qrbadge/api/internal/auth"
	"qrbadge/api/internal/config"
	"qrbadge/api/internal/httpapi"
	"qrbadge/api/internal/realtime"
	"qrbadge/api/internal/service"
	"qrbadge/api/internal/store"
	"qrbadge/api/internal/store/memory"
	"qrbadge/api/internal/store/postgres"
	"qrbadge/api/internal/validation"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	st, closeStore, err := openStore(rootCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var publisher realtime.Publisher
	if cfg.RedisURL != "" {
		dialCtx, cancel := context.WithTimeout(rootCtx, 5*time.Second)
		client, err := realtime.DialRedis(dialCtx, cfg.RedisURL)
		cancel()
		if err != nil {
			return err
		}
		defer closeRedis(client, logger)
		publisher = realtime.NewRedisPublisher(client, cfg.RedisChannel)
		logger.Info("redis fan-out enabled", "channel", cfg.RedisChannel)
	}

	svcOpts := []service.Option{service.WithLogger(logger)}
	tokens := auth.NewTokens(cfg.JWTSecret, auth.DefaultTokenTTL)
	users := service.NewUsers(st, tokens, svcOpts...)

	if created, err := users.EnsureAdmin(rootCtx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	} else if !created && cfg.AdminEmail != "" {
		logger.Info("bootstrap admin already present", "email", cfg.AdminEmail)
	}

	srv, err := httpapi.NewServer(cfg, httpapi.Deps{
		Store:     st,
		Badges:    service.NewBadges(st, validation.NewExpirationPolicy(cfg.EventExpiration), svcOpts...),
		Accesses:  service.NewAccesses(st, svcOpts...),
		Users:     users,
		Tokens:    tokens,
		Hub:       realtime.NewHub(),
		Publisher: publisher,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("qrbadge api listening", "addr", cfg.ListenAddr(), "env", cfg.Env, "store", cfg.StoreDriver)
		errCh <- httpServer.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown requested")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
		}
	}

	cancelRoot()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(ctxShutdown); err != nil {
		logger.Warn("shutdown", "err", err)
	}
	return nil
}

func newLogger(cfg config.Config) *slog.Logger {
	if cfg.IsDevelopment() {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, func(), error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("using memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	pg, err := postgres.NewStore(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.DBMigrate {
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
	}
	logger.Info("using postgres store", "migrated", cfg.DBMigrate)
	return pg, pg.Close, nil
}

func closeRedis(client *redis.Client, logger *slog.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("redis close", "err", err)
	}
}
