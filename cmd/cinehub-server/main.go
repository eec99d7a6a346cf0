// Package main is the entry point for the cinehub-server application.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/CreativeUnicorns/cinehub"
	"github.com/CreativeUnicorns/cinehub/api"
	"github.com/CreativeUnicorns/cinehub/auth"
	"github.com/CreativeUnicorns/cinehub/cache"
	"github.com/CreativeUnicorns/cinehub/config"
	"github.com/CreativeUnicorns/cinehub/events"
	"github.com/CreativeUnicorns/cinehub/storage"
	"github.com/CreativeUnicorns/cinehub/stream"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (defaults to ./config.yaml, ./configs, /etc/cinehub)")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "cinehub-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	logger := cinehub.NewLogger(os.Stderr, cinehub.ParseLogLevel(cfg.Logging.Level), cfg.Logging.JSONFormat)
	logger.Info("Cinehub server starting up", "storage", cfg.Database.Driver, "cache", cfg.Cache.Driver)

	store, err := openStorage(cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage", "error", err)
		}
	}()

	opts := []cinehub.Option{
		cinehub.WithStorage(store),
		cinehub.WithLogger(logger),
		cinehub.WithEnums(cfg.Prefs.EnumTable()),
		cinehub.WithCacheTTL(cfg.Cache.TTL),
	}
	cacher, err := openCache(cfg.Cache)
	if err != nil {
		return err
	}
	if cacher != nil {
		defer func() {
			if err := cacher.Close(); err != nil {
				logger.Error("Failed to close cache", "error", err)
			}
		}()
		opts = append(opts, cinehub.WithCache(cacher))
	}
	mgr := cinehub.New(opts...)

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.AdminEmails)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub := events.NewHub(logger)
	go func() { _ = hub.Run(ctx) }()
	go hub.Announce(ctx, cfg.Events.AnnounceInterval)

	streams := stream.NewServer(
		stream.NewFileSource(cfg.Stream.Path),
		stream.WithContentType(cfg.Stream.ContentType),
		stream.WithChunkSize(cfg.Stream.ChunkSize),
		stream.WithLogger(logger),
	)

	apiServer, err := api.NewServer(api.Config{
		ListenAddress: cfg.Server.Address,
		ReadTimeout:   cfg.Server.ReadTimeout,
		WriteTimeout:  cfg.Server.WriteTimeout,
		IdleTimeout:   cfg.Server.IdleTimeout,
		Manager:       mgr,
		Tokens:        tokens,
		Streams:       streams,
		Events:        events.NewHandler(hub, tokens),
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("create API server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- apiServer.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}

	logger.Info("Server exited gracefully")
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func openStorage(cfg config.DatabaseConfig) (cinehub.Storage, error) {
	switch cfg.Driver {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		return storage.NewSQLiteStorage(cfg.DSN)
	case "postgres":
		return storage.NewPostgresStorage(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// openCache returns nil for the none driver.
func openCache(cfg config.CacheConfig) (cinehub.Cache, error) {
	switch cfg.Driver {
	case "none":
		return nil, nil
	case "memory":
		return cache.NewMemoryCache(), nil
	case "redis":
		return cache.NewRedisCache(cfg.URL, cfg.Prefix)
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
