package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chainview/internal/cache"
	"chainview/internal/config"
	apphttp "chainview/internal/http"
	"chainview/internal/log"
	"chainview/internal/middleware/ratelimit"
	"chainview/internal/rpc"
	"chainview/internal/services"
)

// cacheSweepInterval is how often expired cache entries are dropped.
const cacheSweepInterval = time.Minute

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	logConfig := log.DefaultConfig()
	logConfig.Level = level
	logger := log.New(logConfig)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	retry := rpc.DefaultRetryConfig()
	retry.MaxRetries = cfg.RPCMaxRetries
	client, err := rpc.NewClient(rpc.Options{
		Endpoints: cfg.RPCEndpoints,
		Timeout:   cfg.RPCTimeout,
		Retry:     retry,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("Failed to initialize RPC client", "error", err)
		os.Exit(1)
	}

	globals := rpc.NewCachedGlobals(client, cfg.CacheSize, cfg.CacheTTL)
	activity := services.NewActivityService(client, client, cfg.HistoryPageLimit, cfg.CacheSize, cfg.CacheTTL, logger)
	profiles := services.NewProfileService(client, cfg.CacheSize, cfg.CacheTTL, logger)
	voteValue := services.NewVoteValueService(client, globals)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache).Slog())
	caches.Register("globals", globals.Cache())
	caches.Register("activity", activity.Loaders())
	caches.Register("profiles", profiles.Profiles())
	caches.Start(ctx, cacheSweepInterval)

	rateLimit := ratelimit.DefaultConfig()
	rateLimit.RequestsPerMinute = cfg.RateLimitPerMinute

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Dependencies{
		Activity:  activity,
		Profiles:  profiles,
		VoteValue: voteValue,
		Node:      client,
		Caches: map[string]apphttp.CacheStatser{
			"globals":  globals.Cache(),
			"activity": activity.Loaders(),
			"profiles": profiles.Profiles(),
		},
		RateLimit:       rateLimit,
		BlockSuspicious: cfg.BlockSuspicious,
		Logger:          logger,
	})

	// Graceful shutdown handling
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting chainview server", "port", cfg.Port, "endpoints", client.Endpoints())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-stopped
	caches.Wait()
	logger.Info("Server stopped gracefully")
}
