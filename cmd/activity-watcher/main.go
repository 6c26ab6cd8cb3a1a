package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"chainview/internal/amqp"
	"chainview/internal/config"
	"chainview/internal/log"
	"chainview/internal/rpc"
	"chainview/internal/worker"
)

// maxConnectAttempts bounds broker connection retries at startup.
const maxConnectAttempts = 6

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

	logger.Info("Starting activity-watcher")

	if err := cfg.ValidateWatcher(); err != nil {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	amqpClient, err := connect(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	watcher, err := worker.NewWatcher(client, amqpClient, cfg.WatchAccounts, cfg.WatchInterval, cfg.HistoryPageLimit, logger)
	if err != nil {
		logger.Error("Failed to initialize watcher", "error", err)
		os.Exit(1)
	}

	if err := watcher.Run(ctx); err != nil {
		logger.Error("Watcher stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Activity watcher shut down gracefully")
}

// connect dials the broker, backing off between attempts so the watcher can
// start before the broker is ready.
func connect(ctx context.Context, cfg *config.Config, logger *log.Logger) (*amqp.Client, error) {
	var lastErr error
	for attempt := 0; attempt < maxConnectAttempts; attempt++ {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP).Slog())
		if err == nil {
			return client, nil
		}
		lastErr = err
		wait := amqp.Backoff(attempt)
		logger.Warn("AMQP connection failed, retrying", "error", err, "attempt", attempt+1, "retry_in", wait.String())

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}
