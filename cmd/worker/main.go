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

	"github.com/bytedance/sonic"

	"github.com/fouadkhalied/task-mangment-system/internal/app"
	"github.com/fouadkhalied/task-mangment-system/pkg/config"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

const statsInterval = time.Minute

func main() {
	logger := observability.LoggerFromEnv()
	logger.Info("starting taskcore worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	// In local mode the subscribers already hang off the in-process bus.
	if container.TransportName == app.TransportRabbitMQ {
		consumer, err := container.NewRabbitMQConsumer()
		if err != nil {
			logger.Error("failed to start RabbitMQ consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()

		go func() {
			if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", "error", err)
				cancel()
			}
		}()
	} else {
		logger.Info("running with in-process bus", "transport", container.TransportName)
	}

	if err := container.StartBackgroundJobs(ctx); err != nil {
		logger.Error("failed to start background jobs", "error", err)
		os.Exit(1)
	}

	if cfg.WorkerHealthAddr != "" {
		startHealthServer(ctx, cfg.WorkerHealthAddr, container, logger)
	}

	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-statsTicker.C:
				snap := container.MessagingMetrics.Snapshot()
				logger.Info("pipeline stats",
					"published", snap.TotalEventsPublishedSuccessfully,
					"publish_failed", snap.TotalEventsPublishFailed,
					"consumed", snap.TotalEventsConsumedSuccessfully,
					"consume_failed", snap.TotalEventsConsumptionFailed,
					"dead_lettered", snap.TotalMessagesSentToDLQ,
					"queue_depth", container.Publisher.QueueDepth(),
					"breaker", container.BreakerState(),
				)
			}
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down worker")
}

func loadConfig() (*config.Config, error) {
	if path := os.Getenv("TASKCORE_CONFIG"); path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

func startHealthServer(ctx context.Context, addr string, container *app.Container, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"transport":   container.TransportName,
			"breaker":     container.BreakerState(),
			"queue_depth": container.Publisher.QueueDepth(),
			"processed":   container.EventProcessor.Processed(),
			"sweeping":    container.Sweeper.IsRunning(),
		})
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		health := container.Health.GetOverallHealth(checkCtx)
		status := http.StatusOK
		if health.Status == observability.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, health)
	})

	healthSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("health server starting", "addr", addr)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = sonic.ConfigDefault.NewEncoder(w).Encode(data)
}
