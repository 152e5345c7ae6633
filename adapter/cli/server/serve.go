// Package server provides the command that runs the HTTP API together with
// the background jobs.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/api"
	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
	"github.com/fouadkhalied/task-mangment-system/internal/app"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/infrastructure/messaging"
)

const shutdownTimeout = 10 * time.Second

var (
	addr    string
	noJobs  bool
	consume bool
)

// Cmd runs the API server.
var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, overdue sweeper and dead-letter cleanup",
	Long: `Run the HTTP API server. Unless --no-jobs is given the overdue sweeper
and dead-letter cleanup run in the same process. With --consume the
process also consumes the RabbitMQ queues, so one binary can run the
whole pipeline.`,
	Annotations: map[string]string{cli.StandaloneAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		cfg, err := cli.LoadConfig()
		if err != nil {
			return err
		}
		if addr != "" {
			cfg.HTTPAddr = addr
		}

		logger := cli.NewServerLogger(cmd.ErrOrStderr(), cfg)

		container, err := app.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		if !noJobs {
			if err := container.StartBackgroundJobs(ctx); err != nil {
				return err
			}
		}

		errCh := make(chan error, 2)
		if consume && container.TransportName == app.TransportRabbitMQ {
			consumer, err := container.NewRabbitMQConsumer()
			if err != nil {
				return err
			}
			defer consumer.Close()
			go func() {
				if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					errCh <- err
				}
			}()
		}

		serverCfg := api.DefaultServerConfig()
		serverCfg.Addr = cfg.HTTPAddr
		srv := api.NewServer(serverCfg, Handlers(container), logger)

		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
		case err = <-errCh:
		}

		shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stop()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logger.Warn("API server shutdown error", "error", shutdownErr)
		}
		return err
	},
}

// Handlers wires the API handlers to a container.
func Handlers(container *app.Container) api.Handlers {
	return api.Handlers{
		Tasks: api.NewTaskHandler(container.TaskService, container.Logger),
		Cache: api.NewCacheHandler(container.Cache, container.Logger),
		Messaging: api.NewMessagingHandler(container.Publisher, api.MessagingInfo{
			Transport:    container.TransportName,
			Exchange:     container.Exchange(),
			Channels:     messaging.Channels(),
			BreakerState: container.BreakerState,
		}, container.DeadLetterRepo, container.Logger),
		Health: container.Health,
	}
}

func init() {
	Cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")
	Cmd.Flags().BoolVar(&noJobs, "no-jobs", false, "do not run the overdue sweeper and dead-letter cleanup")
	Cmd.Flags().BoolVar(&consume, "consume", false, "also consume the RabbitMQ queues")
}
