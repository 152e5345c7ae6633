package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
	"github.com/fouadkhalied/task-mangment-system/adapter/cli/cache"
	"github.com/fouadkhalied/task-mangment-system/adapter/cli/mcp"
	"github.com/fouadkhalied/task-mangment-system/adapter/cli/server"
	"github.com/fouadkhalied/task-mangment-system/adapter/cli/task"
	"github.com/fouadkhalied/task-mangment-system/internal/app"
	"github.com/fouadkhalied/task-mangment-system/pkg/config"
	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv()
	cli.SetLogger(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	// Short-lived commands share one container built after flag parsing.
	cli.SetInitializer(func(cmdCtx context.Context, cfg *config.Config) (*cli.App, func(), error) {
		container, err := app.NewContainer(cmdCtx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		cliApp := cli.NewApp(container.TaskService, container.Cache, container.MessagingMetrics, container.Health)
		return cliApp, container.Close, nil
	})

	cli.AddCommand(task.Cmd)
	cli.AddCommand(cache.Cmd)
	cli.AddCommand(mcp.Cmd)
	cli.AddCommand(server.Cmd)

	cli.ExecuteContext(ctx)
}
