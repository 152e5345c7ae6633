package mcp

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
	"github.com/fouadkhalied/task-mangment-system/internal/app"
	mcpinternal "github.com/fouadkhalied/task-mangment-system/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Start the MCP server",
	Annotations: map[string]string{cli.StandaloneAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := cli.LoadConfig()
		if err != nil {
			return err
		}

		logger := cli.NewServerLogger(cmd.ErrOrStderr(), cfg)

		container, err := app.NewContainer(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer container.Close()

		err = mcpinternal.Serve(ctx, cfg, mcpinternal.ToolDependencies(container), cli.Version, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
