package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
)

var showCmd = &cobra.Command{
	Use:   "show [task-id]",
	Short: "Show task details",
	Long: `Display detailed information about a specific task.

Examples:
  taskcore task show 550e8400-e29b-41d4-a716-446655440000`,
	Aliases: []string{"get", "view"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Tasks == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		task, err := app.Tasks.Get(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get task: %w", err)
		}

		printTask(cmd.OutOrStdout(), task)
		return nil
	},
}
