package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep-overdue",
	Short: "Run one overdue sweep",
	Long: `Find every overdue task, publish an overdue event for each and
notify its assignee. This is the same pass the scheduler runs.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Tasks == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		result, err := app.Tasks.SweepOverdue(cmd.Context())
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "overdue: %d, events: %d, notifications: %d\n",
			result.Overdue, result.Events, result.Notifications)
		return nil
	},
}
