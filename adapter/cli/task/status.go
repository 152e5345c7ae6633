package task

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
)

var statusReason string

var statusCmd = &cobra.Command{
	Use:   "status [task-id] [status]",
	Short: "Change the status of a task",
	Long: `Move a task to TODO, IN_PROGRESS or DONE.

Examples:
  taskcore task status abc123 IN_PROGRESS
  taskcore task status abc123 done --reason "shipped"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Tasks == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		result, err := app.Tasks.UpdateStatus(cmd.Context(), commands.UpdateTaskStatusCommand{
			TaskID: args[0],
			Status: strings.ToUpper(args[1]),
			Reason: statusReason,
		})
		if err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", result.ID, result.Status)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusReason, "reason", "", "reason recorded with the change")
}
