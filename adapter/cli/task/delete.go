package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
)

var deleteReason string

var deleteCmd = &cobra.Command{
	Use:     "delete [task-id]",
	Short:   "Delete a task",
	Aliases: []string{"rm"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Tasks == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		err := app.Tasks.Delete(cmd.Context(), commands.DeleteTaskCommand{
			TaskID: args[0],
			Reason: deleteReason,
		})
		if err != nil {
			return fmt.Errorf("failed to delete task: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Task %s deleted\n", args[0])
		return nil
	},
}

func init() {
	deleteCmd.Flags().StringVar(&deleteReason, "reason", "", "reason recorded with the deletion")
}
