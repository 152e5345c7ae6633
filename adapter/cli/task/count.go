package task

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
)

var countCmd = &cobra.Command{
	Use:   "count [board-id] [status]",
	Short: "Count tasks on a board with a status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Tasks == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		n, err := app.Tasks.CountByBoardAndStatus(cmd.Context(), args[0], strings.ToUpper(args[1]))
		if err != nil {
			return fmt.Errorf("failed to count tasks: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}
