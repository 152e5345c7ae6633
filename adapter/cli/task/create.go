package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
)

var (
	boardID     string
	priority    string
	description string
	assignee    string
	dueDate     string
)

var createCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create a new task",
	Long: `Create a new task on a board.

Examples:
  taskcore task create "Complete project report" --board B1
  taskcore task create "Review PR" -b B1 -p high --assignee U1
  taskcore task create "Write docs" -b B1 --due 2026-03-01`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Tasks == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		createCmd := commands.CreateTaskCommand{
			Title:       args[0],
			Description: description,
			BoardID:     boardID,
			Priority:    priority,
			AssignedTo:  assignee,
		}
		if dueDate != "" {
			due, err := parseDueDate(dueDate)
			if err != nil {
				return err
			}
			createCmd.DueDate = due
		}

		result, err := app.Tasks.Create(cmd.Context(), createCmd)
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Task created")
		printTask(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	createCmd.Flags().StringVarP(&boardID, "board", "b", "", "board id (required)")
	createCmd.Flags().StringVarP(&priority, "priority", "p", "", "task priority (low, medium, high, urgent)")
	createCmd.Flags().StringVar(&description, "description", "", "task description")
	createCmd.Flags().StringVar(&assignee, "assignee", "", "assigned user id")
	createCmd.Flags().StringVar(&dueDate, "due", "", "due date (YYYY-MM-DD)")
	_ = createCmd.MarkFlagRequired("board")
}
