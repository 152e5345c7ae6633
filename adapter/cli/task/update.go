package task

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/commands"
)

var (
	updateTitle       string
	updateDescription string
	updatePriority    string
	updateAssignee    string
	updateBoard       string
	updateDue         string
	clearDue          bool
)

var updateCmd = &cobra.Command{
	Use:   "update [task-id]",
	Short: "Update a task",
	Long: `Update the properties of an existing task.

Examples:
  taskcore task update abc123 --title "New title"
  taskcore task update abc123 --priority high --assignee U2
  taskcore task update abc123 --board B2 --due 2026-12-31
  taskcore task update abc123 --clear-due`,
	Aliases: []string{"edit", "modify"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Tasks == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		updateTaskCmd := commands.UpdateTaskCommand{
			TaskID:       args[0],
			ClearDueDate: clearDue,
		}

		flagsProvided := clearDue
		if cmd.Flags().Changed("title") {
			updateTaskCmd.Title = &updateTitle
			flagsProvided = true
		}
		if cmd.Flags().Changed("description") {
			updateTaskCmd.Description = &updateDescription
			flagsProvided = true
		}
		if cmd.Flags().Changed("priority") {
			updateTaskCmd.Priority = &updatePriority
			flagsProvided = true
		}
		if cmd.Flags().Changed("assignee") {
			updateTaskCmd.AssignedTo = &updateAssignee
			flagsProvided = true
		}
		if cmd.Flags().Changed("board") {
			updateTaskCmd.BoardID = &updateBoard
			flagsProvided = true
		}
		if cmd.Flags().Changed("due") {
			due, err := parseDueDate(updateDue)
			if err != nil {
				return err
			}
			updateTaskCmd.DueDate = due
			flagsProvided = true
		}

		if !flagsProvided {
			return fmt.Errorf("no update flags provided. Use --help to see available options")
		}

		result, err := app.Tasks.Update(cmd.Context(), updateTaskCmd)
		if err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Task updated")
		printTask(cmd.OutOrStdout(), result)
		return nil
	},
}

func init() {
	updateCmd.Flags().StringVarP(&updateTitle, "title", "t", "", "new task title")
	updateCmd.Flags().StringVar(&updateDescription, "description", "", "new task description")
	updateCmd.Flags().StringVarP(&updatePriority, "priority", "p", "", "new priority (low, medium, high, urgent)")
	updateCmd.Flags().StringVar(&updateAssignee, "assignee", "", "new assigned user id")
	updateCmd.Flags().StringVarP(&updateBoard, "board", "b", "", "move the task to another board")
	updateCmd.Flags().StringVar(&updateDue, "due", "", "new due date (YYYY-MM-DD)")
	updateCmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
}
