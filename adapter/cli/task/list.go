package task

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/adapter/cli"
	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
)

var (
	listBoard    string
	listAssignee string
	status       string
	overdue      bool
	ordered      bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List tasks by board, assignee, status, or overdue.

Filter Options:
  --board       Tasks on a board
  --assignee    Tasks assigned to a user
  --status      Filter by status (TODO, IN_PROGRESS, DONE)
  --overdue     Only overdue tasks
  --ordered     With --board, order by priority then due date

Examples:
  taskcore task list --board B1
  taskcore task list --board B1 --ordered
  taskcore task list --assignee U1 --status IN_PROGRESS
  taskcore task list --status DONE
  taskcore task list --overdue`,
	Aliases: []string{"ls"},
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Tasks == nil {
			return fmt.Errorf("application not initialized - database connection required")
		}

		ctx := cmd.Context()
		st := strings.ToUpper(status)

		var (
			tasks []dto.TaskDTO
			err   error
		)
		switch {
		case overdue:
			tasks, err = app.Tasks.ListOverdue(ctx)
		case listBoard != "" && ordered:
			tasks, err = app.Tasks.ListByBoardOrdered(ctx, listBoard)
		case listBoard != "" && st != "":
			tasks, err = app.Tasks.ListByBoardAndStatus(ctx, listBoard, st)
		case listBoard != "":
			tasks, err = app.Tasks.ListByBoard(ctx, listBoard)
		case listAssignee != "" && st != "":
			tasks, err = app.Tasks.ListByAssigneeAndStatus(ctx, listAssignee, st)
		case listAssignee != "":
			tasks, err = app.Tasks.ListByAssignee(ctx, listAssignee)
		case st != "":
			tasks, err = app.Tasks.ListByStatus(ctx, st)
		default:
			return fmt.Errorf("one of --board, --assignee, --status or --overdue is required")
		}
		if err != nil {
			return fmt.Errorf("failed to list tasks: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(tasks) == 0 {
			fmt.Fprintln(out, "No tasks found.")
			return nil
		}

		fmt.Fprintf(out, "Tasks (%d):\n", len(tasks))
		fmt.Fprintln(out, strings.Repeat("-", 60))
		for _, t := range tasks {
			marker := ""
			if t.Overdue {
				marker = " [OVERDUE]"
			}
			fmt.Fprintf(out, "%s %s %s%s\n", getStatusIcon(t.Status), t.Title, getPriorityBadge(t.Priority), marker)
			fmt.Fprintf(out, "   ID: %s  board: %s\n", t.ID, t.BoardID)
			if t.AssignedTo != "" {
				fmt.Fprintf(out, "   Assignee: %s\n", t.AssignedTo)
			}
			if t.DueDate != nil {
				fmt.Fprintf(out, "   Due: %s\n", t.DueDate.Format(dateLayout))
			}
		}

		return nil
	},
}

func getStatusIcon(status string) string {
	switch status {
	case "DONE":
		return "[x]"
	case "IN_PROGRESS":
		return "[>]"
	default:
		return "[ ]"
	}
}

func getPriorityBadge(priority string) string {
	switch priority {
	case "URGENT":
		return "(!!!)"
	case "HIGH":
		return "(!)"
	case "MEDIUM":
		return "(~)"
	case "LOW":
		return "(.)"
	default:
		return ""
	}
}

func init() {
	listCmd.Flags().StringVarP(&listBoard, "board", "b", "", "list tasks on a board")
	listCmd.Flags().StringVar(&listAssignee, "assignee", "", "list tasks assigned to a user")
	listCmd.Flags().StringVarP(&status, "status", "s", "", "filter by status (TODO, IN_PROGRESS, DONE)")
	listCmd.Flags().BoolVar(&overdue, "overdue", false, "show only overdue tasks")
	listCmd.Flags().BoolVar(&ordered, "ordered", false, "order board tasks by priority and due date")
}
