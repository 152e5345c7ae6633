package task

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/application/dto"
)

const dateLayout = "2006-01-02"

// Cmd is the task command group
var Cmd = &cobra.Command{
	Use:   "task",
	Short: "Manage tasks",
	Long:  `Create, list, update, and delete tasks on boards.`,
}

func init() {
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(countCmd)
	Cmd.AddCommand(sweepCmd)
}

// parseDueDate reads a YYYY-MM-DD date as the end of that day in UTC.
func parseDueDate(value string) (*time.Time, error) {
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid due date format (use YYYY-MM-DD): %w", err)
	}
	endOfDay := parsed.Add(24*time.Hour - time.Second)
	return &endOfDay, nil
}

func printTask(out io.Writer, t dto.TaskDTO) {
	fmt.Fprintf(out, "Task: %s\n", t.ID)
	fmt.Fprintf(out, "  title:    %s\n", t.Title)
	if t.Description != "" {
		fmt.Fprintf(out, "  details:  %s\n", t.Description)
	}
	fmt.Fprintf(out, "  board:    %s\n", t.BoardID)
	fmt.Fprintf(out, "  status:   %s\n", t.Status)
	fmt.Fprintf(out, "  priority: %s\n", t.Priority)
	if t.AssignedTo != "" {
		fmt.Fprintf(out, "  assignee: %s\n", t.AssignedTo)
	}
	if t.DueDate != nil {
		due := t.DueDate.Format(dateLayout)
		if t.Overdue {
			due += " (overdue)"
		}
		fmt.Fprintf(out, "  due:      %s\n", due)
	}
}
