package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers prompts for common operator workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("overdue_triage").
		Description("Review overdue tasks and decide what to reschedule, reassign or close.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Overdue Triage",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Help me triage overdue work. Please:

1. Read the taskcore://tasks/overdue resource
2. Group the tasks by board and by assignee

For each task, suggest one of:
- move the due date with task.update
- reassign it with task.update
- close it with task.status (DONE) or task.delete

Run task.sweep_overdue afterwards only if I ask for notifications to go out again.`,
						},
					},
				},
			}, nil
		})

	srv.Prompt("pipeline_check").
		Description("Check cache and messaging health and explain anything unusual.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Pipeline Check",
				Messages: []mcp.PromptMessage{
					{
						Role: string(mcp.RoleUser),
						Content: mcp.TextContent{
							Type: "text",
							Text: `Check the event pipeline. Please:

1. Call messaging.metrics and look at the publish success rate, queue depth and dead-letter count
2. Call cache.stats and compare hits with misses per namespace

Flag a success rate under 99%, a growing queue, or any dead letters.
If a board shows stale data, suggest cache.evict with scope "board".`,
						},
					},
				},
			}, nil
		})

	return nil
}
