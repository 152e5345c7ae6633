package mcp

import (
	mcplocal "github.com/fouadkhalied/task-mangment-system/adapter/mcp"
	"github.com/fouadkhalied/task-mangment-system/internal/app"
)

// ToolDependencies builds the MCP tool dependencies from a container.
func ToolDependencies(container *app.Container) mcplocal.ToolDependencies {
	return mcplocal.ToolDependencies{
		Tasks:     container.TaskService,
		Cache:     container.Cache,
		Messaging: container.Publisher,
	}
}
