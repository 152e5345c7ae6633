package mcp

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers read-only resources over tasks and pipeline
// metrics.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	if deps.Tasks == nil {
		return fmt.Errorf("task service is required")
	}

	srv.Resource("taskcore://tasks/overdue").
		Name("Overdue tasks").
		Description("Tasks past their due date that are not done").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			tasks, err := deps.Tasks.ListOverdue(ctx)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, tasks)
		})

	if deps.Cache != nil {
		srv.Resource("taskcore://metrics/cache").
			Name("Cache metrics").
			Description("Cache hit, miss and eviction counters").
			MimeType("application/json").
			Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
				return jsonResource(uri, deps.Cache.Metrics().Snapshot())
			})
	}

	if deps.Messaging != nil {
		srv.Resource("taskcore://metrics/messaging").
			Name("Messaging metrics").
			Description("Publish, consume and dead-letter counters").
			MimeType("application/json").
			Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
				return jsonResource(uri, deps.Messaging.Metrics().Snapshot())
			})
	}

	return nil
}

func jsonResource(uri string, value any) (*mcp.ResourceContent, error) {
	data, err := sonic.ConfigDefault.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{
		URI:      uri,
		MimeType: "application/json",
		Text:     string(data),
	}, nil
}
