package mcp

import (
	"context"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

type messagingMetricsOutput struct {
	Available        bool                            `json:"available"`
	QueueDepth       int                             `json:"queue_depth"`
	Metrics          observability.MessagingSnapshot `json:"metrics"`
	PublishTimes     map[string]float64              `json:"average_publish_times_ms"`
	ConsumptionTimes map[string]float64              `json:"average_consumption_times_ms"`
}

func registerMessagingTools(srv *mcp.Server, deps ToolDependencies) error {
	m := deps.Messaging

	srv.Tool("messaging.metrics").
		Description("Show publisher availability, queue depth and messaging metrics").
		Handler(func(ctx context.Context, _ emptyInput) (messagingMetricsOutput, error) {
			metrics := m.Metrics()
			return messagingMetricsOutput{
				Available:        m.Ping(ctx) == nil,
				QueueDepth:       m.QueueDepth(),
				Metrics:          metrics.Snapshot(),
				PublishTimes:     metrics.AveragePublishTimes(),
				ConsumptionTimes: metrics.AverageConsumptionTimes(),
			}, nil
		})

	return nil
}
