package mcp

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/mcp-go"
	"github.com/felixgeelhaar/mcp-go/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fouadkhalied/task-mangment-system/pkg/observability"
)

type stubTasks struct{ TaskService }

type recordingCache struct {
	CacheAdmin
	calls []string
}

func (c *recordingCache) EvictTask(_ context.Context, key string) error {
	c.calls = append(c.calls, "task:"+key)
	return nil
}

func (c *recordingCache) EvictForBoard(_ context.Context, key string) error {
	c.calls = append(c.calls, "board:"+key)
	return nil
}

func (c *recordingCache) EvictForUser(_ context.Context, key string) error {
	c.calls = append(c.calls, "user:"+key)
	return nil
}

func (c *recordingCache) EvictForOverdueSet(context.Context) error {
	c.calls = append(c.calls, "overdue")
	return nil
}

func (c *recordingCache) EvictListKey(_ context.Context, key string) error {
	c.calls = append(c.calls, "list:"+key)
	return nil
}

func (c *recordingCache) EvictCountKey(_ context.Context, key string) error {
	c.calls = append(c.calls, "count:"+key)
	return nil
}

type stubMessaging struct{}

func (stubMessaging) Ping(context.Context) error { return nil }

func (stubMessaging) Metrics() *observability.MessagingMetrics {
	return observability.NewMessagingMetrics(nil)
}

func (stubMessaging) QueueDepth() int { return 0 }

func newTestServer() *mcp.Server {
	return mcp.NewServer(mcp.ServerInfo{
		Name:    "test",
		Version: "1.0.0",
		Capabilities: mcp.Capabilities{
			Tools: true,
		},
	})
}

func toolNames(t *testing.T, srv *mcp.Server) map[string]bool {
	t.Helper()
	tc := testutil.NewTestClient(t, srv)
	defer tc.Close()

	tools, err := tc.ListTools()
	require.NoError(t, err)

	names := make(map[string]bool, len(tools))
	for _, tool := range tools {
		if name, ok := tool["name"].(string); ok {
			names[name] = true
		}
	}
	return names
}

func TestRegisterTools_ListTools(t *testing.T) {
	srv := newTestServer()
	require.NoError(t, RegisterTools(srv, ToolDependencies{
		Tasks:     stubTasks{},
		Cache:     &recordingCache{},
		Messaging: stubMessaging{},
	}))

	names := toolNames(t, srv)
	for _, want := range []string{
		"task.create", "task.get", "task.update", "task.status", "task.delete",
		"task.list", "task.count", "task.sweep_overdue",
		"cache.stats", "cache.clear", "cache.evict",
		"messaging.metrics",
	} {
		assert.True(t, names[want], "%s should be registered", want)
	}
}

func TestRegisterTools_OptionalGroups(t *testing.T) {
	srv := newTestServer()
	require.NoError(t, RegisterTools(srv, ToolDependencies{Tasks: stubTasks{}}))

	names := toolNames(t, srv)
	assert.True(t, names["task.create"])
	assert.False(t, names["cache.evict"])
	assert.False(t, names["messaging.metrics"])
}

func TestRegisterTools_RequiresTasks(t *testing.T) {
	assert.Error(t, RegisterTools(nil, ToolDependencies{Tasks: stubTasks{}}))
	assert.Error(t, RegisterTools(newTestServer(), ToolDependencies{}))
}

func TestEvictScope(t *testing.T) {
	ctx := context.Background()
	c := &recordingCache{}

	require.NoError(t, evictScope(ctx, c, "task", "T1"))
	require.NoError(t, evictScope(ctx, c, "board", "B1"))
	require.NoError(t, evictScope(ctx, c, "user", "U1"))
	require.NoError(t, evictScope(ctx, c, "overdue", ""))
	require.NoError(t, evictScope(ctx, c, "list", "board:B1"))
	require.NoError(t, evictScope(ctx, c, "count", "board:B1:status:TODO"))
	assert.Equal(t, []string{
		"task:T1", "board:B1", "user:U1", "overdue", "list:board:B1", "count:board:B1:status:TODO",
	}, c.calls)

	assert.Error(t, evictScope(ctx, c, "board", ""))
	assert.Error(t, evictScope(ctx, c, "everything", "x"))
}

func TestParseDueDate(t *testing.T) {
	due, err := parseDueDate("")
	require.NoError(t, err)
	assert.Nil(t, due)

	due, err = parseDueDate("2026-03-01")
	require.NoError(t, err)
	require.NotNil(t, due)
	assert.Equal(t, time.Date(2026, 3, 1, 23, 59, 59, 0, time.UTC), *due)

	due, err = parseDueDate("2026-03-01T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), *due)

	_, err = parseDueDate("tomorrow")
	assert.Error(t, err)
}
