package eventbus_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fouadkhalied/task-mangment-system/internal/shared/infrastructure/eventbus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInProcessEventBus_Publish(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	consumer := &mockConsumer{channels: []string{"task-events"}}
	bus.RegisterConsumer(consumer)

	headers := map[string]string{eventbus.HeaderMessageType: "TaskCreated"}
	err := bus.Publish(context.Background(), eventbus.Message{
		Channel: "task-events",
		Key:     "task-1",
		Payload: []byte(`{"eventType":"TaskCreated"}`),
		Headers: headers,
	})
	require.NoError(t, err)

	received := consumer.received()
	require.Len(t, received, 1)
	assert.Equal(t, "task-events", received[0].Channel)
	assert.Equal(t, "task-1", received[0].Key)
	assert.Equal(t, "TaskCreated", received[0].Header(eventbus.HeaderMessageType))
	assert.JSONEq(t, `{"eventType":"TaskCreated"}`, string(received[0].Payload))

	headers[eventbus.HeaderMessageType] = "mutated"
	assert.Equal(t, "TaskCreated", received[0].Header(eventbus.HeaderMessageType))
}

func TestInProcessEventBus_ConsumerFailureDoesNotFailPublish(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	bus.RegisterConsumer(&mockConsumer{channels: []string{"task-events"}, err: errors.New("boom")})

	err := bus.Publish(context.Background(), eventbus.Message{Channel: "task-events"})

	assert.NoError(t, err)
}

func TestInProcessEventBus_PreservesOrder(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	consumer := &mockConsumer{channels: []string{"task-events"}}
	bus.RegisterConsumer(consumer)

	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, bus.Publish(context.Background(), eventbus.Message{Channel: "task-events", Key: key}))
	}

	received := consumer.received()
	require.Len(t, received, 3)
	assert.Equal(t, "a", received[0].Key)
	assert.Equal(t, "b", received[1].Key)
	assert.Equal(t, "c", received[2].Key)
}

func TestInProcessEventBus_Close(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	require.NoError(t, bus.Ping(context.Background()))

	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(context.Background(), eventbus.Message{Channel: "x"}), eventbus.ErrPublisherClosed)
	assert.ErrorIs(t, bus.Ping(context.Background()), eventbus.ErrPublisherClosed)
}

func TestInProcessEventBus_StartBlocksUntilCancelled(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(testLogger())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- bus.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
