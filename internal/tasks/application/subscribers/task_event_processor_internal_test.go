package subscribers

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fouadkhalied/task-mangment-system/internal/tasks/domain/task"
)

func TestTaskEventProcessor_DispatchUsesTypeTag(t *testing.T) {
	processor := NewTaskEventProcessor(nil, slog.New(slog.NewTextHandler(os.Stderr, nil)))

	t.Run("matching payload", func(t *testing.T) {
		event := task.Event{
			Envelope: task.Envelope{EventType: task.EventTaskDeleted, TaskID: "T1"},
			Payload:  task.DeletedPayload{},
		}
		require.NoError(t, processor.dispatch(event))
	})

	t.Run("tag and payload disagree", func(t *testing.T) {
		event := task.Event{
			Envelope: task.Envelope{EventType: task.EventTaskCreated, TaskID: "T1"},
			Payload:  task.DeletedPayload{},
		}
		err := processor.dispatch(event)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "TaskCreated event carries a task.DeletedPayload payload")
	})

	t.Run("unknown tag", func(t *testing.T) {
		event := task.Event{
			Envelope: task.Envelope{EventType: "TaskArchived"},
			Payload:  task.DeletedPayload{},
		}
		assert.ErrorIs(t, processor.dispatch(event), task.ErrUnknownEventType)
	})
}
