package tasks

import (
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoveObjectTask(t *testing.T) {
	task, err := NewRemoveObjectTask("uploads", "users/u1/01H-notes.txt")
	require.NoError(t, err)
	assert.Equal(t, TypeRemoveObject, task.Type())

	payload, err := ParseRemoveObjectPayload(task)
	require.NoError(t, err)
	assert.Equal(t, "uploads", payload.Bucket)
	assert.Equal(t, "users/u1/01H-notes.txt", payload.Key)
}

func TestRemoveObjectTask_RequiresKey(t *testing.T) {
	_, err := NewRemoveObjectTask("uploads", "")
	assert.Error(t, err)

	_, err = ParseRemoveObjectPayload(asynq.NewTask(TypeRemoveObject, []byte(`{"bucket":"uploads"}`)))
	assert.Error(t, err)

	_, err = ParseRemoveObjectPayload(asynq.NewTask(TypeRemoveObject, []byte(`not json`)))
	assert.Error(t, err)
}

func TestPurgeExpiredSessionsTask(t *testing.T) {
	task := NewPurgeExpiredSessionsTask()
	assert.Equal(t, TypePurgeExpiredSessions, task.Type())
	assert.Empty(t, task.Payload())
}
