package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type constants
const (
	TypePurgeExpiredSessions = "sessions:purge_expired"
	TypeRemoveObject         = "uploads:remove_object"
)

// RemoveObjectPayload identifies an object to delete from object storage
type RemoveObjectPayload struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// NewPurgeExpiredSessionsTask creates a task deleting expired sessions
func NewPurgeExpiredSessionsTask() *asynq.Task {
	return asynq.NewTask(TypePurgeExpiredSessions, nil)
}

// NewRemoveObjectTask creates a task to delete an uploaded object
func NewRemoveObjectTask(bucket, key string) (*asynq.Task, error) {
	if key == "" {
		return nil, fmt.Errorf("object key is required")
	}
	payload, err := json.Marshal(RemoveObjectPayload{
		Bucket: bucket,
		Key:    key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	return asynq.NewTask(TypeRemoveObject, payload), nil
}

// ParseRemoveObjectPayload parses the payload of a remove object task
func ParseRemoveObjectPayload(task *asynq.Task) (RemoveObjectPayload, error) {
	var payload RemoveObjectPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	if payload.Key == "" {
		return payload, fmt.Errorf("payload has no object key")
	}
	return payload, nil
}
