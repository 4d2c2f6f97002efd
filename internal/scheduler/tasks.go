// Package scheduler moves work between the API and worker processes through
// asynq on Redis: call executions queued by the orchestrator, and
// notification outbox rows coming due.
package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// TaskCallExecute drives one queued call attempt in the worker.
const TaskCallExecute = "calls.execute"

// TaskNotificationOutboxDue marks an outbox row as ready to deliver. The
// dispatcher schedules it for the row's run time; the worker republishes it
// on the event bus.
const TaskNotificationOutboxDue = "notification.outbox.due"

// The executor records domain failures as call outcomes and returns nil, so
// a handler error means infrastructure trouble. A few redeliveries cover a
// transient blip without redialing a company all afternoon.
const callExecuteMaxRetry = 3

type CallExecutePayload struct {
	ComplaintID  string `json:"complaintId"`
	CallRecordID string `json:"callRecordId"`
}

type NotificationOutboxDuePayload struct {
	OutboxID    string `json:"outboxId"`
	ComplaintID string `json:"complaintId"`
}

func NewCallExecuteTask(payload CallExecutePayload) (*asynq.Task, error) {
	return newTask(TaskCallExecute, payload)
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	return newTask(TaskNotificationOutboxDue, payload)
}

func newTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, data), nil
}

func ParseCallExecutePayload(task *asynq.Task) (CallExecutePayload, error) {
	var payload CallExecutePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallExecutePayload{}, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return payload, nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, fmt.Errorf("decode %s payload: %w", task.Type(), err)
	}
	return payload, nil
}
