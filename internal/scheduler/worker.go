package scheduler

import (
	"context"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// CallExecutor runs one queued call attempt to completion. Satisfied by
// *calls.Executor.
type CallExecutor interface {
	Execute(ctx context.Context, complaintID, callRecordID uuid.UUID) error
}

// Worker consumes background tasks: call execution and due notification
// outbox rows.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	executor CallExecutor
	bus      events.Bus
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, executor CallExecutor, bus events.Bus, log *logger.Logger) (*Worker, error) {
	opt, queue, err := queueFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetWorkerConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		executor: executor,
		bus:      bus,
		log:      log,
	}

	mux.HandleFunc(TaskCallExecute, w.handleCallExecute)
	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	return w, nil
}

func (w *Worker) handleCallExecute(ctx context.Context, task *asynq.Task) error {
	if w.executor == nil {
		return nil
	}

	payload, err := ParseCallExecutePayload(task)
	if err != nil {
		return err
	}

	complaintID, err := uuid.Parse(payload.ComplaintID)
	if err != nil {
		return err
	}

	callRecordID, err := uuid.Parse(payload.CallRecordID)
	if err != nil {
		return err
	}

	return w.executor.Execute(ctx, complaintID, callRecordID)
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	if w.bus == nil {
		return nil
	}

	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	complaintID, err := uuid.Parse(payload.ComplaintID)
	if err != nil {
		return err
	}

	return w.bus.PublishSync(ctx, events.NotificationOutboxDue{
		BaseEvent:   events.NewBaseEvent(),
		OutboxID:    outboxID,
		ComplaintID: complaintID,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
