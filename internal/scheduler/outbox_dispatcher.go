package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DataCleaninghash/CustomerAII/internal/notification/outbox"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

const (
	outboxDispatchInterval  = 2 * time.Second
	outboxDispatchBatchSize = 50
)

// OutboxSource is the slice of the outbox repository the dispatcher drains.
type OutboxSource interface {
	ClaimPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error
}

// OutboxDispatcher moves pending notification outbox rows onto the task
// queue. Delivery time is carried on the task itself, so rows scheduled for
// the future are claimed now and held by asynq until due.
type OutboxDispatcher struct {
	client *asynq.Client
	queue  string
	repo   OutboxSource
	log    *logger.Logger
}

func NewOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*OutboxDispatcher, error) {
	opt, queue, err := queueFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &OutboxDispatcher{
		client: asynq.NewClient(opt),
		queue:  queue,
		repo:   outbox.New(pool),
		log:    log,
	}, nil
}

func (d *OutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(outboxDispatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.dispatchOnce(ctx)
	}
}

// dispatchOnce claims one batch and enqueues a due task per row. Rows that
// fail to enqueue go back to pending so a later pass can pick them up.
func (d *OutboxDispatcher) dispatchOnce(ctx context.Context) {
	records, err := d.repo.ClaimPending(ctx, outboxDispatchBatchSize)
	if err != nil {
		d.log.Warn("outbox claim failed", "error", err)
		return
	}

	for _, rec := range records {
		task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
			OutboxID:    rec.ID.String(),
			ComplaintID: rec.ComplaintID.String(),
		})
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			continue
		}

		_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
		if err != nil {
			msg := err.Error()
			_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			continue
		}
	}
}
