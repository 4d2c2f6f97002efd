package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/DataCleaninghash/CustomerAII/platform/config"
)

// Client enqueues background tasks from the API process. A nil Client is a
// no-op, so callers need no guard when the scheduler is not configured.
type Client struct {
	client *asynq.Client
	queue  string
}

// CallEnqueuer queues a complaint call for execution in the worker.
type CallEnqueuer interface {
	EnqueueCallExecution(ctx context.Context, payload CallExecutePayload) error
}

func NewClient(cfg config.SchedulerConfig) (*Client, error) {
	opt, queue, err := queueFromConfig(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) EnqueueCallExecution(ctx context.Context, payload CallExecutePayload) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCallExecuteTask(payload)
	if err != nil {
		return err
	}

	if _, err := c.client.EnqueueContext(ctx, task, asynq.Queue(c.queue), asynq.MaxRetry(callExecuteMaxRetry)); err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskCallExecute, err)
	}
	return nil
}

// queueFromConfig resolves the Redis connection and queue name shared by
// the client, the worker and the outbox dispatcher, so all three ends of the
// queue read configuration identically.
func queueFromConfig(cfg config.SchedulerConfig) (asynq.RedisClientOpt, string, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return asynq.RedisClientOpt{}, "", fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, "", err
	}

	queue := cfg.GetSchedulerQueue()
	if queue == "" {
		queue = "default"
	}
	return opt, queue, nil
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}
