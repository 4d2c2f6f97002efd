// Package outbox persists queued notifications so delivery survives process
// restarts. Rows move pending -> enqueued -> processing -> succeeded/failed;
// retries go back to pending with a later run_at.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusEnqueued   Status = "enqueued"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
)

var errNotConfigured = errors.New("outbox repository not configured")

type Record struct {
	ID          uuid.UUID
	ComplaintID uuid.UUID
	Kind        string
	Template    string
	Payload     json.RawMessage
	RunAt       time.Time
	Status      Status
	Attempts    int
}

type InsertParams struct {
	ComplaintID uuid.UUID
	Kind        string
	Template    string
	Payload     any
	RunAt       time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ready reports whether the repository can touch the database. Notification
// persistence is optional wiring; a half-configured repository refuses work
// instead of panicking.
func (r *Repository) ready() error {
	if r == nil || r.pool == nil {
		return errNotConfigured
	}
	return nil
}

// Insert stores a new row in pending state. A zero RunAt means deliver as
// soon as the dispatcher picks it up.
func (r *Repository) Insert(ctx context.Context, p InsertParams) (uuid.UUID, error) {
	if err := r.ready(); err != nil {
		return uuid.Nil, err
	}
	if p.ComplaintID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("complaintId is required")
	}
	if p.Kind == "" {
		return uuid.Nil, fmt.Errorf("kind is required")
	}
	if p.Template == "" {
		return uuid.Nil, fmt.Errorf("template is required")
	}
	if p.RunAt.IsZero() {
		p.RunAt = time.Now().UTC()
	}

	payloadBytes, err := json.Marshal(p.Payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	var id uuid.UUID
	err = r.pool.QueryRow(ctx,
		`INSERT INTO notification_outbox (complaint_id, kind, template, payload, run_at, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		p.ComplaintID, p.Kind, p.Template, payloadBytes, p.RunAt, string(StatusPending),
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert outbox row: %w", err)
	}
	return id, nil
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	if err := r.ready(); err != nil {
		return Record{}, err
	}

	row := r.pool.QueryRow(ctx,
		`SELECT id, complaint_id, kind, template, payload, run_at, status, attempts
		 FROM notification_outbox
		 WHERE id = $1`,
		id,
	)
	return scanRecord(row)
}

// ClaimPending flips a batch of pending rows to enqueued and returns them.
// FOR UPDATE SKIP LOCKED keeps concurrent dispatchers from claiming the same
// rows.
func (r *Repository) ClaimPending(ctx context.Context, limit int) ([]Record, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 50
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `WITH cte AS (
		SELECT id
		FROM notification_outbox
		WHERE status = 'pending'
		ORDER BY run_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	)
	UPDATE notification_outbox o
	SET status = 'enqueued', updated_at = now()
	FROM cte
	WHERE o.id = cte.id
	RETURNING o.id, o.complaint_id, o.kind, o.template, o.payload, o.run_at, o.status, o.attempts`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var claimed []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkPending puts a row back in line, typically after a failed enqueue.
func (r *Repository) MarkPending(ctx context.Context, id uuid.UUID, lastError *string) error {
	return r.setStatus(ctx, id, StatusPending, lastError)
}

// MarkProcessing also counts the attempt, so retry backoff can grow with it.
func (r *Repository) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	if err := r.ready(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'processing', attempts = attempts + 1, updated_at = now()
		 WHERE id = $1`,
		id,
	)
	return err
}

func (r *Repository) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	return r.setStatus(ctx, id, StatusSucceeded, nil)
}

func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.setStatus(ctx, id, StatusFailed, &lastError)
}

// ScheduleRetry re-queues a record for a later attempt.
func (r *Repository) ScheduleRetry(ctx context.Context, id uuid.UUID, retryAt time.Time, lastError string) error {
	if err := r.ready(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = 'pending', run_at = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, retryAt, lastError,
	)
	return err
}

func (r *Repository) setStatus(ctx context.Context, id uuid.UUID, status Status, lastError *string) error {
	if err := r.ready(); err != nil {
		return err
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE notification_outbox
		 SET status = $2, last_error = $3, updated_at = now()
		 WHERE id = $1`,
		id, string(status), lastError,
	)
	return err
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var status string
	if err := row.Scan(&rec.ID, &rec.ComplaintID, &rec.Kind, &rec.Template, &rec.Payload, &rec.RunAt, &status, &rec.Attempts); err != nil {
		return Record{}, err
	}
	rec.Status = Status(status)
	return rec, nil
}
