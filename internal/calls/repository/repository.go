// Package repository persists call attempts and fallback episodes.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
)

// ErrNotFound is returned when a call record does not exist.
var ErrNotFound = errors.New("call record not found")

// CallRecord is one call attempt as stored. The transcript is kept inline;
// archived transcripts additionally carry an object key.
type CallRecord struct {
	ID                  uuid.UUID
	ComplaintID         uuid.UUID
	ProviderCallID      *string
	PhoneNumber         string
	Status              domain.Status
	Resolution          *string
	ReferenceNumber     *string
	NextSteps           []string
	Transcript          []domain.TranscriptEntry
	DurationSeconds     int
	CostCents           int
	IVRActionCount      int
	Error               *string
	TranscriptObjectKey *string
	CreatedAt           time.Time
	CompletedAt         *time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const callRecordColumns = `
	id, complaint_id, provider_call_id, phone_number, status, resolution,
	reference_number, next_steps, transcript, duration_seconds, cost_cents,
	ivr_action_count, error, transcript_object_key, created_at, completed_at`

// Create inserts a pending record for a queued call attempt.
func (r *Repository) Create(ctx context.Context, complaintID uuid.UUID, phoneNumber string) (*CallRecord, error) {
	query := `
		INSERT INTO call_records (complaint_id, phone_number, status, next_steps, transcript)
		VALUES ($1, $2, $3, '[]'::jsonb, '[]'::jsonb)
		RETURNING ` + callRecordColumns

	row := r.pool.QueryRow(ctx, query, complaintID, phoneNumber, domain.StatusPending)
	record, err := scanCallRecord(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create call record: %w", err)
	}
	return record, nil
}

// RecordResult writes the terminal outcome of the attempt.
func (r *Repository) RecordResult(ctx context.Context, id uuid.UUID, result *domain.Result) error {
	nextSteps, err := json.Marshal(nonNilSteps(result.NextSteps))
	if err != nil {
		return fmt.Errorf("failed to encode next steps: %w", err)
	}
	transcript, err := json.Marshal(nonNilTranscript(result.Transcript))
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	query := `
		UPDATE call_records SET
			provider_call_id = NULLIF($2, ''),
			status = $3,
			resolution = NULLIF($4, ''),
			reference_number = NULLIF($5, ''),
			next_steps = $6,
			transcript = $7,
			duration_seconds = $8,
			cost_cents = $9,
			ivr_action_count = $10,
			error = NULLIF($11, ''),
			completed_at = now()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		id,
		result.ProviderCallID,
		result.Status,
		result.Resolution,
		result.ReferenceNumber,
		nextSteps,
		transcript,
		result.DurationSeconds,
		result.CostCents,
		result.IVRActions,
		result.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record call result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns one call record.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*CallRecord, error) {
	query := `SELECT ` + callRecordColumns + ` FROM call_records WHERE id = $1`

	record, err := scanCallRecord(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get call record: %w", err)
	}
	return record, nil
}

// ListByComplaint returns every attempt for a complaint, newest first.
func (r *Repository) ListByComplaint(ctx context.Context, complaintID uuid.UUID) ([]CallRecord, error) {
	query := `SELECT ` + callRecordColumns + ` FROM call_records WHERE complaint_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to list call records: %w", err)
	}
	defer rows.Close()

	records := make([]CallRecord, 0)
	for rows.Next() {
		record, err := scanCallRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan call record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read call records: %w", err)
	}
	return records, nil
}

// SetTranscriptObjectKey marks the transcript as archived in object storage.
func (r *Repository) SetTranscriptObjectKey(ctx context.Context, id uuid.UUID, key string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE call_records SET transcript_object_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return fmt.Errorf("failed to set transcript object key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateFallbackEpisode appends the audit row for one fallback episode.
func (r *Repository) CreateFallbackEpisode(ctx context.Context, rec domain.FallbackEpisodeRecord) error {
	missing, err := json.Marshal(nonNilSteps(rec.MissingFields))
	if err != nil {
		return fmt.Errorf("failed to encode missing fields: %w", err)
	}
	responses, err := json.Marshal(nonNilResponses(rec.Responses))
	if err != nil {
		return fmt.Errorf("failed to encode responses: %w", err)
	}

	query := `
		INSERT INTO fallback_episodes (call_record_id, complaint_id, phone_used, missing_fields, responses, call_resumed, resumed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.pool.Exec(ctx, query,
		rec.CallRecordID,
		rec.ComplaintID,
		rec.PhoneUsed,
		missing,
		responses,
		rec.CallResumed,
		rec.ResumedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create fallback episode: %w", err)
	}
	return nil
}

// FallbackEpisode is a stored audit row.
type FallbackEpisode struct {
	ID            uuid.UUID
	CallRecordID  uuid.UUID
	ComplaintID   uuid.UUID
	PhoneUsed     string
	MissingFields []string
	Responses     map[string]string
	CallResumed   bool
	ResumedAt     *time.Time
	CreatedAt     time.Time
}

// ListFallbackEpisodes returns the episodes of one call, oldest first.
func (r *Repository) ListFallbackEpisodes(ctx context.Context, callRecordID uuid.UUID) ([]FallbackEpisode, error) {
	query := `
		SELECT id, call_record_id, complaint_id, phone_used, missing_fields, responses, call_resumed, resumed_at, created_at
		FROM fallback_episodes
		WHERE call_record_id = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, callRecordID)
	if err != nil {
		return nil, fmt.Errorf("failed to list fallback episodes: %w", err)
	}
	defer rows.Close()

	episodes := make([]FallbackEpisode, 0)
	for rows.Next() {
		var (
			ep           FallbackEpisode
			rawMissing   []byte
			rawResponses []byte
		)
		err := rows.Scan(
			&ep.ID,
			&ep.CallRecordID,
			&ep.ComplaintID,
			&ep.PhoneUsed,
			&rawMissing,
			&rawResponses,
			&ep.CallResumed,
			&ep.ResumedAt,
			&ep.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fallback episode: %w", err)
		}
		if err := json.Unmarshal(rawMissing, &ep.MissingFields); err != nil {
			return nil, fmt.Errorf("failed to decode missing fields: %w", err)
		}
		if err := json.Unmarshal(rawResponses, &ep.Responses); err != nil {
			return nil, fmt.Errorf("failed to decode responses: %w", err)
		}
		episodes = append(episodes, ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fallback episodes: %w", err)
	}
	return episodes, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCallRecord(row rowScanner) (*CallRecord, error) {
	var (
		record        CallRecord
		rawNextSteps  []byte
		rawTranscript []byte
	)
	err := row.Scan(
		&record.ID,
		&record.ComplaintID,
		&record.ProviderCallID,
		&record.PhoneNumber,
		&record.Status,
		&record.Resolution,
		&record.ReferenceNumber,
		&rawNextSteps,
		&rawTranscript,
		&record.DurationSeconds,
		&record.CostCents,
		&record.IVRActionCount,
		&record.Error,
		&record.TranscriptObjectKey,
		&record.CreatedAt,
		&record.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(rawNextSteps, &record.NextSteps); err != nil {
		return nil, fmt.Errorf("failed to decode next steps: %w", err)
	}
	if err := json.Unmarshal(rawTranscript, &record.Transcript); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return &record, nil
}

func nonNilSteps(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilTranscript(t []domain.TranscriptEntry) []domain.TranscriptEntry {
	if t == nil {
		return []domain.TranscriptEntry{}
	}
	return t
}

func nonNilResponses(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
