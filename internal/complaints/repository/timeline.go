package repository

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimelineSummaryMaxLen is the canonical maximum character length for timeline event summaries.
// Callers should use TruncateSummary when populating CreateTimelineEventParams.Summary.
const TimelineSummaryMaxLen = 400

// TruncateSummary trims text to maxLen, appending "..." on overflow.
// Returns nil for blank input.
func TruncateSummary(text string, maxLen int) *string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) > maxLen {
		trimmed = trimmed[:maxLen] + "..."
	}
	return &trimmed
}

type TimelineEvent struct {
	ID          uuid.UUID
	ComplaintID uuid.UUID
	ActorType   string
	ActorName   string
	EventType   string
	Title       string
	Summary     *string
	Metadata    map[string]any
	CreatedAt   time.Time
}

type CreateTimelineEventParams struct {
	ComplaintID uuid.UUID
	ActorType   string
	ActorName   string
	EventType   string
	Title       string
	Summary     *string
	Metadata    map[string]any
}

func (r *Repository) CreateTimelineEvent(ctx context.Context, params CreateTimelineEventParams) (TimelineEvent, error) {
	metadataJSON, err := json.Marshal(params.Metadata)
	if err != nil {
		return TimelineEvent{}, err
	}

	var event TimelineEvent
	var summary *string

	// metadata is excluded from RETURNING: we already hold params.Metadata as
	// a Go value, so re-scanning the stored JSONB would only add a redundant
	// json.Unmarshal on every insert.
	err = r.pool.QueryRow(ctx, `
		INSERT INTO complaint_timeline (complaint_id, actor_type, actor_name, event_type, title, summary, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, complaint_id, actor_type, actor_name, event_type, title, summary, created_at
	`, params.ComplaintID, params.ActorType, params.ActorName, params.EventType, params.Title, params.Summary, metadataJSON).Scan(
		&event.ID,
		&event.ComplaintID,
		&event.ActorType,
		&event.ActorName,
		&event.EventType,
		&event.Title,
		&summary,
		&event.CreatedAt,
	)
	if err != nil {
		return TimelineEvent{}, err
	}

	event.Summary = summary
	event.Metadata = params.Metadata

	return event, nil
}

func (r *Repository) ListTimelineEvents(ctx context.Context, complaintID uuid.UUID) ([]TimelineEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, complaint_id, actor_type, actor_name, event_type, title, summary, metadata, created_at
		FROM complaint_timeline
		WHERE complaint_id = $1
		ORDER BY created_at ASC
	`, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]TimelineEvent, 0)
	for rows.Next() {
		var (
			event       TimelineEvent
			rawMetadata []byte
		)
		if err := rows.Scan(
			&event.ID, &event.ComplaintID, &event.ActorType, &event.ActorName,
			&event.EventType, &event.Title, &event.Summary, &rawMetadata, &event.CreatedAt,
		); err != nil {
			return nil, err
		}

		if len(rawMetadata) > 0 {
			if err := json.Unmarshal(rawMetadata, &event.Metadata); err != nil {
				event.Metadata = map[string]any{"raw": string(rawMetadata)}
			}
		}
		events = append(events, event)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return events, nil
}
