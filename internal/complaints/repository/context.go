package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
)

// GetContext rebuilds the full enhanced context for a complaint: the
// complaint row plus every conversation turn in ask order.
func (r *Repository) GetContext(ctx context.Context, id uuid.UUID) (domain.EnhancedContext, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return domain.EnhancedContext{}, err
	}

	turns, err := r.ListTurns(ctx, id)
	if err != nil {
		return domain.EnhancedContext{}, err
	}

	return domain.EnhancedContext{
		ComplaintID:       c.ID,
		Status:            c.Status,
		CompanyName:       c.CompanyName,
		ComplaintText:     c.ComplaintText,
		Customer:          c.Customer,
		Classification:    c.Classification,
		MissingFields:     c.MissingFields,
		ExtractedFields:   c.ExtractedFields,
		InitialConfidence: c.InitialConfidence,
		Turns:             domain.NewTurnSequence(turns),
		DialogueComplete:  c.DialogueComplete,
	}, nil
}

// SaveContext writes the whole context back in one transaction: complaint
// fields and every turn. Each dialogue mutation goes through here so a crash
// between question and answer never leaves a half-written context.
func (r *Repository) SaveContext(ctx context.Context, ec *domain.EnhancedContext) error {
	fieldsJSON, err := json.Marshal(nonNilFields(ec.ExtractedFields))
	if err != nil {
		return fmt.Errorf("encode extracted_fields: %w", err)
	}
	missing := ec.MissingFields
	if missing == nil {
		missing = []string{}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE complaints
		SET status = $2, extracted_fields = $3, missing_fields = $4,
			confidence = $5, dialogue_complete = $6, updated_at = now()
		WHERE id = $1
	`, ec.ComplaintID, ec.Status, fieldsJSON, missing, ec.Confidence(), ec.DialogueComplete)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	for i, t := range ec.Turns.All() {
		infoJSON, err := json.Marshal(nonNilFields(t.ExtractedInfo))
		if err != nil {
			return fmt.Errorf("encode turn extracted_info: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_turns (id, complaint_id, position, question, answer, templated, extracted_info, confidence_delta, asked_at, answered_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO UPDATE
			SET answer = EXCLUDED.answer,
				extracted_info = EXCLUDED.extracted_info,
				confidence_delta = EXCLUDED.confidence_delta,
				answered_at = EXCLUDED.answered_at
		`, t.ID, ec.ComplaintID, i, t.Question, t.Answer, t.Templated, infoJSON, t.ConfidenceDelta, t.AskedAt, t.AnsweredAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ListTurns returns the conversation turns for a complaint in ask order.
func (r *Repository) ListTurns(ctx context.Context, complaintID uuid.UUID) ([]domain.ConversationTurn, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, question, answer, templated, extracted_info, confidence_delta, asked_at, answered_at
		FROM conversation_turns
		WHERE complaint_id = $1
		ORDER BY position ASC
	`, complaintID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	turns := make([]domain.ConversationTurn, 0)
	for rows.Next() {
		var (
			t       domain.ConversationTurn
			rawInfo []byte
		)
		if err := rows.Scan(&t.ID, &t.Question, &t.Answer, &t.Templated, &rawInfo, &t.ConfidenceDelta, &t.AskedAt, &t.AnsweredAt); err != nil {
			return nil, err
		}
		if len(rawInfo) > 0 {
			if err := json.Unmarshal(rawInfo, &t.ExtractedInfo); err != nil {
				return nil, fmt.Errorf("decode turn extracted_info: %w", err)
			}
		}
		turns = append(turns, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return turns, nil
}

func nonNilFields(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
