package domain

import (
	"time"

	"github.com/google/uuid"
)

// Confidence deltas awarded per answered dialogue turn.
const (
	// DeltaInformativeAnswer applies when extraction pulled at least one new
	// field out of the answer.
	DeltaInformativeAnswer = 0.2
	// DeltaPlainAnswer applies when the answer yielded no structured fields.
	DeltaPlainAnswer = 0.1
)

// EnhancedContext is the evolving picture of a complaint: the original text
// and classification enriched by every dialogue answer. It is rebuilt from
// storage for each operation and written back in full after each mutation.
type EnhancedContext struct {
	ComplaintID       uuid.UUID
	Status            Status
	CompanyName       string
	ComplaintText     string
	Customer          CustomerDetails
	Classification    Classification
	MissingFields     []string
	ExtractedFields   map[string]string
	InitialConfidence float64
	Turns             TurnSequence
	DialogueComplete  bool
}

// Confidence returns the aggregate confidence for the context. See
// OverallConfidence for the rule.
func (c *EnhancedContext) Confidence() float64 {
	return OverallConfidence(c.InitialConfidence, c.Turns.All())
}

// MergeFields folds newly extracted fields into the accumulated set.
// Later extractions win on key collision: a correction in a follow-up answer
// overrides what an earlier answer established.
func (c *EnhancedContext) MergeFields(fields map[string]string) {
	if len(fields) == 0 {
		return
	}
	if c.ExtractedFields == nil {
		c.ExtractedFields = make(map[string]string, len(fields))
	}
	for k, v := range fields {
		c.ExtractedFields[k] = v
	}
}

// RecordAnswer stores the customer's answer on the identified turn, merges the
// extracted fields into the shared pool and credits the confidence delta.
func (c *EnhancedContext) RecordAnswer(turnID uuid.UUID, answer string, fields map[string]string, delta float64, at time.Time) error {
	if err := c.Turns.Answer(turnID, answer, fields, delta, at); err != nil {
		return err
	}
	c.MergeFields(fields)
	return nil
}

// OverallConfidence returns the initial classification confidence plus the
// delta of every answered turn, clamped to [0, 1]. Pending turns contribute
// nothing. Clamping happens on read so the stored parts stay raw and
// re-aggregation is always reproducible.
func OverallConfidence(initial float64, turns []ConversationTurn) float64 {
	c := initial
	for _, t := range turns {
		if t.Answered() {
			c += t.ConfidenceDelta
		}
	}
	return clamp01(c)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
