// Package domain holds the call-phase value types and the pure text
// heuristics that run over transcripts: outcome extraction, fallback trigger
// detection and IVR planning. Nothing here performs I/O.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the terminal classification of a call attempt.
type Status string

const (
	// StatusPending marks a queued attempt that has not produced a result.
	StatusPending Status = "pending"
	// StatusResolved means the company agreed to a concrete resolution.
	StatusResolved Status = "resolved"
	// StatusFailed means the call connected but ended without reaching a
	// usable outcome (provider reported failed, cancelled or no answer).
	StatusFailed Status = "failed"
	// StatusEscalated means the call completed but no resolution could be
	// read from the transcript; a human needs to follow up.
	StatusEscalated Status = "escalated"
	// StatusCallFailed means dialing itself failed past the retry cap.
	StatusCallFailed Status = "call_failed"
)

// Transcript entry roles as reported by the voice-agent provider.
const (
	RoleAgent = "agent"
	RoleHuman = "human"
)

// TranscriptEntry is one utterance in the call transcript.
type TranscriptEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// IVRInteraction is a menu prompt the provider detected during the call.
type IVRInteraction struct {
	Prompt     string    `json:"prompt"`
	DetectedAt time.Time `json:"detected_at"`
}

// Result is the outcome of one call attempt. The state machine is its sole
// writer.
type Result struct {
	Status          Status
	Resolution      string
	NextSteps       []string
	ProviderCallID  string
	DurationSeconds int
	Transcript      []TranscriptEntry
	ReferenceNumber string
	CostCents       int
	IVRActions      int
	Error           string
}

// FallbackResult records one hold/callback/resume episode within a call.
type FallbackResult struct {
	UserResponses map[string]string
	CallResumed   bool
	ResumedAt     time.Time
}

// FallbackEpisodeRecord is the audit row persisted for one fallback episode:
// which number was called, what was asked and what came back.
type FallbackEpisodeRecord struct {
	CallRecordID  uuid.UUID
	ComplaintID   uuid.UUID
	PhoneUsed     string
	MissingFields []string
	Responses     map[string]string
	CallResumed   bool
	ResumedAt     *time.Time
}

// HumanLines returns the human-side utterances in chronological order.
// Agent and assistant lines never feed the outcome heuristics.
func HumanLines(transcript []TranscriptEntry) []string {
	out := make([]string, 0, len(transcript))
	for _, e := range transcript {
		if e.Role == RoleHuman {
			out = append(out, e.Content)
		}
	}
	return out
}
