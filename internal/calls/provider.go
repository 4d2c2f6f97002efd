// Package calls drives outbound complaint calls: dialing with a persisted
// retry budget, bounded status polling, IVR navigation, the hold/callback/
// resume fallback and outcome extraction from the transcript.
package calls

import (
	"context"
	"time"

	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
)

// Provider-side call statuses. Anything not listed here is treated as still
// in progress by the monitoring loop.
const (
	ProviderStatusQueued     = "queued"
	ProviderStatusRinging    = "ringing"
	ProviderStatusInProgress = "in-progress"
	ProviderStatusCompleted  = "completed"
	ProviderStatusFailed     = "failed"
	ProviderStatusCancelled  = "cancelled"
	ProviderStatusNoAnswer   = "no-answer"
)

// PlacedCall is the provider's acknowledgement of a dial request.
type PlacedCall struct {
	CallID string
	Status string
}

// CallSnapshot is one poll of an in-flight call.
type CallSnapshot struct {
	Status            string
	Transcript        []domain.TranscriptEntry
	IVRInteractions   []domain.IVRInteraction
	CallLengthSeconds int
	CostCents         int
	ErrorMessage      string
}

// TerminalFailure reports whether the snapshot status is a provider-side
// terminal failure.
func (s *CallSnapshot) TerminalFailure() bool {
	switch s.Status {
	case ProviderStatusFailed, ProviderStatusCancelled, ProviderStatusNoAnswer:
		return true
	}
	return false
}

// TelephonyProvider is the voice-agent vendor boundary. Implementations own
// the wire format; this package only sees E.164 numbers, task scripts and
// snapshots.
type TelephonyProvider interface {
	PlaceCall(ctx context.Context, phoneNumber string, taskScript string) (*PlacedCall, error)
	GetCallStatus(ctx context.Context, callID string) (*CallSnapshot, error)
	SendDTMF(ctx context.Context, callID string, digits string) error
	Speak(ctx context.Context, callID string, text string) error
	Hold(ctx context.Context, callID string) error
	Resume(ctx context.Context, callID string) error
	EndCall(ctx context.Context, callID string) error
}

// Sleeper lets tests replace the monitoring loop's clock. The default is
// time.After.
type Sleeper func(d time.Duration) <-chan time.Time
