// Package events defines the domain events the complaint lifecycle publishes.
// The bus and handler machinery live in platform/events; the aliases below
// let modules import a single events package for both.
package events

import (
	"github.com/DataCleaninghash/CustomerAII/platform/events"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus builds the process-local bus both binaries run on.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return events.NewInMemoryBus(log)
}

// =============================================================================
// Complaint Domain Events
// =============================================================================

// ComplaintCreated is published when a new complaint is filed.
type ComplaintCreated struct {
	BaseEvent
	ComplaintID   uuid.UUID `json:"complaintId"`
	CompanyName   string    `json:"companyName"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerPhone string    `json:"customerPhone,omitempty"`
}

func (e ComplaintCreated) EventName() string { return "complaints.created" }

// ComplaintClassified is published when the intake classifier finishes
// categorizing a complaint and scoring its initial confidence.
type ComplaintClassified struct {
	BaseEvent
	ComplaintID       uuid.UUID `json:"complaintId"`
	Category          string    `json:"category"`
	Product           string    `json:"product,omitempty"`
	Severity          string    `json:"severity"`
	InitialConfidence float64   `json:"initialConfidence"`
	MissingFields     []string  `json:"missingFields,omitempty"`
}

func (e ComplaintClassified) EventName() string { return "complaints.classified" }

// QuestionAsked is published when the dialogue engine asks the customer a
// follow-up question.
type QuestionAsked struct {
	BaseEvent
	ComplaintID    uuid.UUID `json:"complaintId"`
	TurnID         uuid.UUID `json:"turnId"`
	Question       string    `json:"question"`
	QuestionNumber int       `json:"questionNumber"`
	Templated      bool      `json:"templated"`
}

func (e QuestionAsked) EventName() string { return "complaints.dialogue.question_asked" }

// AnswerRecorded is published when a customer's answer to a dialogue question
// has been extracted and persisted.
type AnswerRecorded struct {
	BaseEvent
	ComplaintID     uuid.UUID `json:"complaintId"`
	TurnID          uuid.UUID `json:"turnId"`
	FieldsExtracted int       `json:"fieldsExtracted"`
	ConfidenceDelta float64   `json:"confidenceDelta"`
	Confidence      float64   `json:"confidence"`
}

func (e AnswerRecorded) EventName() string { return "complaints.dialogue.answer_recorded" }

// DialogueReady is published when the clarification dialogue completes and the
// complaint context is ready for a resolution call.
type DialogueReady struct {
	BaseEvent
	ComplaintID     uuid.UUID `json:"complaintId"`
	QuestionsAsked  int       `json:"questionsAsked"`
	FinalConfidence float64   `json:"finalConfidence"`
	Reason          string    `json:"reason"` // "sufficient", "question_cap", "decision_error"
}

func (e DialogueReady) EventName() string { return "complaints.dialogue.ready" }

// ComplaintResolved is published when a complaint reaches a resolved status,
// whether by call outcome or manual resolution.
type ComplaintResolved struct {
	BaseEvent
	ComplaintID     uuid.UUID `json:"complaintId"`
	CompanyName     string    `json:"companyName"`
	CustomerName    string    `json:"customerName"`
	CustomerEmail   string    `json:"customerEmail"`
	Resolution      string    `json:"resolution"`
	ReferenceNumber string    `json:"referenceNumber,omitempty"`
	NextSteps       []string  `json:"nextSteps,omitempty"`
}

func (e ComplaintResolved) EventName() string { return "complaints.resolved" }

// ComplaintEscalated is published when a call ends without resolution and the
// complaint needs human follow-up.
type ComplaintEscalated struct {
	BaseEvent
	ComplaintID   uuid.UUID `json:"complaintId"`
	CompanyName   string    `json:"companyName"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Reason        string    `json:"reason"`
}

func (e ComplaintEscalated) EventName() string { return "complaints.escalated" }

// =============================================================================
// Call Domain Events
// =============================================================================

// CallQueued is published when a resolution call has been accepted and handed
// to the background worker.
type CallQueued struct {
	BaseEvent
	ComplaintID  uuid.UUID `json:"complaintId"`
	CallRecordID uuid.UUID `json:"callRecordId"`
	CompanyName  string    `json:"companyName"`
}

func (e CallQueued) EventName() string { return "calls.queued" }

// CallCompleted is published when a resolution call finishes with a terminal
// provider status, resolved or not.
type CallCompleted struct {
	BaseEvent
	ComplaintID     uuid.UUID `json:"complaintId"`
	CallRecordID    uuid.UUID `json:"callRecordId"`
	CompanyName     string    `json:"companyName"`
	CustomerName    string    `json:"customerName"`
	CustomerEmail   string    `json:"customerEmail"`
	Status          string    `json:"status"`
	Resolution      string    `json:"resolution,omitempty"`
	ReferenceNumber string    `json:"referenceNumber,omitempty"`
	NextSteps       []string  `json:"nextSteps,omitempty"`
	DurationSeconds int       `json:"durationSeconds"`
}

func (e CallCompleted) EventName() string { return "calls.completed" }

// CallFailed is published when a resolution call fails terminally, either
// because dialing exhausted its retries or monitoring gave up.
type CallFailed struct {
	BaseEvent
	ComplaintID   uuid.UUID `json:"complaintId"`
	CallRecordID  uuid.UUID `json:"callRecordId"`
	CompanyName   string    `json:"companyName"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Reason        string    `json:"reason"`
	NextSteps     []string  `json:"nextSteps,omitempty"`
}

func (e CallFailed) EventName() string { return "calls.failed" }

// FallbackCompleted is published after a mid-call fallback episode has
// collected missing information from the customer and resumed the call.
type FallbackCompleted struct {
	BaseEvent
	ComplaintID     uuid.UUID `json:"complaintId"`
	CallRecordID    uuid.UUID `json:"callRecordId"`
	CompanyName     string    `json:"companyName"`
	CustomerName    string    `json:"customerName"`
	CustomerEmail   string    `json:"customerEmail"`
	FieldsCollected []string  `json:"fieldsCollected"`
	CallbackNumber  string    `json:"callbackNumber"`
	CallResumed     bool      `json:"callResumed"`
}

func (e FallbackCompleted) EventName() string { return "calls.fallback.completed" }

// =============================================================================
// Notification Domain Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler when a notification
// outbox record should be processed.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID    uuid.UUID `json:"outboxId"`
	ComplaintID uuid.UUID `json:"complaintId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
