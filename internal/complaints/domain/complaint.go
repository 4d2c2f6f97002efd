// Package domain provides core business rules for the complaints bounded context.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusIntake    Status = "intake"    // filed, classification pending or in progress
	StatusDialogue  Status = "dialogue"  // clarification questions in flight
	StatusReady     Status = "ready"     // context complete, resolution call can be placed
	StatusCalling   Status = "calling"   // resolution call queued or in progress
	StatusResolved  Status = "resolved"  // company committed to a resolution
	StatusEscalated Status = "escalated" // call finished without resolution, needs human follow-up
	StatusFailed    Status = "failed"    // call attempts exhausted
)

// terminalStatuses are complaint statuses where no further automated
// processing should occur.
var terminalStatuses = map[Status]bool{
	StatusResolved: true,
	StatusFailed:   true,
}

// IsTerminal returns true if the complaint is in a terminal state. A terminal
// complaint must not be advanced by the dialogue engine or handed to the call
// executor. Escalated complaints are deliberately non-terminal: a human can
// requeue the call after fixing the context.
func IsTerminal(status Status) bool {
	return terminalStatuses[status]
}

// Severity levels assigned during classification.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// CustomerDetails identifies the person the engine acts on behalf of.
// Phone, when present, is stored in E.164 form.
type CustomerDetails struct {
	Name  string
	Email string
	Phone string
}

// Classification is the intake classifier's verdict on a raw complaint.
type Classification struct {
	Category string
	Product  string
	Severity string
	Summary  string
}

// Complaint is the persisted aggregate root.
type Complaint struct {
	ID                uuid.UUID
	Status            Status
	CompanyName       string
	ComplaintText     string
	Customer          CustomerDetails
	Classification    Classification
	MissingFields     []string
	ExtractedFields   map[string]string
	InitialConfidence float64
	// Confidence is the stored aggregate at the time of the last context
	// write. The authoritative value is always recomputed from the turns via
	// OverallConfidence; this copy exists so list queries need not join turns.
	Confidence       float64
	DialogueComplete bool
	CallRetries      int
	Resolution       string
	ReferenceNumber  string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
