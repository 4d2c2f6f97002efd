package transport

import (
	"time"

	"github.com/google/uuid"
)

// ResolutionAction selects one branch of the resolution fan-out.
type ResolutionAction string

const (
	ResolutionActionEmail ResolutionAction = "email"
	ResolutionActionCall  ResolutionAction = "call"
)

// Request DTOs

type CreateComplaintRequest struct {
	CompanyName   string `json:"companyName" validate:"required,min=2,max=200"`
	ComplaintText string `json:"complaintText" validate:"required,min=10,max=10000"`
	CustomerName  string `json:"customerName" validate:"required,min=1,max=150"`
	CustomerEmail string `json:"customerEmail" validate:"required,email"`
	CustomerPhone string `json:"customerPhone,omitempty" validate:"omitempty,dialable"`
}

type SubmitAnswerRequest struct {
	Answer string `json:"answer" validate:"required,min=1,max=4000"`
}

type ResolveComplaintRequest struct {
	Actions []ResolutionAction `json:"actions" validate:"required,min=1,max=2,unique,dive,oneof=email call"`
}

type ListComplaintsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=intake dialogue ready calling resolved escalated failed"`
	Company  string `form:"company" validate:"max=200"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// Response DTOs

type CustomerResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type ClassificationResponse struct {
	Category string `json:"category"`
	Product  string `json:"product,omitempty"`
	Severity string `json:"severity"`
	Summary  string `json:"summary,omitempty"`
}

type ComplaintResponse struct {
	ID               uuid.UUID               `json:"id"`
	Status           string                  `json:"status"`
	CompanyName      string                  `json:"companyName"`
	ComplaintText    string                  `json:"complaintText"`
	Customer         CustomerResponse        `json:"customer"`
	Classification   *ClassificationResponse `json:"classification,omitempty"`
	MissingFields    []string                `json:"missingFields,omitempty"`
	ExtractedFields  map[string]string       `json:"extractedFields,omitempty"`
	Confidence       float64                 `json:"confidence"`
	DialogueComplete bool                    `json:"dialogueComplete"`
	CallRetries      int                     `json:"callRetries"`
	Resolution       string                  `json:"resolution,omitempty"`
	ReferenceNumber  string                  `json:"referenceNumber,omitempty"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

type TurnResponse struct {
	ID              uuid.UUID         `json:"id"`
	Question        string            `json:"question"`
	Answer          string            `json:"answer,omitempty"`
	Templated       bool              `json:"templated"`
	ExtractedInfo   map[string]string `json:"extractedInfo,omitempty"`
	ConfidenceDelta float64           `json:"confidenceDelta"`
	AskedAt         time.Time         `json:"askedAt"`
	AnsweredAt      *time.Time        `json:"answeredAt,omitempty"`
}

type ComplaintDetailResponse struct {
	ComplaintResponse
	Turns []TurnResponse `json:"turns"`
}

type ComplaintListResponse struct {
	Items      []ComplaintResponse `json:"items"`
	Total      int                 `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"pageSize"`
	TotalPages int                 `json:"totalPages"`
}

// DialogueStepResponse is the outcome of advancing the dialogue: either the
// next question to put to the customer or the ready signal.
type DialogueStepResponse struct {
	Ready          bool          `json:"ready"`
	Question       *TurnResponse `json:"question,omitempty"`
	Confidence     float64       `json:"confidence"`
	QuestionsAsked int           `json:"questionsAsked"`
}

// QueueCallResponse acknowledges an accepted call request. The call itself
// runs asynchronously; poll the call record for the outcome.
type QueueCallResponse struct {
	CallRecordID uuid.UUID `json:"callRecordId"`
	ComplaintID  uuid.UUID `json:"complaintId"`
	Status       string    `json:"status"`
}

// ResolutionActionStatus values for ResolutionActionResult.
const (
	ActionStatusSent   = "sent"
	ActionStatusQueued = "queued"
	ActionStatusFailed = "failed"
)

type ResolutionActionResult struct {
	Action       ResolutionAction `json:"action"`
	Status       string           `json:"status"`
	Detail       string           `json:"detail,omitempty"`
	CallRecordID *uuid.UUID       `json:"callRecordId,omitempty"`
}

type ResolveComplaintResponse struct {
	ComplaintID uuid.UUID                `json:"complaintId"`
	Results     []ResolutionActionResult `json:"results"`
}

type TimelineEventResponse struct {
	ID        uuid.UUID `json:"id"`
	ActorType string    `json:"actorType"`
	ActorName string    `json:"actorName"`
	EventType string    `json:"eventType"`
	Title     string    `json:"title"`
	Summary   *string   `json:"summary,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type TimelineResponse struct {
	ComplaintID uuid.UUID               `json:"complaintId"`
	Events      []TimelineEventResponse `json:"events"`
}
