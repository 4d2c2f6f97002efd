package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
)

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// ComplaintReader provides read-only access to complaint data.
type ComplaintReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (domain.Complaint, error)
	GetContext(ctx context.Context, id uuid.UUID) (domain.EnhancedContext, error)
	ListTurns(ctx context.Context, complaintID uuid.UUID) ([]domain.ConversationTurn, error)
	List(ctx context.Context, params ListParams) ([]domain.Complaint, int, error)
}

// ComplaintWriter provides write operations for complaint management.
type ComplaintWriter interface {
	Create(ctx context.Context, params CreateComplaintParams) (domain.Complaint, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) error
	UpdateClassification(ctx context.Context, id uuid.UUID, c domain.Classification, initialConfidence float64, missingFields []string) error
	SetResolution(ctx context.Context, id uuid.UUID, resolution, referenceNumber string) error
	SaveContext(ctx context.Context, ec *domain.EnhancedContext) error
}

// RetryCounter tracks the persisted per-complaint dial-retry counter.
type RetryCounter interface {
	CallRetryCount(ctx context.Context, id uuid.UUID) (int, error)
	IncrementCallRetries(ctx context.Context, id uuid.UUID) (int, error)
}

// TimelineStore records the audit trail shown on the complaint timeline.
type TimelineStore interface {
	CreateTimelineEvent(ctx context.Context, params CreateTimelineEventParams) (TimelineEvent, error)
	ListTimelineEvents(ctx context.Context, complaintID uuid.UUID) ([]TimelineEvent, error)
}

// =====================================
// Composite Interface
// =====================================

// ComplaintsRepository defines the complete interface for complaint data operations.
// Composed of smaller, focused interfaces for better testability and flexibility.
type ComplaintsRepository interface {
	ComplaintReader
	ComplaintWriter
	RetryCounter
	TimelineStore
}

// Ensure Repository implements ComplaintsRepository
var _ ComplaintsRepository = (*Repository)(nil)
