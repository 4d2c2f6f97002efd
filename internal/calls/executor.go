package calls

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
	complaintsdomain "github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	complaintsrepo "github.com/DataCleaninghash/CustomerAII/internal/complaints/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// ComplaintStore is the slice of the complaints repository the executor
// needs.
type ComplaintStore interface {
	GetContext(ctx context.Context, id uuid.UUID) (complaintsdomain.EnhancedContext, error)
	SaveContext(ctx context.Context, ec *complaintsdomain.EnhancedContext) error
	SetResolution(ctx context.Context, id uuid.UUID, resolution, referenceNumber string) error
	CreateTimelineEvent(ctx context.Context, params complaintsrepo.CreateTimelineEventParams) (complaintsrepo.TimelineEvent, error)
}

// CallStore persists call attempt outcomes.
type CallStore interface {
	RecordResult(ctx context.Context, id uuid.UUID, result *domain.Result) error
	SetTranscriptObjectKey(ctx context.Context, id uuid.UUID, key string) error
}

// CallPlacer runs one call attempt to a terminal result. Satisfied by
// *StateMachine.
type CallPlacer interface {
	PlaceCall(ctx context.Context, callRecordID uuid.UUID, ec *complaintsdomain.EnhancedContext, contact *contacts.Details) (*domain.Result, error)
}

// TranscriptArchiver copies a transcript to object storage and returns the
// object key. Optional; a nil archiver skips archiving.
type TranscriptArchiver interface {
	ArchiveTranscript(ctx context.Context, callRecordID uuid.UUID, transcript []domain.TranscriptEntry) (string, error)
}

// Executor runs queued call tasks in the worker: load the complaint context,
// resolve the company contact, drive the state machine and write every
// consequence back (call record, complaint status, timeline, events).
//
// A per-process run guard keeps one complaint from being dialed twice
// concurrently. Cross-process ownership is a deployment assumption, not
// something this guard can enforce.
type Executor struct {
	machine    CallPlacer
	complaints ComplaintStore
	callStore  CallStore
	resolver   contacts.Resolver
	extractor  AnswersExtractor
	archiver   TranscriptArchiver
	bus        events.Bus
	log        *logger.Logger

	mu      sync.Mutex
	running map[uuid.UUID]struct{}
}

func NewExecutor(
	machine CallPlacer,
	complaints ComplaintStore,
	callStore CallStore,
	resolver contacts.Resolver,
	extractor AnswersExtractor,
	archiver TranscriptArchiver,
	bus events.Bus,
	log *logger.Logger,
) *Executor {
	return &Executor{
		machine:    machine,
		complaints: complaints,
		callStore:  callStore,
		resolver:   resolver,
		extractor:  extractor,
		archiver:   archiver,
		bus:        bus,
		log:        log,
		running:    make(map[uuid.UUID]struct{}),
	}
}

// Execute runs one queued call attempt. Returned errors are retryable from
// the task queue's point of view; permanent outcomes are recorded on the
// call record instead of returned.
func (e *Executor) Execute(ctx context.Context, complaintID, callRecordID uuid.UUID) error {
	if !e.acquire(complaintID) {
		return apperr.Conflict("a call for this complaint is already executing")
	}
	defer e.release(complaintID)

	ec, err := e.complaints.GetContext(ctx, complaintID)
	if err != nil {
		return fmt.Errorf("load complaint context: %w", err)
	}

	// The facade refuses to queue before the dialogue is done; this guards
	// against stale tasks reaching the worker anyway. The complaint keeps
	// its current status, only the attempt is marked.
	if !ec.DialogueComplete || ec.Turns.HasPending() {
		result := &domain.Result{
			Status:    domain.StatusCallFailed,
			Error:     "complaint dialogue is not ready for a call",
			NextSteps: []string{"Complete the clarification dialogue, then queue the call again."},
		}
		if err := e.callStore.RecordResult(ctx, callRecordID, result); err != nil {
			return fmt.Errorf("record call result: %w", err)
		}
		e.publish(ctx, &ec, callRecordID, result)
		return nil
	}

	contact, err := e.resolver.Resolve(ctx, ec.CompanyName)
	if err != nil {
		e.log.CallEvent("contact_resolution_failed", "", complaintID.String(), err.Error())
		result := &domain.Result{
			Status:    domain.StatusCallFailed,
			Error:     fmt.Sprintf("no contact details for %s: %v", ec.CompanyName, err),
			NextSteps: nextStepsDialFailed,
		}
		return e.finalize(ctx, &ec, callRecordID, result)
	}

	ec.Status = complaintsdomain.StatusCalling
	if err := e.complaints.SaveContext(ctx, &ec); err != nil {
		return fmt.Errorf("mark complaint calling: %w", err)
	}

	result, err := e.machine.PlaceCall(ctx, callRecordID, &ec, contact)
	if err != nil {
		switch {
		case apperr.Is(err, apperr.KindTimeout):
			// The ceiling fired: the outcome is unknown and redialing blind
			// is worse than reporting the failure.
			result = &domain.Result{
				Status:    domain.StatusFailed,
				Error:     err.Error(),
				NextSteps: nextStepsCallFailed,
			}
		case apperr.Is(err, apperr.KindValidation):
			result = &domain.Result{
				Status:    domain.StatusCallFailed,
				Error:     err.Error(),
				NextSteps: nextStepsDialFailed,
			}
		default:
			return fmt.Errorf("call execution: %w", err)
		}
	}

	return e.finalize(ctx, &ec, callRecordID, result)
}

// finalize records the result everywhere it matters: call record, complaint
// row, extracted-field enrichment, transcript archive, timeline and events.
func (e *Executor) finalize(ctx context.Context, ec *complaintsdomain.EnhancedContext, callRecordID uuid.UUID, result *domain.Result) error {
	if err := e.callStore.RecordResult(ctx, callRecordID, result); err != nil {
		return fmt.Errorf("record call result: %w", err)
	}

	switch result.Status {
	case domain.StatusResolved:
		e.enrichFromTranscript(ctx, ec, result.Transcript)
		ec.Status = complaintsdomain.StatusResolved
	case domain.StatusEscalated:
		e.enrichFromTranscript(ctx, ec, result.Transcript)
		ec.Status = complaintsdomain.StatusEscalated
	default:
		ec.Status = complaintsdomain.StatusFailed
	}
	if err := e.complaints.SaveContext(ctx, ec); err != nil {
		return fmt.Errorf("persist complaint after call: %w", err)
	}
	if result.Status == domain.StatusResolved {
		if err := e.complaints.SetResolution(ctx, ec.ComplaintID, result.Resolution, result.ReferenceNumber); err != nil {
			return fmt.Errorf("persist resolution: %w", err)
		}
	}

	e.archiveTranscript(ctx, callRecordID, result)
	e.appendTimeline(ctx, ec, callRecordID, result)
	e.publish(ctx, ec, callRecordID, result)

	e.log.CallEvent("call_finalized", result.ProviderCallID, ec.ComplaintID.String(), string(result.Status))
	return nil
}

// enrichFromTranscript fills still-missing fields from what the company call
// surfaced. Enrichment only: failures are logged and dropped.
func (e *Executor) enrichFromTranscript(ctx context.Context, ec *complaintsdomain.EnhancedContext, transcript []domain.TranscriptEntry) {
	if e.extractor == nil || len(transcript) == 0 {
		return
	}
	missing := stillMissingFields(ec)
	if len(missing) == 0 {
		return
	}
	text := renderHumanTranscript(transcript)
	if text == "" {
		return
	}

	answers, err := e.extractor.ExtractAnswers(ctx, missing, text)
	if err != nil {
		e.log.Warn("transcript enrichment failed", "complaint_id", ec.ComplaintID.String(), "error", err)
		return
	}
	if len(answers) > 0 {
		ec.MergeFields(answers)
	}
}

func (e *Executor) archiveTranscript(ctx context.Context, callRecordID uuid.UUID, result *domain.Result) {
	if e.archiver == nil || len(result.Transcript) == 0 {
		return
	}
	key, err := e.archiver.ArchiveTranscript(ctx, callRecordID, result.Transcript)
	if err != nil {
		e.log.Warn("transcript archive failed", "call_record_id", callRecordID.String(), "error", err)
		return
	}
	if err := e.callStore.SetTranscriptObjectKey(ctx, callRecordID, key); err != nil {
		e.log.DatabaseError("set transcript object key", err)
	}
}

func (e *Executor) appendTimeline(ctx context.Context, ec *complaintsdomain.EnhancedContext, callRecordID uuid.UUID, result *domain.Result) {
	// This entry records the call attempt itself. Lifecycle markers
	// (resolved, escalated) are written by the complaints module's event
	// handlers off the events published below.
	title := complaintsrepo.EventTitleCallCompleted
	switch result.Status {
	case domain.StatusResolved, domain.StatusEscalated:
	default:
		title = complaintsrepo.EventTitleCallFailed
	}

	summary := result.Resolution
	if summary == "" {
		summary = result.Error
	}

	_, err := e.complaints.CreateTimelineEvent(ctx, complaintsrepo.CreateTimelineEventParams{
		ComplaintID: ec.ComplaintID,
		ActorType:   complaintsrepo.ActorTypeAI,
		ActorName:   complaintsrepo.ActorNameCallExecutor,
		EventType:   complaintsrepo.EventTypeCallOutcome,
		Title:       title,
		Summary:     complaintsrepo.TruncateSummary(summary, complaintsrepo.TimelineSummaryMaxLen),
		Metadata: map[string]any{
			"call_record_id":   callRecordID.String(),
			"status":           string(result.Status),
			"reference_number": result.ReferenceNumber,
			"duration_seconds": result.DurationSeconds,
			"ivr_actions":      result.IVRActions,
		},
	})
	if err != nil {
		e.log.DatabaseError("create call timeline event", err)
	}
}

func (e *Executor) publish(ctx context.Context, ec *complaintsdomain.EnhancedContext, callRecordID uuid.UUID, result *domain.Result) {
	switch result.Status {
	case domain.StatusResolved, domain.StatusEscalated:
		e.bus.Publish(ctx, events.CallCompleted{
			BaseEvent:       events.NewBaseEvent(),
			ComplaintID:     ec.ComplaintID,
			CallRecordID:    callRecordID,
			CompanyName:     ec.CompanyName,
			CustomerName:    ec.Customer.Name,
			CustomerEmail:   ec.Customer.Email,
			Status:          string(result.Status),
			Resolution:      result.Resolution,
			ReferenceNumber: result.ReferenceNumber,
			NextSteps:       result.NextSteps,
			DurationSeconds: result.DurationSeconds,
		})
		if result.Status == domain.StatusResolved {
			e.bus.Publish(ctx, events.ComplaintResolved{
				BaseEvent:       events.NewBaseEvent(),
				ComplaintID:     ec.ComplaintID,
				CompanyName:     ec.CompanyName,
				CustomerName:    ec.Customer.Name,
				CustomerEmail:   ec.Customer.Email,
				Resolution:      result.Resolution,
				ReferenceNumber: result.ReferenceNumber,
				NextSteps:       result.NextSteps,
			})
		} else {
			e.bus.Publish(ctx, events.ComplaintEscalated{
				BaseEvent:     events.NewBaseEvent(),
				ComplaintID:   ec.ComplaintID,
				CompanyName:   ec.CompanyName,
				CustomerName:  ec.Customer.Name,
				CustomerEmail: ec.Customer.Email,
				Reason:        "call completed without a readable resolution",
			})
		}
	default:
		e.bus.Publish(ctx, events.CallFailed{
			BaseEvent:     events.NewBaseEvent(),
			ComplaintID:   ec.ComplaintID,
			CallRecordID:  callRecordID,
			CompanyName:   ec.CompanyName,
			CustomerName:  ec.Customer.Name,
			CustomerEmail: ec.Customer.Email,
			Reason:        result.Error,
			NextSteps:     result.NextSteps,
		})
	}
}

// stillMissingFields returns the classifier's missing fields that no answer
// has filled yet.
func stillMissingFields(ec *complaintsdomain.EnhancedContext) []string {
	missing := make([]string, 0, len(ec.MissingFields))
	for _, f := range ec.MissingFields {
		key := strings.ToLower(strings.TrimSpace(f))
		if key == "" {
			continue
		}
		if _, ok := ec.ExtractedFields[key]; ok {
			continue
		}
		missing = append(missing, key)
	}
	return missing
}

func (e *Executor) acquire(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.running[id]; ok {
		return false
	}
	e.running[id] = struct{}{}
	return true
}

func (e *Executor) release(id uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.running, id)
}
