package complaints

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	callsdomain "github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
	callsrepo "github.com/DataCleaninghash/CustomerAII/internal/calls/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/transport"
	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
	"github.com/DataCleaninghash/CustomerAII/internal/dialogue"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/internal/scheduler"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
	"github.com/DataCleaninghash/CustomerAII/platform/phone"
	"github.com/DataCleaninghash/CustomerAII/platform/sanitize"
)

// DialogueDriver runs the clarification dialogue on a loaded context.
// Satisfied by *dialogue.Engine.
type DialogueDriver interface {
	Advance(ctx context.Context, ec *domain.EnhancedContext) (dialogue.Step, error)
	SubmitAnswer(ctx context.Context, ec *domain.EnhancedContext, turnID uuid.UUID, answer string) (dialogue.Step, error)
}

// CallRecords is the slice of the calls repository the facade needs: one row
// per queued attempt, plus a way to close a row that never reached the worker.
type CallRecords interface {
	Create(ctx context.Context, complaintID uuid.UUID, phoneNumber string) (*callsrepo.CallRecord, error)
	RecordResult(ctx context.Context, id uuid.UUID, result *callsdomain.Result) error
}

// ResolutionMailer sends the written complaint to the company. Satisfied by
// email.Sender.
type ResolutionMailer interface {
	SendComplaintEmail(ctx context.Context, toEmail, companyName, customerName, customerEmail, category, complaintText string, details map[string]string) error
}

// Orchestrator is the single entry point for everything that moves a
// complaint forward: dialogue progression, call placement and the resolution
// fan-out. All mutations of one complaint flow through here, which is what
// keeps the single-writer rule honest without distributed locking.
type Orchestrator struct {
	repo     repository.ComplaintsRepository
	dialogue DialogueDriver
	calls    CallRecords
	queue    scheduler.CallEnqueuer
	contacts contacts.Resolver
	mailer   ResolutionMailer
	bus      events.Bus
	log      *logger.Logger

	// queueing guards against two concurrent call requests for the same
	// complaint racing past the status check in this process.
	mu       sync.Mutex
	queueing map[uuid.UUID]struct{}
}

func NewOrchestrator(
	repo repository.ComplaintsRepository,
	driver DialogueDriver,
	calls CallRecords,
	queue scheduler.CallEnqueuer,
	resolver contacts.Resolver,
	mailer ResolutionMailer,
	bus events.Bus,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		dialogue: driver,
		calls:    calls,
		queue:    queue,
		contacts: resolver,
		mailer:   mailer,
		bus:      bus,
		log:      log,
		queueing: make(map[uuid.UUID]struct{}),
	}
}

// Advance moves the dialogue one step: it returns the currently pending
// question, asks a new one, or reports the context ready. Calling it on a
// fresh classified complaint starts the dialogue.
func (o *Orchestrator) Advance(ctx context.Context, complaintID uuid.UUID) (transport.DialogueStepResponse, error) {
	ec, err := o.loadContext(ctx, complaintID)
	if err != nil {
		return transport.DialogueStepResponse{}, err
	}
	if err := o.guardDialogue(ec); err != nil {
		return transport.DialogueStepResponse{}, err
	}

	step, err := o.dialogue.Advance(ctx, ec)
	if err != nil {
		return transport.DialogueStepResponse{}, err
	}
	return toStepResponse(step), nil
}

// SubmitAnswer records the customer's answer on the identified turn and
// advances the dialogue in the same request.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, complaintID, turnID uuid.UUID, answer string) (transport.DialogueStepResponse, error) {
	ec, err := o.loadContext(ctx, complaintID)
	if err != nil {
		return transport.DialogueStepResponse{}, err
	}
	if err := o.guardDialogue(ec); err != nil {
		return transport.DialogueStepResponse{}, err
	}

	step, err := o.dialogue.SubmitAnswer(ctx, ec, turnID, sanitize.Text(answer))
	if err != nil {
		return transport.DialogueStepResponse{}, err
	}
	return toStepResponse(step), nil
}

// PlaceComplaintCall queues a resolution call for the complaint. The call
// itself runs on the worker; the returned record id is the handle for
// polling the outcome. requestedBy attributes the request to an operator in
// the timeline and is uuid.Nil for system-initiated requeues.
func (o *Orchestrator) PlaceComplaintCall(ctx context.Context, complaintID, requestedBy uuid.UUID) (transport.QueueCallResponse, error) {
	if !o.beginQueueing(complaintID) {
		return transport.QueueCallResponse{}, apperr.Conflict("a call request for this complaint is already being processed")
	}
	defer o.endQueueing(complaintID)

	ec, err := o.loadContext(ctx, complaintID)
	if err != nil {
		return transport.QueueCallResponse{}, err
	}

	if domain.IsTerminal(ec.Status) {
		return transport.QueueCallResponse{}, apperr.Conflict("complaint is closed")
	}
	if ec.Status == domain.StatusCalling {
		return transport.QueueCallResponse{}, apperr.Conflict("a resolution call is already queued or in progress")
	}
	if ec.Turns.HasPending() {
		return transport.QueueCallResponse{}, apperr.Conflict("a dialogue question is still awaiting an answer")
	}
	if !ec.DialogueComplete {
		return transport.QueueCallResponse{}, apperr.Conflict("dialogue is not complete; advance it to ready first")
	}

	contact, err := o.contacts.Resolve(ctx, ec.CompanyName)
	if err != nil {
		return transport.QueueCallResponse{}, apperr.Wrap(apperr.KindUnavailable, "no contact details found for "+ec.CompanyName, err)
	}
	number, err := phone.ValidateE164(contact.PrimaryPhone())
	if err != nil {
		return transport.QueueCallResponse{}, apperr.Wrap(apperr.KindValidation, "company phone number is not dialable", err)
	}

	record, err := o.calls.Create(ctx, complaintID, number)
	if err != nil {
		return transport.QueueCallResponse{}, err
	}

	if err := o.queue.EnqueueCallExecution(ctx, scheduler.CallExecutePayload{
		ComplaintID:  complaintID.String(),
		CallRecordID: record.ID.String(),
	}); err != nil {
		// The record never reached the worker, close it so it cannot be
		// mistaken for a live attempt.
		queueErr := &callsdomain.Result{
			Status: callsdomain.StatusCallFailed,
			Error:  "failed to queue call execution: " + err.Error(),
		}
		if markErr := o.calls.RecordResult(ctx, record.ID, queueErr); markErr != nil {
			o.log.Warn("failed to close unqueued call record", "call_record_id", record.ID.String(), "error", markErr)
		}
		return transport.QueueCallResponse{}, apperr.Wrap(apperr.KindUnavailable, "failed to queue the resolution call", err)
	}

	if err := o.repo.UpdateStatus(ctx, complaintID, domain.StatusCalling); err != nil {
		// The worker sets the status again when execution starts.
		o.log.Warn("failed to mark complaint calling", "complaint_id", complaintID.String(), "error", err)
	}

	o.recordCallQueuedTimeline(ctx, ec, record.ID, number, requestedBy)

	o.bus.Publish(ctx, events.CallQueued{
		BaseEvent:    events.NewBaseEvent(),
		ComplaintID:  complaintID,
		CallRecordID: record.ID,
		CompanyName:  ec.CompanyName,
	})

	return transport.QueueCallResponse{
		CallRecordID: record.ID,
		ComplaintID:  complaintID,
		Status:       string(record.Status),
	}, nil
}

// Resolve fans out the requested resolution actions. Email and call run
// concurrently and independently: one failing never cancels the other, and
// the response carries the outcome of each once both are done.
func (o *Orchestrator) Resolve(ctx context.Context, complaintID, requestedBy uuid.UUID, req transport.ResolveComplaintRequest) (transport.ResolveComplaintResponse, error) {
	ec, err := o.loadContext(ctx, complaintID)
	if err != nil {
		return transport.ResolveComplaintResponse{}, err
	}
	if domain.IsTerminal(ec.Status) {
		return transport.ResolveComplaintResponse{}, apperr.Conflict("complaint is closed")
	}

	var wantEmail, wantCall bool
	for _, a := range req.Actions {
		switch a {
		case transport.ResolutionActionEmail:
			wantEmail = true
		case transport.ResolutionActionCall:
			wantCall = true
		}
	}

	// A plain group, not WithContext: the first failure must not cancel the
	// sibling action. Failures are captured per action instead.
	var (
		g           errgroup.Group
		emailResult transport.ResolutionActionResult
		callResult  transport.ResolutionActionResult
	)
	if wantEmail {
		g.Go(func() error {
			emailResult = o.resolveByEmail(ctx, ec)
			return nil
		})
	}
	if wantCall {
		g.Go(func() error {
			callResult = o.resolveByCall(ctx, complaintID, requestedBy)
			return nil
		})
	}
	_ = g.Wait()

	results := make([]transport.ResolutionActionResult, 0, 2)
	if wantEmail {
		results = append(results, emailResult)
	}
	if wantCall {
		results = append(results, callResult)
	}

	o.recordResolutionTimeline(ctx, complaintID, requestedBy, results)

	return transport.ResolveComplaintResponse{ComplaintID: complaintID, Results: results}, nil
}

func (o *Orchestrator) resolveByEmail(ctx context.Context, ec *domain.EnhancedContext) transport.ResolutionActionResult {
	result := transport.ResolutionActionResult{Action: transport.ResolutionActionEmail, Status: transport.ActionStatusFailed}

	contact, err := o.contacts.Resolve(ctx, ec.CompanyName)
	if err != nil {
		result.Detail = "no contact details found for " + ec.CompanyName
		return result
	}
	to := contact.PrimaryEmail()
	if to == "" {
		result.Detail = ec.CompanyName + " has no known email address"
		return result
	}

	err = o.mailer.SendComplaintEmail(ctx, to, ec.CompanyName, ec.Customer.Name, ec.Customer.Email, ec.Classification.Category, ec.ComplaintText, ec.ExtractedFields)
	if err != nil {
		o.log.Warn("resolution email failed", "complaint_id", ec.ComplaintID.String(), "error", err)
		result.Detail = "sending failed: " + err.Error()
		return result
	}

	result.Status = transport.ActionStatusSent
	result.Detail = "complaint emailed to " + to
	return result
}

func (o *Orchestrator) resolveByCall(ctx context.Context, complaintID, requestedBy uuid.UUID) transport.ResolutionActionResult {
	result := transport.ResolutionActionResult{Action: transport.ResolutionActionCall}

	queued, err := o.PlaceComplaintCall(ctx, complaintID, requestedBy)
	if err != nil {
		result.Status = transport.ActionStatusFailed
		result.Detail = err.Error()
		return result
	}

	result.Status = transport.ActionStatusQueued
	result.CallRecordID = &queued.CallRecordID
	return result
}

// guardDialogue rejects dialogue operations in states where the context must
// not be touched: closed complaints, unclassified complaints, and complaints
// whose context currently belongs to the call executor.
func (o *Orchestrator) guardDialogue(ec *domain.EnhancedContext) error {
	if domain.IsTerminal(ec.Status) {
		return apperr.Conflict("complaint is closed")
	}
	if ec.Status == domain.StatusIntake {
		return apperr.Conflict("classification has not completed yet")
	}
	if ec.Status == domain.StatusCalling {
		return apperr.Conflict("a resolution call is in progress")
	}
	return nil
}

func (o *Orchestrator) loadContext(ctx context.Context, complaintID uuid.UUID) (*domain.EnhancedContext, error) {
	ec, err := o.repo.GetContext(ctx, complaintID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("complaint not found")
		}
		return nil, err
	}
	return &ec, nil
}

func (o *Orchestrator) beginQueueing(complaintID uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.queueing[complaintID]; busy {
		return false
	}
	o.queueing[complaintID] = struct{}{}
	return true
}

func (o *Orchestrator) endQueueing(complaintID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.queueing, complaintID)
}

func (o *Orchestrator) recordCallQueuedTimeline(ctx context.Context, ec *domain.EnhancedContext, callRecordID uuid.UUID, number string, requestedBy uuid.UUID) {
	summary := fmt.Sprintf("Resolution call to %s queued.", ec.CompanyName)
	meta := map[string]any{
		"call_record_id": callRecordID.String(),
		"phone_number":   number,
	}
	if requestedBy != uuid.Nil {
		meta["requested_by"] = requestedBy.String()
	}
	_, err := o.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: ec.ComplaintID,
		ActorType:   repository.ActorTypeSystem,
		ActorName:   repository.ActorNameOrchestrator,
		EventType:   repository.EventTypeCallQueued,
		Title:       repository.EventTitleCallQueued,
		Summary:     repository.TruncateSummary(summary, repository.TimelineSummaryMaxLen),
		Metadata:    meta,
	})
	if err != nil {
		o.log.DatabaseError("create call queued timeline event", err)
	}
}

func (o *Orchestrator) recordResolutionTimeline(ctx context.Context, complaintID, requestedBy uuid.UUID, results []transport.ResolutionActionResult) {
	parts := make([]string, 0, len(results))
	meta := make(map[string]any, len(results)+1)
	if requestedBy != uuid.Nil {
		meta["requested_by"] = requestedBy.String()
	}
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Action, r.Status))
		meta[string(r.Action)] = r.Status
		if r.Detail != "" {
			meta[string(r.Action)+"_detail"] = r.Detail
		}
	}

	summary := "Resolution actions dispatched"
	if len(parts) > 0 {
		summary = fmt.Sprintf("Resolution actions dispatched (%s).", strings.Join(parts, ", "))
	}

	_, err := o.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: complaintID,
		ActorType:   repository.ActorTypeSystem,
		ActorName:   repository.ActorNameOrchestrator,
		EventType:   repository.EventTypeResolution,
		Title:       repository.EventTitleResolutionDispatched,
		Summary:     repository.TruncateSummary(summary, repository.TimelineSummaryMaxLen),
		Metadata:    meta,
	})
	if err != nil {
		o.log.DatabaseError("create resolution timeline event", err)
	}
}

func toStepResponse(step dialogue.Step) transport.DialogueStepResponse {
	resp := transport.DialogueStepResponse{
		Ready:          step.Ready,
		Confidence:     step.Confidence,
		QuestionsAsked: step.QuestionsAsked,
	}
	if step.Question != nil {
		q := toTurnResponse(*step.Question)
		resp.Question = &q
	}
	return resp
}

func toTurnResponse(t domain.ConversationTurn) transport.TurnResponse {
	return transport.TurnResponse{
		ID:              t.ID,
		Question:        t.Question,
		Answer:          t.Answer,
		Templated:       t.Templated,
		ExtractedInfo:   t.ExtractedInfo,
		ConfidenceDelta: t.ConfidenceDelta,
		AskedAt:         t.AskedAt,
		AnsweredAt:      t.AnsweredAt,
	}
}
