package calls

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
	complaintsdomain "github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
	"github.com/DataCleaninghash/CustomerAII/platform/phone"
)

// ErrCallNotResumed marks a fallback episode that left the company call on
// hold. The state machine ends such a call instead of monitoring a line
// nobody is speaking on.
var ErrCallNotResumed = errors.New("company call not resumed after fallback")

const dialRetryPause = 2 * time.Second

// Follow-up guidance for calls that never produced a company-side outcome.
var (
	nextStepsDialFailed = []string{
		"The company's phone line could not be reached.",
		"Try again at a different time or contact the company through their website or email.",
	}
	nextStepsCallFailed = []string{
		"The call did not reach a company representative.",
		"Consider calling the company directly or escalating the complaint in writing.",
	}
	nextStepsNavigationFailed = []string{
		"The company's phone menu could not be navigated automatically.",
		"Call the company directly and ask for the department handling your complaint.",
	}
)

// RetryCounter is the persisted per-complaint dial budget. Satisfied by the
// complaints repository.
type RetryCounter interface {
	CallRetryCount(ctx context.Context, id uuid.UUID) (int, error)
	IncrementCallRetries(ctx context.Context, id uuid.UUID) (int, error)
}

// PlanExecutor replays a navigation plan on a live call. Satisfied by
// *Navigator.
type PlanExecutor interface {
	Execute(ctx context.Context, callID string, plan domain.NavigationPlan) bool
}

// FallbackHandler runs the hold/callback/resume episode. Satisfied by
// *Coordinator.
type FallbackHandler interface {
	HandleFallback(ctx context.Context, companyCallID string, callRecordID uuid.UUID, ec *complaintsdomain.EnhancedContext, contact *contacts.Details, missingFields []string) (*domain.FallbackResult, error)
}

// StateMachine owns one call attempt end to end: dial with the persisted
// retry budget, poll the provider, hand menus to the navigator and
// information requests to the fallback coordinator, and read the outcome
// out of the final transcript. It is the sole writer of the Result.
type StateMachine struct {
	provider  TelephonyProvider
	navigator PlanExecutor
	fallback  FallbackHandler
	retries   RetryCounter
	log       *logger.Logger
	sleep     Sleeper

	pollInterval time.Duration
	maxPolls     int
	maxRetries   int
}

func NewStateMachine(
	provider TelephonyProvider,
	navigator PlanExecutor,
	fallback FallbackHandler,
	retries RetryCounter,
	cfg config.CallPolicyConfig,
	log *logger.Logger,
) *StateMachine {
	return &StateMachine{
		provider:     provider,
		navigator:    navigator,
		fallback:     fallback,
		retries:      retries,
		log:          log,
		sleep:        time.After,
		pollInterval: cfg.GetCallPollInterval(),
		maxPolls:     cfg.GetCallMaxPollAttempts(),
		maxRetries:   cfg.GetCallMaxRetries(),
	}
}

// PlaceCall dials the company and monitors the call to a terminal state.
//
// Dial failures consume the persisted retry budget and return a terminal
// call_failed result once it is spent. A monitoring ceiling is different: it
// returns a timeout error because the call's true outcome is unknown.
func (m *StateMachine) PlaceCall(ctx context.Context, callRecordID uuid.UUID, ec *complaintsdomain.EnhancedContext, contact *contacts.Details) (*domain.Result, error) {
	number, err := phone.ValidateE164(contact.PrimaryPhone())
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "company phone number is not dialable", err)
	}

	script := BuildTaskScript(ec)
	placed, result, err := m.dial(ctx, ec.ComplaintID, number, script)
	if err != nil || result != nil {
		return result, err
	}

	m.log.CallEvent("call_placed", placed.CallID, ec.ComplaintID.String(), placed.Status)
	return m.monitor(ctx, placed.CallID, callRecordID, ec, contact)
}

// dial attempts placement until it succeeds or the persisted budget is spent.
// A spent budget yields a terminal result, not an error: the caller records
// it and stops.
func (m *StateMachine) dial(ctx context.Context, complaintID uuid.UUID, number, script string) (*PlacedCall, *domain.Result, error) {
	for {
		placed, err := m.provider.PlaceCall(ctx, number, script)
		if err == nil {
			return placed, nil, nil
		}

		count, countErr := m.retries.CallRetryCount(ctx, complaintID)
		if countErr != nil {
			return nil, nil, apperr.Wrap(apperr.KindInternal, "failed to read call retry count", countErr)
		}
		if count >= m.maxRetries {
			m.log.CallFailure("", complaintID.String(), count, err)
			return nil, &domain.Result{
				Status:    domain.StatusCallFailed,
				Error:     fmt.Sprintf("dialing failed after %d attempts: %v", count+1, err),
				NextSteps: nextStepsDialFailed,
			}, nil
		}

		attempts, incErr := m.retries.IncrementCallRetries(ctx, complaintID)
		if incErr != nil {
			return nil, nil, apperr.Wrap(apperr.KindInternal, "failed to persist call retry count", incErr)
		}
		m.log.CallFailure("", complaintID.String(), attempts, err)

		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-m.sleep(dialRetryPause):
		}
	}
}

// monitor polls the provider until the call reaches a terminal state or the
// iteration ceiling is hit. Poll errors are transient and skipped.
func (m *StateMachine) monitor(ctx context.Context, callID string, callRecordID uuid.UUID, ec *complaintsdomain.EnhancedContext, contact *contacts.Details) (*domain.Result, error) {
	department := domain.DepartmentFor(ec.ComplaintText)
	var menu *contacts.IVRMenu
	if contact != nil {
		menu = contact.IVRMenu
	}
	initialPlan := domain.PlanNavigation(menu, department)

	planConsumed := false
	ivrHandled := 0
	ivrActions := 0
	triggerScanned := 0

	for i := 0; i < m.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-m.sleep(m.pollInterval):
		}

		snapshot, err := m.provider.GetCallStatus(ctx, callID)
		if err != nil {
			m.log.Warn("call status poll failed", "call_id", callID, "error", err)
			continue
		}

		if len(snapshot.IVRInteractions) > ivrHandled {
			ivrHandled = len(snapshot.IVRInteractions)
			plan := domain.GenericPlan(department)
			if !planConsumed {
				plan = initialPlan
				planConsumed = true
			}
			ok := m.runNavigation(ctx, callID, plan, department)
			if !ok {
				_ = m.provider.EndCall(ctx, callID)
				return &domain.Result{
					Status:         domain.StatusFailed,
					ProviderCallID: callID,
					Error:          "ivr navigation failed",
					NextSteps:      nextStepsNavigationFailed,
					IVRActions:     ivrHandled,
				}, nil
			}
			ivrActions += len(plan.Steps)
		}

		if len(snapshot.Transcript) > triggerScanned {
			if fields := domain.DetectMissingFields(snapshot.Transcript[triggerScanned:]); len(fields) > 0 {
				triggerScanned = len(snapshot.Transcript)
				if err := m.runFallback(ctx, callID, callRecordID, ec, contact, fields); err != nil {
					if errors.Is(err, ErrCallNotResumed) {
						_ = m.provider.EndCall(ctx, callID)
						return &domain.Result{
							Status:         domain.StatusFailed,
							ProviderCallID: callID,
							Error:          err.Error(),
							NextSteps:      nextStepsCallFailed,
							Transcript:     snapshot.Transcript,
							IVRActions:     ivrActions,
						}, nil
					}
					m.log.Warn("fallback episode failed, call continues", "call_id", callID, "error", err)
				}
			}
		}

		if snapshot.Status == ProviderStatusCompleted {
			return m.completedResult(callID, snapshot, ivrActions), nil
		}
		if snapshot.TerminalFailure() {
			reason := snapshot.ErrorMessage
			if reason == "" {
				reason = "call ended with status " + snapshot.Status
			}
			return &domain.Result{
				Status:          domain.StatusFailed,
				ProviderCallID:  callID,
				DurationSeconds: snapshot.CallLengthSeconds,
				Transcript:      snapshot.Transcript,
				CostCents:       snapshot.CostCents,
				IVRActions:      ivrActions,
				Error:           reason,
				NextSteps:       nextStepsCallFailed,
			}, nil
		}
	}

	// The ceiling means the outcome is unknown, which is worse than a clean
	// failure. Stop watching, end the call, surface a timeout.
	_ = m.provider.EndCall(ctx, callID)
	return nil, apperr.Timeout(fmt.Sprintf("call %s still not terminal after %d polls", callID, m.maxPolls))
}

// runNavigation executes the plan, downgrading a failed menu-specific plan to
// the operator plan once.
func (m *StateMachine) runNavigation(ctx context.Context, callID string, plan domain.NavigationPlan, department string) bool {
	if m.navigator.Execute(ctx, callID, plan) {
		return true
	}
	if plan.Generic {
		return false
	}
	m.log.Warn("menu navigation failed, downgrading to operator", "call_id", callID, "department", department)
	return m.navigator.Execute(ctx, callID, domain.GenericPlan(department))
}

// runFallback executes the episode and relays the collected answers into the
// resumed company call.
func (m *StateMachine) runFallback(ctx context.Context, callID string, callRecordID uuid.UUID, ec *complaintsdomain.EnhancedContext, contact *contacts.Details, fields []string) error {
	m.log.CallEvent("fallback_triggered", callID, ec.ComplaintID.String(), strings.Join(fields, ","))

	result, err := m.fallback.HandleFallback(ctx, callID, callRecordID, ec, contact, fields)
	if err != nil {
		return err
	}

	if len(result.UserResponses) > 0 {
		ec.MergeFields(result.UserResponses)
		if speakErr := m.provider.Speak(ctx, callID, renderCollectedAnswers(result.UserResponses)); speakErr != nil {
			m.log.Warn("failed to relay fallback answers", "call_id", callID, "error", speakErr)
		}
	}
	return nil
}

func (m *StateMachine) completedResult(callID string, snapshot *CallSnapshot, ivrActions int) *domain.Result {
	outcome := domain.ExtractOutcome(snapshot.Transcript)

	status := domain.StatusResolved
	if outcome.Resolution == "" {
		// A finished call with nothing usable in the transcript needs a
		// human to pick it up.
		status = domain.StatusEscalated
	}

	return &domain.Result{
		Status:          status,
		Resolution:      outcome.Resolution,
		NextSteps:       outcome.NextSteps,
		ProviderCallID:  callID,
		DurationSeconds: snapshot.CallLengthSeconds,
		Transcript:      snapshot.Transcript,
		ReferenceNumber: outcome.ReferenceNumber,
		CostCents:       snapshot.CostCents,
		IVRActions:      ivrActions,
	}
}

func renderCollectedAnswers(responses map[string]string) string {
	var b strings.Builder
	b.WriteString("The customer has provided the requested information. ")
	for _, key := range sortedKeys(responses) {
		fmt.Fprintf(&b, "%s: %s. ", strings.ReplaceAll(key, "_", " "), responses[key])
	}
	return strings.TrimSpace(b.String())
}
