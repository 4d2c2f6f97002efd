package calls

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
	complaintsdomain "github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
	"github.com/DataCleaninghash/CustomerAII/platform/phone"
)

// Side calls get a tighter monitoring budget than company calls: the
// customer either picks up and answers within a few minutes or the episode
// is over.
const (
	sideCallPollInterval = 3 * time.Second
	sideCallMaxPolls     = 100
)

// AnswersExtractor pulls per-field answers out of the side-call transcript.
// Satisfied by *agent.Extractor.
type AnswersExtractor interface {
	ExtractAnswers(ctx context.Context, missingFields []string, transcript string) (map[string]string, error)
}

// EpisodeStore persists the audit record of a fallback episode.
type EpisodeStore interface {
	CreateFallbackEpisode(ctx context.Context, rec domain.FallbackEpisodeRecord) error
}

// Coordinator runs the fallback episode: hold the company call, call the
// customer for the missing details, merge the answers, resume. Hold and
// resume failures are fatal; a failed side call is not, the company call
// still gets resumed.
type Coordinator struct {
	provider       TelephonyProvider
	extractor      AnswersExtractor
	episodes       EpisodeStore
	bus            events.Bus
	fallbackNumber string
	log            *logger.Logger
	sleep          Sleeper

	mu       sync.Mutex
	inFlight map[string]bool
}

func NewCoordinator(provider TelephonyProvider, extractor AnswersExtractor, episodes EpisodeStore, bus events.Bus, cfg config.CallPolicyConfig, log *logger.Logger) *Coordinator {
	return &Coordinator{
		provider:       provider,
		extractor:      extractor,
		episodes:       episodes,
		bus:            bus,
		fallbackNumber: cfg.GetFallbackCallbackNumber(),
		log:            log,
		sleep:          time.After,
		inFlight:       make(map[string]bool),
	}
}

// HandleFallback runs one episode for the given company call. Episodes on the
// same call never overlap.
func (c *Coordinator) HandleFallback(
	ctx context.Context,
	companyCallID string,
	callRecordID uuid.UUID,
	ec *complaintsdomain.EnhancedContext,
	contact *contacts.Details,
	missingFields []string,
) (*domain.FallbackResult, error) {
	if !c.acquire(companyCallID) {
		return nil, apperr.Conflict("fallback episode already in progress for this call")
	}
	defer c.release(companyCallID)

	// Holding is a precondition. A company call we cannot hold must not be
	// talked over by a side call.
	if err := c.provider.Hold(ctx, companyCallID); err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to hold company call", err)
	}

	callbackNumber, source, err := c.resolveCallbackNumber(ec, contact)
	if err != nil {
		// The call is on hold; take it off before surfacing the error.
		if resumeErr := c.provider.Resume(ctx, companyCallID); resumeErr != nil {
			return nil, apperr.Wrap(apperr.KindUnavailable, "no callback number and company call stuck on hold",
				fmt.Errorf("%w: %v", ErrCallNotResumed, resumeErr))
		}
		return nil, err
	}
	c.log.Info("fallback callback number resolved",
		"complaint_id", ec.ComplaintID.String(),
		"source", source,
	)

	responses, sideErr := c.collectFromCustomer(ctx, callbackNumber, ec, missingFields)
	if sideErr != nil {
		c.log.Warn("fallback side call failed",
			"complaint_id", ec.ComplaintID.String(),
			"error", sideErr,
		)
		responses = map[string]string{}
	}

	// The company call never stays on hold, whatever happened on the side
	// call. A failed resume is the one error that must reach the caller.
	if err := c.provider.Resume(ctx, companyCallID); err != nil {
		c.recordEpisode(ctx, callRecordID, ec.ComplaintID, callbackNumber, missingFields, responses, false, nil)
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to resume company call after fallback",
			fmt.Errorf("%w: %v", ErrCallNotResumed, err))
	}

	resumedAt := time.Now()
	c.recordEpisode(ctx, callRecordID, ec.ComplaintID, callbackNumber, missingFields, responses, true, &resumedAt)

	c.bus.Publish(ctx, events.FallbackCompleted{
		BaseEvent:       events.NewBaseEvent(),
		ComplaintID:     ec.ComplaintID,
		CallRecordID:    callRecordID,
		CompanyName:     ec.CompanyName,
		CustomerName:    ec.Customer.Name,
		CustomerEmail:   ec.Customer.Email,
		FieldsCollected: missingFields,
		CallbackNumber:  callbackNumber,
		CallResumed:     true,
	})
	c.log.CallEvent("fallback_completed", companyCallID, ec.ComplaintID.String(), "resumed")
	return &domain.FallbackResult{
		UserResponses: responses,
		CallResumed:   true,
		ResumedAt:     resumedAt,
	}, nil
}

// resolveCallbackNumber picks the number to call the customer back on:
// their own number first, then the company contact record, then the
// configured default. No silent placeholder: nothing resolvable is an error.
func (c *Coordinator) resolveCallbackNumber(ec *complaintsdomain.EnhancedContext, contact *contacts.Details) (string, string, error) {
	if ec.Customer.Phone != "" {
		if normalized, err := phone.ValidateE164(ec.Customer.Phone); err == nil {
			return normalized, "customer_details", nil
		}
	}
	if contact != nil {
		if normalized, err := phone.ValidateE164(contact.PrimaryPhone()); err == nil {
			return normalized, "contact_details", nil
		}
	}
	if c.fallbackNumber != "" {
		if normalized, err := phone.ValidateE164(c.fallbackNumber); err == nil {
			return normalized, "configured_default", nil
		}
	}
	return "", "", apperr.Internal("no callback number available for fallback episode")
}

// collectFromCustomer places the side call and extracts one answer per
// missing field from its transcript.
func (c *Coordinator) collectFromCustomer(ctx context.Context, callbackNumber string, ec *complaintsdomain.EnhancedContext, missingFields []string) (map[string]string, error) {
	questions := make([]string, 0, len(missingFields))
	for _, f := range missingFields {
		questions = append(questions, domain.QuestionForField(f))
	}
	script := BuildFallbackScript(ec.Customer.Name, ec.CompanyName, questions)

	placed, err := c.provider.PlaceCall(ctx, callbackNumber, script)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindUnavailable, "failed to place fallback side call", err)
	}

	snapshot, err := c.monitorSideCall(ctx, placed.CallID)
	if err != nil {
		return nil, err
	}

	transcript := renderHumanTranscript(snapshot.Transcript)
	if transcript == "" {
		return map[string]string{}, nil
	}

	answers, err := c.extractor.ExtractAnswers(ctx, missingFields, transcript)
	if err != nil {
		// Extraction trouble downgrades to raw notes instead of losing the
		// customer's words entirely.
		c.log.Warn("fallback answer extraction failed", "complaint_id", ec.ComplaintID.String(), "error", err)
		return map[string]string{domain.FieldAdditionalDetails: transcript}, nil
	}
	return answers, nil
}

// monitorSideCall polls until the side call ends, with a hard ceiling.
func (c *Coordinator) monitorSideCall(ctx context.Context, callID string) (*CallSnapshot, error) {
	for i := 0; i < sideCallMaxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.sleep(sideCallPollInterval):
		}

		snapshot, err := c.provider.GetCallStatus(ctx, callID)
		if err != nil {
			c.log.Warn("fallback side call poll failed", "call_id", callID, "error", err)
			continue
		}

		if snapshot.Status == ProviderStatusCompleted {
			return snapshot, nil
		}
		if snapshot.TerminalFailure() {
			return nil, apperr.New(apperr.KindUnavailable, "fallback side call ended without answers: "+snapshot.Status)
		}
	}
	return nil, apperr.Timeout("fallback side call did not finish in time")
}

func (c *Coordinator) recordEpisode(ctx context.Context, callRecordID, complaintID uuid.UUID, phoneUsed string, missingFields []string, responses map[string]string, resumed bool, resumedAt *time.Time) {
	if c.episodes == nil {
		return
	}
	err := c.episodes.CreateFallbackEpisode(ctx, domain.FallbackEpisodeRecord{
		CallRecordID:  callRecordID,
		ComplaintID:   complaintID,
		PhoneUsed:     phoneUsed,
		MissingFields: missingFields,
		Responses:     responses,
		CallResumed:   resumed,
		ResumedAt:     resumedAt,
	})
	if err != nil {
		c.log.DatabaseError("create fallback episode", err)
	}
}

func (c *Coordinator) acquire(callID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inFlight[callID] {
		return false
	}
	c.inFlight[callID] = true
	return true
}

func (c *Coordinator) release(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inFlight, callID)
}

func renderHumanTranscript(transcript []domain.TranscriptEntry) string {
	lines := domain.HumanLines(transcript)
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
