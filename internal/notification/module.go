// Package notification turns domain events into customer-facing email through
// a durable outbox. Handlers compose the message at subscribe time and store
// it; the scheduler's dispatcher and worker deliver it later with retries.
package notification

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/email"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/internal/notification/outbox"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

const (
	invalidOutboxPayloadPrefix = "invalid payload: "
	maxOutboxRetryAttempts     = 5

	outboxRetryBaseDelay = time.Minute
	outboxRetryMaxDelay  = 60 * time.Minute
)

// Outbox templates. Every payload is a composed email; the template name
// records which notification produced it.
const (
	templateResolution      = "resolution"
	templateCallFailed      = "call_failed"
	templateEscalation      = "escalation"
	templateEscalationAlert = "escalation_alert"
	templateFallbackSummary = "fallback_summary"
)

type emailSendOutboxPayload struct {
	ToEmail  string `json:"toEmail"`
	Subject  string `json:"subject"`
	BodyHTML string `json:"bodyHtml"`
}

// OutboxStore is the persistence surface the module needs.
type OutboxStore interface {
	Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error)
	GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) error
	MarkSucceeded(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error
	ScheduleRetry(ctx context.Context, id uuid.UUID, retryAt time.Time, lastError string) error
}

type Module struct {
	outbox OutboxStore
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

func New(store OutboxStore, sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{
		outbox: store,
		sender: sender,
		cfg:    cfg,
		log:    log,
	}
}

// RegisterHandlers subscribes the module to the events it notifies on.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ComplaintResolved{}.EventName(), m)
	bus.Subscribe(events.CallCompleted{}.EventName(), m)
	bus.Subscribe(events.CallFailed{}.EventName(), m)
	bus.Subscribe(events.FallbackCompleted{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)
}

// Handle routes events to their handler. The mail-composing handlers run on
// the async bus after the publishing operation may already have returned, so
// they detach from its cancellation. Outbox processing arrives through the
// worker's sync publish and keeps the task context.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ComplaintResolved:
		return m.handleComplaintResolved(context.WithoutCancel(ctx), e)
	case events.CallCompleted:
		return m.handleCallCompleted(context.WithoutCancel(ctx), e)
	case events.CallFailed:
		return m.handleCallFailed(context.WithoutCancel(ctx), e)
	case events.FallbackCompleted:
		return m.handleFallbackCompleted(context.WithoutCancel(ctx), e)
	case events.NotificationOutboxDue:
		return m.handleNotificationOutboxDue(ctx, e)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleComplaintResolved(ctx context.Context, e events.ComplaintResolved) error {
	subject, body, err := email.ComposeResolutionEmail(e.CustomerName, e.CompanyName, e.Resolution, e.ReferenceNumber, e.NextSteps)
	if err != nil {
		return err
	}
	return m.enqueueEmail(ctx, e.ComplaintID, templateResolution, e.CustomerEmail, subject, body)
}

// handleCallCompleted only notifies on escalated outcomes. Resolved calls are
// covered by the ComplaintResolved notification.
func (m *Module) handleCallCompleted(ctx context.Context, e events.CallCompleted) error {
	if e.Status != "escalated" {
		return nil
	}

	subject, body, err := email.ComposeEscalationEmail(e.CustomerName, e.CompanyName, "")
	if err != nil {
		return err
	}
	if err := m.enqueueEmail(ctx, e.ComplaintID, templateEscalation, e.CustomerEmail, subject, body); err != nil {
		return err
	}

	opsEmail := m.cfg.GetOpsNotifyEmail()
	if opsEmail == "" {
		return nil
	}
	subject, body, err = email.ComposeEscalationAlertEmail(e.CompanyName, e.CustomerName, "call completed without a readable resolution", m.complaintURL(e.ComplaintID))
	if err != nil {
		return err
	}
	return m.enqueueEmail(ctx, e.ComplaintID, templateEscalationAlert, opsEmail, subject, body)
}

func (m *Module) handleCallFailed(ctx context.Context, e events.CallFailed) error {
	subject, body, err := email.ComposeCallFailedEmail(e.CustomerName, e.CompanyName, e.Reason, e.NextSteps)
	if err != nil {
		return err
	}
	return m.enqueueEmail(ctx, e.ComplaintID, templateCallFailed, e.CustomerEmail, subject, body)
}

// handleFallbackCompleted confirms collected details to the customer. When the
// company call could not be resumed the attempt fails anyway and the CallFailed
// notification covers it.
func (m *Module) handleFallbackCompleted(ctx context.Context, e events.FallbackCompleted) error {
	if !e.CallResumed {
		return nil
	}

	subject, body, err := email.ComposeFallbackSummaryEmail(e.CustomerName, e.CompanyName, e.FieldsCollected)
	if err != nil {
		return err
	}
	return m.enqueueEmail(ctx, e.ComplaintID, templateFallbackSummary, e.CustomerEmail, subject, body)
}

func (m *Module) enqueueEmail(ctx context.Context, complaintID uuid.UUID, template, toEmail, subject, bodyHTML string) error {
	if strings.TrimSpace(toEmail) == "" {
		m.log.Debug("notification skipped; no recipient", "complaint_id", complaintID.String(), "template", template)
		return nil
	}

	id, err := m.outbox.Insert(ctx, outbox.InsertParams{
		ComplaintID: complaintID,
		Kind:        "email",
		Template:    template,
		Payload:     emailSendOutboxPayload{ToEmail: toEmail, Subject: subject, BodyHTML: bodyHTML},
		RunAt:       time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	m.log.Info("notification queued", "outbox_id", id.String(), "template", template, "complaint_id", complaintID.String())
	return nil
}

func (m *Module) complaintURL(complaintID uuid.UUID) string {
	base := strings.TrimRight(m.cfg.GetAppBaseURL(), "/")
	if base == "" {
		return ""
	}
	return base + "/complaints/" + complaintID.String()
}

func (m *Module) handleNotificationOutboxDue(ctx context.Context, e events.NotificationOutboxDue) error {
	rec, proceed, err := m.prepareOutboxRecord(ctx, e.OutboxID)
	if err != nil {
		return err
	}
	if !proceed {
		return nil
	}

	if rec.Kind != "email" {
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	if processErr := m.processEmailOutbox(ctx, rec); processErr != nil {
		m.handleOutboxDeliveryError(ctx, rec, processErr)
		return processErr
	}

	m.log.Info("outbox record processed", "outbox_id", rec.ID.String(), "template", rec.Template)
	return nil
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded {
		m.log.Debug("outbox record already succeeded; skipping", "outbox_id", rec.ID.String())
		return rec, false, nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return outbox.Record{}, false, err
	}
	return rec, true, nil
}

func (m *Module) processEmailOutbox(ctx context.Context, rec outbox.Record) error {
	var payload emailSendOutboxPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}
	if strings.TrimSpace(payload.ToEmail) == "" || strings.TrimSpace(payload.Subject) == "" || strings.TrimSpace(payload.BodyHTML) == "" {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+"toEmail, subject and bodyHtml are required")
		return nil
	}

	if err := m.sender.SendCustomEmail(ctx, payload.ToEmail, payload.Subject, payload.BodyHTML); err != nil {
		return err
	}

	_ = m.outbox.MarkSucceeded(ctx, rec.ID)
	return nil
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec outbox.Record) {
	_ = m.outbox.MarkFailed(ctx, rec.ID, "unsupported outbox record: kind="+rec.Kind+" template="+rec.Template)
	m.log.Warn("unsupported outbox record",
		"outbox_id", rec.ID.String(),
		"kind", rec.Kind,
		"template", rec.Template,
	)
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= maxOutboxRetryAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outbox_id", rec.ID.String(),
			"template", rec.Template,
			"attempt", attempt,
			"max_attempts", maxOutboxRetryAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := time.Now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outbox_id", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("notification outbox scheduled retry",
		"outbox_id", rec.ID.String(),
		"template", rec.Template,
		"attempt", attempt,
		"max_attempts", maxOutboxRetryAttempts,
		"retry_at", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}
