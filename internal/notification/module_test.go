package notification

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/internal/notification/outbox"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

type fakeOutbox struct {
	inserted  []outbox.InsertParams
	records   map[uuid.UUID]outbox.Record
	insertErr error
	retryErr  error

	processing []uuid.UUID
	succeeded  []uuid.UUID
	failed     map[uuid.UUID]string
	retries    map[uuid.UUID]time.Time
}

func newFakeOutbox() *fakeOutbox {
	return &fakeOutbox{
		records: make(map[uuid.UUID]outbox.Record),
		failed:  make(map[uuid.UUID]string),
		retries: make(map[uuid.UUID]time.Time),
	}
}

func (f *fakeOutbox) Insert(ctx context.Context, p outbox.InsertParams) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}
	f.inserted = append(f.inserted, p)
	return uuid.New(), nil
}

func (f *fakeOutbox) GetByID(ctx context.Context, id uuid.UUID) (outbox.Record, error) {
	rec, ok := f.records[id]
	if !ok {
		return outbox.Record{}, errors.New("record not found")
	}
	return rec, nil
}

func (f *fakeOutbox) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	f.processing = append(f.processing, id)
	return nil
}

func (f *fakeOutbox) MarkSucceeded(ctx context.Context, id uuid.UUID) error {
	f.succeeded = append(f.succeeded, id)
	return nil
}

func (f *fakeOutbox) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	f.failed[id] = lastError
	return nil
}

func (f *fakeOutbox) ScheduleRetry(ctx context.Context, id uuid.UUID, retryAt time.Time, lastError string) error {
	if f.retryErr != nil {
		return f.retryErr
	}
	f.retries[id] = retryAt
	return nil
}

type sentEmail struct {
	to      string
	subject string
	body    string
}

type fakeSender struct {
	sent    []sentEmail
	sendErr error
}

func (s *fakeSender) SendComplaintEmail(ctx context.Context, toEmail, companyName, customerName, customerEmail, category, complaintText string, details map[string]string) error {
	return s.sendErr
}

func (s *fakeSender) SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sentEmail{to: toEmail, subject: subject, body: htmlContent})
	return nil
}

type testNotificationConfig struct {
	baseURL  string
	opsEmail string
}

func (c testNotificationConfig) GetAppBaseURL() string { return c.baseURL }

func (c testNotificationConfig) GetOpsNotifyEmail() string { return c.opsEmail }

func newTestModule(store OutboxStore, sender *fakeSender, cfg testNotificationConfig) *Module {
	return New(store, sender, cfg, logger.New("development"))
}

func decodePayload(t *testing.T, p outbox.InsertParams) emailSendOutboxPayload {
	t.Helper()
	data, err := json.Marshal(p.Payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	var payload emailSendOutboxPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	return payload
}

func TestComplaintResolvedQueuesResolutionEmail(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &fakeSender{}, testNotificationConfig{})

	complaintID := uuid.New()
	err := m.Handle(context.Background(), events.ComplaintResolved{
		BaseEvent:       events.NewBaseEvent(),
		ComplaintID:     complaintID,
		CompanyName:     "Acme Utilities",
		CustomerName:    "Dana Smith",
		CustomerEmail:   "dana@example.com",
		Resolution:      "Refund of 49.99 approved",
		ReferenceNumber: "CS-1200",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d records, want 1", len(store.inserted))
	}
	p := store.inserted[0]
	if p.ComplaintID != complaintID || p.Kind != "email" || p.Template != templateResolution {
		t.Errorf("record = %+v, want an email resolution record for the complaint", p)
	}

	payload := decodePayload(t, p)
	if payload.ToEmail != "dana@example.com" {
		t.Errorf("to = %q, want dana@example.com", payload.ToEmail)
	}
	if !strings.Contains(payload.Subject, "Acme Utilities") {
		t.Errorf("subject = %q, want the company named", payload.Subject)
	}
	if !strings.Contains(payload.BodyHTML, "Refund of 49.99 approved") || !strings.Contains(payload.BodyHTML, "CS-1200") {
		t.Error("body missing resolution or reference number")
	}
}

func TestCallCompletedResolvedQueuesNothing(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &fakeSender{}, testNotificationConfig{})

	err := m.Handle(context.Background(), events.CallCompleted{
		BaseEvent:     events.NewBaseEvent(),
		ComplaintID:   uuid.New(),
		CallRecordID:  uuid.New(),
		CompanyName:   "Acme Utilities",
		CustomerName:  "Dana Smith",
		CustomerEmail: "dana@example.com",
		Status:        "resolved",
		Resolution:    "Refund approved",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d records, want 0 for a resolved call", len(store.inserted))
	}
}

func TestCallCompletedEscalatedQueuesCustomerAndOpsEmails(t *testing.T) {
	store := newFakeOutbox()
	complaintID := uuid.New()
	m := newTestModule(store, &fakeSender{}, testNotificationConfig{
		baseURL:  "https://app.example.com/",
		opsEmail: "agents@example.com",
	})

	err := m.Handle(context.Background(), events.CallCompleted{
		BaseEvent:     events.NewBaseEvent(),
		ComplaintID:   complaintID,
		CallRecordID:  uuid.New(),
		CompanyName:   "Acme Utilities",
		CustomerName:  "Dana Smith",
		CustomerEmail: "dana@example.com",
		Status:        "escalated",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(store.inserted) != 2 {
		t.Fatalf("inserted %d records, want customer plus ops", len(store.inserted))
	}
	if store.inserted[0].Template != templateEscalation || store.inserted[1].Template != templateEscalationAlert {
		t.Errorf("templates = %q/%q, want escalation then escalation_alert",
			store.inserted[0].Template, store.inserted[1].Template)
	}

	ops := decodePayload(t, store.inserted[1])
	if ops.ToEmail != "agents@example.com" {
		t.Errorf("ops recipient = %q, want agents@example.com", ops.ToEmail)
	}
	wantURL := "https://app.example.com/complaints/" + complaintID.String()
	if !strings.Contains(ops.BodyHTML, wantURL) {
		t.Errorf("ops body missing complaint link %q", wantURL)
	}
}

func TestCallCompletedEscalatedWithoutOpsEmailQueuesCustomerOnly(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &fakeSender{}, testNotificationConfig{})

	err := m.Handle(context.Background(), events.CallCompleted{
		BaseEvent:     events.NewBaseEvent(),
		ComplaintID:   uuid.New(),
		CallRecordID:  uuid.New(),
		CompanyName:   "Acme Utilities",
		CustomerName:  "Dana Smith",
		CustomerEmail: "dana@example.com",
		Status:        "escalated",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d records, want only the customer email", len(store.inserted))
	}
}

func TestCallFailedQueuesEmailWithNextSteps(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &fakeSender{}, testNotificationConfig{})

	err := m.Handle(context.Background(), events.CallFailed{
		BaseEvent:     events.NewBaseEvent(),
		ComplaintID:   uuid.New(),
		CallRecordID:  uuid.New(),
		CompanyName:   "Acme Utilities",
		CustomerName:  "Dana Smith",
		CustomerEmail: "dana@example.com",
		Reason:        "dialing failed after 3 attempts",
		NextSteps:     []string{"Retry the call tomorrow"},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(store.inserted) != 1 || store.inserted[0].Template != templateCallFailed {
		t.Fatalf("inserted = %+v, want one call_failed record", store.inserted)
	}
	payload := decodePayload(t, store.inserted[0])
	if !strings.Contains(payload.BodyHTML, "dialing failed after 3 attempts") {
		t.Error("body missing the failure reason")
	}
	if !strings.Contains(payload.BodyHTML, "Retry the call tomorrow") {
		t.Error("body missing the next steps")
	}
}

func TestFallbackCompletedQueuesSummaryOnlyWhenResumed(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &fakeSender{}, testNotificationConfig{})

	base := events.FallbackCompleted{
		BaseEvent:       events.NewBaseEvent(),
		ComplaintID:     uuid.New(),
		CallRecordID:    uuid.New(),
		CompanyName:     "Acme Utilities",
		CustomerName:    "Dana Smith",
		CustomerEmail:   "dana@example.com",
		FieldsCollected: []string{"account_number"},
		CallbackNumber:  "+14155550100",
	}

	notResumed := base
	notResumed.CallResumed = false
	if err := m.Handle(context.Background(), notResumed); err != nil {
		t.Fatalf("Handle(not resumed) error = %v", err)
	}
	if len(store.inserted) != 0 {
		t.Fatalf("inserted %d records for an unresumed fallback, want 0", len(store.inserted))
	}

	resumed := base
	resumed.CallResumed = true
	if err := m.Handle(context.Background(), resumed); err != nil {
		t.Fatalf("Handle(resumed) error = %v", err)
	}
	if len(store.inserted) != 1 || store.inserted[0].Template != templateFallbackSummary {
		t.Fatalf("inserted = %+v, want one fallback_summary record", store.inserted)
	}
	payload := decodePayload(t, store.inserted[0])
	if !strings.Contains(payload.BodyHTML, "account_number") {
		t.Error("body missing the collected field")
	}
}

func TestMissingRecipientSkipsInsert(t *testing.T) {
	store := newFakeOutbox()
	m := newTestModule(store, &fakeSender{}, testNotificationConfig{})

	err := m.Handle(context.Background(), events.ComplaintResolved{
		BaseEvent:    events.NewBaseEvent(),
		ComplaintID:  uuid.New(),
		CompanyName:  "Acme Utilities",
		CustomerName: "Dana Smith",
		Resolution:   "Refund approved",
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted %d records without a recipient, want 0", len(store.inserted))
	}
}

func emailRecord(t *testing.T, status outbox.Status, attempts int) outbox.Record {
	t.Helper()
	payload, err := json.Marshal(emailSendOutboxPayload{
		ToEmail:  "dana@example.com",
		Subject:  "Your complaint with Acme Utilities has been resolved",
		BodyHTML: "<p>Refund approved</p>",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return outbox.Record{
		ID:          uuid.New(),
		ComplaintID: uuid.New(),
		Kind:        "email",
		Template:    templateResolution,
		Payload:     payload,
		RunAt:       time.Now().UTC(),
		Status:      status,
		Attempts:    attempts,
	}
}

func TestOutboxDueSendsAndMarksSucceeded(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{}
	m := newTestModule(store, sender, testNotificationConfig{})

	rec := emailRecord(t, outbox.StatusEnqueued, 0)
	store.records[rec.ID] = rec

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent:   events.NewBaseEvent(),
		OutboxID:    rec.ID,
		ComplaintID: rec.ComplaintID,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if len(store.processing) != 1 {
		t.Errorf("processing marks = %d, want 1", len(store.processing))
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(sender.sent))
	}
	if sender.sent[0].to != "dana@example.com" {
		t.Errorf("recipient = %q, want dana@example.com", sender.sent[0].to)
	}
	if len(store.succeeded) != 1 || store.succeeded[0] != rec.ID {
		t.Errorf("succeeded = %v, want the record marked", store.succeeded)
	}
}

func TestOutboxDueAlreadySucceededSkips(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{}
	m := newTestModule(store, sender, testNotificationConfig{})

	rec := emailRecord(t, outbox.StatusSucceeded, 1)
	store.records[rec.ID] = rec

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  rec.ID,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if len(sender.sent) != 0 || len(store.processing) != 0 {
		t.Error("already succeeded record should not be reprocessed")
	}
}

func TestOutboxDueInvalidPayloadMarksFailedWithoutRetry(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{}
	m := newTestModule(store, sender, testNotificationConfig{})

	rec := emailRecord(t, outbox.StatusEnqueued, 0)
	rec.Payload = json.RawMessage(`{not json`)
	store.records[rec.ID] = rec

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  rec.ID,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v, want nil for a poison payload", err)
	}
	if len(sender.sent) != 0 {
		t.Error("poison payload should not be sent")
	}
	if msg, ok := store.failed[rec.ID]; !ok || !strings.HasPrefix(msg, invalidOutboxPayloadPrefix) {
		t.Errorf("failed mark = %q, want an invalid payload error", msg)
	}
	if len(store.retries) != 0 {
		t.Error("poison payload should not be retried")
	}
}

func TestOutboxDueSendFailureSchedulesRetry(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{sendErr: errors.New("smtp unavailable")}
	m := newTestModule(store, sender, testNotificationConfig{})

	rec := emailRecord(t, outbox.StatusEnqueued, 0)
	store.records[rec.ID] = rec

	before := time.Now().UTC()
	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  rec.ID,
	})
	if err == nil {
		t.Fatal("expected the delivery error to surface")
	}

	retryAt, ok := store.retries[rec.ID]
	if !ok {
		t.Fatal("expected a retry to be scheduled")
	}
	if retryAt.Before(before.Add(outboxRetryBaseDelay - time.Second)) {
		t.Errorf("retryAt = %v, want at least the base delay after %v", retryAt, before)
	}
	if len(store.failed) != 0 {
		t.Error("first failure should schedule a retry, not mark failed")
	}
}

func TestOutboxDueExhaustedRetriesMarksFailed(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{sendErr: errors.New("smtp unavailable")}
	m := newTestModule(store, sender, testNotificationConfig{})

	rec := emailRecord(t, outbox.StatusEnqueued, maxOutboxRetryAttempts-1)
	store.records[rec.ID] = rec

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  rec.ID,
	})
	if err == nil {
		t.Fatal("expected the delivery error to surface")
	}
	if _, ok := store.failed[rec.ID]; !ok {
		t.Error("exhausted record should be marked failed")
	}
	if len(store.retries) != 0 {
		t.Error("exhausted record should not be retried again")
	}
}

func TestOutboxDueUnsupportedKindMarksFailed(t *testing.T) {
	store := newFakeOutbox()
	sender := &fakeSender{}
	m := newTestModule(store, sender, testNotificationConfig{})

	rec := emailRecord(t, outbox.StatusEnqueued, 0)
	rec.Kind = "sms"
	store.records[rec.ID] = rec

	err := m.Handle(context.Background(), events.NotificationOutboxDue{
		BaseEvent: events.NewBaseEvent(),
		OutboxID:  rec.ID,
	})
	if err != nil {
		t.Fatalf("Handle() error = %v, want nil for an unsupported kind", err)
	}
	if _, ok := store.failed[rec.ID]; !ok {
		t.Error("unsupported kind should be marked failed")
	}
	if len(sender.sent) != 0 {
		t.Error("unsupported kind should not be sent")
	}
}

func TestComputeOutboxRetryDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: time.Minute},
		{attempt: 1, want: time.Minute},
		{attempt: 2, want: 2 * time.Minute},
		{attempt: 3, want: 4 * time.Minute},
		{attempt: 7, want: 60 * time.Minute},
	}
	for _, tt := range tests {
		if got := computeOutboxRetryDelay(tt.attempt); got != tt.want {
			t.Errorf("computeOutboxRetryDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}
