package calls

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
	complaintsdomain "github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	complaintsrepo "github.com/DataCleaninghash/CustomerAII/internal/complaints/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/contacts"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

type resolutionWrite struct {
	resolution string
	reference  string
}

type fakeComplaintStore struct {
	ec            complaintsdomain.EnhancedContext
	getErr        error
	saveErr       error
	savedStatuses []complaintsdomain.Status
	saved         *complaintsdomain.EnhancedContext
	resolutions   []resolutionWrite
	timeline      []complaintsrepo.CreateTimelineEventParams
}

func (s *fakeComplaintStore) GetContext(context.Context, uuid.UUID) (complaintsdomain.EnhancedContext, error) {
	if s.getErr != nil {
		return complaintsdomain.EnhancedContext{}, s.getErr
	}
	return s.ec, nil
}

func (s *fakeComplaintStore) SaveContext(_ context.Context, ec *complaintsdomain.EnhancedContext) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.savedStatuses = append(s.savedStatuses, ec.Status)
	cp := *ec
	s.saved = &cp
	return nil
}

func (s *fakeComplaintStore) SetResolution(_ context.Context, _ uuid.UUID, resolution, reference string) error {
	s.resolutions = append(s.resolutions, resolutionWrite{resolution: resolution, reference: reference})
	return nil
}

func (s *fakeComplaintStore) CreateTimelineEvent(_ context.Context, p complaintsrepo.CreateTimelineEventParams) (complaintsrepo.TimelineEvent, error) {
	s.timeline = append(s.timeline, p)
	return complaintsrepo.TimelineEvent{ID: uuid.New(), ComplaintID: p.ComplaintID}, nil
}

type fakeCallStore struct {
	results       map[uuid.UUID]*domain.Result
	resultErr     error
	transcriptKey string
}

func (s *fakeCallStore) RecordResult(_ context.Context, id uuid.UUID, r *domain.Result) error {
	if s.resultErr != nil {
		return s.resultErr
	}
	if s.results == nil {
		s.results = make(map[uuid.UUID]*domain.Result)
	}
	s.results[id] = r
	return nil
}

func (s *fakeCallStore) SetTranscriptObjectKey(_ context.Context, _ uuid.UUID, key string) error {
	s.transcriptKey = key
	return nil
}

type fakePlacer struct {
	result *domain.Result
	err    error
	calls  int
}

func (p *fakePlacer) PlaceCall(_ context.Context, _ uuid.UUID, _ *complaintsdomain.EnhancedContext, _ *contacts.Details) (*domain.Result, error) {
	p.calls++
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

type fakeContactSource struct {
	details *contacts.Details
	err     error
}

func (r *fakeContactSource) Resolve(context.Context, string) (*contacts.Details, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.details, nil
}

type fakeArchiver struct {
	key   string
	err   error
	calls int
}

func (a *fakeArchiver) ArchiveTranscript(_ context.Context, _ uuid.UUID, _ []domain.TranscriptEntry) (string, error) {
	a.calls++
	if a.err != nil {
		return "", a.err
	}
	return a.key, nil
}

type executorFixture struct {
	complaints *fakeComplaintStore
	callStore  *fakeCallStore
	placer     *fakePlacer
	source     *fakeContactSource
	extractor  *fakeExtractor
	archiver   *fakeArchiver
	bus        *captureBus
	executor   *Executor
}

func newExecutorFixture(ec complaintsdomain.EnhancedContext, placer *fakePlacer) *executorFixture {
	f := &executorFixture{
		complaints: &fakeComplaintStore{ec: ec},
		callStore:  &fakeCallStore{},
		placer:     placer,
		source:     &fakeContactSource{details: billingContact()},
		extractor:  &fakeExtractor{},
		archiver:   &fakeArchiver{key: "transcripts/abc.json"},
		bus:        &captureBus{},
	}
	f.executor = NewExecutor(f.placer, f.complaints, f.callStore, f.source, f.extractor, f.archiver, f.bus, logger.New("development"))
	return f
}

func resolvedResult() *domain.Result {
	return &domain.Result{
		Status:          domain.StatusResolved,
		Resolution:      "Refund of 49.99 approved",
		ReferenceNumber: "CS1200",
		NextSteps:       []string{"Refund arrives within 5 business days."},
		ProviderCallID:  "call-1",
		DurationSeconds: 300,
		Transcript: []domain.TranscriptEntry{
			{Role: domain.RoleHuman, Content: "Refund of 49.99 approved, case number CS1200"},
		},
	}
}

func TestExecuteResolvedCallUpdatesEverything(t *testing.T) {
	f := newExecutorFixture(*newCallContext(), &fakePlacer{result: resolvedResult()})
	callRecordID := uuid.New()

	if err := f.executor.Execute(context.Background(), f.complaints.ec.ComplaintID, callRecordID); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	recorded := f.callStore.results[callRecordID]
	if recorded == nil || recorded.Status != domain.StatusResolved {
		t.Fatalf("recorded result = %+v, want resolved", recorded)
	}

	wantStatuses := []complaintsdomain.Status{complaintsdomain.StatusCalling, complaintsdomain.StatusResolved}
	if !reflect.DeepEqual(f.complaints.savedStatuses, wantStatuses) {
		t.Errorf("saved statuses = %v, want %v", f.complaints.savedStatuses, wantStatuses)
	}

	if len(f.complaints.resolutions) != 1 {
		t.Fatalf("SetResolution called %d times, want 1", len(f.complaints.resolutions))
	}
	if got := f.complaints.resolutions[0]; got.resolution != "Refund of 49.99 approved" || got.reference != "CS1200" {
		t.Errorf("resolution write = %+v", got)
	}

	if f.callStore.transcriptKey != "transcripts/abc.json" {
		t.Errorf("transcript key = %q, want the archiver's object key", f.callStore.transcriptKey)
	}

	if len(f.complaints.timeline) != 1 {
		t.Fatalf("timeline events = %d, want 1", len(f.complaints.timeline))
	}
	if got := f.complaints.timeline[0].Title; got != complaintsrepo.EventTitleCallCompleted {
		t.Errorf("timeline title = %q, want %q", got, complaintsrepo.EventTitleCallCompleted)
	}

	wantEvents := []string{"calls.completed", "complaints.resolved"}
	if !reflect.DeepEqual(f.bus.names(), wantEvents) {
		t.Errorf("published = %v, want %v", f.bus.names(), wantEvents)
	}
}

func TestExecuteEscalatedCallSkipsResolutionWrite(t *testing.T) {
	result := resolvedResult()
	result.Status = domain.StatusEscalated
	result.Resolution = ""
	result.ReferenceNumber = ""
	f := newExecutorFixture(*newCallContext(), &fakePlacer{result: result})

	if err := f.executor.Execute(context.Background(), f.complaints.ec.ComplaintID, uuid.New()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if f.complaints.saved.Status != complaintsdomain.StatusEscalated {
		t.Errorf("complaint status = %s, want %s", f.complaints.saved.Status, complaintsdomain.StatusEscalated)
	}
	if len(f.complaints.resolutions) != 0 {
		t.Errorf("SetResolution called %d times for an escalated call, want 0", len(f.complaints.resolutions))
	}
	wantEvents := []string{"calls.completed", "complaints.escalated"}
	if !reflect.DeepEqual(f.bus.names(), wantEvents) {
		t.Errorf("published = %v, want %v", f.bus.names(), wantEvents)
	}
	// The executor records the call attempt; the escalation marker itself is
	// written by the complaints module off the published event.
	if got := f.complaints.timeline[0].Title; got != complaintsrepo.EventTitleCallCompleted {
		t.Errorf("timeline title = %q, want %q", got, complaintsrepo.EventTitleCallCompleted)
	}
}

func TestExecuteNotReadyRecordsAttemptOnly(t *testing.T) {
	ec := newCallContext()
	ec.DialogueComplete = false
	ec.Status = complaintsdomain.StatusDialogue
	placer := &fakePlacer{result: resolvedResult()}
	f := newExecutorFixture(*ec, placer)
	callRecordID := uuid.New()

	if err := f.executor.Execute(context.Background(), ec.ComplaintID, callRecordID); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if placer.calls != 0 {
		t.Errorf("state machine ran %d times for a not-ready complaint, want 0", placer.calls)
	}
	recorded := f.callStore.results[callRecordID]
	if recorded == nil || recorded.Status != domain.StatusCallFailed {
		t.Fatalf("recorded result = %+v, want call_failed", recorded)
	}
	if len(f.complaints.savedStatuses) != 0 {
		t.Errorf("complaint status rewritten %d times by a stale task, want 0", len(f.complaints.savedStatuses))
	}
	if !reflect.DeepEqual(f.bus.names(), []string{"calls.failed"}) {
		t.Errorf("published = %v, want [calls.failed]", f.bus.names())
	}
}

func TestExecuteContactResolutionFailure(t *testing.T) {
	f := newExecutorFixture(*newCallContext(), &fakePlacer{result: resolvedResult()})
	f.source.err = contacts.ErrNoContact
	callRecordID := uuid.New()

	if err := f.executor.Execute(context.Background(), f.complaints.ec.ComplaintID, callRecordID); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if f.placer.calls != 0 {
		t.Errorf("state machine ran %d times without contact details, want 0", f.placer.calls)
	}
	recorded := f.callStore.results[callRecordID]
	if recorded == nil || recorded.Status != domain.StatusCallFailed {
		t.Fatalf("recorded result = %+v, want call_failed", recorded)
	}
	if f.complaints.saved.Status != complaintsdomain.StatusFailed {
		t.Errorf("complaint status = %s, want %s", f.complaints.saved.Status, complaintsdomain.StatusFailed)
	}
}

func TestExecuteTimeoutBecomesFailedResult(t *testing.T) {
	f := newExecutorFixture(*newCallContext(), &fakePlacer{err: apperr.Timeout("call still not terminal after 400 polls")})
	callRecordID := uuid.New()

	if err := f.executor.Execute(context.Background(), f.complaints.ec.ComplaintID, callRecordID); err != nil {
		t.Fatalf("Execute returned error: %v, a timeout must be recorded, not retried", err)
	}
	recorded := f.callStore.results[callRecordID]
	if recorded == nil || recorded.Status != domain.StatusFailed {
		t.Fatalf("recorded result = %+v, want failed", recorded)
	}
	if f.complaints.saved.Status != complaintsdomain.StatusFailed {
		t.Errorf("complaint status = %s, want %s", f.complaints.saved.Status, complaintsdomain.StatusFailed)
	}
}

func TestExecuteRetryableErrorLeavesRecordPending(t *testing.T) {
	f := newExecutorFixture(*newCallContext(), &fakePlacer{err: errors.New("pgx: connection reset")})
	callRecordID := uuid.New()

	err := f.executor.Execute(context.Background(), f.complaints.ec.ComplaintID, callRecordID)
	if err == nil {
		t.Fatal("Execute returned nil for an infrastructure error, want an error so the task retries")
	}
	if len(f.callStore.results) != 0 {
		t.Errorf("results recorded = %d, want 0 while the attempt is still retryable", len(f.callStore.results))
	}
	if len(f.bus.published) != 0 {
		t.Errorf("published %d events, want 0", len(f.bus.published))
	}
}

func TestExecuteConcurrentRunRejected(t *testing.T) {
	f := newExecutorFixture(*newCallContext(), &fakePlacer{result: resolvedResult()})
	complaintID := f.complaints.ec.ComplaintID
	if !f.executor.acquire(complaintID) {
		t.Fatal("setup: could not mark the complaint running")
	}
	defer f.executor.release(complaintID)

	err := f.executor.Execute(context.Background(), complaintID, uuid.New())
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Execute = %v, want KindConflict while another attempt runs", err)
	}
}

func TestExecuteEnrichesMissingFieldsFromTranscript(t *testing.T) {
	ec := newCallContext()
	ec.MissingFields = []string{"Account_Number", "order_number"}
	ec.ExtractedFields = map[string]string{"order_number": "78-21"}
	f := newExecutorFixture(*ec, &fakePlacer{result: resolvedResult()})
	f.extractor.answers = map[string]string{"account_number": "AC-100"}

	if err := f.executor.Execute(context.Background(), ec.ComplaintID, uuid.New()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !reflect.DeepEqual(f.extractor.gotFields, []string{"account_number"}) {
		t.Errorf("extractor asked for %v, want only the still-missing account_number", f.extractor.gotFields)
	}
	if got := f.complaints.saved.ExtractedFields["account_number"]; got != "AC-100" {
		t.Errorf("saved fields = %v, want account_number filled from the call", f.complaints.saved.ExtractedFields)
	}
}

func TestExecuteArchiveFailureIsNotFatal(t *testing.T) {
	f := newExecutorFixture(*newCallContext(), &fakePlacer{result: resolvedResult()})
	f.archiver.err = errors.New("minio unreachable")

	if err := f.executor.Execute(context.Background(), f.complaints.ec.ComplaintID, uuid.New()); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if f.callStore.transcriptKey != "" {
		t.Errorf("transcript key = %q, want empty after a failed archive", f.callStore.transcriptKey)
	}
}
