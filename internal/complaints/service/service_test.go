package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/transport"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// fakeRepo records writes and serves canned reads.
type fakeRepo struct {
	createParams *repository.CreateComplaintParams
	complaints   map[uuid.UUID]domain.Complaint
	turns        map[uuid.UUID][]domain.ConversationTurn
	listParams   *repository.ListParams
	listResult   []domain.Complaint
	listTotal    int
	timeline     []repository.CreateTimelineEventParams
	timelineRows []repository.TimelineEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		complaints: make(map[uuid.UUID]domain.Complaint),
		turns:      make(map[uuid.UUID][]domain.ConversationTurn),
	}
}

func (r *fakeRepo) Create(_ context.Context, params repository.CreateComplaintParams) (domain.Complaint, error) {
	r.createParams = &params
	return domain.Complaint{
		ID:            uuid.New(),
		Status:        domain.StatusIntake,
		CompanyName:   params.CompanyName,
		ComplaintText: params.ComplaintText,
		Customer: domain.CustomerDetails{
			Name:  params.CustomerName,
			Email: params.CustomerEmail,
			Phone: params.CustomerPhone,
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}, nil
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.Complaint, error) {
	c, ok := r.complaints[id]
	if !ok {
		return domain.Complaint{}, repository.ErrNotFound
	}
	return c, nil
}

func (r *fakeRepo) GetContext(_ context.Context, id uuid.UUID) (domain.EnhancedContext, error) {
	return domain.EnhancedContext{}, repository.ErrNotFound
}

func (r *fakeRepo) ListTurns(_ context.Context, complaintID uuid.UUID) ([]domain.ConversationTurn, error) {
	return r.turns[complaintID], nil
}

func (r *fakeRepo) List(_ context.Context, params repository.ListParams) ([]domain.Complaint, int, error) {
	r.listParams = &params
	return r.listResult, r.listTotal, nil
}

func (r *fakeRepo) UpdateStatus(context.Context, uuid.UUID, domain.Status) error { return nil }

func (r *fakeRepo) UpdateClassification(context.Context, uuid.UUID, domain.Classification, float64, []string) error {
	return nil
}

func (r *fakeRepo) SetResolution(context.Context, uuid.UUID, string, string) error { return nil }

func (r *fakeRepo) SaveContext(context.Context, *domain.EnhancedContext) error { return nil }

func (r *fakeRepo) CallRetryCount(context.Context, uuid.UUID) (int, error) { return 0, nil }

func (r *fakeRepo) IncrementCallRetries(context.Context, uuid.UUID) (int, error) { return 1, nil }

func (r *fakeRepo) CreateTimelineEvent(_ context.Context, params repository.CreateTimelineEventParams) (repository.TimelineEvent, error) {
	r.timeline = append(r.timeline, params)
	return repository.TimelineEvent{ID: uuid.New()}, nil
}

func (r *fakeRepo) ListTimelineEvents(context.Context, uuid.UUID) ([]repository.TimelineEvent, error) {
	return r.timelineRows, nil
}

// recordingBus captures published events.
type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }

func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}
func (b *recordingBus) Subscribe(string, events.Handler) {}

func newService() (*Service, *fakeRepo, *recordingBus) {
	repo := newFakeRepo()
	bus := &recordingBus{}
	return New(repo, bus, logger.New("development")), repo, bus
}

func TestCreateSanitizesInput(t *testing.T) {
	svc, repo, bus := newService()

	resp, err := svc.Create(context.Background(), transport.CreateComplaintRequest{
		CompanyName:   "<b>Acme</b>\n  Corp",
		ComplaintText: "My order <b>arrived broken</b> and nobody responds.",
		CustomerName:  "Dana <i>Fields</i>",
		CustomerEmail: "  Dana.Fields@Example.COM ",
		CustomerPhone: " (415) 555-0123 ",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if repo.createParams == nil {
		t.Fatal("repository Create was not called")
	}
	params := *repo.createParams
	if params.CompanyName != "Acme Corp" {
		t.Errorf("company = %q, want html stripped", params.CompanyName)
	}
	if params.ComplaintText != "My order arrived broken and nobody responds." {
		t.Errorf("text = %q, want html stripped", params.ComplaintText)
	}
	if params.CustomerName != "Dana Fields" {
		t.Errorf("name = %q, want html stripped", params.CustomerName)
	}
	if params.CustomerEmail != "dana.fields@example.com" {
		t.Errorf("email = %q, want lowercased and trimmed", params.CustomerEmail)
	}
	if params.CustomerPhone != "+14155550123" {
		t.Errorf("phone = %q, want E.164", params.CustomerPhone)
	}

	if resp.Status != string(domain.StatusIntake) {
		t.Errorf("response status = %q, want intake", resp.Status)
	}

	if len(repo.timeline) != 1 {
		t.Fatalf("timeline entries = %d, want 1", len(repo.timeline))
	}
	entry := repo.timeline[0]
	if entry.Title != repository.EventTitleComplaintFiled {
		t.Errorf("timeline title = %q, want %q", entry.Title, repository.EventTitleComplaintFiled)
	}
	if entry.ActorType != repository.ActorTypeCustomer {
		t.Errorf("timeline actor type = %q, want customer", entry.ActorType)
	}
	if entry.ActorName != "Dana Fields" {
		t.Errorf("timeline actor name = %q, want the customer", entry.ActorName)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published events = %d, want 1", len(bus.published))
	}
	created, ok := bus.published[0].(events.ComplaintCreated)
	if !ok {
		t.Fatalf("published event = %T, want ComplaintCreated", bus.published[0])
	}
	if created.ComplaintID != resp.ID {
		t.Errorf("event complaint id = %s, want %s", created.ComplaintID, resp.ID)
	}
	if created.CompanyName != "Acme Corp" {
		t.Errorf("event company = %q, want the sanitized name", created.CompanyName)
	}
}

func TestCreateRejectsBadPhone(t *testing.T) {
	svc, repo, bus := newService()

	_, err := svc.Create(context.Background(), transport.CreateComplaintRequest{
		CompanyName:   "Acme Corp",
		ComplaintText: "My order arrived broken and nobody responds.",
		CustomerName:  "Dana Fields",
		CustomerEmail: "dana@example.com",
		CustomerPhone: "not a phone",
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	if repo.createParams != nil {
		t.Error("complaint was stored despite the bad phone number")
	}
	if len(bus.published) != 0 {
		t.Error("event published despite the bad phone number")
	}
}

func TestCreateWithoutPhone(t *testing.T) {
	svc, repo, _ := newService()

	_, err := svc.Create(context.Background(), transport.CreateComplaintRequest{
		CompanyName:   "Acme Corp",
		ComplaintText: "My order arrived broken and nobody responds.",
		CustomerName:  "Dana Fields",
		CustomerEmail: "dana@example.com",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if repo.createParams.CustomerPhone != "" {
		t.Errorf("phone = %q, want empty", repo.createParams.CustomerPhone)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.GetByID(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestGetByIDIncludesTurns(t *testing.T) {
	svc, repo, _ := newService()

	id := uuid.New()
	repo.complaints[id] = domain.Complaint{
		ID:     id,
		Status: domain.StatusDialogue,
		Classification: domain.Classification{
			Category: "billing",
			Severity: domain.SeverityMedium,
		},
	}
	turn := domain.NewTurn("When did the charge appear?", false, time.Now())
	repo.turns[id] = []domain.ConversationTurn{turn}

	resp, err := svc.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if len(resp.Turns) != 1 {
		t.Fatalf("turns = %d, want 1", len(resp.Turns))
	}
	if resp.Turns[0].Question != turn.Question {
		t.Errorf("turn question = %q, want %q", resp.Turns[0].Question, turn.Question)
	}
	if resp.Classification == nil || resp.Classification.Category != "billing" {
		t.Errorf("classification = %+v, want the billing category", resp.Classification)
	}
}

func TestGetByIDOmitsEmptyClassification(t *testing.T) {
	svc, repo, _ := newService()

	id := uuid.New()
	repo.complaints[id] = domain.Complaint{ID: id, Status: domain.StatusIntake}

	resp, err := svc.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if resp.Classification != nil {
		t.Errorf("classification = %+v, want nil before the classifier ran", resp.Classification)
	}
}

func TestListDefaultsPaging(t *testing.T) {
	svc, repo, _ := newService()
	repo.listTotal = 45

	resp, err := svc.List(context.Background(), transport.ListComplaintsRequest{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	if repo.listParams.Limit != 20 || repo.listParams.Offset != 0 {
		t.Errorf("limit/offset = %d/%d, want 20/0", repo.listParams.Limit, repo.listParams.Offset)
	}
	if resp.Page != 1 || resp.PageSize != 20 {
		t.Errorf("page/pageSize = %d/%d, want 1/20", resp.Page, resp.PageSize)
	}
	if resp.TotalPages != 3 {
		t.Errorf("totalPages = %d, want 3", resp.TotalPages)
	}
}

func TestListCapsPageSize(t *testing.T) {
	svc, repo, _ := newService()

	_, err := svc.List(context.Background(), transport.ListComplaintsRequest{Page: 3, PageSize: 500})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if repo.listParams.Limit != 100 {
		t.Errorf("limit = %d, want the cap", repo.listParams.Limit)
	}
	if repo.listParams.Offset != 200 {
		t.Errorf("offset = %d, want 200", repo.listParams.Offset)
	}
}

func TestTimelineNotFound(t *testing.T) {
	svc, _, _ := newService()

	_, err := svc.Timeline(context.Background(), uuid.New())
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v, want not-found", err)
	}
}

func TestTimelineMapsEvents(t *testing.T) {
	svc, repo, _ := newService()

	id := uuid.New()
	repo.complaints[id] = domain.Complaint{ID: id, Status: domain.StatusDialogue}
	summary := "Filed against Acme Corp."
	repo.timelineRows = []repository.TimelineEvent{{
		ID:        uuid.New(),
		ActorType: repository.ActorTypeCustomer,
		ActorName: "Dana Fields",
		EventType: repository.EventTypeIntake,
		Title:     repository.EventTitleComplaintFiled,
		Summary:   &summary,
		CreatedAt: time.Now(),
	}}

	resp, err := svc.Timeline(context.Background(), id)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if resp.ComplaintID != id {
		t.Errorf("complaint id = %s, want %s", resp.ComplaintID, id)
	}
	if len(resp.Events) != 1 {
		t.Fatalf("events = %d, want 1", len(resp.Events))
	}
	got := resp.Events[0]
	if got.Title != repository.EventTitleComplaintFiled {
		t.Errorf("title = %q, want %q", got.Title, repository.EventTitleComplaintFiled)
	}
	if got.Summary == nil || *got.Summary != summary {
		t.Errorf("summary = %v, want %q", got.Summary, summary)
	}
}
