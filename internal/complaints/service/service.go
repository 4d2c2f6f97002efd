// Package service implements intake and read operations for complaints.
// Dialogue progression and call placement live on the orchestration facade
// one package up.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/repository"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/transport"
	"github.com/DataCleaninghash/CustomerAII/internal/events"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
	"github.com/DataCleaninghash/CustomerAII/platform/phone"
	"github.com/DataCleaninghash/CustomerAII/platform/sanitize"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service struct {
	repo repository.ComplaintsRepository
	bus  events.Bus
	log  *logger.Logger
}

func New(repo repository.ComplaintsRepository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// Create files a new complaint and announces it on the bus so the intake
// classifier picks it up. The response carries the complaint in intake state;
// classification happens asynchronously.
func (s *Service) Create(ctx context.Context, req transport.CreateComplaintRequest) (transport.ComplaintResponse, error) {
	params := repository.CreateComplaintParams{
		CompanyName:   sanitize.Line(req.CompanyName),
		ComplaintText: sanitize.Text(req.ComplaintText),
		CustomerName:  sanitize.Line(req.CustomerName),
		CustomerEmail: strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
	}
	if strings.TrimSpace(req.CustomerPhone) != "" {
		// A bad number stored now would surface much later as a fallback
		// callback failure, so intake rejects it outright.
		normalized, err := phone.ValidateE164(req.CustomerPhone)
		if err != nil {
			return transport.ComplaintResponse{}, apperr.Wrap(apperr.KindValidation, "customer phone must be a dialable number", err)
		}
		params.CustomerPhone = normalized
	}

	complaint, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.ComplaintResponse{}, err
	}

	if _, tlErr := s.repo.CreateTimelineEvent(ctx, repository.CreateTimelineEventParams{
		ComplaintID: complaint.ID,
		ActorType:   repository.ActorTypeCustomer,
		ActorName:   complaint.Customer.Name,
		EventType:   repository.EventTypeIntake,
		Title:       repository.EventTitleComplaintFiled,
		Summary:     repository.TruncateSummary(complaint.ComplaintText, repository.TimelineSummaryMaxLen),
		Metadata:    map[string]any{"company_name": complaint.CompanyName},
	}); tlErr != nil {
		s.log.Warn("failed to record intake timeline event", "complaint_id", complaint.ID.String(), "error", tlErr)
	}

	s.bus.Publish(ctx, events.ComplaintCreated{
		BaseEvent:     events.NewBaseEvent(),
		ComplaintID:   complaint.ID,
		CompanyName:   complaint.CompanyName,
		CustomerName:  complaint.Customer.Name,
		CustomerEmail: complaint.Customer.Email,
		CustomerPhone: complaint.Customer.Phone,
	})

	return toComplaintResponse(complaint), nil
}

// GetByID returns the complaint with its full dialogue history.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.ComplaintDetailResponse, error) {
	complaint, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.ComplaintDetailResponse{}, mapRepoError(err)
	}

	turns, err := s.repo.ListTurns(ctx, id)
	if err != nil {
		return transport.ComplaintDetailResponse{}, err
	}

	return transport.ComplaintDetailResponse{
		ComplaintResponse: toComplaintResponse(complaint),
		Turns:             toTurnResponses(turns),
	}, nil
}

// List returns a page of complaints, newest first.
func (s *Service) List(ctx context.Context, req transport.ListComplaintsRequest) (transport.ComplaintListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	complaints, total, err := s.repo.List(ctx, repository.ListParams{
		Status:  req.Status,
		Company: strings.TrimSpace(req.Company),
		Limit:   pageSize,
		Offset:  (page - 1) * pageSize,
	})
	if err != nil {
		return transport.ComplaintListResponse{}, err
	}

	items := make([]transport.ComplaintResponse, 0, len(complaints))
	for _, c := range complaints {
		items = append(items, toComplaintResponse(c))
	}

	totalPages := (total + pageSize - 1) / pageSize
	return transport.ComplaintListResponse{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Timeline returns the audit trail for a complaint, oldest first.
func (s *Service) Timeline(ctx context.Context, id uuid.UUID) (transport.TimelineResponse, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return transport.TimelineResponse{}, mapRepoError(err)
	}

	rows, err := s.repo.ListTimelineEvents(ctx, id)
	if err != nil {
		return transport.TimelineResponse{}, err
	}

	events := make([]transport.TimelineEventResponse, 0, len(rows))
	for _, e := range rows {
		events = append(events, transport.TimelineEventResponse{
			ID:        e.ID,
			ActorType: e.ActorType,
			ActorName: e.ActorName,
			EventType: e.EventType,
			Title:     e.Title,
			Summary:   e.Summary,
			CreatedAt: e.CreatedAt,
		})
	}

	return transport.TimelineResponse{ComplaintID: id, Events: events}, nil
}

func mapRepoError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("complaint not found")
	}
	return err
}

func toComplaintResponse(c domain.Complaint) transport.ComplaintResponse {
	resp := transport.ComplaintResponse{
		ID:            c.ID,
		Status:        string(c.Status),
		CompanyName:   c.CompanyName,
		ComplaintText: c.ComplaintText,
		Customer: transport.CustomerResponse{
			Name:  c.Customer.Name,
			Email: c.Customer.Email,
			Phone: c.Customer.Phone,
		},
		MissingFields:    c.MissingFields,
		ExtractedFields:  c.ExtractedFields,
		Confidence:       c.Confidence,
		DialogueComplete: c.DialogueComplete,
		CallRetries:      c.CallRetries,
		Resolution:       c.Resolution,
		ReferenceNumber:  c.ReferenceNumber,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}

	if c.Classification.Category != "" {
		resp.Classification = &transport.ClassificationResponse{
			Category: c.Classification.Category,
			Product:  c.Classification.Product,
			Severity: c.Classification.Severity,
			Summary:  c.Classification.Summary,
		}
	}

	return resp
}

func toTurnResponses(turns []domain.ConversationTurn) []transport.TurnResponse {
	out := make([]transport.TurnResponse, 0, len(turns))
	for _, t := range turns {
		out = append(out, toTurnResponse(t))
	}
	return out
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
