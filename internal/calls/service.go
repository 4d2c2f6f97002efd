package calls

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
	"github.com/DataCleaninghash/CustomerAII/internal/calls/repository"
	"github.com/DataCleaninghash/CustomerAII/platform/apperr"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// CallReader is the slice of the repository the read API needs.
type CallReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*repository.CallRecord, error)
	ListByComplaint(ctx context.Context, complaintID uuid.UUID) ([]repository.CallRecord, error)
	ListFallbackEpisodes(ctx context.Context, callRecordID uuid.UUID) ([]repository.FallbackEpisode, error)
}

// Service serves the read side of call records. Writes happen on the worker
// through the executor; the API only ever observes.
type Service struct {
	records CallReader
	log     *logger.Logger
}

func NewService(records CallReader, log *logger.Logger) *Service {
	return &Service{records: records, log: log}
}

// GetCall returns one attempt with its transcript and fallback episodes.
func (s *Service) GetCall(ctx context.Context, id uuid.UUID) (CallDetailResponse, error) {
	record, err := s.records.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return CallDetailResponse{}, apperr.NotFound("call record not found")
		}
		return CallDetailResponse{}, err
	}

	episodes, err := s.records.ListFallbackEpisodes(ctx, id)
	if err != nil {
		return CallDetailResponse{}, err
	}

	detail := CallDetailResponse{
		CallResponse:     toCallResponse(record),
		Transcript:       toTranscriptResponses(record.Transcript),
		FallbackEpisodes: toEpisodeResponses(episodes),
	}
	return detail, nil
}

// ListForComplaint returns every attempt for a complaint, newest first.
func (s *Service) ListForComplaint(ctx context.Context, complaintID uuid.UUID) (CallListResponse, error) {
	records, err := s.records.ListByComplaint(ctx, complaintID)
	if err != nil {
		return CallListResponse{}, err
	}

	items := make([]CallResponse, 0, len(records))
	for i := range records {
		items = append(items, toCallResponse(&records[i]))
	}
	return CallListResponse{ComplaintID: complaintID, Items: items}, nil
}

func toCallResponse(r *repository.CallRecord) CallResponse {
	return CallResponse{
		ID:                 r.ID,
		ComplaintID:        r.ComplaintID,
		ProviderCallID:     r.ProviderCallID,
		PhoneNumber:        r.PhoneNumber,
		Status:             string(r.Status),
		Resolution:         r.Resolution,
		ReferenceNumber:    r.ReferenceNumber,
		NextSteps:          r.NextSteps,
		DurationSeconds:    r.DurationSeconds,
		CostCents:          r.CostCents,
		IVRActionCount:     r.IVRActionCount,
		Error:              r.Error,
		TranscriptArchived: r.TranscriptObjectKey != nil,
		CreatedAt:          r.CreatedAt,
		CompletedAt:        r.CompletedAt,
	}
}

func toTranscriptResponses(entries []domain.TranscriptEntry) []TranscriptEntryResponse {
	out := make([]TranscriptEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, TranscriptEntryResponse{
			Role:      e.Role,
			Content:   e.Content,
			Timestamp: e.Timestamp,
		})
	}
	return out
}

func toEpisodeResponses(episodes []repository.FallbackEpisode) []FallbackEpisodeResponse {
	out := make([]FallbackEpisodeResponse, 0, len(episodes))
	for _, ep := range episodes {
		out = append(out, FallbackEpisodeResponse{
			ID:            ep.ID,
			PhoneUsed:     ep.PhoneUsed,
			MissingFields: ep.MissingFields,
			Responses:     ep.Responses,
			CallResumed:   ep.CallResumed,
			ResumedAt:     ep.ResumedAt,
			CreatedAt:     ep.CreatedAt,
		})
	}
	return out
}
