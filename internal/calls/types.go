package calls

import (
	"time"

	"github.com/google/uuid"
)

// Response DTOs for the call read API.

type TranscriptEntryResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type CallResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ComplaintID        uuid.UUID  `json:"complaintId"`
	ProviderCallID     *string    `json:"providerCallId,omitempty"`
	PhoneNumber        string     `json:"phoneNumber"`
	Status             string     `json:"status"`
	Resolution         *string    `json:"resolution,omitempty"`
	ReferenceNumber    *string    `json:"referenceNumber,omitempty"`
	NextSteps          []string   `json:"nextSteps"`
	DurationSeconds    int        `json:"durationSeconds"`
	CostCents          int        `json:"costCents"`
	IVRActionCount     int        `json:"ivrActionCount"`
	Error              *string    `json:"error,omitempty"`
	TranscriptArchived bool       `json:"transcriptArchived"`
	CreatedAt          time.Time  `json:"createdAt"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

type FallbackEpisodeResponse struct {
	ID            uuid.UUID         `json:"id"`
	PhoneUsed     string            `json:"phoneUsed"`
	MissingFields []string          `json:"missingFields"`
	Responses     map[string]string `json:"responses"`
	CallResumed   bool              `json:"callResumed"`
	ResumedAt     *time.Time        `json:"resumedAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}

// CallDetailResponse is the full view of one attempt: the record, its
// transcript and any fallback episodes that happened during the call.
type CallDetailResponse struct {
	CallResponse
	Transcript       []TranscriptEntryResponse `json:"transcript"`
	FallbackEpisodes []FallbackEpisodeResponse `json:"fallbackEpisodes"`
}

// CallListResponse lists the attempts for a complaint, newest first. The
// transcript is only returned on the detail view.
type CallListResponse struct {
	ComplaintID uuid.UUID      `json:"complaintId"`
	Items       []CallResponse `json:"items"`
}
