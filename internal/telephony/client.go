// Package telephony provides the HTTP client for the voice-agent provider.
// The provider runs the actual conversation; this client only places calls,
// polls their state and injects mid-call actions (DTMF, speech, hold).
package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/DataCleaninghash/CustomerAII/internal/calls"
	"github.com/DataCleaninghash/CustomerAII/internal/calls/domain"
	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

// Client talks to the voice-agent API. All requests carry bearer auth; the
// provider keys every mid-call action on the call id it returned from
// PlaceCall.
type Client struct {
	baseURL  string
	apiKey   string
	callerID string
	http     *http.Client
	log      *logger.Logger
}

type placeCallRequest struct {
	PhoneNumber string `json:"phone_number"`
	Task        string `json:"task"`
	CallerID    string `json:"caller_id,omitempty"`
}

type placeCallResponse struct {
	CallID string `json:"call_id"`
	Status string `json:"status"`
}

type transcriptEntry struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ivrInteraction struct {
	Prompt     string    `json:"prompt"`
	DetectedAt time.Time `json:"detected_at"`
}

type callStatusResponse struct {
	Status            string            `json:"status"`
	Transcript        []transcriptEntry `json:"transcript"`
	IVRInteractions   []ivrInteraction  `json:"ivr_interactions"`
	CallLengthSeconds int               `json:"call_length_seconds"`
	CostCents         int               `json:"cost_cents"`
	ErrorMessage      string            `json:"error_message"`
}

type dtmfRequest struct {
	Digits string `json:"digits"`
}

type speakRequest struct {
	Text string `json:"text"`
}

func NewClient(cfg config.TelephonyConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.GetTelephonyBaseURL(), "/"),
		apiKey:   cfg.GetTelephonyAPIKey(),
		callerID: cfg.GetTelephonyCallerID(),
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log,
	}
}

// PlaceCall asks the provider to dial the number and run the task script.
func (c *Client) PlaceCall(ctx context.Context, phoneNumber string, taskScript string) (*calls.PlacedCall, error) {
	payload := placeCallRequest{
		PhoneNumber: phoneNumber,
		Task:        taskScript,
		CallerID:    c.callerID,
	}

	var resp placeCallResponse
	if err := c.do(ctx, http.MethodPost, "/v1/calls", payload, &resp); err != nil {
		return nil, err
	}
	if resp.CallID == "" {
		return nil, fmt.Errorf("telephony: place call response carries no call id")
	}

	c.log.Info("call placed with provider", "provider_call_id", resp.CallID, "status", resp.Status)
	return &calls.PlacedCall{CallID: resp.CallID, Status: resp.Status}, nil
}

// GetCallStatus fetches the current snapshot of an in-flight call.
func (c *Client) GetCallStatus(ctx context.Context, callID string) (*calls.CallSnapshot, error) {
	var resp callStatusResponse
	if err := c.do(ctx, http.MethodGet, "/v1/calls/"+url.PathEscape(callID), nil, &resp); err != nil {
		return nil, err
	}

	snapshot := &calls.CallSnapshot{
		Status:            resp.Status,
		Transcript:        make([]domain.TranscriptEntry, 0, len(resp.Transcript)),
		IVRInteractions:   make([]domain.IVRInteraction, 0, len(resp.IVRInteractions)),
		CallLengthSeconds: resp.CallLengthSeconds,
		CostCents:         resp.CostCents,
		ErrorMessage:      resp.ErrorMessage,
	}
	for _, e := range resp.Transcript {
		snapshot.Transcript = append(snapshot.Transcript, domain.TranscriptEntry{
			Role:      e.Role,
			Content:   e.Content,
			Timestamp: e.Timestamp,
		})
	}
	for _, iv := range resp.IVRInteractions {
		snapshot.IVRInteractions = append(snapshot.IVRInteractions, domain.IVRInteraction{
			Prompt:     iv.Prompt,
			DetectedAt: iv.DetectedAt,
		})
	}
	return snapshot, nil
}

// SendDTMF presses keys on the live call.
func (c *Client) SendDTMF(ctx context.Context, callID string, digits string) error {
	return c.do(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/dtmf", dtmfRequest{Digits: digits}, nil)
}

// Speak injects an utterance for the voice agent to say on the live call.
func (c *Client) Speak(ctx context.Context, callID string, text string) error {
	return c.do(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/speak", speakRequest{Text: text}, nil)
}

// Hold parks the call.
func (c *Client) Hold(ctx context.Context, callID string) error {
	return c.do(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/hold", nil, nil)
}

// Resume takes the call off hold.
func (c *Client) Resume(ctx context.Context, callID string) error {
	return c.do(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/resume", nil, nil)
}

// EndCall hangs up.
func (c *Client) EndCall(ctx context.Context, callID string) error {
	return c.do(ctx, http.MethodPost, "/v1/calls/"+url.PathEscape(callID)+"/end", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal telephony payload: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create telephony request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("telephony request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("telephony service returned %d on %s %s: %s",
			resp.StatusCode, method, path, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode telephony response: %w", err)
	}
	return nil
}

var _ calls.TelephonyProvider = (*Client)(nil)
