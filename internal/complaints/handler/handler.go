package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/internal/complaints/service"
	"github.com/DataCleaninghash/CustomerAII/internal/complaints/transport"
	"github.com/DataCleaninghash/CustomerAII/platform/httpkit"
	"github.com/DataCleaninghash/CustomerAII/platform/validator"
)

// Orchestration is the slice of the orchestration facade the HTTP layer
// drives. Satisfied by *complaints.Orchestrator. Call placement and the
// resolution fan-out take the operator who asked for them, so the timeline
// can say who pulled the trigger.
type Orchestration interface {
	Advance(ctx context.Context, complaintID uuid.UUID) (transport.DialogueStepResponse, error)
	SubmitAnswer(ctx context.Context, complaintID, turnID uuid.UUID, answer string) (transport.DialogueStepResponse, error)
	PlaceComplaintCall(ctx context.Context, complaintID, requestedBy uuid.UUID) (transport.QueueCallResponse, error)
	Resolve(ctx context.Context, complaintID, requestedBy uuid.UUID, req transport.ResolveComplaintRequest) (transport.ResolveComplaintResponse, error)
}

// Handler handles HTTP requests for complaints.
type Handler struct {
	svc  *service.Service
	orch Orchestration
	val  *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid complaint ID"
	msgInvalidTurnID    = "invalid turn ID"
)

// New creates a new complaints handler.
func New(svc *service.Service, orch Orchestration, val *validator.Validator) *Handler {
	return &Handler{svc: svc, orch: orch, val: val}
}

// Create files a new complaint.
// POST /api/v1/complaints
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// List retrieves a page of complaints.
// GET /api/v1/complaints
func (h *Handler) List(c *gin.Context) {
	var req transport.ListComplaintsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetByID retrieves one complaint with its dialogue turns.
// GET /api/v1/complaints/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Advance moves the clarification dialogue one step.
// POST /api/v1/complaints/:id/dialogue/advance
func (h *Handler) Advance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.orch.Advance(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SubmitAnswer records the customer's answer for a pending turn.
// POST /api/v1/complaints/:id/dialogue/turns/:turnId/answer
func (h *Handler) SubmitAnswer(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	turnID, err := uuid.Parse(c.Param("turnId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidTurnID, nil)
		return
	}

	var req transport.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.orch.SubmitAnswer(c.Request.Context(), id, turnID, req.Answer)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// PlaceCall queues the resolution call for a ready complaint.
// POST /api/v1/complaints/:id/call
func (h *Handler) PlaceCall(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.orch.PlaceComplaintCall(c.Request.Context(), id, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Accepted(c, result)
}

// Resolve fans out the requested resolution actions.
// POST /api/v1/complaints/:id/resolve
func (h *Handler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	var req transport.ResolveComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.orch.Resolve(c.Request.Context(), id, identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Timeline retrieves the audit trail for a complaint.
// GET /api/v1/complaints/:id/timeline
func (h *Handler) Timeline(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	result, err := h.svc.Timeline(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
