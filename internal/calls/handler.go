package calls

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/DataCleaninghash/CustomerAII/platform/httpkit"
)

const (
	msgInvalidCallID      = "invalid call record ID"
	msgInvalidComplaintID = "invalid complaint ID"
)

// Handler exposes the call record read endpoints.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetByID handles GET /api/v1/calls/:id
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidCallID, nil)
		return
	}

	detail, err := h.svc.GetCall(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, detail)
}

// ListByComplaint handles GET /api/v1/complaints/:id/calls
func (h *Handler) ListByComplaint(c *gin.Context) {
	complaintID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidComplaintID, nil)
		return
	}

	list, err := h.svc.ListForComplaint(c.Request.Context(), complaintID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, list)
}
