package contacts

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/DataCleaninghash/CustomerAII/platform/httpkit"
	"github.com/DataCleaninghash/CustomerAII/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgMissingCompany   = "company name is required"
)

// Handler exposes the internal contact directory endpoints.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// GetEntry handles GET /api/v1/internal/contacts/:company
func (h *Handler) GetEntry(c *gin.Context) {
	company := strings.TrimSpace(c.Param("company"))
	if company == "" {
		httpkit.Error(c, http.StatusBadRequest, msgMissingCompany, nil)
		return
	}

	result, err := h.svc.GetEntry(c.Request.Context(), company)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpsertEntry handles PUT /api/v1/internal/contacts/:company
func (h *Handler) UpsertEntry(c *gin.Context) {
	company := strings.TrimSpace(c.Param("company"))
	if company == "" {
		httpkit.Error(c, http.StatusBadRequest, msgMissingCompany, nil)
		return
	}

	var req UpsertContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpsertEntry(c.Request.Context(), company, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
