// Package httpkit holds the HTTP plumbing shared by every module: response
// shaping, auth middleware and rate limiting. No business logic lives here.
package httpkit

import (
	"errors"
	"net/http"

	"github.com/DataCleaninghash/CustomerAII/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the error body every endpoint returns.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details,omitempty"`
}

// JSON writes payload with an explicit status code.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Error writes an ErrorResponse with the given status and message.
func Error(c *gin.Context, status int, message string, details interface{}) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK writes payload with 200.
func OK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Created writes payload with 201, for intake endpoints that made a record.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

// Accepted writes payload with 202, for endpoints that queued background
// work, such as call placement, where the outcome arrives later.
func Accepted(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusAccepted, payload)
}

// HandleError writes the response for a failed operation and reports whether
// it did. Typed errors choose their status through their kind; anything
// untyped is treated as a bad request rather than leaking internals with a
// blanket 500.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{Error: domainErr.Message})
		return true
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	return true
}
