package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated caller as seen by handlers. It hides the
// gin context keys AuthRequired populates, so handler code never reaches
// into the framework for claims.
type Identity interface {
	// UserID returns the subject of the access token.
	UserID() uuid.UUID
	// IsAuthenticated reports whether a valid token backed this request.
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	authenticated bool
}

func (i *identity) UserID() uuid.UUID { return i.userID }

func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity reads the caller identity set by AuthRequired. On routes
// without that middleware it returns an unauthenticated identity.
func GetIdentity(c *gin.Context) Identity {
	raw, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}
	uid, ok := raw.(uuid.UUID)
	if !ok {
		return &identity{}
	}
	return &identity{userID: uid, authenticated: true}
}

// MustGetIdentity is GetIdentity for handlers that cannot proceed without a
// caller: it aborts with 401 and returns nil when unauthenticated.
func MustGetIdentity(c *gin.Context) Identity {
	if id := GetIdentity(c); id.IsAuthenticated() {
		return id
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	return nil
}
