package httpkit

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/DataCleaninghash/CustomerAII/platform/config"
	"github.com/DataCleaninghash/CustomerAII/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Gin context keys AuthRequired fills in for downstream handlers.
const (
	ContextUserIDKey = "userID"
	ContextRolesKey  = "roles"
)

const (
	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

// RequestLogger logs every request with its status and latency once the
// handler chain has finished.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		log.HTTPRequest(c.Request.Method, path, c.Writer.Status(), float64(latency.Milliseconds()), c.ClientIP())
	}
}

var securityHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"X-XSS-Protection":        "1; mode=block",
	"Referrer-Policy":         "strict-origin-when-cross-origin",
	"Content-Security-Policy": "default-src 'self'",
	"Permissions-Policy":      "geolocation=(), microphone=(), camera=()",
}

// SecurityHeaders sets the standard hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		for name, value := range securityHeaders {
			c.Header(name, value)
		}
		// HSTS only makes sense over TLS
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// IPRateLimiter keeps one token bucket per client IP.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a per-IP rate limiter with the given refill rate
// and burst size.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

func (i *IPRateLimiter) limiterFor(ip string) *rate.Limiter {
	if cached, ok := i.limiters.Load(ip); ok {
		return cached.(*rate.Limiter)
	}
	fresh, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return fresh.(*rate.Limiter)
}

// RateLimit returns middleware enforcing the per-IP budget with 429s.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if i.limiterFor(ip).Allow() {
			c.Next()
			return
		}

		if i.log != nil {
			i.log.RateLimitExceeded(ip, c.Request.URL.Path)
		}
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
	}
}

// IntakeRateLimiter is a stricter rate limiter for complaint intake and
// call-placement endpoints, which fan out to paid upstream services.
type IntakeRateLimiter struct {
	*IPRateLimiter
}

// NewIntakeRateLimiter creates a rate limiter for intake endpoints
// (10 requests per minute, burst of 5).
func NewIntakeRateLimiter(log *logger.Logger) *IntakeRateLimiter {
	return &IntakeRateLimiter{
		IPRateLimiter: NewIPRateLimiter(rate.Limit(10.0/60.0), 5, log),
	}
}

// AuthRequired returns middleware that validates JWT access tokens issued by
// the external identity service.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, roles, err := authenticate(c.GetHeader("Authorization"), cfg)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextRolesKey, roles)
		c.Next()
	}
}

// authenticate resolves a bearer token to a user id and role list.
func authenticate(authHeader string, cfg config.JWTConfig) (uuid.UUID, []string, error) {
	rawToken, ok := extractBearerToken(authHeader)
	if !ok {
		return uuid.Nil, nil, errors.New(errMissingToken)
	}

	claims, err := parseAccessClaims(rawToken, cfg)
	if err != nil {
		return uuid.Nil, nil, err
	}

	sub, _ := claims["sub"].(string)
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, nil, errors.New(errInvalidToken)
	}

	return userID, extractRoles(claims["roles"]), nil
}

// RequireRole returns middleware that rejects users without the given role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !hasRole(c, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

func hasRole(c *gin.Context, role string) bool {
	value, ok := c.Get(ContextRolesKey)
	if !ok {
		return false
	}
	roles, ok := value.([]string)
	if !ok {
		return false
	}
	for _, item := range roles {
		if item == role {
			return true
		}
	}
	return false
}

func extractRoles(value any) []string {
	switch typed := value.(type) {
	case []string:
		return typed
	case []any:
		roles := make([]string, 0, len(typed))
		for _, item := range typed {
			if text, ok := item.(string); ok {
				roles = append(roles, text)
			}
		}
		return roles
	default:
		return nil
	}
}

func extractBearerToken(authHeader string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, prefix))
	return token, token != ""
}

// parseAccessClaims verifies the signature and rejects anything that is not
// an access token, so refresh tokens cannot be replayed against the API.
func parseAccessClaims(rawToken string, cfg config.JWTConfig) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(rawToken, func(*jwt.Token) (any, error) {
		return []byte(cfg.GetJWTAccessSecret()), nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil || !parsed.Valid {
		return nil, errors.New(errInvalidToken)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New(errInvalidToken)
	}
	if tokenType, _ := claims["type"].(string); tokenType != "access" {
		return nil, errors.New(errInvalidToken)
	}

	return claims, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
