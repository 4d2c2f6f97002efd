package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/DataCleaninghash/CustomerAII/platform/logger"
)

type testJWTConfig struct {
	secret string
}

func (c testJWTConfig) GetJWTAccessSecret() string { return c.secret }

const testSecret = "test-access-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func accessClaims(sub string, roles ...string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":   sub,
		"type":  "access",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
}

// newAuthEngine mounts a probe route behind AuthRequired that echoes the
// resolved identity.
func newAuthEngine(cfg testJWTConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.GET("/probe", AuthRequired(cfg), func(c *gin.Context) {
		identity := MustGetIdentity(c)
		if identity == nil {
			return
		}
		OK(c, gin.H{"userId": identity.UserID().String()})
	})
	return engine
}

func doRequest(engine *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthRequiredAcceptsAccessToken(t *testing.T) {
	userID := uuid.New()
	engine := newAuthEngine(testJWTConfig{secret: testSecret})

	token := signToken(t, testSecret, accessClaims(userID.String(), "ops"))
	w := doRequest(engine, "Bearer "+token)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if body.UserID != userID.String() {
		t.Errorf("userId = %q, want %q", body.UserID, userID)
	}
}

func TestAuthRequiredRejectsBadTokens(t *testing.T) {
	userID := uuid.New().String()
	engine := newAuthEngine(testJWTConfig{secret: testSecret})

	expired := accessClaims(userID)
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	refresh := accessClaims(userID)
	refresh["type"] = "refresh"

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"not bearer", "Basic abc"},
		{"empty bearer", "Bearer   "},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", accessClaims(userID))},
		{"expired", "Bearer " + signToken(t, testSecret, expired)},
		{"refresh token", "Bearer " + signToken(t, testSecret, refresh)},
		{"sub not a uuid", "Bearer " + signToken(t, testSecret, accessClaims("not-a-uuid"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doRequest(engine, tt.header); w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		roles      any
		wantStatus int
	}{
		{"has role", []string{"support", "ops"}, http.StatusOK},
		{"lacks role", []string{"support"}, http.StatusForbidden},
		{"no roles set", nil, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gin.SetMode(gin.TestMode)
			engine := gin.New()
			engine.GET("/probe", func(c *gin.Context) {
				if tt.roles != nil {
					c.Set(ContextRolesKey, tt.roles)
				}
			}, RequireRole("ops"), func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			if w := doRequest(engine, ""); w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimitEnforcesBurst(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	limiter := NewIPRateLimiter(rate.Limit(0.01), 2, logger.New("development"))
	engine.Use(limiter.RateLimit())
	engine.GET("/probe", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		if w := doRequest(engine, ""); w.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, w.Code)
		}
	}
	if w := doRequest(engine, ""); w.Code != http.StatusTooManyRequests {
		t.Errorf("status after burst = %d, want 429", w.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(SecurityHeaders())
	engine.GET("/probe", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doRequest(engine, "")

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := w.Header().Get("Content-Security-Policy"); got != "default-src 'self'" {
		t.Errorf("Content-Security-Policy = %q, want default-src 'self'", got)
	}
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS = %q, want unset without TLS", got)
	}
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{"Bearer abc123", "abc123", true},
		{"Bearer  padded ", "padded", true},
		{"Bearer ", "", false},
		{"bearer abc", "", false},
		{"", "", false},
		{"abc123", "", false},
	}

	for _, tt := range tests {
		got, ok := extractBearerToken(tt.header)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("extractBearerToken(%q) = (%q, %v), want (%q, %v)", tt.header, got, ok, tt.want, tt.wantOK)
		}
	}
}
