// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
	GetOpsNotifyEmail() string
}

// SchedulerConfig provides settings for the asynq background job system.
type SchedulerConfig interface {
	GetRedisURL() string
	GetSchedulerQueue() string
	GetWorkerConcurrency() int
}

// LLMConfig provides settings for the Moonshot chat completion API.
type LLMConfig interface {
	GetMoonshotAPIKey() string
	GetMoonshotModel() string
}

// TelephonyConfig provides settings for the voice agent provider.
type TelephonyConfig interface {
	GetTelephonyBaseURL() string
	GetTelephonyAPIKey() string
	GetTelephonyCallerID() string
	IsTelephonyEnabled() bool
}

// DialogueConfig provides tuning knobs for the question/answer dialogue.
type DialogueConfig interface {
	GetDialogueMaxQuestions() int
}

// CallPolicyConfig provides tuning knobs for call placement and monitoring.
type CallPolicyConfig interface {
	GetCallMaxRetries() int
	GetCallPollInterval() time.Duration
	GetCallMaxPollAttempts() int
	GetFallbackCallbackNumber() string
}

// StorageConfig provides settings for MinIO S3-compatible storage.
type StorageConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketCallTranscripts() string
	IsMinIOEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                        string
	HTTPAddr                   string
	DatabaseURL                string
	JWTAccessSecret            string
	CORSAllowAll               bool
	CORSOrigins                []string
	CORSAllowCreds             bool
	AppBaseURL                 string
	OpsNotifyEmail             string
	EmailEnabled               bool
	SMTPHost                   string
	SMTPPort                   int
	SMTPUsername               string
	SMTPPassword               string
	EmailFromName              string
	EmailFromAddress           string
	RedisURL                   string
	SchedulerQueue             string
	WorkerConcurrency          int
	MoonshotAPIKey             string
	MoonshotModel              string
	TelephonyBaseURL           string
	TelephonyAPIKey            string
	TelephonyCallerID          string
	DialogueMaxQuestions       int
	CallMaxRetries             int
	CallPollInterval           time.Duration
	CallMaxPollAttempts        int
	FallbackCallbackNumber     string
	MinIOEndpoint              string
	MinIOAccessKey             string
	MinIOSecretKey             string
	MinIOUseSSL                bool
	MinIOMaxFileSize           int64
	MinioBucketCallTranscripts string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string     { return c.AppBaseURL }
func (c *Config) GetOpsNotifyEmail() string { return c.OpsNotifyEmail }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetSchedulerQueue() string { return c.SchedulerQueue }
func (c *Config) GetWorkerConcurrency() int { return c.WorkerConcurrency }

// LLMConfig implementation
func (c *Config) GetMoonshotAPIKey() string { return c.MoonshotAPIKey }
func (c *Config) GetMoonshotModel() string  { return c.MoonshotModel }

// TelephonyConfig implementation
func (c *Config) GetTelephonyBaseURL() string  { return c.TelephonyBaseURL }
func (c *Config) GetTelephonyAPIKey() string   { return c.TelephonyAPIKey }
func (c *Config) GetTelephonyCallerID() string { return c.TelephonyCallerID }
func (c *Config) IsTelephonyEnabled() bool     { return c.TelephonyBaseURL != "" }

// DialogueConfig implementation
func (c *Config) GetDialogueMaxQuestions() int { return c.DialogueMaxQuestions }

// CallPolicyConfig implementation
func (c *Config) GetCallMaxRetries() int             { return c.CallMaxRetries }
func (c *Config) GetCallPollInterval() time.Duration { return c.CallPollInterval }
func (c *Config) GetCallMaxPollAttempts() int        { return c.CallMaxPollAttempts }
func (c *Config) GetFallbackCallbackNumber() string  { return c.FallbackCallbackNumber }

// StorageConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketCallTranscripts() string {
	return c.MinioBucketCallTranscripts
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                        getEnv("APP_ENV", "development"),
		HTTPAddr:                   getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                getEnv("DATABASE_URL", ""),
		JWTAccessSecret:            getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:               corsAllowAll,
		CORSOrigins:                corsOrigins,
		CORSAllowCreds:             strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:                 getEnv("APP_BASE_URL", "http://localhost:4200"),
		OpsNotifyEmail:             getEnv("OPS_NOTIFY_EMAIL", ""),
		EmailEnabled:               emailEnabled && smtpHost != "",
		SMTPHost:                   smtpHost,
		SMTPPort:                   mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:               getEnv("SMTP_USERNAME", ""),
		SMTPPassword:               getEnv("SMTP_PASSWORD", ""),
		EmailFromName:              getEnv("EMAIL_FROM_NAME", "Complaint Desk"),
		EmailFromAddress:           getEnv("EMAIL_FROM_ADDRESS", ""),
		RedisURL:                   getEnv("REDIS_URL", "redis://localhost:6379/0"),
		SchedulerQueue:             getEnv("SCHEDULER_QUEUE", "default"),
		WorkerConcurrency:          mustInt(getEnv("WORKER_CONCURRENCY", "10")),
		MoonshotAPIKey:             getEnv("MOONSHOT_API_KEY", ""),
		MoonshotModel:              getEnv("MOONSHOT_MODEL", ""),
		TelephonyBaseURL:           getEnv("TELEPHONY_BASE_URL", ""),
		TelephonyAPIKey:            getEnv("TELEPHONY_API_KEY", ""),
		TelephonyCallerID:          getEnv("TELEPHONY_CALLER_ID", ""),
		DialogueMaxQuestions:       mustInt(getEnv("DIALOGUE_MAX_QUESTIONS", "4")),
		CallMaxRetries:             mustInt(getEnv("CALL_MAX_RETRIES", "2")),
		CallPollInterval:           mustDuration(getEnv("CALL_POLL_INTERVAL", "3s")),
		CallMaxPollAttempts:        mustInt(getEnv("CALL_MAX_POLL_ATTEMPTS", "400")),
		FallbackCallbackNumber:     getEnv("FALLBACK_CALLBACK_NUMBER", ""),
		MinIOEndpoint:              getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:             getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:             getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:           mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "104857600")),
		MinioBucketCallTranscripts: getEnv("MINIO_BUCKET_CALL_TRANSCRIPTS", "call-transcripts"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if emailEnabled && smtpHost != "" && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.DialogueMaxQuestions <= 0 {
		return nil, fmt.Errorf("DIALOGUE_MAX_QUESTIONS must be positive")
	}
	if cfg.CallMaxRetries < 0 {
		return nil, fmt.Errorf("CALL_MAX_RETRIES cannot be negative")
	}
	if cfg.CallPollInterval <= 0 || cfg.CallMaxPollAttempts <= 0 {
		return nil, fmt.Errorf("CALL_POLL_INTERVAL and CALL_MAX_POLL_ATTEMPTS must be positive")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
