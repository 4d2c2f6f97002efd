// Package logger wraps slog with the event helpers the engine logs with.
// Development gets readable text at debug level, everything else JSON at
// info, so log aggregation never has to parse two formats.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

type Logger struct {
	*slog.Logger
}

func New(env string) *Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// HTTPRequest logs one served request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// DialogueEvent logs dialogue lifecycle steps: question asked, answer
// recorded, dialogue ready.
func (l *Logger) DialogueEvent(event, complaintID string, questionCount int, confidence float64) {
	l.Info("dialogue_event",
		slog.String("event", event),
		slog.String("complaint_id", complaintID),
		slog.Int("question_count", questionCount),
		slog.Float64("confidence", confidence),
	)
}

// CallEvent logs call state machine transitions.
func (l *Logger) CallEvent(event, callID, complaintID, state string) {
	l.Info("call_event",
		slog.String("event", event),
		slog.String("call_id", callID),
		slog.String("complaint_id", complaintID),
		slog.String("state", state),
	)
}

// CallFailure logs a terminal call failure with the attempt count that led
// there.
func (l *Logger) CallFailure(callID, complaintID string, attempts int, err error) {
	l.Error("call_failed",
		slog.String("call_id", callID),
		slog.String("complaint_id", complaintID),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
