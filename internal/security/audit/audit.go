package audit

import (
	"context"
	"log/slog"
	"time"
)

// Logger emits structured audit records for security-relevant actions
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, tenantID, userID, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("tenant_id", tenantID),
		slog.String("user_id", userID),
		slog.String("status", status),
		slog.String("details", details),
		slog.Time("timestamp", time.Now()),
	)
}

// LogLogin records a login attempt outcome
func (al *Logger) LogLogin(ctx context.Context, userID, status, details string) {
	al.LogAction(ctx, "", userID, "login", "session", "", status, details)
}

// LogSubmission records a hearing-test submission
func (al *Logger) LogSubmission(ctx context.Context, tenantID, userID, testID, status string) {
	al.LogAction(ctx, tenantID, userID, "submit_test", "hearing_test", testID, status, "")
}

// LogDenied records a tenant access denial
func (al *Logger) LogDenied(ctx context.Context, tenantID, userID, reason string) {
	al.LogAction(ctx, tenantID, userID, "access_denied", "api", "", "denied", reason)
}
