package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/yourorg/audiometry/internal/domain"
	"github.com/yourorg/audiometry/internal/observability/metrics"
	"github.com/yourorg/audiometry/internal/security/audit"
	"github.com/yourorg/audiometry/internal/service"
)

// LoginRequest carries login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse contains the issued session token
type LoginResponse struct {
	Success   bool             `json:"success"`
	Token     string           `json:"token"`
	ExpiresIn int              `json:"expires_in"`
	User      service.Identity `json:"user"`
}

// LoginHandler handles POST /login
type LoginHandler struct {
	sessions *service.SessionService
	audit    *audit.Logger
	logger   *slog.Logger
}

// NewLoginHandler creates a login handler
func NewLoginHandler(sessions *service.SessionService, auditLog *audit.Logger, logger *slog.Logger) *LoginHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoginHandler{sessions: sessions, audit: auditLog, logger: logger}
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("malformed login payload", slog.String("error", err.Error()))
		writeValidationErrors(w, "Invalid request data", []FieldError{
			{Field: "body", Message: "request body must be valid JSON"},
		})
		return
	}

	var errs []FieldError
	if req.Username == "" {
		errs = append(errs, FieldError{Field: "username", Message: "Username is required"})
	}
	if req.Password == "" {
		errs = append(errs, FieldError{Field: "password", Message: "Password is required"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, "Invalid request data", errs)
		return
	}

	sess, err := h.sessions.IssueSession(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.audit.LogLogin(r.Context(), "", "failed", "invalid credentials")
			metrics.ObserveLogin("failed")
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"success": false,
				"message": "Invalid credentials",
			})
			return
		}
		writeDomainError(w, h.logger, err)
		return
	}

	h.audit.LogLogin(r.Context(), sess.User.ID, "success", "")
	metrics.ObserveLogin("success")

	writeJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		Token:     sess.Token,
		ExpiresIn: sess.ExpiresIn,
		User:      sess.User,
	})
}
