package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/audiometry/internal/domain"
)

// Version is the reported API version
const Version = "1.0.0"

// HealthHandler handles GET /api/health, the unauthenticated liveness check
type HealthHandler struct{}

// NewHealthHandler creates a health handler
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "operational",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   Version,
	})
}

// ReadyHandler handles GET /readyz. It fails when the backing store is
// unreachable, which only happens with the postgres driver.
type ReadyHandler struct {
	store  domain.Store
	logger *slog.Logger
}

// NewReadyHandler creates a readiness handler
func NewReadyHandler(store domain.Store, logger *slog.Logger) *ReadyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadyHandler{store: store, logger: logger}
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("store not ready", slog.String("error", err.Error()))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
