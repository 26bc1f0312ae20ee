package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/audiometry/internal/domain"
	"github.com/yourorg/audiometry/internal/security/middleware"
)

// TenantResponse is the wire shape of a tenant
type TenantResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Active   bool   `json:"active"`
}

// TenantsHandler handles GET /tenants, listing the tenants the caller is a
// member of in membership order.
type TenantsHandler struct {
	store  domain.Store
	logger *slog.Logger
}

// NewTenantsHandler creates a tenants handler
func NewTenantsHandler(store domain.Store, logger *slog.Logger) *TenantsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TenantsHandler{store: store, logger: logger}
}

func (h *TenantsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	tenants, err := h.store.ListTenantsForUser(claims.UserID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	out := make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, TenantResponse{
			ID:       t.ID,
			Name:     t.Name,
			Industry: t.Industry,
			Active:   t.Active,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"tenants": out})
}
