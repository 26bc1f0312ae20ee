package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/audiometry/internal/domain"
	"github.com/yourorg/audiometry/internal/security"
	"github.com/yourorg/audiometry/internal/security/audit"
	"github.com/yourorg/audiometry/internal/security/middleware"
)

// GroupResponse is the wire shape of a group
type GroupResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	EmployeeCount int    `json:"employee_count"`
	RiskLevel     string `json:"risk_level"`
}

// GroupsHandler handles GET /api/{tenantId}/groups
type GroupsHandler struct {
	store  domain.Store
	guard  *security.Guard
	audit  *audit.Logger
	logger *slog.Logger
}

// NewGroupsHandler creates a groups handler
func NewGroupsHandler(store domain.Store, guard *security.Guard, auditLog *audit.Logger, logger *slog.Logger) *GroupsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GroupsHandler{store: store, guard: guard, audit: auditLog, logger: logger}
}

func (h *GroupsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	tenantID := r.PathValue("tenantId")
	if err := h.guard.Authorize(claims.UserID, tenantID); err != nil {
		h.audit.LogDenied(r.Context(), tenantID, claims.UserID, "groups list")
		writeDomainError(w, h.logger, err)
		return
	}

	groups, err := h.store.ListGroups(tenantID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	out := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		out = append(out, GroupResponse{
			ID:            g.ID,
			Name:          g.Name,
			Description:   g.Description,
			EmployeeCount: g.EmployeeCount,
			RiskLevel:     g.RiskLevel,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"groups": out})
}
