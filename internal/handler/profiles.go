package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yourorg/audiometry/internal/domain"
	"github.com/yourorg/audiometry/internal/observability/metrics"
	"github.com/yourorg/audiometry/internal/security"
	"github.com/yourorg/audiometry/internal/security/audit"
	"github.com/yourorg/audiometry/internal/security/middleware"
	"github.com/yourorg/audiometry/pkg/cache"
)

// searchCacheTTL bounds staleness of cached search results. Profiles only
// change through explicit creates, so a short window is safe.
const searchCacheTTL = 30 * time.Second

// ProfileResponse is the wire shape of a profile
type ProfileResponse struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employee_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	DateOfBirth  string `json:"date_of_birth"`
	Department   string `json:"department"`
	LastTestDate string `json:"last_test_date"`
}

func projectProfile(p *domain.Profile) ProfileResponse {
	return ProfileResponse{
		ID:           p.ID,
		EmployeeID:   p.EmployeeID,
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		DateOfBirth:  p.DateOfBirth,
		Department:   p.Department,
		LastTestDate: p.LastTestDate,
	}
}

func projectProfiles(profiles []*domain.Profile) []ProfileResponse {
	out := make([]ProfileResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, projectProfile(p))
	}
	return out
}

// ProfilesHandler handles GET /api/{tenantId}/groups/{groupId}/profiles
type ProfilesHandler struct {
	store  domain.Store
	guard  *security.Guard
	audit  *audit.Logger
	logger *slog.Logger
}

// NewProfilesHandler creates a profiles-by-group handler
func NewProfilesHandler(store domain.Store, guard *security.Guard, auditLog *audit.Logger, logger *slog.Logger) *ProfilesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfilesHandler{store: store, guard: guard, audit: auditLog, logger: logger}
}

func (h *ProfilesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	tenantID := r.PathValue("tenantId")
	groupID := r.PathValue("groupId")
	if err := h.guard.Authorize(claims.UserID, tenantID); err != nil {
		h.audit.LogDenied(r.Context(), tenantID, claims.UserID, "profiles list")
		writeDomainError(w, h.logger, err)
		return
	}

	profiles, err := h.store.ListProfiles(tenantID, groupID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": projectProfiles(profiles)})
}

// SearchHandler handles GET /api/{tenantId}/profiles/search?q=
type SearchHandler struct {
	store  domain.Store
	guard  *security.Guard
	audit  *audit.Logger
	cache  *cache.Cache
	logger *slog.Logger
}

// NewSearchHandler creates a profile search handler
func NewSearchHandler(store domain.Store, guard *security.Guard, auditLog *audit.Logger, c *cache.Cache, logger *slog.Logger) *SearchHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchHandler{store: store, guard: guard, audit: auditLog, cache: c, logger: logger}
}

func (h *SearchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	tenantID := r.PathValue("tenantId")
	if err := h.guard.Authorize(claims.UserID, tenantID); err != nil {
		h.audit.LogDenied(r.Context(), tenantID, claims.UserID, "profile search")
		writeDomainError(w, h.logger, err)
		return
	}

	// Empty query after trimming never reaches the store
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeMessage(w, http.StatusBadRequest, "Search query parameter 'q' is required")
		return
	}

	metrics.ObserveSearch()

	key := "search:" + tenantID + ":" + strings.ToLower(query)
	if cached, ok := h.cache.Get(key); ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": cached})
		return
	}

	profiles, err := h.store.SearchProfiles(tenantID, query)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	projected := projectProfiles(profiles)
	h.cache.Set(key, projected, searchCacheTTL)

	writeJSON(w, http.StatusOK, map[string]interface{}{"profiles": projected})
}

// ProfileDetailHandler handles GET /api/{tenantId}/profiles/{profileId},
// returning the profile with its assigned test path and test history.
type ProfileDetailHandler struct {
	store  domain.Store
	guard  *security.Guard
	audit  *audit.Logger
	logger *slog.Logger
}

// NewProfileDetailHandler creates a profile detail handler
func NewProfileDetailHandler(store domain.Store, guard *security.Guard, auditLog *audit.Logger, logger *slog.Logger) *ProfileDetailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileDetailHandler{store: store, guard: guard, audit: auditLog, logger: logger}
}

// HearingTestResponse is the wire shape of a submitted test
type HearingTestResponse struct {
	ID          string              `json:"id"`
	TestDate    string              `json:"test_date"`
	TesterID    string              `json:"tester_id"`
	DeviceID    string              `json:"device_id"`
	TestType    string              `json:"test_type"`
	Results     []domain.TestResult `json:"results"`
	NextTestDue string              `json:"next_test_due"`
}

func (h *ProfileDetailHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	tenantID := r.PathValue("tenantId")
	profileID := r.PathValue("profileId")
	if err := h.guard.Authorize(claims.UserID, tenantID); err != nil {
		h.audit.LogDenied(r.Context(), tenantID, claims.UserID, "profile detail")
		writeDomainError(w, h.logger, err)
		return
	}

	profile, err := h.store.GetProfile(tenantID, profileID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	// A profile without an assigned path serves an empty step list
	steps := []domain.TestStep{}
	if path, err := h.store.GetTestPath(profileID); err == nil {
		steps = path.Steps
	}

	tests, err := h.store.ListHearingTests(profileID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	previous := make([]HearingTestResponse, 0, len(tests))
	for _, t := range tests {
		previous = append(previous, HearingTestResponse{
			ID:          t.ID,
			TestDate:    t.TestDate.Format(time.RFC3339),
			TesterID:    t.TesterID,
			DeviceID:    t.DeviceID,
			TestType:    t.TestType,
			Results:     t.Results,
			NextTestDue: t.NextTestDue,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profile":        projectProfile(profile),
		"test_path":      steps,
		"previous_tests": previous,
	})
}
