package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yourorg/audiometry/internal/domain"
	"github.com/yourorg/audiometry/internal/observability/metrics"
	"github.com/yourorg/audiometry/internal/security"
	"github.com/yourorg/audiometry/internal/security/audit"
	"github.com/yourorg/audiometry/internal/security/middleware"
)

// TestMetadata is the submitted test envelope
type TestMetadata struct {
	TestDate string `json:"test_date"`
	TesterID string `json:"tester_id"`
	DeviceID string `json:"device_id"`
	TestType string `json:"test_type"`
}

// SubmitTestRequest is the body of POST .../tests
type SubmitTestRequest struct {
	TestMetadata TestMetadata        `json:"test_metadata"`
	Results      []domain.TestResult `json:"results"`
}

// SubmitTestHandler handles POST /api/{tenantId}/profiles/{profileId}/tests
type SubmitTestHandler struct {
	store  domain.Store
	guard  *security.Guard
	audit  *audit.Logger
	logger *slog.Logger
}

// NewSubmitTestHandler creates a test submission handler
func NewSubmitTestHandler(store domain.Store, guard *security.Guard, auditLog *audit.Logger, logger *slog.Logger) *SubmitTestHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubmitTestHandler{store: store, guard: guard, audit: auditLog, logger: logger}
}

func (h *SubmitTestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		writeMessage(w, http.StatusUnauthorized, "Access token required")
		return
	}

	tenantID := r.PathValue("tenantId")
	profileID := r.PathValue("profileId")
	if err := h.guard.Authorize(claims.UserID, tenantID); err != nil {
		h.audit.LogDenied(r.Context(), tenantID, claims.UserID, "test submission")
		writeDomainError(w, h.logger, err)
		return
	}

	// Target existence is checked before the body is validated: 404
	// semantics precede 400/201.
	if _, err := h.store.GetProfile(tenantID, profileID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	var req SubmitTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeValidationErrors(w, "Invalid test data", []FieldError{
			{Field: "body", Message: "request body must be valid JSON"},
		})
		return
	}

	testDate, errs := validateSubmission(&req)
	if len(errs) > 0 {
		metrics.ObserveSubmission("rejected")
		writeValidationErrors(w, "Invalid test data", errs)
		return
	}

	test := &domain.HearingTest{
		TenantID:  tenantID,
		ProfileID: profileID,
		TestDate:  testDate,
		TesterID:  req.TestMetadata.TesterID,
		DeviceID:  req.TestMetadata.DeviceID,
		TestType:  req.TestMetadata.TestType,
		Results:   req.Results,
	}

	if err := h.store.CreateHearingTest(test); err != nil {
		metrics.ObserveSubmission("error")
		writeDomainError(w, h.logger, err)
		return
	}

	h.audit.LogSubmission(r.Context(), tenantID, claims.UserID, test.ID, "saved")
	metrics.ObserveSubmission("saved")
	h.logger.Info("test results saved",
		slog.String("test_id", test.ID),
		slog.String("profile_id", profileID),
		slog.String("tenant_id", tenantID),
	)

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":       true,
		"test_id":       test.ID,
		"message":       "Test results saved successfully",
		"next_test_due": test.NextTestDue,
	})
}

// validateSubmission checks the submission shape and enums, collecting
// per-field errors. TestType defaults to audiometry when omitted.
func validateSubmission(req *SubmitTestRequest) (time.Time, []FieldError) {
	var errs []FieldError

	if req.TestMetadata.TesterID == "" {
		errs = append(errs, FieldError{Field: "test_metadata.tester_id", Message: "tester_id is required"})
	}
	if req.TestMetadata.DeviceID == "" {
		errs = append(errs, FieldError{Field: "test_metadata.device_id", Message: "device_id is required"})
	}
	if req.TestMetadata.TestType == "" {
		req.TestMetadata.TestType = "audiometry"
	}

	var testDate time.Time
	if req.TestMetadata.TestDate == "" {
		errs = append(errs, FieldError{Field: "test_metadata.test_date", Message: "test_date is required"})
	} else {
		parsed, err := parseTestDate(req.TestMetadata.TestDate)
		if err != nil {
			errs = append(errs, FieldError{Field: "test_metadata.test_date", Message: "test_date must be an RFC 3339 timestamp or YYYY-MM-DD date"})
		} else {
			testDate = parsed
		}
	}

	if len(req.Results) == 0 {
		errs = append(errs, FieldError{Field: "results", Message: "at least one result is required"})
	}
	for i, res := range req.Results {
		if res.Step <= 0 {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("results[%d].step", i),
				Message: "step must be a positive number",
			})
		}
		if !domain.ValidEar(res.Ear) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("results[%d].ear", i),
				Message: "ear must be one of left, right, both",
			})
		}
		if !domain.ValidResponse(res.Response) {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("results[%d].response", i),
				Message: "response must be one of heard, not_heard",
			})
		}
	}

	return testDate, errs
}

func parseTestDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}
