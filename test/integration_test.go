package test

import (
	"net/http"
	"testing"
)

const (
	adminUser = "admin@hearingtest.com"
	adminPass = "SecurePass123!"
	auditUser = "audit@hearingtest.com"
	auditPass = "AuditPass456!"
)

// TestHealthEndpoint is reachable without a token
func TestHealthEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp, err := http.Get(server.URL() + "/api/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	AssertStatusCode(t, resp, http.StatusOK)

	body := DecodeJSON(t, resp)
	if body["status"] != "operational" {
		t.Errorf("expected operational status, got %v", body["status"])
	}
}

func TestReadinessEndpoint(t *testing.T) {
	server := NewTestServer(t)

	resp, err := http.Get(server.URL() + "/readyz")
	if err != nil {
		t.Fatalf("readiness check failed: %v", err)
	}
	AssertStatusCode(t, resp, http.StatusOK)
	if DecodeJSON(t, resp)["status"] != "ready" {
		t.Errorf("expected ready status")
	}
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	server := NewTestServer(t)

	resp := server.Get(t, "/tenants", "")
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	if DecodeJSON(t, resp)["message"] != "Access token required" {
		t.Errorf("unexpected 401 message")
	}
}

func TestProtectedRouteWithGarbageToken(t *testing.T) {
	server := NewTestServer(t)

	resp := server.Get(t, "/tenants", "not-a-real-token")
	AssertStatusCode(t, resp, http.StatusForbidden)
	if DecodeJSON(t, resp)["message"] != "Invalid or expired token" {
		t.Errorf("unexpected 403 message")
	}
}

// TestTesterWorkflow walks the primary flow: login, list tenants, list
// groups, drill into a profile, submit a test, see it in the history.
func TestTesterWorkflow(t *testing.T) {
	server := NewTestServer(t)
	token := server.Login(t, adminUser, adminPass)

	// tenants
	resp := server.Get(t, "/tenants", token)
	AssertStatusCode(t, resp, http.StatusOK)
	tenants := DecodeJSON(t, resp)["tenants"].([]interface{})
	if len(tenants) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(tenants))
	}

	// groups under the first tenant
	resp = server.Get(t, "/api/acme-corp/groups", token)
	AssertStatusCode(t, resp, http.StatusOK)
	groups := DecodeJSON(t, resp)["groups"].([]interface{})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}

	// profiles in a group
	resp = server.Get(t, "/api/acme-corp/groups/factory-floor/profiles", token)
	AssertStatusCode(t, resp, http.StatusOK)
	profiles := DecodeJSON(t, resp)["profiles"].([]interface{})
	if len(profiles) != 2 {
		t.Fatalf("expected 2 profiles, got %d", len(profiles))
	}

	// profile detail carries the assigned test path
	resp = server.Get(t, "/api/acme-corp/profiles/emp-001", token)
	AssertStatusCode(t, resp, http.StatusOK)
	detail := DecodeJSON(t, resp)
	if len(detail["test_path"].([]interface{})) != 8 {
		t.Fatalf("expected 8 test path steps")
	}
	if len(detail["previous_tests"].([]interface{})) != 0 {
		t.Fatalf("expected no previous tests before submission")
	}

	// submit results
	submission := []byte(`{
		"test_metadata": {
			"test_date": "2024-03-01T10:30:00Z",
			"tester_id": "tester-001",
			"device_id": "audiometer-42"
		},
		"results": [
			{"step": 1, "frequency_hz": 500, "decibel_db": 25, "ear": "left", "response": "heard"},
			{"step": 2, "frequency_hz": 1000, "decibel_db": 25, "ear": "right", "response": "not_heard"}
		]
	}`)
	resp = server.Post(t, "/api/acme-corp/profiles/emp-001/tests", token, submission)
	AssertStatusCode(t, resp, http.StatusCreated)
	created := DecodeJSON(t, resp)
	if created["success"] != true || created["test_id"] == nil {
		t.Fatalf("unexpected creation response: %v", created)
	}
	if created["next_test_due"] == "" || created["next_test_due"] == nil {
		t.Fatalf("expected a next_test_due date")
	}

	// the submission shows up in the profile history
	resp = server.Get(t, "/api/acme-corp/profiles/emp-001", token)
	AssertStatusCode(t, resp, http.StatusOK)
	detail = DecodeJSON(t, resp)
	previous := detail["previous_tests"].([]interface{})
	if len(previous) != 1 {
		t.Fatalf("expected 1 previous test, got %d", len(previous))
	}
	first := previous[0].(map[string]interface{})
	if first["id"] != created["test_id"] {
		t.Fatalf("history does not contain the submitted test")
	}
}

// TestCrossTenantAccessDenied uses a tester who belongs to one tenant only
func TestCrossTenantAccessDenied(t *testing.T) {
	server := NewTestServer(t)
	token := server.Login(t, auditUser, auditPass)

	resp := server.Get(t, "/api/tech-solutions/groups", token)
	AssertStatusCode(t, resp, http.StatusForbidden)
	if DecodeJSON(t, resp)["message"] != "Access denied to this tenant" {
		t.Errorf("unexpected denial message")
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	server := NewTestServer(t)
	token := server.Login(t, adminUser, adminPass)

	resp := server.Get(t, "/api/acme-corp/profiles/search?q=", token)
	AssertStatusCode(t, resp, http.StatusBadRequest)
}

func TestSearchFindsSeededProfile(t *testing.T) {
	server := NewTestServer(t)
	token := server.Login(t, adminUser, adminPass)

	resp := server.Get(t, "/api/acme-corp/profiles/search?q=john", token)
	AssertStatusCode(t, resp, http.StatusOK)
	profiles := DecodeJSON(t, resp)["profiles"].([]interface{})
	if len(profiles) != 1 {
		t.Fatalf("expected 1 match, got %d", len(profiles))
	}
	if profiles[0].(map[string]interface{})["id"] != "emp-001" {
		t.Fatalf("unexpected search match")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := NewTestServer(t)

	resp := server.Post(t, "/login", "", []byte(`{"username":"admin@hearingtest.com","password":"nope"}`))
	AssertStatusCode(t, resp, http.StatusUnauthorized)
	body := DecodeJSON(t, resp)
	if body["success"] != false || body["message"] != "Invalid credentials" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestUnknownProfileIs404(t *testing.T) {
	server := NewTestServer(t)
	token := server.Login(t, adminUser, adminPass)

	resp := server.Get(t, "/api/acme-corp/profiles/emp-999", token)
	AssertStatusCode(t, resp, http.StatusNotFound)
}

func TestSubmitToUnknownProfileIs404BeforeValidation(t *testing.T) {
	server := NewTestServer(t)
	token := server.Login(t, adminUser, adminPass)

	// body would fail validation; the missing target must answer first
	resp := server.Post(t, "/api/acme-corp/profiles/emp-999/tests", token, []byte(`{}`))
	AssertStatusCode(t, resp, http.StatusNotFound)
}
