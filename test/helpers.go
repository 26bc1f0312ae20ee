package test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/audiometry/internal/handler"
	"github.com/yourorg/audiometry/internal/repository"
	"github.com/yourorg/audiometry/internal/security"
	"github.com/yourorg/audiometry/internal/security/audit"
	"github.com/yourorg/audiometry/internal/security/auth"
	"github.com/yourorg/audiometry/internal/security/middleware"
	"github.com/yourorg/audiometry/internal/security/ratelimit"
	"github.com/yourorg/audiometry/internal/service"
	"github.com/yourorg/audiometry/pkg/cache"
)

// TestServerHelper runs the full API in process: seeded memory store, JWT
// middleware, rate limiting, and all routes wired the way the server binary
// wires them.
type TestServerHelper struct {
	Server  *httptest.Server
	Store   *repository.MemoryStore
	Limiter *ratelimit.Limiter
	Logger  *slog.Logger
}

func NewTestServer(t *testing.T) *TestServerHelper {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := repository.NewDemoStore(logger)
	if err != nil {
		t.Fatalf("seed store: %v", err)
	}

	tokenManager := auth.NewTokenManager("integration-test-secret", "", time.Hour)
	guard := security.NewGuard(store, logger)
	auditLogger := audit.NewLogger(logger)
	sessions := service.NewSessionService(store, tokenManager, logger)
	limiter := ratelimit.NewLimiter(1000, time.Minute)
	searchCache := cache.New()

	mux := http.NewServeMux()
	mux.Handle("POST /login", handler.NewLoginHandler(sessions, auditLogger, logger))
	mux.Handle("GET /tenants", handler.NewTenantsHandler(store, logger))
	mux.Handle("GET /api/{tenantId}/groups", handler.NewGroupsHandler(store, guard, auditLogger, logger))
	mux.Handle("GET /api/{tenantId}/groups/{groupId}/profiles", handler.NewProfilesHandler(store, guard, auditLogger, logger))
	mux.Handle("GET /api/{tenantId}/profiles/search", handler.NewSearchHandler(store, guard, auditLogger, searchCache, logger))
	mux.Handle("GET /api/{tenantId}/profiles/{profileId}", handler.NewProfileDetailHandler(store, guard, auditLogger, logger))
	mux.Handle("POST /api/{tenantId}/profiles/{profileId}/tests", handler.NewSubmitTestHandler(store, guard, auditLogger, logger))
	mux.Handle("GET /api/health", handler.NewHealthHandler())
	mux.Handle("GET /readyz", handler.NewReadyHandler(store, logger))

	root := middleware.JWTMiddleware(tokenManager, logger)(
		middleware.RateLimitMiddleware(limiter, logger)(mux),
	)

	server := httptest.NewServer(root)
	t.Cleanup(func() {
		server.Close()
		limiter.Stop()
	})

	return &TestServerHelper{
		Server:  server,
		Store:   store,
		Limiter: limiter,
		Logger:  logger,
	}
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// Login authenticates against the running server and returns the token
func (h *TestServerHelper) Login(t *testing.T, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(h.URL()+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login for %s: expected 200, got %d", username, resp.StatusCode)
	}
	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if result.Token == "" {
		t.Fatal("login returned empty token")
	}
	return result.Token
}

// Get performs an authenticated GET request
func (h *TestServerHelper) Get(t *testing.T, path, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, h.URL()+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// Post performs an authenticated POST request with a JSON body
func (h *TestServerHelper) Post(t *testing.T, path, token string, body []byte) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, h.URL()+path, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

// DecodeJSON reads and decodes a response body
func DecodeJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

// AssertStatusCode fails the test when the status differs
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}
