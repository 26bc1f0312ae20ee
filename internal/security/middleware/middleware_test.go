package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yourorg/audiometry/internal/security/auth"
	"github.com/yourorg/audiometry/internal/security/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestJWTMiddlewareMissingToken(t *testing.T) {
	tm := auth.NewTokenManager("secret", "", time.Hour)
	h := JWTMiddleware(tm, discardLogger())(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tenants", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddlewareMalformedHeader(t *testing.T) {
	tm := auth.NewTokenManager("secret", "", time.Hour)
	h := JWTMiddleware(tm, discardLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	req.Header.Set("Authorization", "token-without-bearer-prefix")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestJWTMiddlewareInvalidToken(t *testing.T) {
	tm := auth.NewTokenManager("secret", "", time.Hour)
	h := JWTMiddleware(tm, discardLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestJWTMiddlewareValidTokenStoresClaims(t *testing.T) {
	tm := auth.NewTokenManager("secret", "", time.Hour)
	token, err := tm.GenerateToken("tester-001", "admin@hearingtest.com", "certified_tester")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var got *auth.Claims
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	h := JWTMiddleware(tm, discardLogger())(inner)

	req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got == nil || got.UserID != "tester-001" {
		t.Fatalf("expected claims for tester-001, got %+v", got)
	}
}

func TestJWTMiddlewareSkipsPublicPaths(t *testing.T) {
	tm := auth.NewTokenManager("secret", "", time.Hour)
	h := JWTMiddleware(tm, discardLogger())(okHandler())

	for _, path := range []string{"/login", "/api/health", "/metrics", "/readyz"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected public path to pass, got %d", path, rec.Code)
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := ratelimit.NewLimiter(2, time.Minute)
	defer limiter.Stop()
	h := RateLimitMiddleware(limiter, discardLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	req.RemoteAddr = "10.0.0.1:55000"

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rec.Code)
	}

	// a different client is not affected
	other := httptest.NewRequest(http.MethodGet, "/tenants", nil)
	other.RemoteAddr = "10.0.0.2:55000"
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", rec.Code)
	}
}
