package service

import (
	"errors"
	"testing"
	"time"

	"github.com/yourorg/audiometry/internal/domain"
	"github.com/yourorg/audiometry/internal/repository"
	"github.com/yourorg/audiometry/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

func newSessionFixture(t *testing.T, ttl time.Duration) *SessionService {
	t.Helper()
	store := repository.NewMemoryStore(nil)
	hash, err := bcrypt.GenerateFromPassword([]byte("SecurePass123!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store.AddUser(&domain.User{
		ID:           "tester-001",
		Username:     "admin@hearingtest.com",
		PasswordHash: string(hash),
		Name:         "Dr. Sarah Johnson",
		Role:         "certified_tester",
	})
	tm := auth.NewTokenManager("test-secret", "audiometry", ttl)
	return NewSessionService(store, tm, nil)
}

func TestIssueAndVerifySession(t *testing.T) {
	s := newSessionFixture(t, time.Hour)

	sess, err := s.IssueSession("admin@hearingtest.com", "SecurePass123!")
	if err != nil {
		t.Fatalf("issue session failed: %v", err)
	}
	if sess.Token == "" {
		t.Fatalf("expected non-empty token")
	}
	if sess.ExpiresIn != 3600 {
		t.Fatalf("expected expires_in 3600, got %d", sess.ExpiresIn)
	}
	if sess.User.ID != "tester-001" || sess.User.Role != "certified_tester" {
		t.Fatalf("unexpected identity %+v", sess.User)
	}

	claims, err := s.VerifySession(sess.Token)
	if err != nil {
		t.Fatalf("verify session failed: %v", err)
	}
	if claims.UserID != "tester-001" {
		t.Fatalf("expected claims user_id tester-001, got %s", claims.UserID)
	}
	if claims.Username != "admin@hearingtest.com" {
		t.Fatalf("unexpected claims username %s", claims.Username)
	}
}

func TestIssueSessionWrongPassword(t *testing.T) {
	s := newSessionFixture(t, time.Hour)
	if _, err := s.IssueSession("admin@hearingtest.com", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestIssueSessionUnknownUsername(t *testing.T) {
	s := newSessionFixture(t, time.Hour)
	if _, err := s.IssueSession("nobody@hearingtest.com", "SecurePass123!"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	s := newSessionFixture(t, 1*time.Millisecond)

	sess, err := s.IssueSession("admin@hearingtest.com", "SecurePass123!")
	if err != nil {
		t.Fatalf("issue session failed: %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	if _, err := s.VerifySession(sess.Token); err == nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestVerifyTamperedToken(t *testing.T) {
	s := newSessionFixture(t, time.Hour)
	sess, err := s.IssueSession("admin@hearingtest.com", "SecurePass123!")
	if err != nil {
		t.Fatalf("issue session failed: %v", err)
	}
	if _, err := s.VerifySession(sess.Token + "x"); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}
}
