package service

import (
	"fmt"
	"log/slog"

	"github.com/yourorg/audiometry/internal/domain"
	"github.com/yourorg/audiometry/internal/security/auth"
	"golang.org/x/crypto/bcrypt"
)

// SessionService verifies credentials against the user table and issues
// time-bounded signed session tokens.
type SessionService struct {
	store  domain.Store
	tokens *auth.TokenManager
	logger *slog.Logger
}

// NewSessionService creates a session issuer
func NewSessionService(store domain.Store, tokens *auth.TokenManager, logger *slog.Logger) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionService{store: store, tokens: tokens, logger: logger}
}

// Identity is the public slice of a user returned alongside a token
type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Session is the result of a successful credential check
type Session struct {
	Token     string
	ExpiresIn int // seconds
	User      Identity
}

// IssueSession verifies the username/password pair and returns a signed
// token with the identity's public fields. Unknown usernames and wrong
// passwords are indistinguishable to the caller.
func (s *SessionService) IssueSession(username, password string) (*Session, error) {
	user, err := s.store.GetUserByUsername(username)
	if err != nil {
		s.logger.Info("login attempt with unknown username", slog.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("login failed with wrong password", slog.String("username", username))
		return nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.Info("session issued",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &Session{
		Token:     token,
		ExpiresIn: int(s.tokens.TTL().Seconds()),
		User:      Identity{ID: user.ID, Name: user.Name, Role: user.Role},
	}, nil
}

// VerifySession verifies a presented token and returns its claims
func (s *SessionService) VerifySession(token string) (*auth.Claims, error) {
	return s.tokens.ValidateToken(token)
}
