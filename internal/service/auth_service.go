package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"smiledent/internal/config"
	"smiledent/internal/database"
	"smiledent/internal/domain"
	"smiledent/internal/logging"
	"smiledent/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// AuthService checks admin credentials and manages the server-side sessions behind
// the admin cookie.
type AuthService struct {
	creds    domain.CredentialRepository
	sessions domain.SessionRepository
	secret   []byte
	ttl      time.Duration
	hashCost int
	logger   *zerolog.Logger
	now      func() time.Time
}

func NewAuthService(creds domain.CredentialRepository, sessions domain.SessionRepository, cfg config.SessionConfig, logger *zerolog.Logger) *AuthService {
	return &AuthService{
		creds:    creds,
		sessions: sessions,
		secret:   []byte(cfg.SecretKey),
		ttl:      cfg.TTL,
		hashCost: bcrypt.DefaultCost,
		logger:   logging.Component(logger, "auth"),
		now:      time.Now,
	}
}

// SeedAdmin stores the configured admin account unless the username already exists.
func (s *AuthService) SeedAdmin(ctx context.Context, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	created, err := s.creds.SeedUser(ctx, username, string(hash))
	if err != nil {
		return storageFailure("seed admin", err)
	}
	if created {
		s.logger.Info().Str("username", username).Msg("admin account created")
	}
	return nil
}

// Authenticate returns ErrAuthFailed for an unknown user and for a wrong password alike.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*models.Credential, error) {
	cred, err := s.creds.GetCredential(ctx, username)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrAuthFailed
	}
	if err != nil {
		return nil, storageFailure("authenticate", err)
	}
	if !passwordMatches(cred.Password, password) {
		return nil, ErrAuthFailed
	}
	return cred, nil
}

func isBcryptHash(stored string) bool {
	return strings.HasPrefix(stored, "$2a$") || strings.HasPrefix(stored, "$2b$") || strings.HasPrefix(stored, "$2y$")
}

// rows seeded before hashing hold the password itself
func passwordMatches(stored, password string) bool {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// Login authenticates and opens a session. The returned token is the cookie value.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *models.Session, error) {
	cred, err := s.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.Warn().Str("username", username).Err(err).Msg("admin login rejected")
		return "", nil, err
	}

	now := s.now()
	session := &models.Session{
		ID:        uuid.NewString(),
		Username:  cred.Username,
		LoggedIn:  true,
		CreatedAt: now,
	}
	claims := sessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:       session.ID,
		Subject:  cred.Username,
		IssuedAt: jwt.NewNumericDate(now),
	}}
	if s.ttl > 0 {
		session.ExpiresAt = now.Add(s.ttl)
		claims.ExpiresAt = jwt.NewNumericDate(session.ExpiresAt)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	if err := s.sessions.SetSession(ctx, session, s.ttl); err != nil {
		return "", nil, storageFailure("store session", err)
	}

	s.logger.Info().Str("username", cred.Username).Str("session_id", session.ID).Msg("admin logged in")
	return token, session, nil
}

func (s *AuthService) parseToken(token string) (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("token carries no session id")
	}
	return claims, nil
}

// RequireSession resolves the cookie token to an active session.
func (s *AuthService) RequireSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrSessionRequired
	}
	claims, err := s.parseToken(token)
	if err != nil {
		s.logger.Debug().Err(err).Msg("rejected session token")
		return nil, ErrSessionRequired
	}

	session, err := s.sessions.GetSession(ctx, claims.ID)
	if err != nil {
		return nil, storageFailure("load session", err)
	}
	if !session.Active(s.now()) {
		return nil, ErrSessionRequired
	}
	return session, nil
}

// Logout drops the session behind token. Unknown or invalid tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return nil
	}
	if err := s.sessions.DeleteSession(ctx, claims.ID); err != nil {
		return storageFailure("delete session", err)
	}
	s.logger.Info().Str("session_id", claims.ID).Str("username", claims.Subject).Msg("admin logged out")
	return nil
}
