package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/estoquecore/estoque-backend/internal/apperr"
)

const sessionTTL = 24 * time.Hour

// Service issues and validates session tokens. Identity issuance lives
// outside the allocation core; this surface is what the core consumes:
// given a validated session, return (user id, role, permission set).
type Service interface {
	// Login verifies credentials and issues a signed session token.
	Login(ctx context.Context, email, password string) (string, error)

	// ValidateSession resolves a token into the caller's identity,
	// checking the persistent session record on every call.
	ValidateSession(ctx context.Context, token string) (*Identity, error)

	// Logout revokes the session behind the token.
	Logout(ctx context.Context, token string) error
}

type claims struct {
	jwt.StandardClaims
	SessionID string `json:"sid"`
}

type service struct {
	repo   Repository
	jwtKey []byte
}

// NewService creates the auth service with the given signing secret.
func NewService(repo Repository, jwtSecret string) Service {
	return &service{repo: repo, jwtKey: []byte(jwtSecret)}
}

func (s *service) Login(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", apperr.Validation("email and password are required")
	}
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", apperr.Authorization("invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", apperr.Authorization("invalid credentials")
	}
	if !user.IsActive || !user.IsApproved {
		return "", apperr.Authorization("account not active")
	}

	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(sessionTTL),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   user.ID.String(),
			ExpiresAt: session.ExpiresAt.Unix(),
		},
		SessionID: session.ID.String(),
	})
	signed, err := token.SignedString(s.jwtKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *service) ValidateSession(ctx context.Context, tokenString string) (*Identity, error) {
	c, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	sessionID, err := uuid.Parse(c.SessionID)
	if err != nil {
		return nil, apperr.Authorization("invalid session")
	}

	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, apperr.Authorization("invalid session")
	}
	if session.Revoked || time.Now().After(session.ExpiresAt) {
		return nil, apperr.Authorization("session expired")
	}

	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, apperr.Authorization("invalid session")
	}
	if !user.IsActive || !user.IsApproved {
		return nil, apperr.Authorization("account not active")
	}

	permissions, err := s.repo.ListPermissions(ctx, user.Role)
	if err != nil {
		return nil, fmt.Errorf("list permissions: %w", err)
	}
	return &Identity{
		UserID:      user.ID,
		Name:        user.Name,
		Role:        user.Role,
		Permissions: permissions,
	}, nil
}

func (s *service) Logout(ctx context.Context, tokenString string) error {
	c, err := s.parse(tokenString)
	if err != nil {
		return err
	}
	sessionID, err := uuid.Parse(c.SessionID)
	if err != nil {
		return apperr.Authorization("invalid session")
	}
	return s.repo.RevokeSession(ctx, sessionID)
}

func (s *service) parse(tokenString string) (*claims, error) {
	c := &claims{}
	token, err := jwt.ParseWithClaims(tokenString, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtKey, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Authorization("invalid session")
	}
	return c, nil
}
