// Package session holds the signed-in provider's session: the backend token
// and the identity read from it.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no session is stored under an id.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when the stored session's token has expired.
	ErrExpired = errors.New("session expired")
	// ErrNoToken is returned when a session is started without a token.
	ErrNoToken = errors.New("backend token is required")
	// ErrInvalidToken is returned when a backend token cannot be read.
	ErrInvalidToken = errors.New("invalid backend token")
)

// Session is the signed-in provider. UserID doubles as the provider id on
// order queries.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Role      string    `json:"role,omitempty"`
	FullName  string    `json:"fullName,omitempty"`
	Email     string    `json:"email,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session has an expiry that lies before now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// backendClaims are the claims the marketplace backend puts in its tokens.
type backendClaims struct {
	UID      string `json:"uid"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// FromToken builds a new session from a backend token. The token's signature
// is not checked here; the backend verifies it on every call.
func FromToken(token string, now time.Time) (*Session, error) {
	token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
	if token == "" {
		return nil, ErrNoToken
	}

	claims := &backendClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID := claims.UID
	if userID == "" {
		userID = claims.UserID
	}
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: no user id claim", ErrInvalidToken)
	}

	s := &Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		Role:      claims.Role,
		FullName:  claims.FullName,
		Email:     claims.Email,
		Token:     token,
		CreatedAt: now,
	}
	if s.FullName == "" {
		s.FullName = claims.Name
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	if s.Expired(now) {
		return nil, ErrExpired
	}
	return s, nil
}

// Store persists sessions by id.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Put(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}
