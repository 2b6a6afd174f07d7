// Package auth issues the credentials the HTTP API accepts: HS256 bearer
// tokens and stored API keys.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"teampulse/internal/domain"
	"teampulse/internal/repo"
)

// ForbiddenError indicates the caller lacks a required role.
type ForbiddenError struct {
	Role string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("role %s required", e.Role)
}

// Claims is the token payload: subject plus granted roles.
type Claims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// Service mints tokens and manages API keys.
type Service struct {
	Repo     repo.Repo
	Secret   string
	TokenTTL time.Duration
	Now      func() time.Time
}

func (s Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// MintToken signs an HS256 token for the actor. A zero TTL falls back to
// 24 hours.
func (s Service) MintToken(actorID string, roles []string) (string, error) {
	if s.Secret == "" {
		return "", errors.New("jwt secret not configured")
	}
	if actorID == "" {
		return "", errors.New("actor_id required")
	}
	ttl := s.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := s.now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actorID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles: roles,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
}

// CreateKey stores a new API key for the actor and returns the clear key
// alongside the stored row. The clear value is available exactly once;
// only its hash is persisted.
func (s Service) CreateKey(ctx context.Context, actorID, name string) (domain.APIKey, string, error) {
	if actorID == "" {
		return domain.APIKey{}, "", errors.New("actor_id required")
	}
	if name == "" {
		name = "default"
	}
	clear := uuid.NewString()
	key := domain.APIKey{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(clear),
		CreatedAt: s.now().UTC().Format(time.RFC3339),
	}
	if err := s.Repo.InsertAPIKey(ctx, key); err != nil {
		return domain.APIKey{}, "", err
	}
	return key, clear, nil
}

// Keys lists stored keys, optionally narrowed to one actor.
func (s Service) Keys(ctx context.Context, actorID string) ([]domain.APIKey, error) {
	return s.Repo.ListAPIKeys(ctx, actorID)
}

// RevokeKey deletes a stored key.
func (s Service) RevokeKey(ctx context.Context, id string) error {
	return s.Repo.DeleteAPIKey(ctx, id)
}
