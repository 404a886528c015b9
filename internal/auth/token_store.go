package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrTokenNotFound = errors.New("refresh token not found")
	ErrTokenExpired  = errors.New("refresh token expired")
	ErrTokenRevoked  = errors.New("refresh token revoked")
)

// TokenStore keeps issued refresh tokens in the database so every server
// instance sees the same set. Tokens are opaque; verification of the access
// credentials they refresh happens upstream.
type TokenStore struct {
	pool *pgxpool.Pool
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

// Issue stores a new token for the user and returns it.
func (s *TokenStore) Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (uuid.UUID, error) {
	token := uuid.New()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, now())
	`, token, userID, time.Now().Add(ttl))
	if err != nil {
		return uuid.Nil, fmt.Errorf("issue refresh token: %w", err)
	}

	return token, nil
}

// Validate returns the owning user id for a live token.
func (s *TokenStore) Validate(ctx context.Context, token uuid.UUID) (uuid.UUID, error) {
	var userID uuid.UUID
	var expiresAt time.Time
	var revokedAt *time.Time

	err := s.pool.QueryRow(ctx, `
		SELECT user_id, expires_at, revoked_at
		FROM refresh_tokens
		WHERE token = $1
	`, token).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrTokenNotFound
		}
		return uuid.Nil, fmt.Errorf("load refresh token: %w", err)
	}

	if revokedAt != nil {
		return uuid.Nil, ErrTokenRevoked
	}
	if time.Now().After(expiresAt) {
		return uuid.Nil, ErrTokenExpired
	}

	return userID, nil
}

// Revoke marks the token unusable. Revoking an already revoked token is a
// no-op; a missing token is an error.
func (s *TokenStore) Revoke(ctx context.Context, token uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = COALESCE(revoked_at, now())
		WHERE token = $1
	`, token)
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}
