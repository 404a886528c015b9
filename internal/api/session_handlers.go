package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sanfelipe/dental-clinic-backend/internal/auth"
)

const defaultSessionTTL = 30 * 24 * time.Hour

// SessionStore is the refresh-token lifecycle the handlers use. Credential
// verification happens upstream; these endpoints manage tokens for users
// the proxy has already authenticated.
type SessionStore interface {
	Issue(ctx context.Context, userID uuid.UUID, ttl time.Duration) (uuid.UUID, error)
	Validate(ctx context.Context, token uuid.UUID) (uuid.UUID, error)
	Revoke(ctx context.Context, token uuid.UUID) error
}

type CreateSessionRequest struct {
	UserID     string `json:"user_id"`
	TTLSeconds int    `json:"ttl_seconds,omitempty"`
}

type SessionResponse struct {
	Token  uuid.UUID `json:"token"`
	UserID uuid.UUID `json:"user_id"`
}

func createSessionHandler(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		userID, err := uuid.Parse(req.UserID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid UUID")
			return
		}

		ttl := defaultSessionTTL
		if req.TTLSeconds > 0 {
			ttl = time.Duration(req.TTLSeconds) * time.Second
		}

		token, err := store.Issue(r.Context(), userID, ttl)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		writeJSON(w, http.StatusCreated, SessionResponse{Token: token, UserID: userID})
	}
}

func validateSessionHandler(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := uuid.Parse(chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_token", "token must be a valid UUID")
			return
		}

		userID, err := store.Validate(r.Context(), token)
		if err != nil {
			handleSessionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SessionResponse{Token: token, UserID: userID})
	}
}

func revokeSessionHandler(store SessionStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := uuid.Parse(chi.URLParam(r, "token"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_session_token", "token must be a valid UUID")
			return
		}

		if err := store.Revoke(r.Context(), token); err != nil {
			handleSessionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"revoked": true, "token": token})
	}
}

func handleSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, auth.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, "session_expired", err.Error())
	case errors.Is(err, auth.ErrTokenRevoked):
		writeError(w, http.StatusUnauthorized, "session_revoked", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
