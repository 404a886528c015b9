package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanfelipe/dental-clinic-backend/internal/auth"
)

type stubSessions struct {
	token   uuid.UUID
	userID  uuid.UUID
	err     error
	lastTTL time.Duration
}

func (s *stubSessions) Issue(_ context.Context, _ uuid.UUID, ttl time.Duration) (uuid.UUID, error) {
	s.lastTTL = ttl
	return s.token, s.err
}

func (s *stubSessions) Validate(_ context.Context, _ uuid.UUID) (uuid.UUID, error) {
	return s.userID, s.err
}

func (s *stubSessions) Revoke(_ context.Context, _ uuid.UUID) error {
	return s.err
}

func TestCreateSession(t *testing.T) {
	store := &stubSessions{token: uuid.New()}
	router := newTestRouterWithSessions(&stubService{}, &stubNotifications{}, &stubPatients{}, store)

	userID := uuid.New()
	rec := doJSON(t, router, http.MethodPost, "/auth/sessions", CreateSessionRequest{
		UserID:     userID.String(),
		TTLSeconds: 3600,
	}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, store.token, resp.Token)
	assert.Equal(t, userID, resp.UserID)
	assert.Equal(t, time.Hour, store.lastTTL)

	// No TTL supplied: the default applies.
	rec = doJSON(t, router, http.MethodPost, "/auth/sessions", CreateSessionRequest{UserID: userID.String()}, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, defaultSessionTTL, store.lastTTL)

	rec = doJSON(t, router, http.MethodPost, "/auth/sessions", CreateSessionRequest{UserID: "nope"}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateSession(t *testing.T) {
	store := &stubSessions{userID: uuid.New()}
	router := newTestRouterWithSessions(&stubService{}, &stubNotifications{}, &stubPatients{}, store)

	rec := doJSON(t, router, http.MethodGet, "/auth/sessions/"+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, store.userID, resp.UserID)

	rec = doJSON(t, router, http.MethodGet, "/auth/sessions/not-a-uuid", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{auth.ErrTokenNotFound, http.StatusNotFound, "session_not_found"},
		{auth.ErrTokenExpired, http.StatusUnauthorized, "session_expired"},
		{auth.ErrTokenRevoked, http.StatusUnauthorized, "session_revoked"},
		{assert.AnError, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			router := newTestRouterWithSessions(&stubService{}, &stubNotifications{}, &stubPatients{}, &stubSessions{err: tt.err})

			rec := doJSON(t, router, http.MethodGet, "/auth/sessions/"+uuid.NewString(), nil, nil)
			require.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error)
		})
	}
}

func TestRevokeSession(t *testing.T) {
	router := newTestRouterWithSessions(&stubService{}, &stubNotifications{}, &stubPatients{}, &stubSessions{})

	rec := doJSON(t, router, http.MethodDelete, "/auth/sessions/"+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	router = newTestRouterWithSessions(&stubService{}, &stubNotifications{}, &stubPatients{}, &stubSessions{err: auth.ErrTokenNotFound})
	rec = doJSON(t, router, http.MethodDelete, "/auth/sessions/"+uuid.NewString(), nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
