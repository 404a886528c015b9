package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sanfelipe/dental-clinic-backend/internal/notify"
)

// NotificationStore is the slice of the queue repository the handlers use.
type NotificationStore interface {
	List(ctx context.Context, f notify.ListFilter) ([]notify.Notification, error)
	Reset(ctx context.Context, id uuid.UUID) (*notify.Notification, error)
	Mark(ctx context.Context, id uuid.UUID, m notify.ManualMark) (*notify.Notification, error)
}

func listNotificationsHandler(store NotificationStore, maxAttempts int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var f notify.ListFilter

		if raw := r.URL.Query().Get("status"); raw != "" {
			switch notify.Status(raw) {
			case notify.StatusPending, notify.StatusSent, notify.StatusFailed:
				f.Status = notify.Status(raw)
			default:
				writeError(w, http.StatusBadRequest, "invalid_status", "status must be pending, sent or failed")
				return
			}
		}
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
				return
			}
			f.Limit = n
		}

		list, err := store.List(r.Context(), f)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := ListResponse[NotificationResponse]{Data: make([]NotificationResponse, 0, len(list)), Total: len(list)}
		for i := range list {
			resp.Data = append(resp.Data, toNotificationResponse(&list[i], maxAttempts))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// resendNotificationHandler zeroes attempts and clears the delivery outcome:
// the only way to revive an exhausted row.
func resendNotificationHandler(store NotificationStore, maxAttempts int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		n, err := store.Reset(r.Context(), id)
		if err != nil {
			handleNotificationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toNotificationResponse(n, maxAttempts))
	}
}

// markNotificationHandler lets an operator record an out-of-band delivery
// outcome directly, bypassing the worker.
func markNotificationHandler(store NotificationStore, maxAttempts int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_notification_id", "id must be a valid UUID")
			return
		}

		var req MarkNotificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		n, err := store.Mark(r.Context(), id, notify.ManualMark{
			Sent:          req.Sent,
			ProviderMsgID: req.ProviderMsgID,
			ErrorDetail:   req.ErrorDetail,
		})
		if err != nil {
			handleNotificationError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toNotificationResponse(n, maxAttempts))
	}
}

func handleNotificationError(w http.ResponseWriter, err error) {
	if errors.Is(err, notify.ErrNotificationNotFound) {
		writeError(w, http.StatusNotFound, "notification_not_found", err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
}
