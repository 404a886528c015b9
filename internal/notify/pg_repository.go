package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const notificationColumns = `id, appointment_id, phone, message, status, attempts, scheduled_for,
		provider_msg_id, error_detail, sent_at, created_by, created_at, updated_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification

	err := row.Scan(
		&n.ID,
		&n.AppointmentID,
		&n.Phone,
		&n.Message,
		&n.Status,
		&n.Attempts,
		&n.ScheduledFor,
		&n.ProviderMsgID,
		&n.ErrorDetail,
		&n.SentAt,
		&n.CreatedBy,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}

	return &n, nil
}

func (r *PgRepository) Create(ctx context.Context, n Notification) (*Notification, error) {
	id := n.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO notifications (id, appointment_id, phone, message, status, attempts, scheduled_for, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 'pending', 0, $5, $6, now(), now())
		RETURNING `+notificationColumns+`
	`, id, n.AppointmentID, n.Phone, n.Message, n.ScheduledFor, n.CreatedBy)

	return scanNotification(row)
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+notificationColumns+`
		FROM notifications
		WHERE id = $1
	`, id)
	return scanNotification(row)
}

func (r *PgRepository) List(ctx context.Context, f ListFilter) ([]Notification, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var (
		rows pgx.Rows
		err  error
	)
	if f.Status != "" {
		rows, err = r.pool.Query(ctx, `
			SELECT `+notificationColumns+`
			FROM notifications
			WHERE status = $1
			ORDER BY created_at DESC
			LIMIT $2
		`, f.Status, limit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+notificationColumns+`
			FROM notifications
			ORDER BY created_at DESC
			LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}

	return result, rows.Err()
}

// ClaimDue increments attempts as part of the claim. SKIP LOCKED keeps a
// second worker instance from double-claiming the same rows.
func (r *PgRepository) ClaimDue(ctx context.Context, now time.Time, batch, maxAttempts int) ([]Notification, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE notifications
		SET attempts = attempts + 1,
		    updated_at = now()
		WHERE id IN (
			SELECT id
			FROM notifications
			WHERE status <> 'sent'
			  AND attempts < $3
			  AND (scheduled_for IS NULL OR scheduled_for <= $1)
			ORDER BY scheduled_for NULLS FIRST, created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+notificationColumns+`
	`, now, batch, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *n)
	}

	return result, rows.Err()
}

func (r *PgRepository) MarkSent(ctx context.Context, id uuid.UUID, providerMsgID string, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'sent',
		    provider_msg_id = $2,
		    error_detail = NULL,
		    sent_at = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, providerMsgID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorDetail string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE notifications
		SET status = 'failed',
		    error_detail = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, errorDetail)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *PgRepository) Reset(ctx context.Context, id uuid.UUID) (*Notification, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET status = 'pending',
		    attempts = 0,
		    provider_msg_id = NULL,
		    error_detail = NULL,
		    sent_at = NULL,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+notificationColumns+`
	`, id)
	return scanNotification(row)
}

func (r *PgRepository) Mark(ctx context.Context, id uuid.UUID, m ManualMark) (*Notification, error) {
	status := StatusFailed
	var sentAt *time.Time
	if m.Sent {
		status = StatusSent
		now := time.Now()
		sentAt = &now
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE notifications
		SET status = $2,
		    provider_msg_id = $3,
		    error_detail = $4,
		    sent_at = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+notificationColumns+`
	`, id, status, m.ProviderMsgID, m.ErrorDetail, sentAt)
	return scanNotification(row)
}
