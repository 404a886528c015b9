// Package audit appends actor/action rows to the audit_log table.
// Writes are fire-and-forget: an audit failure is logged and swallowed,
// never surfaced into the mutation it describes.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type Recorder struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewRecorder(pool *pgxpool.Pool, log zerolog.Logger) *Recorder {
	return &Recorder{
		pool: pool,
		log:  log.With().Str("component", "audit").Logger(),
	}
}

func (r *Recorder) Record(ctx context.Context, actorID, subjectID *uuid.UUID, action string, detail map[string]any) {
	var payload []byte
	if detail != nil {
		data, err := json.Marshal(detail)
		if err != nil {
			r.log.Error().Err(err).Str("action", action).Msg("failed to marshal audit detail")
		} else {
			payload = data
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (actor_id, subject_id, action, detail, created_at)
		VALUES ($1, $2, $3, $4, now())
	`, actorID, subjectID, action, payload)
	if err != nil {
		r.log.Error().Err(err).Str("action", action).Msg("failed to insert audit row")
	}
}
