package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/sanfelipe/dental-clinic-backend/internal/whatsapp"
)

// WorkerConfig bounds one dispatch loop.
type WorkerConfig struct {
	Interval    time.Duration // poll period
	BatchSize   int           // rows claimed per cycle
	MaxAttempts int           // delivery attempts before a row is exhausted
	RunTimeout  time.Duration // per-cycle deadline, defaults to Interval
}

// Worker is the dispatch loop: claim due rows, send each, record the
// outcome. Per-row failures are recorded on the row and never abort the
// batch or the loop.
type Worker struct {
	repo   Repository
	sender whatsapp.Sender
	cfg    WorkerConfig
	log    zerolog.Logger
}

func NewWorker(repo Repository, sender whatsapp.Sender, cfg WorkerConfig, log zerolog.Logger) *Worker {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = cfg.Interval
	}
	return &Worker{
		repo:   repo,
		sender: sender,
		cfg:    cfg,
		log:    log.With().Str("component", "notify-worker").Logger(),
	}
}

// Run polls until the context is cancelled. It processes one batch
// immediately so a restart doesn't wait a full interval.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info().
		Dur("interval", w.cfg.Interval).
		Int("batch_size", w.cfg.BatchSize).
		Int("max_attempts", w.cfg.MaxAttempts).
		Msg("dispatch worker started")

	w.runOnce(ctx)

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("shutdown signal received, stopping dispatch worker")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, w.cfg.RunTimeout)
	defer cancel()

	start := time.Now()
	sent, failed, err := w.ProcessBatch(runCtx, start)
	if err != nil {
		w.log.Error().Err(err).Msg("dispatch cycle error")
		return
	}
	if sent+failed > 0 {
		w.log.Info().Int("sent", sent).Int("failed", failed).Dur("took", time.Since(start)).Msg("dispatch cycle complete")
	}
}

// ProcessBatch claims and dispatches one batch. The returned error covers
// the claim only; individual send failures are counted, recorded on their
// rows, and otherwise swallowed.
func (w *Worker) ProcessBatch(ctx context.Context, now time.Time) (sent, failed int, err error) {
	claimed, err := w.repo.ClaimDue(ctx, now, w.cfg.BatchSize, w.cfg.MaxAttempts)
	if err != nil {
		return 0, 0, err
	}

	for _, n := range claimed {
		if err := w.dispatch(ctx, n); err != nil {
			failed++
		} else {
			sent++
		}
	}

	return sent, failed, nil
}

func (w *Worker) dispatch(ctx context.Context, n Notification) error {
	msgID, err := w.sender.Send(ctx, n.Phone, n.Message)
	if err != nil {
		w.log.Warn().Err(err).
			Str("notification_id", n.ID.String()).
			Int("attempt", n.Attempts).
			Int("max_attempts", w.cfg.MaxAttempts).
			Msg("delivery failed")

		if markErr := w.repo.MarkFailed(ctx, n.ID, err.Error()); markErr != nil {
			w.log.Error().Err(markErr).Str("notification_id", n.ID.String()).Msg("failed to record delivery failure")
		}
		return err
	}

	if markErr := w.repo.MarkSent(ctx, n.ID, msgID, time.Now()); markErr != nil {
		w.log.Error().Err(markErr).Str("notification_id", n.ID.String()).Msg("failed to record delivery success")
		return markErr
	}

	w.log.Info().
		Str("notification_id", n.ID.String()).
		Str("provider_msg_id", msgID).
		Msg("notification delivered")
	return nil
}
