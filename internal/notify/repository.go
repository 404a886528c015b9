package notify

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

// ListFilter narrows notification listings.
type ListFilter struct {
	Status Status // empty means any
	Limit  int
}

// ManualMark is the operator override: set the row's delivery outcome
// directly, bypassing the worker.
type ManualMark struct {
	Sent          bool
	ProviderMsgID *string
	ErrorDetail   *string
}

// Repository contains all DB interactions for the notification queue.
type Repository interface {
	Create(ctx context.Context, n Notification) (*Notification, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	List(ctx context.Context, f ListFilter) ([]Notification, error)

	// ClaimDue atomically selects up to batch due rows (not sent, under the
	// attempt limit, scheduled_for null or past) and increments their attempt
	// counter in the same statement, so a crash mid-dispatch still burns the
	// attempt and a concurrent worker cannot claim the same rows.
	ClaimDue(ctx context.Context, now time.Time, batch, maxAttempts int) ([]Notification, error)

	MarkSent(ctx context.Context, id uuid.UUID, providerMsgID string, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorDetail string) error

	// Reset zeroes attempts and clears the delivery outcome so the row is
	// eligible again on the next cycle, whatever state it was in.
	Reset(ctx context.Context, id uuid.UUID) (*Notification, error)

	Mark(ctx context.Context, id uuid.UUID, m ManualMark) (*Notification, error)
}
