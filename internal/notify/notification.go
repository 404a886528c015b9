package notify

import (
	"time"

	"github.com/google/uuid"
)

// Status is the delivery state of a notification row. Sent is terminal: the
// worker never selects a sent row again.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusFailed  Status = "failed"
)

// Notification is one queued outbound WhatsApp message. A nil or past
// ScheduledFor means the row is eligible immediately.
type Notification struct {
	ID            uuid.UUID
	AppointmentID *uuid.UUID
	Phone         string
	Message       string
	Status        Status
	Attempts      int
	ScheduledFor  *time.Time
	ProviderMsgID *string
	ErrorDetail   *string
	SentAt        *time.Time
	CreatedBy     *uuid.UUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Exhausted reports whether the row has burned all its attempts without a
// successful send. Exhaustion is derived, not stored: only a manual resend
// revives such a row.
func (n Notification) Exhausted(maxAttempts int) bool {
	return n.Status != StatusSent && n.Attempts >= maxAttempts
}
