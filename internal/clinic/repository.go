package clinic

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound     = errors.New("patient not found")
	ErrDentistNotFound     = errors.New("dentist not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// ListFilter narrows appointment listings. Zero values mean no filtering.
type ListFilter struct {
	DentistID uuid.UUID
	Date      time.Time // calendar day, zero means any
	Limit     int
	Offset    int
}

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	ListPatients(ctx context.Context, limit, offset int) ([]Patient, error)

	GetDentistByID(ctx context.Context, id uuid.UUID) (*Dentist, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	ListAppointments(ctx context.Context, f ListFilter) ([]Appointment, error)

	// For conflict checks: non-deleted appointments of one dentist whose
	// start falls in [from, to).
	ListDentistAppointmentsInWindow(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]Appointment, error)

	CreateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	UpdateAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	SoftDeleteAppointment(ctx context.Context, id, deletedBy uuid.UUID, at time.Time) error
}
