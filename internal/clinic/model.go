package clinic

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is an open string enum: unknown values coming from the
// store are passed through, the API layer only validates values it writes.
type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

const (
	DefaultDurationMin = 30
	MinDurationMin     = 5
	MaxDurationMin     = 480
)

type Patient struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Phone     *string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FullName joins first and last name for message rendering.
func (p Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

type Dentist struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Appointment occupies the half-open interval [StartTime, StartTime+Duration)
// for one dentist. Rows are soft-deleted only.
type Appointment struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	DentistID   uuid.UUID
	StartTime   time.Time
	DurationMin int
	Reason      *string
	Status      AppointmentStatus
	CreatedBy   *uuid.UUID
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
	DeletedBy   *uuid.UUID
}

// EndTime is the exclusive end of the occupied interval.
func (a Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMin) * time.Minute)
}
