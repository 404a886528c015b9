package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sanfelipe/dental-clinic-backend/internal/auth"
	"github.com/sanfelipe/dental-clinic-backend/internal/notify"
	"github.com/sanfelipe/dental-clinic-backend/internal/redisclient"
	"github.com/sanfelipe/dental-clinic-backend/internal/whatsapp"
)

var (
	ErrSlotTaken         = errors.New("requested time is not available for this dentist")
	ErrBookingInProgress = errors.New("another booking for this dentist is in progress, please retry")
	ErrInvalidDuration   = fmt.Errorf("duration must be between %d and %d minutes", MinDurationMin, MaxDurationMin)
	ErrInvalidStatus     = errors.New("invalid appointment status")
)

// Auditor records mutations fire-and-forget; implementations must never
// return an error into the request path.
type Auditor interface {
	Record(ctx context.Context, actorID, subjectID *uuid.UUID, action string, detail map[string]any)
}

// NotificationQueue is the slice of the notification store the appointment
// service needs: enqueueing reminder rows.
type NotificationQueue interface {
	Create(ctx context.Context, n notify.Notification) (*notify.Notification, error)
}

type Service struct {
	repo         Repository
	checker      *AvailabilityChecker
	locker       redisclient.Locker
	queue        NotificationQueue
	sender       whatsapp.Sender
	audit        Auditor
	log          zerolog.Logger
	reminderHour int
}

func NewService(repo Repository, locker redisclient.Locker, queue NotificationQueue, sender whatsapp.Sender, audit Auditor, log zerolog.Logger, reminderHour int) *Service {
	return &Service{
		repo:         repo,
		checker:      NewAvailabilityChecker(repo),
		locker:       locker,
		queue:        queue,
		sender:       sender,
		audit:        audit,
		log:          log.With().Str("component", "appointment-service").Logger(),
		reminderHour: reminderHour,
	}
}

type CreateAppointmentInput struct {
	PatientID   uuid.UUID
	DentistID   uuid.UUID
	StartTime   time.Time
	DurationMin int // 0 means default
	Reason      *string
}

type UpdateAppointmentInput struct {
	PatientID   *uuid.UUID
	DentistID   *uuid.UUID
	StartTime   *time.Time
	DurationMin *int
	Reason      *string
	Status      *AppointmentStatus
}

// Create books an appointment. The availability check and the insert run
// inside a per-dentist lock so concurrent requests cannot both pass the
// check. Reminder scheduling and the immediate confirmation send are
// best-effort: their failures are logged and never fail the create.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateAppointmentInput) (*Appointment, error) {
	patient, err := s.repo.GetPatientByID(ctx, in.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	dentist, err := s.repo.GetDentistByID(ctx, in.DentistID)
	if err != nil {
		if errors.Is(err, ErrDentistNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load dentist: %w", err)
	}

	duration, err := normalizeDuration(in.DurationMin)
	if err != nil {
		return nil, err
	}

	var created *Appointment

	err = s.locker.WithDentistLock(ctx, in.DentistID, func(lockCtx context.Context) error {
		ok, err := s.checker.IsSlotAvailable(lockCtx, in.DentistID, in.StartTime, duration, uuid.Nil)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if !ok {
			return ErrSlotTaken
		}

		actorID := actor.IDRef()
		appt, err := s.repo.CreateAppointment(lockCtx, Appointment{
			PatientID:   in.PatientID,
			DentistID:   in.DentistID,
			StartTime:   in.StartTime,
			DurationMin: duration,
			Reason:      in.Reason,
			Status:      StatusScheduled,
			CreatedBy:   actorID,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	s.audit.Record(ctx, actor.IDRef(), &created.ID, "appointment.create", map[string]any{
		"patient_id": created.PatientID.String(),
		"dentist_id": created.DentistID.String(),
		"start_time": created.StartTime,
	})

	s.scheduleReminder(ctx, actor, created, patient)
	s.sendConfirmation(ctx, created, patient, dentist)

	return created, nil
}

// Update merges the supplied fields over the stored row and re-validates the
// slot against the merged dentist/start/duration, excluding the appointment's
// own id. On conflict nothing is mutated.
func (s *Service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, in UpdateAppointmentInput) (*Appointment, error) {
	existing, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := *existing
	if in.PatientID != nil {
		if _, err := s.repo.GetPatientByID(ctx, *in.PatientID); err != nil {
			return nil, err
		}
		merged.PatientID = *in.PatientID
	}
	if in.DentistID != nil {
		if _, err := s.repo.GetDentistByID(ctx, *in.DentistID); err != nil {
			return nil, err
		}
		merged.DentistID = *in.DentistID
	}
	if in.StartTime != nil {
		merged.StartTime = *in.StartTime
	}
	if in.DurationMin != nil {
		merged.DurationMin = *in.DurationMin
	}
	if in.Reason != nil {
		merged.Reason = in.Reason
	}
	if in.Status != nil {
		if !validStatus(*in.Status) {
			return nil, ErrInvalidStatus
		}
		merged.Status = *in.Status
	}

	merged.DurationMin, err = normalizeDuration(merged.DurationMin)
	if err != nil {
		return nil, err
	}

	var updated *Appointment

	err = s.locker.WithDentistLock(ctx, merged.DentistID, func(lockCtx context.Context) error {
		ok, err := s.checker.IsSlotAvailable(lockCtx, merged.DentistID, merged.StartTime, merged.DurationMin, id)
		if err != nil {
			return fmt.Errorf("check availability: %w", err)
		}
		if !ok {
			return ErrSlotTaken
		}

		updated, err = s.repo.UpdateAppointment(lockCtx, merged)
		if err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBookingInProgress
		}
		return nil, err
	}

	s.audit.Record(ctx, actor.IDRef(), &updated.ID, "appointment.update", map[string]any{
		"dentist_id": updated.DentistID.String(),
		"start_time": updated.StartTime,
		"status":     string(updated.Status),
	})

	return updated, nil
}

// Delete soft-deletes: the row stays to preserve clinical history.
func (s *Service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	if err := s.repo.SoftDeleteAppointment(ctx, id, actor.ID, time.Now()); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.IDRef(), &id, "appointment.delete", nil)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetAppointmentByID(ctx, id)
}

// List returns appointments matching the filter. Dentist actors only ever
// see their own schedule; the filter's dentist id is overridden for them.
func (s *Service) List(ctx context.Context, actor auth.Actor, f ListFilter) ([]Appointment, error) {
	if actor.Role == auth.RoleDentist {
		f.DentistID = actor.ID
	}
	return s.repo.ListAppointments(ctx, f)
}

func (s *Service) scheduleReminder(ctx context.Context, actor auth.Actor, appt *Appointment, patient *Patient) {
	if patient.Phone == nil || *patient.Phone == "" {
		s.log.Debug().Str("appointment_id", appt.ID.String()).Msg("patient has no phone, skipping reminder")
		return
	}

	msg := fmt.Sprintf("Hi %s, this is a reminder of your dental appointment on %s at %s.",
		patient.FullName(),
		appt.StartTime.Format("Monday, January 2, 2006"),
		appt.StartTime.Format("15:04"),
	)
	if appt.Reason != nil && *appt.Reason != "" {
		msg += " Reason: " + *appt.Reason + "."
	}
	msg += " See you soon!"

	// Goes out at a fixed local hour the day before the appointment. If that
	// moment is already past, the worker picks it up on its next cycle.
	day := appt.StartTime.AddDate(0, 0, -1)
	scheduledFor := time.Date(day.Year(), day.Month(), day.Day(), s.reminderHour, 0, 0, 0, appt.StartTime.Location())

	apptID := appt.ID
	_, err := s.queue.Create(ctx, notify.Notification{
		AppointmentID: &apptID,
		Phone:         *patient.Phone,
		Message:       msg,
		ScheduledFor:  &scheduledFor,
		CreatedBy:     actor.IDRef(),
	})
	if err != nil {
		s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("failed to schedule reminder notification")
	}
}

func (s *Service) sendConfirmation(ctx context.Context, appt *Appointment, patient *Patient, dentist *Dentist) {
	if patient.Phone == nil || *patient.Phone == "" {
		return
	}

	msg := fmt.Sprintf("Hi %s, your appointment with Dr. %s on %s at %s is confirmed.",
		patient.FullName(),
		dentist.Name,
		appt.StartTime.Format("Monday, January 2, 2006"),
		appt.StartTime.Format("15:04"),
	)

	msgID, err := s.sender.Send(ctx, *patient.Phone, msg)
	if err != nil {
		s.log.Error().Err(err).Str("appointment_id", appt.ID.String()).Msg("confirmation send failed")
		return
	}
	s.log.Info().Str("appointment_id", appt.ID.String()).Str("provider_msg_id", msgID).Msg("confirmation sent")
}

func normalizeDuration(d int) (int, error) {
	if d == 0 {
		return DefaultDurationMin, nil
	}
	if d < MinDurationMin || d > MaxDurationMin {
		return 0, ErrInvalidDuration
	}
	return d, nil
}

func validStatus(s AppointmentStatus) bool {
	switch s {
	case StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
