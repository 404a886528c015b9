package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/sanfelipe/dental-clinic-backend/internal/clinic"
	"github.com/sanfelipe/dental-clinic-backend/internal/notify"
)

type CreateAppointmentRequest struct {
	PatientID   string  `json:"patient_id"`
	DentistID   string  `json:"dentist_id"`
	StartTime   string  `json:"start_time"` // RFC 3339
	DurationMin int     `json:"duration_min,omitempty"`
	Reason      *string `json:"reason,omitempty"`
}

type UpdateAppointmentRequest struct {
	PatientID   *string `json:"patient_id,omitempty"`
	DentistID   *string `json:"dentist_id,omitempty"`
	StartTime   *string `json:"start_time,omitempty"`
	DurationMin *int    `json:"duration_min,omitempty"`
	Reason      *string `json:"reason,omitempty"`
	Status      *string `json:"status,omitempty"`
}

type AppointmentResponse struct {
	ID          uuid.UUID `json:"id"`
	PatientID   uuid.UUID `json:"patient_id"`
	DentistID   uuid.UUID `json:"dentist_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	DurationMin int       `json:"duration_min"`
	Reason      *string   `json:"reason,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toAppointmentResponse(a *clinic.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:          a.ID,
		PatientID:   a.PatientID,
		DentistID:   a.DentistID,
		StartTime:   a.StartTime,
		EndTime:     a.EndTime(),
		DurationMin: a.DurationMin,
		Reason:      a.Reason,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

type ListResponse[T any] struct {
	Data  []T `json:"data"`
	Total int `json:"total"`
}

type MarkNotificationRequest struct {
	Sent          bool    `json:"sent"`
	ProviderMsgID *string `json:"provider_msg_id,omitempty"`
	ErrorDetail   *string `json:"error_detail,omitempty"`
}

type NotificationResponse struct {
	ID            uuid.UUID  `json:"id"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
	Phone         string     `json:"phone"`
	Message       string     `json:"message"`
	Status        string     `json:"status"`
	Attempts      int        `json:"attempts"`
	Exhausted     bool       `json:"exhausted"`
	ScheduledFor  *time.Time `json:"scheduled_for,omitempty"`
	ProviderMsgID *string    `json:"provider_msg_id,omitempty"`
	ErrorDetail   *string    `json:"error_detail,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func toNotificationResponse(n *notify.Notification, maxAttempts int) NotificationResponse {
	return NotificationResponse{
		ID:            n.ID,
		AppointmentID: n.AppointmentID,
		Phone:         n.Phone,
		Message:       n.Message,
		Status:        string(n.Status),
		Attempts:      n.Attempts,
		Exhausted:     n.Exhausted(maxAttempts),
		ScheduledFor:  n.ScheduledFor,
		ProviderMsgID: n.ProviderMsgID,
		ErrorDetail:   n.ErrorDetail,
		SentAt:        n.SentAt,
		CreatedAt:     n.CreatedAt,
	}
}

type PatientResponse struct {
	ID        uuid.UUID `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     *string   `json:"phone,omitempty"`
	Email     *string   `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toPatientResponse(p *clinic.Patient) PatientResponse {
	return PatientResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Phone:     p.Phone,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
	}
}
