package clinic

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sanfelipe/dental-clinic-backend/internal/notify"
	"github.com/sanfelipe/dental-clinic-backend/internal/redisclient"
)

// fakeRepo is an in-memory Repository for service and availability tests.
type fakeRepo struct {
	patients map[uuid.UUID]Patient
	dentists map[uuid.UUID]Dentist
	appts    map[uuid.UUID]Appointment

	windowErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients: make(map[uuid.UUID]Patient),
		dentists: make(map[uuid.UUID]Dentist),
		appts:    make(map[uuid.UUID]Appointment),
	}
}

func (f *fakeRepo) addPatient(phone string) Patient {
	p := Patient{ID: uuid.New(), FirstName: "Ana", LastName: "Lopez"}
	if phone != "" {
		p.Phone = &phone
	}
	f.patients[p.ID] = p
	return p
}

func (f *fakeRepo) addDentist() Dentist {
	d := Dentist{ID: uuid.New(), Name: "Maria Reyes"}
	f.dentists[d.ID] = d
	return d
}

func (f *fakeRepo) addAppointment(dentistID uuid.UUID, start time.Time, durationMin int) Appointment {
	a := Appointment{
		ID:          uuid.New(),
		PatientID:   uuid.New(),
		DentistID:   dentistID,
		StartTime:   start,
		DurationMin: durationMin,
		Status:      StatusScheduled,
	}
	f.appts[a.ID] = a
	return a
}

func (f *fakeRepo) GetPatientByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := f.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (f *fakeRepo) ListPatients(_ context.Context, limit, offset int) ([]Patient, error) {
	var out []Patient
	for _, p := range f.patients {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRepo) GetDentistByID(_ context.Context, id uuid.UUID) (*Dentist, error) {
	d, ok := f.dentists[id]
	if !ok {
		return nil, ErrDentistNotFound
	}
	return &d, nil
}

func (f *fakeRepo) GetAppointmentByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := f.appts[id]
	if !ok || a.DeletedAt != nil {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (f *fakeRepo) ListAppointments(_ context.Context, flt ListFilter) ([]Appointment, error) {
	var out []Appointment
	for _, a := range f.appts {
		if a.DeletedAt != nil {
			continue
		}
		if flt.DentistID != uuid.Nil && a.DentistID != flt.DentistID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (f *fakeRepo) ListDentistAppointmentsInWindow(_ context.Context, dentistID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	if f.windowErr != nil {
		return nil, f.windowErr
	}
	var out []Appointment
	for _, a := range f.appts {
		if a.DentistID != dentistID || a.DeletedAt != nil {
			continue
		}
		if a.StartTime.Before(from) || !a.StartTime.Before(to) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) CreateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	f.appts[a.ID] = a
	return &a, nil
}

func (f *fakeRepo) UpdateAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	existing, ok := f.appts[a.ID]
	if !ok || existing.DeletedAt != nil {
		return nil, ErrAppointmentNotFound
	}
	a.UpdatedAt = time.Now()
	f.appts[a.ID] = a
	return &a, nil
}

func (f *fakeRepo) SoftDeleteAppointment(_ context.Context, id, deletedBy uuid.UUID, at time.Time) error {
	a, ok := f.appts[id]
	if !ok || a.DeletedAt != nil {
		return ErrAppointmentNotFound
	}
	a.DeletedAt = &at
	a.DeletedBy = &deletedBy
	f.appts[id] = a
	return nil
}

// fakeLocker runs the critical section inline, or refuses when contended.
type fakeLocker struct {
	contended bool
	calls     int
}

func (l *fakeLocker) WithDentistLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context) error) error {
	l.calls++
	if l.contended {
		return redisclient.ErrLockNotAcquired
	}
	return fn(ctx)
}

// fakeQueue records enqueued notifications.
type fakeQueue struct {
	created []notify.Notification
	err     error
}

func (q *fakeQueue) Create(_ context.Context, n notify.Notification) (*notify.Notification, error) {
	if q.err != nil {
		return nil, q.err
	}
	n.ID = uuid.New()
	n.Status = notify.StatusPending
	q.created = append(q.created, n)
	return &n, nil
}

// fakeSender records immediate sends.
type fakeSender struct {
	sent []string
	err  error
}

func (s *fakeSender) Send(_ context.Context, phone, body string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.sent = append(s.sent, phone)
	return "SM_fake", nil
}

// fakeAuditor records actions.
type fakeAuditor struct {
	actions []string
}

func (a *fakeAuditor) Record(_ context.Context, _, _ *uuid.UUID, action string, _ map[string]any) {
	a.actions = append(a.actions, action)
}
