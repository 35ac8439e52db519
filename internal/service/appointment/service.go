package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aproko/clinic-api/internal/model"
	"github.com/aproko/clinic-api/internal/repository"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/lock"
	"github.com/aproko/clinic-api/pkg/metrics"
	"github.com/aproko/clinic-api/pkg/timeofday"
)

// SlotInterval is the fixed booking granularity.
const SlotInterval = 30 * time.Minute

type Service struct {
	appointments repository.AppointmentRepository
	schedules    repository.ScheduleRepository
	patients     repository.PatientRepository
	doctors      repository.DoctorRepository
	locker       lock.SlotLocker
	metrics      *metrics.Metrics
}

func NewService(
	appointments repository.AppointmentRepository,
	schedules repository.ScheduleRepository,
	patients repository.PatientRepository,
	doctors repository.DoctorRepository,
	locker lock.SlotLocker,
	m *metrics.Metrics,
) *Service {
	return &Service{
		appointments: appointments,
		schedules:    schedules,
		patients:     patients,
		doctors:      doctors,
		locker:       locker,
		metrics:      m,
	}
}

// ParseDate validates a calendar date from a request payload.
func ParseDate(s string) (time.Time, error) {
	date, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, apperrors.InvalidInput(fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s), err)
	}
	return date, nil
}

// GetAvailability returns the open slots for one doctor on one date: the
// doctor's weekday schedule stepped at SlotInterval, minus the break window
// and minus every time already held by a non-cancelled, non-no-show booking.
// A doctor with no schedule that weekday has no slots; that is an empty
// result, not an error.
func (s *Service) GetAvailability(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]timeofday.TimeOfDay, error) {
	if s.metrics != nil {
		timer := prometheus.NewTimer(s.metrics.AvailabilityLatency)
		defer timer.ObserveDuration()
	}

	schedule, err := s.schedules.GetByDoctorAndDay(ctx, doctorID, model.WeekdayOf(date))
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	if schedule == nil {
		return []timeofday.TimeOfDay{}, nil
	}

	occupied, err := s.appointments.ListOccupiedTimes(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get occupied times: %w", err)
	}

	return openSlots(schedule, occupied), nil
}

// openSlots walks the working hours in SlotInterval steps. Candidates inside
// [break_start, break_end) are skipped by jumping straight to break_end, so
// slots resume exactly at the end of the break regardless of alignment.
func openSlots(schedule *model.Schedule, occupied []timeofday.TimeOfDay) []timeofday.TimeOfDay {
	taken := make(map[timeofday.TimeOfDay]struct{}, len(occupied))
	for _, t := range occupied {
		taken[t] = struct{}{}
	}

	slots := make([]timeofday.TimeOfDay, 0)
	t := schedule.StartTime
	for t.Before(schedule.EndTime) {
		if schedule.HasBreak() && t.In(*schedule.BreakStart, *schedule.BreakEnd) {
			t = *schedule.BreakEnd
			continue
		}
		if _, ok := taken[t]; !ok {
			slots = append(slots, t)
		}
		t = t.Add(SlotInterval)
	}
	return slots
}

// CreateAppointment books a slot for the patient behind userID. The
// requested time must be a member of the doctor's current availability, and
// the check-then-insert runs under a per-slot lock so two requests for the
// same slot cannot both succeed; the partial unique index backs the lock up.
func (s *Service) CreateAppointment(ctx context.Context, userID uuid.UUID, req *model.CreateAppointmentRequest) (*model.Appointment, error) {
	patient, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		return nil, apperrors.InvalidInput("invalid doctor ID", err)
	}

	date, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}

	slot, err := timeofday.Parse(req.Time)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid time %q", req.Time), err)
	}

	doctor, err := s.doctors.Get(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, apperrors.NotFound("doctor", nil)
	}

	available, err := s.GetAvailability(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	if !containsSlot(available, slot) {
		s.countConflict("unavailable")
		return nil, apperrors.SlotUnavailable(
			fmt.Sprintf("%s on %s is not an open slot for this doctor", slot, req.Date))
	}

	appointment := &model.Appointment{
		ID:        uuid.New(),
		PatientID: patient.ID,
		DoctorID:  doctorID,
		Date:      date,
		Time:      slot,
		Status:    model.AppointmentStatusScheduled,
		Reason:    req.Reason,
		Notes:     req.Notes,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	event, err := newBookingEvent(model.EventAppointmentBooked, appointment, patient, doctor)
	if err != nil {
		return nil, err
	}

	lockKey := slotKey(doctorID, req.Date, slot)
	err = s.locker.WithSlotLock(ctx, lockKey, func(lockCtx context.Context) error {
		// Re-check inside the critical section: availability may have
		// changed between the unlocked read and lock acquisition.
		occupied, err := s.appointments.ListOccupiedTimes(lockCtx, doctorID, date)
		if err != nil {
			return fmt.Errorf("failed to re-check occupied times: %w", err)
		}
		if containsSlot(occupied, slot) {
			return apperrors.Conflict("slot was just booked by another patient", nil)
		}
		return s.appointments.CreateScheduled(lockCtx, appointment, event)
	})
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			s.countConflict("lock")
			return nil, apperrors.Conflict("slot is currently being booked, please retry", err)
		}
		if apperrors.Is(err, apperrors.ErrConflict) {
			s.countConflict("race")
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.BookingsCreated.Inc()
	}
	return appointment, nil
}

// CancelAppointment flips a scheduled booking to cancelled on behalf of the
// owning patient. Anything else (missing, foreign, or already-final booking)
// reports NotFound, matching what the caller is allowed to learn.
func (s *Service) CancelAppointment(ctx context.Context, userID, appointmentID uuid.UUID) error {
	patient, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	appointment, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return err
	}

	doctor, err := s.doctors.Get(ctx, appointment.DoctorID)
	if err != nil {
		return err
	}

	event, err := newBookingEvent(model.EventAppointmentCancelled, appointment, patient, doctor)
	if err != nil {
		return err
	}

	cancelled, err := s.appointments.CancelScheduled(ctx, appointmentID, patient.ID, event)
	if err != nil {
		return err
	}
	if !cancelled {
		return apperrors.NotFound("appointment", nil)
	}

	if s.metrics != nil {
		s.metrics.BookingsCancelled.Inc()
	}
	return nil
}

// ListForPatient returns the patient's non-cancelled appointments in
// chronological order.
func (s *Service) ListForPatient(ctx context.Context, userID uuid.UUID) ([]*model.AppointmentDetail, error) {
	patient, err := s.patients.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.appointments.ListByPatient(ctx, patient.ID)
}

// ListForDoctor returns the doctor's full worklist, upcoming first.
func (s *Service) ListForDoctor(ctx context.Context, userID uuid.UUID) ([]*model.AppointmentDetail, error) {
	doctor, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.appointments.ListByDoctor(ctx, doctor.ID)
}

func (s *Service) countConflict(reason string) {
	if s.metrics != nil {
		s.metrics.BookingConflicts.WithLabelValues(reason).Inc()
	}
}

func containsSlot(slots []timeofday.TimeOfDay, t timeofday.TimeOfDay) bool {
	for _, s := range slots {
		if s.Equal(t) {
			return true
		}
	}
	return false
}

func slotKey(doctorID uuid.UUID, date string, t timeofday.TimeOfDay) string {
	return fmt.Sprintf("%s:%s:%s", doctorID, date, t)
}

func newBookingEvent(eventType string, appointment *model.Appointment, patient *model.Patient, doctor *model.Doctor) (*model.OutboxEvent, error) {
	payload, err := json.Marshal(model.AppointmentEventPayload{
		AppointmentID: appointment.ID,
		PatientID:     patient.ID,
		DoctorID:      doctor.ID,
		PatientEmail:  patient.Email,
		PatientName:   patient.FirstName + " " + patient.LastName,
		DoctorName:    doctor.FirstName + " " + doctor.LastName,
		Date:          appointment.Date.Format(model.DateLayout),
		Time:          appointment.Time.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
		Status:    model.OutboxStatusPending,
		CreatedAt: time.Now(),
	}, nil
}
