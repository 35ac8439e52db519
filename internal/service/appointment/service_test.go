package appointment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aproko/clinic-api/internal/model"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/lock"
	"github.com/aproko/clinic-api/pkg/timeofday"
)

// In-memory fakes. The appointment fake mirrors the production semantics:
// the exclusion set only counts statuses that still occupy their slot, and
// inserting into a taken slot fails the way the partial unique index would.

type fakeScheduleRepo struct {
	byDoctorDay map[string]*model.Schedule
}

func scheduleKey(doctorID uuid.UUID, day model.Weekday) string {
	return doctorID.String() + "/" + string(day)
}

func (f *fakeScheduleRepo) Create(ctx context.Context, s *model.Schedule) error {
	f.byDoctorDay[scheduleKey(s.DoctorID, s.DayOfWeek)] = s
	return nil
}

func (f *fakeScheduleRepo) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	return nil, apperrors.NotFound("schedule", nil)
}

func (f *fakeScheduleRepo) GetByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, day model.Weekday) (*model.Schedule, error) {
	return f.byDoctorDay[scheduleKey(doctorID, day)], nil
}

func (f *fakeScheduleRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) Update(ctx context.Context, s *model.Schedule) error { return nil }
func (f *fakeScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error      { return nil }

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	appointments map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[uuid.UUID]*model.Appointment)}
}

func (f *fakeAppointmentRepo) CreateScheduled(ctx context.Context, a *model.Appointment, event *model.OutboxEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.appointments {
		if existing.DoctorID == a.DoctorID &&
			existing.Date.Equal(a.Date) &&
			existing.Time.Equal(a.Time) &&
			existing.Status.Occupies() {
			return apperrors.Conflict("slot was just booked by another patient", nil)
		}
	}
	cp := *a
	f.appointments[a.ID] = &cp
	return nil
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAppointmentRepo) ListOccupiedTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]timeofday.TimeOfDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var times []timeofday.TimeOfDay
	for _, a := range f.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status.Occupies() {
			times = append(times, a.Time)
		}
	}
	return times, nil
}

func (f *fakeAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentDetail, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentDetail, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) CancelScheduled(ctx context.Context, id, patientID uuid.UUID, event *model.OutboxEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	if !ok || a.PatientID != patientID || a.Status != model.AppointmentStatusScheduled {
		return false, nil
	}
	a.Status = model.AppointmentStatusCancelled
	return true, nil
}

func (f *fakeAppointmentRepo) setStatus(t *testing.T, id uuid.UUID, status model.AppointmentStatus) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.appointments[id]
	require.True(t, ok)
	a.Status = status
}

type fakePatientRepo struct {
	byUserID map[uuid.UUID]*model.Patient
}

func (f *fakePatientRepo) CreateWithUser(ctx context.Context, u *model.User, p *model.Patient) error {
	return nil
}

func (f *fakePatientRepo) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return nil, apperrors.NotFound("patient", nil)
}

func (f *fakePatientRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error) {
	p, ok := f.byUserID[userID]
	if !ok {
		return nil, apperrors.NotFound("patient", nil)
	}
	return p, nil
}

func (f *fakePatientRepo) Update(ctx context.Context, p *model.Patient) error { return nil }

func (f *fakePatientRepo) Search(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error) {
	return nil, nil
}

func (f *fakePatientRepo) DeleteAccount(ctx context.Context, userID uuid.UUID) error { return nil }

type fakeDoctorRepo struct {
	byID map[uuid.UUID]*model.Doctor
}

func (f *fakeDoctorRepo) CreateWithUser(ctx context.Context, u *model.User, d *model.Doctor, s []*model.Schedule) error {
	return nil
}

func (f *fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	d, ok := f.byID[id]
	if !ok {
		return nil, apperrors.NotFound("doctor", nil)
	}
	return d, nil
}

func (f *fakeDoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	for _, d := range f.byID {
		if d.UserID == userID {
			return d, nil
		}
	}
	return nil, apperrors.NotFound("doctor", nil)
}

func (f *fakeDoctorRepo) ListActive(ctx context.Context) ([]*model.Doctor, error) { return nil, nil }
func (f *fakeDoctorRepo) ListAll(ctx context.Context) ([]*model.Doctor, error)    { return nil, nil }
func (f *fakeDoctorRepo) UpdateProfile(ctx context.Context, d *model.Doctor) error {
	return nil
}
func (f *fakeDoctorRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

// mutexLocker serializes critical sections per key in-process, standing in
// for the Redis locker.
type mutexLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMutexLocker() *mutexLocker {
	return &mutexLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *mutexLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn(ctx)
}

type deniedLocker struct{}

func (deniedLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return lock.ErrNotAcquired
}

type fixture struct {
	svc          *Service
	appointments *fakeAppointmentRepo
	schedules    *fakeScheduleRepo
	doctorID     uuid.UUID
	patientUser  uuid.UUID
	patientID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	doctorID := uuid.New()
	patientUser := uuid.New()
	patientID := uuid.New()

	schedules := &fakeScheduleRepo{byDoctorDay: make(map[string]*model.Schedule)}
	appointments := newFakeAppointmentRepo()
	patients := &fakePatientRepo{byUserID: map[uuid.UUID]*model.Patient{
		patientUser: {
			ID:        patientID,
			UserID:    patientUser,
			FirstName: "Ada",
			LastName:  "Obi",
			Email:     "ada@example.com",
		},
	}}
	doctors := &fakeDoctorRepo{byID: map[uuid.UUID]*model.Doctor{
		doctorID: {
			ID:             doctorID,
			UserID:         uuid.New(),
			FirstName:      "Ngozi",
			LastName:       "Eze",
			Specialization: "cardiology",
			Active:         true,
		},
	}}

	svc := NewService(appointments, schedules, patients, doctors, newMutexLocker(), nil)
	return &fixture{
		svc:          svc,
		appointments: appointments,
		schedules:    schedules,
		doctorID:     doctorID,
		patientUser:  patientUser,
		patientID:    patientID,
	}
}

func (f *fixture) addSchedule(day model.Weekday, start, end timeofday.TimeOfDay, breakStart, breakEnd *timeofday.TimeOfDay) {
	f.schedules.byDoctorDay[scheduleKey(f.doctorID, day)] = &model.Schedule{
		ID:         uuid.New(),
		DoctorID:   f.doctorID,
		DayOfWeek:  day,
		StartTime:  start,
		EndTime:    end,
		BreakStart: breakStart,
		BreakEnd:   breakEnd,
	}
}

func tod(h, m int) timeofday.TimeOfDay { return timeofday.MustNew(h, m) }
func todPtr(h, m int) *timeofday.TimeOfDay {
	t := timeofday.MustNew(h, m)
	return &t
}

// 2026-09-07 is a Monday.
var monday = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

const mondayStr = "2026-09-07"

func slotStrings(slots []timeofday.TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func TestGetAvailabilityNoScheduleThatDay(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Tuesday, tod(9, 0), tod(17, 0), nil, nil)

	slots, err := f.svc.GetAvailability(context.Background(), f.doctorID, monday)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestGetAvailabilityFullDayWithBreak(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(17, 0), todPtr(12, 0), todPtr(13, 0))

	slots, err := f.svc.GetAvailability(context.Background(), f.doctorID, monday)
	require.NoError(t, err)

	assert.Len(t, slots, 14)
	assert.Equal(t, "09:00", slots[0].String())
	assert.Equal(t, "16:30", slots[len(slots)-1].String())

	breakStart, breakEnd := tod(12, 0), tod(13, 0)
	for i, s := range slots {
		assert.False(t, s.In(breakStart, breakEnd), "slot %s falls inside the break", s)
		assert.True(t, s.Before(tod(17, 0)), "slot %s reaches closing time", s)
		if i > 0 {
			assert.True(t, slots[i-1].Before(s), "slots not strictly increasing at %d", i)
		}
	}
}

func TestGetAvailabilityBreakJumpRealigns(t *testing.T) {
	f := newFixture(t)
	// Break from 10:00 to 10:30: the 10:00 candidate is swallowed and
	// stepping resumes exactly at break end.
	f.addSchedule(model.Monday, tod(9, 0), tod(11, 0), todPtr(10, 0), todPtr(10, 30))

	slots, err := f.svc.GetAvailability(context.Background(), f.doctorID, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:30"}, slotStrings(slots))
}

func TestGetAvailabilityExcludesBookedAndFreesCancelled(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)
	ctx := context.Background()

	booked, err := f.svc.CreateAppointment(ctx, f.patientUser, &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "10:00",
	})
	require.NoError(t, err)

	slots, err := f.svc.GetAvailability(ctx, f.doctorID, monday)
	require.NoError(t, err)
	assert.NotContains(t, slotStrings(slots), "10:00")

	require.NoError(t, f.svc.CancelAppointment(ctx, f.patientUser, booked.ID))

	slots, err = f.svc.GetAvailability(ctx, f.doctorID, monday)
	require.NoError(t, err)
	assert.Contains(t, slotStrings(slots), "10:00")
}

func TestGetAvailabilityNoShowFreesSlot(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)
	ctx := context.Background()

	booked, err := f.svc.CreateAppointment(ctx, f.patientUser, &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "09:30",
	})
	require.NoError(t, err)

	f.appointments.setStatus(t, booked.ID, model.AppointmentStatusNoShow)

	slots, err := f.svc.GetAvailability(ctx, f.doctorID, monday)
	require.NoError(t, err)
	assert.Contains(t, slotStrings(slots), "09:30")
}

func TestCreateAppointmentRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  model.CreateAppointmentRequest
	}{
		{"bad doctor id", model.CreateAppointmentRequest{DoctorID: "nope", Date: mondayStr, Time: "09:00"}},
		{"bad date", model.CreateAppointmentRequest{DoctorID: f.doctorID.String(), Date: "07/09/2026", Time: "09:00"}},
		{"bad time", model.CreateAppointmentRequest{DoctorID: f.doctorID.String(), Date: mondayStr, Time: "9am"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateAppointment(ctx, f.patientUser, &tc.req)
			assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestCreateAppointmentUnknownPatient(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)

	_, err := f.svc.CreateAppointment(context.Background(), uuid.New(), &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "09:00",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "got %v", err)
}

func TestCreateAppointmentRejectsOffGridTimes(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(17, 0), todPtr(12, 0), todPtr(13, 0))
	ctx := context.Background()

	for _, slot := range []string{
		"08:00", // before opening
		"17:00", // exactly closing, excluded
		"18:30", // after closing
		"12:00", // break start
		"12:30", // inside break
		"09:15", // not on the 30-minute grid
	} {
		_, err := f.svc.CreateAppointment(ctx, f.patientUser, &model.CreateAppointmentRequest{
			DoctorID: f.doctorID.String(),
			Date:     mondayStr,
			Time:     slot,
		})
		assert.True(t, apperrors.Is(err, apperrors.ErrSlotUnavailable), "slot %s: got %v", slot, err)
	}
}

func TestCreateAppointmentDoubleBooking(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)
	ctx := context.Background()

	req := &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "10:30",
	}

	_, err := f.svc.CreateAppointment(ctx, f.patientUser, req)
	require.NoError(t, err)

	_, err = f.svc.CreateAppointment(ctx, f.patientUser, req)
	assert.True(t, apperrors.Is(err, apperrors.ErrSlotUnavailable), "got %v", err)
}

func TestCreateAppointmentConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)
	ctx := context.Background()

	req := &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "11:00",
	}

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.CreateAppointment(ctx, f.patientUser, req)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, rejections int
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		if apperrors.Is(err, apperrors.ErrSlotUnavailable) || apperrors.Is(err, apperrors.ErrConflict) {
			rejections++
		}
	}
	assert.Equal(t, 1, successes, "exactly one booking must win")
	assert.Equal(t, 1, rejections, "the loser must see a conflict")
}

func TestCreateAppointmentLockDenied(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)
	f.svc.locker = deniedLocker{}

	_, err := f.svc.CreateAppointment(context.Background(), f.patientUser, &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "09:00",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict), "got %v", err)
	assert.True(t, errors.Is(err, lock.ErrNotAcquired))
}

func TestCancelAppointmentLifecycle(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)
	ctx := context.Background()

	booked, err := f.svc.CreateAppointment(ctx, f.patientUser, &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "09:00",
	})
	require.NoError(t, err)

	// first cancel succeeds, second is a no-op reported as not found
	require.NoError(t, f.svc.CancelAppointment(ctx, f.patientUser, booked.ID))
	err = f.svc.CancelAppointment(ctx, f.patientUser, booked.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "got %v", err)
}

func TestCancelCompletedAppointment(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)
	ctx := context.Background()

	booked, err := f.svc.CreateAppointment(ctx, f.patientUser, &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "09:00",
	})
	require.NoError(t, err)

	f.appointments.setStatus(t, booked.ID, model.AppointmentStatusCompleted)

	err = f.svc.CancelAppointment(ctx, f.patientUser, booked.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "got %v", err)
}

func TestCancelSomeoneElsesAppointment(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)
	ctx := context.Background()

	booked, err := f.svc.CreateAppointment(ctx, f.patientUser, &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "09:00",
	})
	require.NoError(t, err)

	otherUser := uuid.New()
	f.svc.patients.(*fakePatientRepo).byUserID[otherUser] = &model.Patient{
		ID:     uuid.New(),
		UserID: otherUser,
		Email:  "other@example.com",
	}

	err = f.svc.CancelAppointment(ctx, otherUser, booked.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "got %v", err)
}

func TestCreateAppointmentInactiveDoctor(t *testing.T) {
	f := newFixture(t)
	f.addSchedule(model.Monday, tod(9, 0), tod(12, 0), nil, nil)

	f.svc.doctors.(*fakeDoctorRepo).byID[f.doctorID].Active = false

	_, err := f.svc.CreateAppointment(context.Background(), f.patientUser, &model.CreateAppointmentRequest{
		DoctorID: f.doctorID.String(),
		Date:     mondayStr,
		Time:     "09:00",
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound), "got %v", err)
}
