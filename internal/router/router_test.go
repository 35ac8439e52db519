package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	doctorHandler "github.com/aproko/clinic-api/internal/handler/doctor"
	"github.com/aproko/clinic-api/internal/middleware"
	"github.com/aproko/clinic-api/internal/model"
	appointmentsvc "github.com/aproko/clinic-api/internal/service/appointment"
	doctorsvc "github.com/aproko/clinic-api/internal/service/doctor"
	pkgauth "github.com/aproko/clinic-api/pkg/auth"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/security"
	"github.com/aproko/clinic-api/pkg/timeofday"
)

type fakeDoctorRepo struct {
	doctor *model.Doctor
}

func (f *fakeDoctorRepo) CreateWithUser(ctx context.Context, u *model.User, d *model.Doctor, s []*model.Schedule) error {
	return nil
}

func (f *fakeDoctorRepo) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	if f.doctor != nil && f.doctor.ID == id {
		return f.doctor, nil
	}
	return nil, apperrors.NotFound("doctor", nil)
}

func (f *fakeDoctorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	return nil, apperrors.NotFound("doctor", nil)
}

func (f *fakeDoctorRepo) ListActive(ctx context.Context) ([]*model.Doctor, error) {
	return []*model.Doctor{f.doctor}, nil
}

func (f *fakeDoctorRepo) ListAll(ctx context.Context) ([]*model.Doctor, error) {
	return []*model.Doctor{f.doctor}, nil
}

func (f *fakeDoctorRepo) UpdateProfile(ctx context.Context, d *model.Doctor) error     { return nil }
func (f *fakeDoctorRepo) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	return nil
}

type fakeScheduleRepo struct {
	schedule *model.Schedule
}

func (f *fakeScheduleRepo) Create(ctx context.Context, s *model.Schedule) error { return nil }

func (f *fakeScheduleRepo) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	return nil, apperrors.NotFound("schedule", nil)
}

func (f *fakeScheduleRepo) GetByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, day model.Weekday) (*model.Schedule, error) {
	if f.schedule != nil && f.schedule.DoctorID == doctorID && f.schedule.DayOfWeek == day {
		return f.schedule, nil
	}
	return nil, nil
}

func (f *fakeScheduleRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Schedule, error) {
	return nil, nil
}

func (f *fakeScheduleRepo) Update(ctx context.Context, s *model.Schedule) error { return nil }
func (f *fakeScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error      { return nil }

type fakeAppointmentRepo struct {
	occupied []timeofday.TimeOfDay
}

func (f *fakeAppointmentRepo) CreateScheduled(ctx context.Context, a *model.Appointment, e *model.OutboxEvent) error {
	return nil
}

func (f *fakeAppointmentRepo) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return nil, apperrors.NotFound("appointment", nil)
}

func (f *fakeAppointmentRepo) ListOccupiedTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]timeofday.TimeOfDay, error) {
	return f.occupied, nil
}

func (f *fakeAppointmentRepo) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentDetail, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentDetail, error) {
	return nil, nil
}

func (f *fakeAppointmentRepo) CancelScheduled(ctx context.Context, id, patientID uuid.UUID, e *model.OutboxEvent) (bool, error) {
	return false, nil
}

type noopLocker struct{}

func (noopLocker) WithSlotLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type publicFixture struct {
	engine       http.Handler
	doctorID     uuid.UUID
	appointments *fakeAppointmentRepo
}

func newPublicFixture(t *testing.T) *publicFixture {
	t.Helper()

	doctorID := uuid.New()
	doctors := &fakeDoctorRepo{doctor: &model.Doctor{
		ID:             doctorID,
		FirstName:      "Chidi",
		LastName:       "Okeke",
		Specialization: "Cardiology",
		Active:         true,
	}}
	schedules := &fakeScheduleRepo{schedule: &model.Schedule{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: model.Monday,
		StartTime: timeofday.MustNew(9, 0),
		EndTime:   timeofday.MustNew(11, 0),
	}}
	appointments := &fakeAppointmentRepo{}

	doctorSvc := doctorsvc.NewService(doctors, schedules, security.NewBcryptHasher(4), nil, zerolog.Nop())
	appointmentSvc := appointmentsvc.NewService(appointments, schedules, nil, doctors, noopLocker{}, nil)

	jwtService := pkgauth.NewJWTService(pkgauth.Config{
		Secret:             "test-secret",
		RefreshSecret:      "test-refresh-secret",
		ExpiryHours:        1,
		RefreshExpiryHours: 24,
	})

	r := NewRouter(middleware.NewAuthMiddleware(jwtService), Handlers{
		Doctor: doctorHandler.NewHandler(doctorSvc, appointmentSvc),
	}, Config{
		CORS:              middleware.DefaultCORSConfig(),
		RequestTimeout:    5 * time.Second,
		RateLimitRPS:      100,
		RateLimitBurst:    100,
		DirectoryCacheTTL: time.Minute,
	})
	r.Setup()

	return &publicFixture{engine: r.Engine(), doctorID: doctorID, appointments: appointments}
}

func (f *publicFixture) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	f.engine.ServeHTTP(rec, req)
	return rec
}

func availabilitySlots(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Data struct {
			Slots []string `json:"slots"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.Slots
}

// The metrics middleware registers on the default prometheus registry, so the
// router is built once and shared by the subtests.
func TestPublicRoutes(t *testing.T) {
	f := newPublicFixture(t)
	availabilityPath := fmt.Sprintf("/api/v1/doctors/%s/availability?date=2026-09-07", f.doctorID)

	t.Run("availability is never served from cache", func(t *testing.T) {
		first := f.get(t, availabilityPath)
		assert.Empty(t, first.Header().Get("X-Cache"))
		assert.Contains(t, availabilitySlots(t, first), "10:00")

		// a booking lands between the two requests
		f.appointments.occupied = []timeofday.TimeOfDay{timeofday.MustNew(10, 0)}

		second := f.get(t, availabilityPath)
		assert.Empty(t, second.Header().Get("X-Cache"))
		slots := availabilitySlots(t, second)
		assert.NotContains(t, slots, "10:00")
		assert.Equal(t, []string{"09:00", "09:30", "10:30"}, slots)
	})

	t.Run("directory listing is cached", func(t *testing.T) {
		first := f.get(t, "/api/v1/doctors")
		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

		second := f.get(t, "/api/v1/doctors")
		require.Equal(t, http.StatusOK, second.Code)
		assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
		assert.Equal(t, first.Body.String(), second.Body.String())
	})

	t.Run("doctor detail is cached", func(t *testing.T) {
		path := "/api/v1/doctors/" + f.doctorID.String()
		first := f.get(t, path)
		require.Equal(t, http.StatusOK, first.Code)
		assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

		second := f.get(t, path)
		assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	})
}
