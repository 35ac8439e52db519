package doctor

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aproko/clinic-api/internal/email"
	"github.com/aproko/clinic-api/internal/model"
	"github.com/aproko/clinic-api/internal/repository"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/security"
	"github.com/aproko/clinic-api/pkg/timeofday"
)

const tempPasswordLength = 12

// Service covers the doctor directory, the doctor's own profile and weekly
// schedule, and admin provisioning of doctor accounts.
type Service struct {
	doctors   repository.DoctorRepository
	schedules repository.ScheduleRepository
	hasher    security.PasswordHasher
	mailer    email.Service
	logger    zerolog.Logger
}

func NewService(
	doctors repository.DoctorRepository,
	schedules repository.ScheduleRepository,
	hasher security.PasswordHasher,
	mailer email.Service,
	logger zerolog.Logger,
) *Service {
	return &Service{
		doctors:   doctors,
		schedules: schedules,
		hasher:    hasher,
		mailer:    mailer,
		logger:    logger,
	}
}

// ListDirectory returns the public directory of active doctors with their
// weekly schedules attached.
func (s *Service) ListDirectory(ctx context.Context) ([]*model.Doctor, error) {
	return s.doctors.ListActive(ctx)
}

// GetPublic returns one doctor for the public directory. Inactive doctors
// are hidden, not flagged.
func (s *Service) GetPublic(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctors.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, apperrors.NotFound("doctor", nil)
	}
	return doctor, nil
}

// ListAll returns every doctor including inactive ones, for admin views.
func (s *Service) ListAll(ctx context.Context) ([]*model.Doctor, error) {
	return s.doctors.ListAll(ctx)
}

// Provision creates a doctor account on behalf of an admin. The login gets
// a generated temporary password which is emailed to the doctor and returned
// once in the response; it is never stored in the clear.
func (s *Service) Provision(ctx context.Context, req *model.CreateDoctorRequest) (*model.CreateDoctorResponse, error) {
	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, apperrors.Internal("failed to generate password", err)
	}
	hash, err := s.hasher.Hash(tempPassword)
	if err != nil {
		return nil, apperrors.Internal("failed to hash password", err)
	}

	user := &model.User{
		ID:           uuid.New(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         model.RoleDoctor,
		CreatedAt:    time.Now(),
	}
	doctor := &model.Doctor{
		ID:              uuid.New(),
		UserID:          user.ID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Specialization:  req.Specialization,
		Qualification:   req.Qualification,
		ExperienceYears: req.ExperienceYears,
		ConsultationFee: req.ConsultationFee,
		Active:          true,
		Email:           user.Email,
	}

	schedules, err := buildSchedules(doctor.ID, req.Schedules)
	if err != nil {
		return nil, err
	}

	if err := s.doctors.CreateWithUser(ctx, user, doctor, schedules); err != nil {
		return nil, err
	}
	doctor.Schedules = schedules

	if err := s.mailer.SendDoctorWelcome(ctx, user.Email, doctor.LastName, tempPassword); err != nil {
		// The account exists either way; the admin still has the password
		// from the response.
		s.logger.Warn().Err(err).Str("doctor_id", doctor.ID.String()).Msg("failed to send welcome email")
	}

	s.logger.Info().Str("doctor_id", doctor.ID.String()).Msg("doctor provisioned")
	return &model.CreateDoctorResponse{Doctor: doctor, TemporaryPassword: tempPassword}, nil
}

// SetStatus activates or deactivates a doctor. Deactivated doctors drop out
// of the directory and stop accepting bookings; existing appointments stand.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, req *model.UpdateDoctorStatusRequest) error {
	if _, err := s.doctors.Get(ctx, id); err != nil {
		return err
	}
	return s.doctors.SetActive(ctx, id, req.Status == "active")
}

// GetOwnProfile returns the profile for the authenticated doctor.
func (s *Service) GetOwnProfile(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	doctor, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	doctor.Schedules, err = s.schedules.ListByDoctor(ctx, doctor.ID)
	if err != nil {
		return nil, err
	}
	return doctor, nil
}

// UpdateOwnProfile applies a doctor's edits to their own profile.
func (s *Service) UpdateOwnProfile(ctx context.Context, userID uuid.UUID, req *model.UpdateDoctorProfileRequest) (*model.Doctor, error) {
	doctor, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	doctor.FirstName = req.FirstName
	doctor.LastName = req.LastName
	doctor.Phone = req.Phone
	doctor.Specialization = req.Specialization
	doctor.Qualification = req.Qualification
	doctor.ExperienceYears = req.ExperienceYears
	doctor.ConsultationFee = req.ConsultationFee

	if err := s.doctors.UpdateProfile(ctx, doctor); err != nil {
		return nil, err
	}
	return doctor, nil
}

// ListOwnSchedules returns the authenticated doctor's weekly template.
func (s *Service) ListOwnSchedules(ctx context.Context, userID uuid.UUID) ([]*model.Schedule, error) {
	doctor, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.schedules.ListByDoctor(ctx, doctor.ID)
}

// CreateSchedule adds a weekday to the doctor's template. One row per
// weekday; a second row for the same day is a Conflict from the repository.
func (s *Service) CreateSchedule(ctx context.Context, userID uuid.UUID, req *model.CreateScheduleRequest) (*model.Schedule, error) {
	doctor, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	schedule, err := scheduleFromRequest(doctor.ID, req)
	if err != nil {
		return nil, err
	}

	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// UpdateSchedule rewrites the hours for one of the doctor's weekdays.
func (s *Service) UpdateSchedule(ctx context.Context, userID, scheduleID uuid.UUID, req *model.UpdateScheduleRequest) (*model.Schedule, error) {
	doctor, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.ownedSchedule(ctx, doctor.ID, scheduleID)
	if err != nil {
		return nil, err
	}

	if err := applyScheduleTimes(schedule, req.StartTime, req.EndTime, req.BreakStart, req.BreakEnd, req.MaxPatients); err != nil {
		return nil, err
	}

	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, err
	}
	return schedule, nil
}

// DeleteSchedule removes a weekday from the doctor's template. Already
// booked appointments on that day are unaffected.
func (s *Service) DeleteSchedule(ctx context.Context, userID, scheduleID uuid.UUID) error {
	doctor, err := s.doctors.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := s.ownedSchedule(ctx, doctor.ID, scheduleID); err != nil {
		return err
	}
	return s.schedules.Delete(ctx, scheduleID)
}

// ownedSchedule fetches a schedule and hides rows belonging to other
// doctors behind NotFound.
func (s *Service) ownedSchedule(ctx context.Context, doctorID, scheduleID uuid.UUID) (*model.Schedule, error) {
	schedule, err := s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if schedule.DoctorID != doctorID {
		return nil, apperrors.NotFound("schedule", nil)
	}
	return schedule, nil
}

func buildSchedules(doctorID uuid.UUID, reqs []model.CreateScheduleRequest) ([]*model.Schedule, error) {
	seen := make(map[model.Weekday]struct{}, len(reqs))
	schedules := make([]*model.Schedule, 0, len(reqs))
	for i := range reqs {
		schedule, err := scheduleFromRequest(doctorID, &reqs[i])
		if err != nil {
			return nil, err
		}
		if _, dup := seen[schedule.DayOfWeek]; dup {
			return nil, apperrors.InvalidInput("duplicate schedule for "+string(schedule.DayOfWeek), nil)
		}
		seen[schedule.DayOfWeek] = struct{}{}
		schedules = append(schedules, schedule)
	}
	return schedules, nil
}

func scheduleFromRequest(doctorID uuid.UUID, req *model.CreateScheduleRequest) (*model.Schedule, error) {
	day, err := model.ParseWeekday(req.DayOfWeek)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error(), nil)
	}

	schedule := &model.Schedule{
		ID:        uuid.New(),
		DoctorID:  doctorID,
		DayOfWeek: day,
	}
	if err := applyScheduleTimes(schedule, req.StartTime, req.EndTime, req.BreakStart, req.BreakEnd, req.MaxPatients); err != nil {
		return nil, err
	}
	return schedule, nil
}

func applyScheduleTimes(schedule *model.Schedule, start, end string, breakStart, breakEnd *string, maxPatients *int) error {
	var err error
	if schedule.StartTime, err = timeofday.Parse(start); err != nil {
		return apperrors.InvalidInput("invalid start_time", err)
	}
	if schedule.EndTime, err = timeofday.Parse(end); err != nil {
		return apperrors.InvalidInput("invalid end_time", err)
	}

	schedule.BreakStart, schedule.BreakEnd = nil, nil
	if breakStart != nil {
		t, err := timeofday.Parse(*breakStart)
		if err != nil {
			return apperrors.InvalidInput("invalid break_start", err)
		}
		schedule.BreakStart = &t
	}
	if breakEnd != nil {
		t, err := timeofday.Parse(*breakEnd)
		if err != nil {
			return apperrors.InvalidInput("invalid break_end", err)
		}
		schedule.BreakEnd = &t
	}
	schedule.MaxPatients = maxPatients

	if err := schedule.Validate(); err != nil {
		return apperrors.InvalidInput(err.Error(), nil)
	}
	return nil
}
