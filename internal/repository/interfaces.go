package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aproko/clinic-api/internal/model"
	"github.com/aproko/clinic-api/pkg/timeofday"
)

// All repository interfaces in one file
type (
	// UserRepository handles login accounts
	UserRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	// PatientRepository handles patient profiles. Account creation and
	// deletion span the users table, so both run in one transaction here.
	PatientRepository interface {
		CreateWithUser(ctx context.Context, user *model.User, patient *model.Patient) error
		Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Search(ctx context.Context, filters *model.PatientFilters) ([]*model.Patient, error)
		DeleteAccount(ctx context.Context, userID uuid.UUID) error
	}

	DoctorRepository interface {
		CreateWithUser(ctx context.Context, user *model.User, doctor *model.Doctor, schedules []*model.Schedule) error
		Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
		GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error)
		ListActive(ctx context.Context) ([]*model.Doctor, error)
		ListAll(ctx context.Context) ([]*model.Doctor, error)
		UpdateProfile(ctx context.Context, doctor *model.Doctor) error
		SetActive(ctx context.Context, id uuid.UUID, active bool) error
	}

	ScheduleRepository interface {
		Create(ctx context.Context, schedule *model.Schedule) error
		Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error)
		GetByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, day model.Weekday) (*model.Schedule, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Schedule, error)
		Update(ctx context.Context, schedule *model.Schedule) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	// AppointmentRepository handles bookings. Writes that change booking
	// state also insert the matching outbox event in the same transaction.
	AppointmentRepository interface {
		CreateScheduled(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		ListOccupiedTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]timeofday.TimeOfDay, error)
		ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentDetail, error)
		ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentDetail, error)
		CancelScheduled(ctx context.Context, id, patientID uuid.UUID, event *model.OutboxEvent) (bool, error)
	}

	OutboxRepository interface {
		GetPendingEventsWithLock(ctx context.Context, batchSize int) ([]*model.OutboxEvent, error)
		MarkProcessed(ctx context.Context, id uuid.UUID) error
		MarkFailed(ctx context.Context, id uuid.UUID) error
	}
)
