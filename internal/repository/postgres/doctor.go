package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/aproko/clinic-api/internal/model"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
)

const doctorColumns = `
	d.id, d.user_id, d.first_name, d.last_name, d.specialization,
	d.phone, d.qualification, d.experience_years, d.consultation_fee, d.active
`

func (r *doctorRepository) CreateWithUser(ctx context.Context, user *model.User, doctor *model.Doctor, schedules []*model.Schedule) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	userQuery := `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := tx.ExecContext(ctx, userQuery,
		user.ID, user.Email, user.PasswordHash, user.Role, user.CreatedAt,
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.Conflict("email already registered", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	doctorQuery := `
		INSERT INTO doctors (
			id, user_id, first_name, last_name, specialization,
			phone, qualification, experience_years, consultation_fee, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	if _, err := tx.ExecContext(ctx, doctorQuery,
		doctor.ID,
		doctor.UserID,
		doctor.FirstName,
		doctor.LastName,
		doctor.Specialization,
		doctor.Phone,
		doctor.Qualification,
		doctor.ExperienceYears,
		doctor.ConsultationFee,
		doctor.Active,
	); err != nil {
		return fmt.Errorf("failed to create doctor: %w", err)
	}

	scheduleQuery := `
		INSERT INTO doctor_schedules (
			id, doctor_id, day_of_week, start_time, end_time,
			break_start, break_end, max_patients
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, s := range schedules {
		if _, err := tx.ExecContext(ctx, scheduleQuery,
			s.ID, s.DoctorID, s.DayOfWeek, s.StartTime, s.EndTime,
			s.BreakStart, s.BreakEnd, s.MaxPatients,
		); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return apperrors.Conflict(fmt.Sprintf("duplicate schedule for %s", s.DayOfWeek), err)
			}
			return fmt.Errorf("failed to create schedule: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *doctorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `, u.email
		FROM doctors d
		JOIN users u ON d.user_id = u.id
		WHERE d.id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `, u.email
		FROM doctors d
		JOIN users u ON d.user_id = u.id
		WHERE d.user_id = $1
	`
	var doctor model.Doctor
	err := r.db.GetContext(ctx, &doctor, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("doctor", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor by user: %w", err)
	}
	return &doctor, nil
}

func (r *doctorRepository) ListActive(ctx context.Context) ([]*model.Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `, '' AS email
		FROM doctors d
		WHERE d.active = true
		ORDER BY d.last_name, d.first_name
	`
	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	if err := r.attachSchedules(ctx, doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *doctorRepository) ListAll(ctx context.Context) ([]*model.Doctor, error) {
	query := `
		SELECT ` + doctorColumns + `, u.email
		FROM doctors d
		JOIN users u ON d.user_id = u.id
		ORDER BY d.last_name, d.first_name
	`
	var doctors []*model.Doctor
	if err := r.db.SelectContext(ctx, &doctors, query); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}

	if err := r.attachSchedules(ctx, doctors); err != nil {
		return nil, err
	}
	return doctors, nil
}

func (r *doctorRepository) attachSchedules(ctx context.Context, doctors []*model.Doctor) error {
	if len(doctors) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(doctors))
	byID := make(map[uuid.UUID]*model.Doctor, len(doctors))
	for _, d := range doctors {
		ids = append(ids, d.ID)
		byID[d.ID] = d
	}

	query := `
		SELECT id, doctor_id, day_of_week, start_time, end_time,
			   break_start, break_end, max_patients
		FROM doctor_schedules
		WHERE doctor_id = ANY($1)
		ORDER BY doctor_id, array_position(
			ARRAY['monday','tuesday','wednesday','thursday','friday','saturday','sunday'],
			day_of_week)
	`
	var schedules []*model.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to list schedules: %w", err)
	}

	for _, s := range schedules {
		if d, ok := byID[s.DoctorID]; ok {
			d.Schedules = append(d.Schedules, s)
		}
	}
	return nil
}

func (r *doctorRepository) UpdateProfile(ctx context.Context, doctor *model.Doctor) error {
	query := `
		UPDATE doctors
		SET first_name = $1, last_name = $2, phone = $3, specialization = $4,
			qualification = $5, experience_years = $6, consultation_fee = $7
		WHERE id = $8
	`
	result, err := r.db.ExecContext(ctx, query,
		doctor.FirstName,
		doctor.LastName,
		doctor.Phone,
		doctor.Specialization,
		doctor.Qualification,
		doctor.ExperienceYears,
		doctor.ConsultationFee,
		doctor.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update doctor: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("doctor", nil)
	}
	return nil
}

func (r *doctorRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE doctors SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update doctor status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("doctor", nil)
	}
	return nil
}
