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

func (r *scheduleRepository) Create(ctx context.Context, schedule *model.Schedule) error {
	query := `
		INSERT INTO doctor_schedules (
			id, doctor_id, day_of_week, start_time, end_time,
			break_start, break_end, max_patients
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		schedule.ID,
		schedule.DoctorID,
		schedule.DayOfWeek,
		schedule.StartTime,
		schedule.EndTime,
		schedule.BreakStart,
		schedule.BreakEnd,
		schedule.MaxPatients,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.Conflict(fmt.Sprintf("schedule for %s already exists", schedule.DayOfWeek), err)
		}
		return fmt.Errorf("failed to create schedule: %w", err)
	}
	return nil
}

func (r *scheduleRepository) Get(ctx context.Context, id uuid.UUID) (*model.Schedule, error) {
	query := `
		SELECT id, doctor_id, day_of_week, start_time, end_time,
			   break_start, break_end, max_patients
		FROM doctor_schedules
		WHERE id = $1
	`
	var schedule model.Schedule
	err := r.db.GetContext(ctx, &schedule, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("schedule", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return &schedule, nil
}

// GetByDoctorAndDay returns nil, nil when the doctor has no schedule that
// weekday: an empty day is a valid availability outcome, not an error.
func (r *scheduleRepository) GetByDoctorAndDay(ctx context.Context, doctorID uuid.UUID, day model.Weekday) (*model.Schedule, error) {
	query := `
		SELECT id, doctor_id, day_of_week, start_time, end_time,
			   break_start, break_end, max_patients
		FROM doctor_schedules
		WHERE doctor_id = $1 AND day_of_week = $2
	`
	var schedule model.Schedule
	err := r.db.GetContext(ctx, &schedule, query, doctorID, day)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule for %s: %w", day, err)
	}
	return &schedule, nil
}

func (r *scheduleRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Schedule, error) {
	query := `
		SELECT id, doctor_id, day_of_week, start_time, end_time,
			   break_start, break_end, max_patients
		FROM doctor_schedules
		WHERE doctor_id = $1
		ORDER BY array_position(
			ARRAY['monday','tuesday','wednesday','thursday','friday','saturday','sunday'],
			day_of_week)
	`
	var schedules []*model.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (r *scheduleRepository) Update(ctx context.Context, schedule *model.Schedule) error {
	query := `
		UPDATE doctor_schedules
		SET start_time = $1, end_time = $2, break_start = $3,
			break_end = $4, max_patients = $5
		WHERE id = $6
	`
	result, err := r.db.ExecContext(ctx, query,
		schedule.StartTime,
		schedule.EndTime,
		schedule.BreakStart,
		schedule.BreakEnd,
		schedule.MaxPatients,
		schedule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("schedule", nil)
	}
	return nil
}

func (r *scheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM doctor_schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("schedule", nil)
	}
	return nil
}
