package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/aproko/clinic-api/internal/model"
	apperrors "github.com/aproko/clinic-api/pkg/errors"
	"github.com/aproko/clinic-api/pkg/timeofday"
)

// The appointments table carries a partial unique index over
// (doctor_id, appointment_date, appointment_time) restricted to statuses
// outside ('cancelled', 'no_show'). The service-level slot lock keeps
// well-behaved requests from racing; the index catches everything else.

// CreateScheduled inserts a new scheduled appointment and its outbox event
// in one transaction. A unique-index violation means another request claimed
// the slot first and maps to Conflict.
func (r *appointmentRepository) CreateScheduled(ctx context.Context, appointment *model.Appointment, event *model.OutboxEvent) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO appointments (
			id, patient_id, doctor_id, appointment_date, appointment_time,
			status, reason, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = tx.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.DoctorID,
		appointment.Date,
		appointment.Time,
		appointment.Status,
		appointment.Reason,
		appointment.Notes,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return apperrors.Conflict("slot was just booked by another patient", err)
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if event != nil {
		if err := insertOutboxEvent(ctx, tx, event); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT id, patient_id, doctor_id, appointment_date, appointment_time,
			   status, reason, notes, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	var appointment model.Appointment
	err := r.db.GetContext(ctx, &appointment, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

// ListOccupiedTimes returns the exclusion set for one doctor and date: the
// times of every booking whose status still blocks its slot.
func (r *appointmentRepository) ListOccupiedTimes(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]timeofday.TimeOfDay, error) {
	query := `
		SELECT appointment_time
		FROM appointments
		WHERE doctor_id = $1
		AND appointment_date = $2
		AND status NOT IN ('cancelled', 'no_show')
		ORDER BY appointment_time ASC
	`
	var times []timeofday.TimeOfDay
	if err := r.db.SelectContext(ctx, &times, query, doctorID, date.Format(model.DateLayout)); err != nil {
		return nil, fmt.Errorf("failed to list occupied times: %w", err)
	}
	return times, nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.AppointmentDetail, error) {
	query := `
		SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date,
			   a.appointment_time, a.status, a.reason, a.notes,
			   a.created_at, a.updated_at,
			   d.first_name AS doctor_first_name,
			   d.last_name AS doctor_last_name,
			   d.specialization
		FROM appointments a
		JOIN doctors d ON a.doctor_id = d.id
		WHERE a.patient_id = $1 AND a.status != 'cancelled'
		ORDER BY a.appointment_date ASC, a.appointment_time ASC
	`
	var appointments []*model.AppointmentDetail
	if err := r.db.SelectContext(ctx, &appointments, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list patient appointments: %w", err)
	}
	return appointments, nil
}

// ListByDoctor orders the doctor's worklist upcoming-first: future dates,
// then today, then past, each block in chronological order.
func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.AppointmentDetail, error) {
	query := `
		SELECT a.id, a.patient_id, a.doctor_id, a.appointment_date,
			   a.appointment_time, a.status, a.reason, a.notes,
			   a.created_at, a.updated_at,
			   p.first_name AS patient_first_name,
			   p.last_name AS patient_last_name,
			   p.phone AS patient_phone
		FROM appointments a
		JOIN patients p ON a.patient_id = p.id
		WHERE a.doctor_id = $1
		ORDER BY
			CASE
				WHEN a.appointment_date > CURRENT_DATE THEN 1
				WHEN a.appointment_date = CURRENT_DATE THEN 2
				ELSE 3
			END,
			a.appointment_date ASC,
			a.appointment_time ASC
	`
	var appointments []*model.AppointmentDetail
	if err := r.db.SelectContext(ctx, &appointments, query, doctorID); err != nil {
		return nil, fmt.Errorf("failed to list doctor appointments: %w", err)
	}
	return appointments, nil
}

// CancelScheduled flips a booking from scheduled to cancelled, but only for
// the owning patient and only while still scheduled. Returns false when no
// row matched, which covers missing, foreign, and already-final bookings
// alike.
func (r *appointmentRepository) CancelScheduled(ctx context.Context, id, patientID uuid.UUID, event *model.OutboxEvent) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		UPDATE appointments
		SET status = 'cancelled', updated_at = $1
		WHERE id = $2 AND patient_id = $3 AND status = 'scheduled'
	`
	result, err := tx.ExecContext(ctx, query, time.Now(), id, patientID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return false, nil
	}

	if event != nil {
		if err := insertOutboxEvent(ctx, tx, event); err != nil {
			return false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

func insertOutboxEvent(ctx context.Context, tx *sqlx.Tx, event *model.OutboxEvent) error {
	query := `
		INSERT INTO outbox_events (id, event_type, payload, status, retry_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, query,
		event.ID,
		event.EventType,
		event.Payload,
		event.Status,
		event.RetryCount,
		event.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}
