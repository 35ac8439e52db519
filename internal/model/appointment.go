package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/aproko/clinic-api/pkg/timeofday"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusNoShow    AppointmentStatus = "no_show"
)

// Occupies reports whether an appointment in this status blocks its slot.
// Cancelled and no-show rows free the time for rebooking.
func (s AppointmentStatus) Occupies() bool {
	return s != AppointmentStatusCancelled && s != AppointmentStatusNoShow
}

type Appointment struct {
	ID        uuid.UUID           `db:"id" json:"id"`
	PatientID uuid.UUID           `db:"patient_id" json:"patient_id"`
	DoctorID  uuid.UUID           `db:"doctor_id" json:"doctor_id"`
	Date      time.Time           `db:"appointment_date" json:"appointment_date"`
	Time      timeofday.TimeOfDay `db:"appointment_time" json:"appointment_time"`
	Status    AppointmentStatus   `db:"status" json:"status"`
	Reason    *string             `db:"reason" json:"reason,omitempty"`
	Notes     *string             `db:"notes" json:"notes,omitempty"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

// AppointmentDetail joins in the counterpart names for list screens.
type AppointmentDetail struct {
	Appointment
	DoctorFirstName  *string `db:"doctor_first_name" json:"doctor_first_name,omitempty"`
	DoctorLastName   *string `db:"doctor_last_name" json:"doctor_last_name,omitempty"`
	Specialization   *string `db:"specialization" json:"specialization,omitempty"`
	PatientFirstName *string `db:"patient_first_name" json:"patient_first_name,omitempty"`
	PatientLastName  *string `db:"patient_last_name" json:"patient_last_name,omitempty"`
	PatientPhone     *string `db:"patient_phone" json:"patient_phone,omitempty"`
}

type CreateAppointmentRequest struct {
	DoctorID string  `json:"doctor_id" binding:"required,uuid"`
	Date     string  `json:"appointment_date" binding:"required,datetime=2006-01-02"`
	Time     string  `json:"appointment_time" binding:"required,timeofday"`
	Reason   *string `json:"reason" binding:"omitempty,max=1000"`
	Notes    *string `json:"notes" binding:"omitempty,max=1000"`
}
