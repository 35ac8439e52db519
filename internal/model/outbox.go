package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Outbox event types
const (
	EventAppointmentBooked    = "appointment_booked"
	EventAppointmentCancelled = "appointment_cancelled"
)

// Outbox event statuses
const (
	OutboxStatusPending   = "pending"
	OutboxStatusProcessed = "processed"
	OutboxStatusFailed    = "failed"
)

// OutboxEvent is written in the same transaction as the state change it
// describes and published to the broker by the worker.
type OutboxEvent struct {
	ID          uuid.UUID       `db:"id" json:"id"`
	EventType   string          `db:"event_type" json:"event_type"`
	Payload     json.RawMessage `db:"payload" json:"payload"`
	Status      string          `db:"status" json:"status"`
	RetryCount  int             `db:"retry_count" json:"retry_count"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
}

// AppointmentEventPayload is the outbox payload for booking lifecycle
// events; the notifier uses it to address the confirmation email.
type AppointmentEventPayload struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	PatientID     uuid.UUID `json:"patient_id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	PatientEmail  string    `json:"patient_email"`
	PatientName   string    `json:"patient_name"`
	DoctorName    string    `json:"doctor_name"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
}
