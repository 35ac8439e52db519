package model

import (
	"time"

	"github.com/google/uuid"
)

type Patient struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           uuid.UUID  `db:"user_id" json:"user_id"`
	FirstName        string     `db:"first_name" json:"first_name"`
	LastName         string     `db:"last_name" json:"last_name"`
	Phone            *string    `db:"phone" json:"phone,omitempty"`
	DateOfBirth      *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender           *string    `db:"gender" json:"gender,omitempty"`
	Address          *string    `db:"address" json:"address,omitempty"`
	MedicalHistory   *string    `db:"medical_history" json:"medical_history,omitempty"`
	EmergencyContact *string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	Email            string     `db:"email" json:"email"`
}

type UpdatePatientRequest struct {
	FirstName        string  `json:"first_name" binding:"required"`
	LastName         string  `json:"last_name" binding:"required"`
	Phone            *string `json:"phone"`
	DateOfBirth      *string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	Gender           *string `json:"gender" binding:"omitempty,oneof=male female other"`
	Address          *string `json:"address"`
	MedicalHistory   *string `json:"medical_history"`
	EmergencyContact *string `json:"emergency_contact"`
}

// PatientFilters narrows admin patient searches.
type PatientFilters struct {
	Search string `form:"search"`
	Pagination
}
