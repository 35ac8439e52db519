package model

import (
	"github.com/google/uuid"
)

type Doctor struct {
	ID              uuid.UUID `db:"id" json:"id"`
	UserID          uuid.UUID `db:"user_id" json:"user_id"`
	FirstName       string    `db:"first_name" json:"first_name"`
	LastName        string    `db:"last_name" json:"last_name"`
	Specialization  string    `db:"specialization" json:"specialization"`
	Phone           *string   `db:"phone" json:"phone,omitempty"`
	Qualification   *string   `db:"qualification" json:"qualification,omitempty"`
	ExperienceYears *int      `db:"experience_years" json:"experience_years,omitempty"`
	ConsultationFee *float64  `db:"consultation_fee" json:"consultation_fee,omitempty"`
	Active          bool      `db:"active" json:"active"`
	Email           string    `db:"email" json:"email,omitempty"`

	// Populated by the directory queries, not a column.
	Schedules []*Schedule `db:"-" json:"schedules,omitempty"`
}

// CreateDoctorRequest is the admin provisioning payload. The account gets a
// generated temporary password returned once in the response.
type CreateDoctorRequest struct {
	Email           string                  `json:"email" binding:"required,email"`
	FirstName       string                  `json:"first_name" binding:"required"`
	LastName        string                  `json:"last_name" binding:"required"`
	Specialization  string                  `json:"specialization" binding:"required"`
	Qualification   *string                 `json:"qualification"`
	ExperienceYears *int                    `json:"experience_years" binding:"omitempty,min=0"`
	ConsultationFee *float64                `json:"consultation_fee" binding:"omitempty,min=0"`
	Schedules       []CreateScheduleRequest `json:"schedules" binding:"omitempty,dive"`
}

type CreateDoctorResponse struct {
	Doctor            *Doctor `json:"doctor"`
	TemporaryPassword string  `json:"temporary_password"`
}

type UpdateDoctorProfileRequest struct {
	FirstName       string   `json:"first_name" binding:"required"`
	LastName        string   `json:"last_name" binding:"required"`
	Phone           *string  `json:"phone"`
	Specialization  string   `json:"specialization" binding:"required"`
	Qualification   *string  `json:"qualification"`
	ExperienceYears *int     `json:"experience_years" binding:"omitempty,min=0"`
	ConsultationFee *float64 `json:"consultation_fee" binding:"omitempty,min=0"`
}

type UpdateDoctorStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active inactive"`
}
