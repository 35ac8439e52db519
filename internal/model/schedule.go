package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aproko/clinic-api/pkg/timeofday"
)

// Weekday is the lowercase day name used by the schedule table.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// WeekdayOf maps a calendar date to its schedule day name.
func WeekdayOf(date time.Time) Weekday {
	return Weekday(strings.ToLower(date.Weekday().String()))
}

// ParseWeekday validates a day name from a request payload.
func ParseWeekday(s string) (Weekday, error) {
	switch w := Weekday(strings.ToLower(s)); w {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return w, nil
	default:
		return "", fmt.Errorf("invalid day of week: %q", s)
	}
}

// Schedule is a doctor's recurring weekly availability template for one
// weekday. At most one row exists per (doctor, weekday).
type Schedule struct {
	ID          uuid.UUID            `db:"id" json:"id"`
	DoctorID    uuid.UUID            `db:"doctor_id" json:"doctor_id"`
	DayOfWeek   Weekday              `db:"day_of_week" json:"day_of_week"`
	StartTime   timeofday.TimeOfDay  `db:"start_time" json:"start_time"`
	EndTime     timeofday.TimeOfDay  `db:"end_time" json:"end_time"`
	BreakStart  *timeofday.TimeOfDay `db:"break_start" json:"break_start,omitempty"`
	BreakEnd    *timeofday.TimeOfDay `db:"break_end" json:"break_end,omitempty"`
	MaxPatients *int                 `db:"max_patients" json:"max_patients,omitempty"`
}

// Validate enforces the schedule invariants: start before end, break window
// ordered and contained in the working hours, break set or absent as a pair.
func (s *Schedule) Validate() error {
	if !s.StartTime.Before(s.EndTime) {
		return fmt.Errorf("start_time %s must be before end_time %s", s.StartTime, s.EndTime)
	}
	if (s.BreakStart == nil) != (s.BreakEnd == nil) {
		return fmt.Errorf("break_start and break_end must be set together")
	}
	if s.BreakStart != nil {
		if s.BreakEnd.Before(*s.BreakStart) {
			return fmt.Errorf("break_start %s must not be after break_end %s", s.BreakStart, s.BreakEnd)
		}
		if s.BreakStart.Before(s.StartTime) || s.EndTime.Before(*s.BreakEnd) {
			return fmt.Errorf("break window %s-%s must fall within working hours %s-%s",
				s.BreakStart, s.BreakEnd, s.StartTime, s.EndTime)
		}
	}
	if s.MaxPatients != nil && *s.MaxPatients <= 0 {
		return fmt.Errorf("max_patients must be positive")
	}
	return nil
}

// HasBreak reports whether a non-empty break window is configured.
func (s *Schedule) HasBreak() bool {
	return s.BreakStart != nil && s.BreakEnd != nil && s.BreakStart.Before(*s.BreakEnd)
}

type CreateScheduleRequest struct {
	DayOfWeek   string  `json:"day_of_week" binding:"required"`
	StartTime   string  `json:"start_time" binding:"required,timeofday"`
	EndTime     string  `json:"end_time" binding:"required,timeofday"`
	BreakStart  *string `json:"break_start" binding:"omitempty,timeofday"`
	BreakEnd    *string `json:"break_end" binding:"omitempty,timeofday"`
	MaxPatients *int    `json:"max_patients" binding:"omitempty,min=1"`
}

type UpdateScheduleRequest struct {
	StartTime   string  `json:"start_time" binding:"required,timeofday"`
	EndTime     string  `json:"end_time" binding:"required,timeofday"`
	BreakStart  *string `json:"break_start" binding:"omitempty,timeofday"`
	BreakEnd    *string `json:"break_end" binding:"omitempty,timeofday"`
	MaxPatients *int    `json:"max_patients" binding:"omitempty,min=1"`
}
