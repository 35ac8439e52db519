// Package timeofday provides a clock-time value type for schedule and
// booking arithmetic. Schedules and bookings store wall-clock times with no
// date component; doing arithmetic on them through string-templated
// time.Parse calls is fragile, so all slot math goes through this type.
package timeofday

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// TimeOfDay is a clock time with minute precision, stored as minutes since
// midnight. The zero value is midnight.
type TimeOfDay struct {
	minutes int
}

const minutesPerDay = 24 * 60

var (
	// ErrInvalid is returned when a value cannot be parsed as a clock time.
	ErrInvalid = fmt.Errorf("invalid time of day")
)

// New builds a TimeOfDay from hour and minute. Values outside the clock
// range are rejected.
func New(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return TimeOfDay{}, fmt.Errorf("%w: %02d:%02d", ErrInvalid, hour, minute)
	}
	return TimeOfDay{minutes: hour*60 + minute}, nil
}

// MustNew is New for compile-time constants in tests and seeds.
func MustNew(hour, minute int) TimeOfDay {
	t, err := New(hour, minute)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse accepts exactly "HH:MM" or "HH:MM:SS" (seconds are discarded, the
// store has minute granularity). Every byte is checked; Sscanf-style parsing
// would accept strings like "12:3a" by stopping at the first non-digit.
func Parse(s string) (TimeOfDay, error) {
	if (len(s) != 5 && len(s) != 8) || s[2] != ':' {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	hour, okHour := twoDigits(s[0:2])
	minute, okMinute := twoDigits(s[3:5])
	if !okHour || !okMinute {
		return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	if len(s) == 8 {
		second, okSecond := twoDigits(s[6:8])
		if s[5] != ':' || !okSecond || second > 59 {
			return TimeOfDay{}, fmt.Errorf("%w: %q", ErrInvalid, s)
		}
	}
	return New(hour, minute)
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// FromTime extracts the clock portion of a time.Time.
func FromTime(t time.Time) TimeOfDay {
	return TimeOfDay{minutes: t.Hour()*60 + t.Minute()}
}

func (t TimeOfDay) Hour() int   { return t.minutes / 60 }
func (t TimeOfDay) Minute() int { return t.minutes % 60 }

// String renders "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// SQLString renders "HH:MM:SS" for TIME columns.
func (t TimeOfDay) SQLString() string {
	return fmt.Sprintf("%02d:%02d:00", t.Hour(), t.Minute())
}

func (t TimeOfDay) Before(u TimeOfDay) bool { return t.minutes < u.minutes }
func (t TimeOfDay) After(u TimeOfDay) bool  { return t.minutes > u.minutes }
func (t TimeOfDay) Equal(u TimeOfDay) bool  { return t.minutes == u.minutes }

// Add steps forward by d, truncated to minutes. Stepping past midnight
// saturates at 24:00 so slot loops terminate; schedules never legitimately
// wrap a day boundary.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	m := t.minutes + int(d/time.Minute)
	if m > minutesPerDay {
		m = minutesPerDay
	}
	return TimeOfDay{minutes: m}
}

// In reports whether t falls inside the half-open window [from, to).
func (t TimeOfDay) In(from, to TimeOfDay) bool {
	return !t.Before(from) && t.Before(to)
}

// IsZero reports midnight, used to detect absent break windows.
func (t TimeOfDay) IsZero() bool { return t.minutes == 0 }

// MarshalJSON renders the wire format "HH:MM".
func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalid, data)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Scan accepts TIME column values. lib/pq hands TIME back as []byte or
// string; some drivers use time.Time.
func (t *TimeOfDay) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*t = TimeOfDay{}
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	case time.Time:
		*t = FromTime(v)
		return nil
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrInvalid, src)
	}
}

// Value implements driver.Valuer for TIME columns.
func (t TimeOfDay) Value() (driver.Value, error) {
	return t.SQLString(), nil
}
