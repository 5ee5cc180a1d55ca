package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day in seconds since midnight.
// EndOfDay (24:00:00) is a valid value and only meaningful as an exclusive end.
type ClockTime int

const (
	Midnight ClockTime = 0
	EndOfDay ClockTime = 24 * 60 * 60
)

// NewClockTime builds a ClockTime from hour, minute and second components
func NewClockTime(hour, minute, second int) ClockTime {
	return ClockTime(hour*3600 + minute*60 + second)
}

// ClockTimeOf returns the time of day of t in t's location
func ClockTimeOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute(), t.Second())
}

// ParseClockTime parses "HH:MM" or "HH:MM:SS". "24:00" is accepted as end of day.
func ParseClockTime(s string) (ClockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock time %q", s)
	}

	var values [3]int
	for i, part := range parts {
		if len(part) != 2 {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid clock time %q", s)
		}
		values[i] = n
	}

	h, m, sec := values[0], values[1], values[2]
	if h == 24 && m == 0 && sec == 0 {
		return EndOfDay, nil
	}
	if h > 23 || m > 59 || sec > 59 {
		return 0, fmt.Errorf("clock time %q out of range", s)
	}
	return NewClockTime(h, m, sec), nil
}

// MustParseClockTime is ParseClockTime for constants and tests
func MustParseClockTime(s string) ClockTime {
	c, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Valid reports whether c lies in [00:00:00, 24:00:00]
func (c ClockTime) Valid() bool {
	return c >= Midnight && c <= EndOfDay
}

// AsEnd interprets c as an exclusive range end: 00:00 means end of day.
func (c ClockTime) AsEnd() ClockTime {
	if c == Midnight {
		return EndOfDay
	}
	return c
}

// Duration returns c as an offset from midnight
func (c ClockTime) Duration() time.Duration {
	return time.Duration(c) * time.Second
}

// OnDate returns the instant at clock time c on the calendar date of day, in loc
func (c ClockTime) OnDate(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, int(c), 0, loc)
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", int(c)/3600, (int(c)%3600)/60, int(c)%60)
}

// MarshalJSON encodes c as "HH:MM:SS"
func (c ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes "HH:MM" or "HH:MM:SS"
func (c *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("clock time must be a string: %w", err)
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Value implements driver.Valuer for postgres time columns
func (c ClockTime) Value() (driver.Value, error) {
	return c.String(), nil
}

// Scan implements sql.Scanner for postgres time columns
func (c *ClockTime) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*c = Midnight
		return nil
	case time.Time:
		// the driver reports 24:00:00 as midnight of the following day
		if v.YearDay() > 1 && ClockTimeOf(v) == Midnight {
			*c = EndOfDay
			return nil
		}
		*c = ClockTimeOf(v)
		return nil
	case []byte:
		return c.scanString(string(v))
	case string:
		return c.scanString(v)
	default:
		return fmt.Errorf("cannot scan %T into ClockTime", src)
	}
}

func (c *ClockTime) scanString(s string) error {
	// postgres may append fractional seconds
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	parsed, err := ParseClockTime(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ClockRange is a half-open range [Start, End) of clock times within one day
type ClockRange struct {
	Start ClockTime
	End   ClockTime
}

// Valid reports whether the range is non-empty and within the day
func (r ClockRange) Valid() bool {
	return r.Start.Valid() && r.End.Valid() && r.Start < r.End
}

// Contains reports whether t lies in [Start, End)
func (r ClockRange) Contains(t ClockTime) bool {
	return t >= r.Start && t < r.End
}

// Covers reports whether o lies entirely inside r
func (r ClockRange) Covers(o ClockRange) bool {
	return o.Start >= r.Start && o.End <= r.End
}

// Overlaps reports whether the two half-open ranges share any instant
func (r ClockRange) Overlaps(o ClockRange) bool {
	return r.Start < o.End && r.End > o.Start
}

// DateOf returns the calendar date of t in loc, as midnight UTC
func DateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDate reports whether a and b fall on the same calendar date, ignoring location
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
