package entities

import "time"

// DoctorSchedule is one recurring weekly shift
type DoctorSchedule struct {
	ID          string       `json:"id" db:"id"`
	DoctorID    string       `json:"doctorId" db:"doctor_id"`
	DayOfWeek   time.Weekday `json:"dayOfWeek" db:"day_of_week"`
	StartTime   ClockTime    `json:"startTime" db:"start_time"`
	EndTime     ClockTime    `json:"endTime" db:"end_time"`
	IsAvailable bool         `json:"isAvailable" db:"is_available"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}

// Window returns the shift's clock range, treating an end of 00:00 as end of day
func (s *DoctorSchedule) Window() ClockRange {
	return ClockRange{Start: s.StartTime, End: s.EndTime.AsEnd()}
}

// OverrideType classifies a date-specific schedule override
type OverrideType string

const (
	OverrideTypeBlock        OverrideType = "block"
	OverrideTypeExtra        OverrideType = "extra"
	OverrideTypeVacation     OverrideType = "vacation"
	OverrideTypeCancellation OverrideType = "cancellation"
)

// Valid reports whether t is one of the allowed override types
func (t OverrideType) Valid() bool {
	switch t {
	case OverrideTypeBlock, OverrideTypeExtra, OverrideTypeVacation, OverrideTypeCancellation:
		return true
	}
	return false
}

// DoctorScheduleOverride adds or removes availability on one calendar date
type DoctorScheduleOverride struct {
	ID           string       `json:"id" db:"id"`
	DoctorID     string       `json:"doctorId" db:"doctor_id"`
	OverrideDate time.Time    `json:"overrideDate" db:"override_date"`
	StartTime    ClockTime    `json:"startTime" db:"start_time"`
	EndTime      ClockTime    `json:"endTime" db:"end_time"`
	IsAvailable  bool         `json:"isAvailable" db:"is_available"`
	OverrideType OverrideType `json:"overrideType" db:"override_type"`
	Reason       string       `json:"reason,omitempty" db:"reason"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" db:"updated_at"`
}

// Window returns the override's clock range, treating an end of 00:00 as end of day
func (o *DoctorScheduleOverride) Window() ClockRange {
	return ClockRange{Start: o.StartTime, End: o.EndTime.AsEnd()}
}

// Interval returns the absolute time range covered by the override in loc
func (o *DoctorScheduleOverride) Interval(loc *time.Location) Interval {
	w := o.Window()
	return NewInterval(w.Start.OnDate(o.OverrideDate, loc), w.End.OnDate(o.OverrideDate, loc))
}
