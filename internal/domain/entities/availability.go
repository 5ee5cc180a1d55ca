package entities

import "time"

// AvailabilitySource names the schedule that decided an availability answer
type AvailabilitySource string

const (
	AvailabilitySourceRecurring AvailabilitySource = "Recurring"
	AvailabilitySourceOverride  AvailabilitySource = "Override"
)

// Availability is the answer to "can this doctor be booked at this time"
type Availability struct {
	Available bool               `json:"available"`
	Source    AvailabilitySource `json:"source"`
}

// window is the common shape of recurring and override rows
type window struct {
	ClockRange
	available bool
}

// governingWindows selects the rows that decide availability on date.
// Any override row on the date replaces the recurring schedule for that whole date.
func governingWindows(date time.Time, schedules []*DoctorSchedule, overrides []*DoctorScheduleOverride) ([]window, AvailabilitySource) {
	var windows []window
	for _, o := range overrides {
		if SameDate(o.OverrideDate, date) {
			windows = append(windows, window{ClockRange: o.Window(), available: o.IsAvailable})
		}
	}
	if len(windows) > 0 {
		return windows, AvailabilitySourceOverride
	}

	weekday := date.Weekday()
	for _, s := range schedules {
		if s.DayOfWeek == weekday {
			windows = append(windows, window{ClockRange: s.Window(), available: s.IsAvailable})
		}
	}
	return windows, AvailabilitySourceRecurring
}

// ResolveAvailability decides whether clock time at on the given calendar date is bookable.
// date must carry the calendar date in its own location (see DateOf).
func ResolveAvailability(date time.Time, at ClockTime, schedules []*DoctorSchedule, overrides []*DoctorScheduleOverride) Availability {
	windows, source := governingWindows(date, schedules, overrides)

	open := false
	for _, w := range windows {
		if !w.Contains(at) {
			continue
		}
		if !w.available {
			// a block always wins over an overlapping open window
			return Availability{Available: false, Source: source}
		}
		open = true
	}
	return Availability{Available: open, Source: source}
}

// IsIntervalAvailable reports whether the whole interval lies inside one available window
// on a single calendar date in loc, without touching any blocked window.
func IsIntervalAvailable(interval Interval, loc *time.Location, schedules []*DoctorSchedule, overrides []*DoctorScheduleOverride) bool {
	if !interval.Valid() {
		return false
	}

	start := interval.Start.In(loc)
	end := interval.End.In(loc)
	date := DateOf(start, loc)

	requested := ClockRange{Start: ClockTimeOf(start)}
	switch {
	case SameDate(end, start):
		requested.End = ClockTimeOf(end)
	case ClockTimeOf(end) == Midnight && SameDate(end, start.AddDate(0, 0, 1)):
		requested.End = EndOfDay
	default:
		return false
	}
	if !requested.Valid() {
		return false
	}

	windows, _ := governingWindows(date, schedules, overrides)

	covered := false
	for _, w := range windows {
		if !w.available {
			if w.Overlaps(requested) {
				return false
			}
			continue
		}
		if w.Covers(requested) {
			covered = true
		}
	}
	return covered
}
