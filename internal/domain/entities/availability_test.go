package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2025-06-02 is a Monday
var monday = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

func clock(s string) ClockTime { return MustParseClockTime(s) }

func shift(day time.Weekday, start, end string, available bool) *DoctorSchedule {
	return &DoctorSchedule{DoctorID: "doc-1", DayOfWeek: day, StartTime: clock(start), EndTime: clock(end), IsAvailable: available}
}

func override(date time.Time, start, end string, available bool, kind OverrideType) *DoctorScheduleOverride {
	return &DoctorScheduleOverride{DoctorID: "doc-1", OverrideDate: date, StartTime: clock(start), EndTime: clock(end), IsAvailable: available, OverrideType: kind}
}

func TestResolveAvailability_Recurring(t *testing.T) {
	schedules := []*DoctorSchedule{
		shift(time.Monday, "08:00", "12:00", true),
		shift(time.Monday, "13:00", "17:00", true),
		shift(time.Tuesday, "08:00", "17:00", true),
	}

	t.Run("inside first shift", func(t *testing.T) {
		got := ResolveAvailability(monday, clock("09:00"), schedules, nil)
		assert.Equal(t, Availability{Available: true, Source: AvailabilitySourceRecurring}, got)
	})

	t.Run("inside second shift", func(t *testing.T) {
		assert.True(t, ResolveAvailability(monday, clock("16:59"), schedules, nil).Available)
	})

	t.Run("lunch gap", func(t *testing.T) {
		assert.False(t, ResolveAvailability(monday, clock("12:30"), schedules, nil).Available)
	})

	t.Run("end is exclusive", func(t *testing.T) {
		assert.False(t, ResolveAvailability(monday, clock("17:00"), schedules, nil).Available)
	})

	t.Run("no rows for weekday", func(t *testing.T) {
		sunday := monday.AddDate(0, 0, -1)
		got := ResolveAvailability(sunday, clock("09:00"), schedules, nil)
		assert.Equal(t, Availability{Available: false, Source: AvailabilitySourceRecurring}, got)
	})

	t.Run("blocked recurring row wins", func(t *testing.T) {
		withBlock := append(schedules, shift(time.Monday, "10:00", "11:00", false))
		assert.False(t, ResolveAvailability(monday, clock("10:30"), withBlock, nil).Available)
		assert.True(t, ResolveAvailability(monday, clock("11:00"), withBlock, nil).Available)
	})
}

func TestResolveAvailability_OverridePrecedence(t *testing.T) {
	schedules := []*DoctorSchedule{
		shift(time.Monday, "08:00", "12:00", true),
		shift(time.Monday, "13:00", "17:00", true),
	}
	overrides := []*DoctorScheduleOverride{
		override(monday, "08:00", "12:00", false, OverrideTypeBlock),
	}

	morning := ResolveAvailability(monday, clock("09:00"), schedules, overrides)
	assert.Equal(t, Availability{Available: false, Source: AvailabilitySourceOverride}, morning)

	// the override replaces the whole recurring schedule for that date
	afternoon := ResolveAvailability(monday, clock("14:00"), schedules, overrides)
	assert.Equal(t, Availability{Available: false, Source: AvailabilitySourceOverride}, afternoon)

	nextMonday := monday.AddDate(0, 0, 7)
	assert.Equal(t, AvailabilitySourceRecurring, ResolveAvailability(nextMonday, clock("09:00"), schedules, overrides).Source)
}

func TestResolveAvailability_OverrideKinds(t *testing.T) {
	t.Run("extra hours on a day off", func(t *testing.T) {
		saturday := monday.AddDate(0, 0, 5)
		overrides := []*DoctorScheduleOverride{override(saturday, "09:00", "11:00", true, OverrideTypeExtra)}

		assert.True(t, ResolveAvailability(saturday, clock("10:00"), nil, overrides).Available)
		assert.False(t, ResolveAvailability(saturday, clock("11:00"), nil, overrides).Available)
	})

	t.Run("full day vacation", func(t *testing.T) {
		overrides := []*DoctorScheduleOverride{override(monday, "00:00", "00:00", false, OverrideTypeVacation)}
		schedules := []*DoctorSchedule{shift(time.Monday, "00:00", "00:00", true)}

		for _, c := range []string{"00:00", "09:00", "23:59:59"} {
			assert.False(t, ResolveAvailability(monday, clock(c), schedules, overrides).Available, c)
		}
	})

	t.Run("block wins over overlapping extra", func(t *testing.T) {
		overrides := []*DoctorScheduleOverride{
			override(monday, "08:00", "17:00", true, OverrideTypeExtra),
			override(monday, "12:00", "13:00", false, OverrideTypeBlock),
		}
		assert.True(t, ResolveAvailability(monday, clock("11:00"), nil, overrides).Available)
		assert.False(t, ResolveAvailability(monday, clock("12:15"), nil, overrides).Available)
	})
}

func TestIsIntervalAvailable(t *testing.T) {
	schedules := []*DoctorSchedule{
		shift(time.Monday, "08:00", "12:00", true),
		shift(time.Monday, "13:00", "00:00", true),
	}

	slot := func(sh, sm, eh, em int) Interval {
		return NewInterval(
			time.Date(2025, 6, 2, sh, sm, 0, 0, time.UTC),
			time.Date(2025, 6, 2, eh, em, 0, 0, time.UTC),
		)
	}

	assert.True(t, IsIntervalAvailable(slot(9, 0, 10, 0), time.UTC, schedules, nil))
	assert.True(t, IsIntervalAvailable(slot(11, 0, 12, 0), time.UTC, schedules, nil))
	assert.False(t, IsIntervalAvailable(slot(11, 30, 13, 30), time.UTC, schedules, nil), "spans the lunch gap")
	assert.False(t, IsIntervalAvailable(slot(10, 0, 10, 0), time.UTC, schedules, nil))

	untilMidnight := NewInterval(time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC), time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC))
	assert.True(t, IsIntervalAvailable(untilMidnight, time.UTC, schedules, nil))

	acrossMidnight := NewInterval(time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC), time.Date(2025, 6, 3, 1, 0, 0, 0, time.UTC))
	assert.False(t, IsIntervalAvailable(acrossMidnight, time.UTC, schedules, nil))

	blocked := []*DoctorScheduleOverride{
		override(monday, "08:00", "12:00", true, OverrideTypeExtra),
		override(monday, "09:30", "09:45", false, OverrideTypeBlock),
	}
	assert.False(t, IsIntervalAvailable(slot(9, 0, 10, 0), time.UTC, schedules, blocked))
	assert.True(t, IsIntervalAvailable(slot(10, 0, 11, 0), time.UTC, schedules, blocked))
}

func TestIsIntervalAvailable_ClinicTimezone(t *testing.T) {
	hcm := time.FixedZone("ICT", 7*3600)
	schedules := []*DoctorSchedule{shift(time.Monday, "08:00", "12:00", true)}

	// 02:00-03:00 UTC is 09:00-10:00 in the clinic
	interval := NewInterval(time.Date(2025, 6, 2, 2, 0, 0, 0, time.UTC), time.Date(2025, 6, 2, 3, 0, 0, 0, time.UTC))

	assert.True(t, IsIntervalAvailable(interval, hcm, schedules, nil))
	assert.False(t, IsIntervalAvailable(interval, time.UTC, schedules, nil))
}
