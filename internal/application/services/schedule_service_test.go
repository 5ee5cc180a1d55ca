package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

func blockInput(date time.Time, start, end string) OverrideInput {
	return OverrideInput{
		Date:         date,
		StartTime:    entities.MustParseClockTime(start),
		EndTime:      entities.MustParseClockTime(end),
		IsAvailable:  false,
		OverrideType: entities.OverrideTypeBlock,
		Reason:       "conference",
	}
}

func TestScheduleService_OverrideRejectedOverBookedSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.book(t, patientID, at(monday, 10, 0), time.Hour)
	require.NoError(t, err)

	override, err := f.schedules.CreateOverride(ctx, doctorActor, "", blockInput(monday, "10:30", "12:00"))
	assert.Nil(t, override)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeConflict))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHasConflictingAppointments))

	stored, err := f.schedules.ListOverrides(ctx, doctorActor, "", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, stored)

	// touching the booking is fine
	override, err = f.schedules.CreateOverride(ctx, doctorActor, "", blockInput(monday, "11:00", "12:00"))
	require.NoError(t, err)
	assert.Equal(t, doctorID, override.DoctorID)
	assert.Equal(t, monday, override.OverrideDate)
}

func TestScheduleService_CancelledAppointmentDoesNotBlockOverride(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	appointment, err := f.book(t, patientID, at(monday, 10, 0), time.Hour)
	require.NoError(t, err)
	_, err = f.booking.CancelAppointment(ctx, appointment.ID, patientActor)
	require.NoError(t, err)

	_, err = f.schedules.CreateOverride(ctx, doctorActor, "", blockInput(monday, "09:00", "12:00"))
	assert.NoError(t, err)
}

func TestScheduleService_AvailableOverrideCoveringBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.book(t, patientID, at(monday, 10, 0), time.Hour)
	require.NoError(t, err)

	in := blockInput(monday, "08:00", "12:00")
	in.IsAvailable = true
	in.OverrideType = entities.OverrideTypeExtra
	_, err = f.schedules.CreateOverride(ctx, doctorActor, "", in)
	assert.NoError(t, err)
}

func TestScheduleService_AvailableOverrideMustKeepBookingsCovered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.book(t, patientID, at(monday, 14, 0), time.Hour)
	require.NoError(t, err)

	// an extra morning window would replace the 09:00-17:00 weekly row and strand the booking
	morning := blockInput(monday, "08:00", "12:00")
	morning.IsAvailable = true
	morning.OverrideType = entities.OverrideTypeExtra
	_, err = f.schedules.CreateOverride(ctx, doctorActor, "", morning)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHasConflictingAppointments))

	stored, err := f.schedules.ListOverrides(ctx, doctorActor, "", nil, nil)
	require.NoError(t, err)
	assert.Empty(t, stored)

	allDay := blockInput(monday, "08:00", "18:00")
	allDay.IsAvailable = true
	allDay.OverrideType = entities.OverrideTypeExtra
	override, err := f.schedules.CreateOverride(ctx, doctorActor, "", allDay)
	require.NoError(t, err)

	// shrinking the window away from the booking is rejected
	_, err = f.schedules.UpdateOverride(ctx, doctorActor, override.ID, morning)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHasConflictingAppointments))

	// moving it to another date hands the booking back to the weekly row, which still covers it
	moved := allDay
	moved.Date = monday.AddDate(0, 0, 1)
	_, err = f.schedules.UpdateOverride(ctx, doctorActor, override.ID, moved)
	assert.NoError(t, err)
}

func TestScheduleService_DeleteOverrideKeepsBookingsCovered(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saturday := monday.AddDate(0, 0, 5)

	in := blockInput(saturday, "10:00", "14:00")
	in.IsAvailable = true
	in.OverrideType = entities.OverrideTypeExtra
	override, err := f.schedules.CreateOverride(ctx, doctorActor, "", in)
	require.NoError(t, err)

	appointment, err := f.book(t, patientID, at(saturday, 11, 0), time.Hour)
	require.NoError(t, err)

	err = f.schedules.DeleteOverride(ctx, doctorActor, override.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHasConflictingAppointments))
	_, err = f.store.Overrides().GetByID(ctx, override.ID)
	require.NoError(t, err, "rejected delete must keep the override")

	_, err = f.booking.CancelAppointment(ctx, appointment.ID, patientActor)
	require.NoError(t, err)
	assert.NoError(t, f.schedules.DeleteOverride(ctx, doctorActor, override.ID))
}

func TestScheduleService_OverridePrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	before, err := f.availability.ResolveAvailability(ctx, doctorID, monday, entities.MustParseClockTime("09:00"))
	require.NoError(t, err)
	assert.True(t, before.Available)
	assert.Equal(t, entities.AvailabilitySourceRecurring, before.Source)

	_, err = f.schedules.CreateOverride(ctx, doctorActor, "", blockInput(monday, "09:00", "12:00"))
	require.NoError(t, err)

	blocked, err := f.availability.ResolveAvailability(ctx, doctorID, monday, entities.MustParseClockTime("09:00"))
	require.NoError(t, err)
	assert.False(t, blocked.Available)
	assert.Equal(t, entities.AvailabilitySourceOverride, blocked.Source)

	// the override replaces the weekly rows for the whole date
	afternoon, err := f.availability.ResolveAvailability(ctx, doctorID, monday, entities.MustParseClockTime("14:00"))
	require.NoError(t, err)
	assert.False(t, afternoon.Available)

	nextMonday, err := f.availability.ResolveAvailability(ctx, doctorID, monday.AddDate(0, 0, 7), entities.MustParseClockTime("09:00"))
	require.NoError(t, err)
	assert.True(t, nextMonday.Available)

	_, err = f.book(t, patientID, at(monday, 9, 0), time.Hour)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeDoctorUnavailable))
}

func TestScheduleService_ExtraOverrideOpensDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	saturday := monday.AddDate(0, 0, 5)

	in := blockInput(saturday, "10:00", "00:00")
	in.IsAvailable = true
	in.OverrideType = entities.OverrideTypeExtra
	_, err := f.schedules.CreateOverride(ctx, doctorActor, "", in)
	require.NoError(t, err)

	late, err := f.availability.ResolveAvailability(ctx, doctorID, saturday, entities.MustParseClockTime("23:30"))
	require.NoError(t, err)
	assert.True(t, late.Available)

	_, err = f.book(t, patientID, at(saturday, 23, 0), time.Hour)
	assert.NoError(t, err)
}

func TestScheduleService_OnBehalf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	override, err := f.schedules.CreateOverride(ctx, managerActor, doctorID, blockInput(monday, "09:00", "10:00"))
	require.NoError(t, err)
	assert.Equal(t, doctorID, override.DoctorID)

	_, err = f.schedules.CreateOverride(ctx, managerActor, "doc-missing", blockInput(monday, "09:00", "10:00"))
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))

	_, err = f.schedules.CreateOverride(ctx, doctorActor, "doc-other", blockInput(monday, "09:00", "10:00"))
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeForbidden))

	_, err = f.schedules.CreateOverride(ctx, patientActor, "", blockInput(monday, "09:00", "10:00"))
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeForbidden))

	listed, err := f.schedules.ListOverrides(ctx, managerActor, doctorID, nil, nil)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, f.schedules.DeleteOverride(ctx, managerActor, override.ID))
	assert.Contains(t, f.bus.types(), entities.BookingEventTypeScheduleChanged)
}

func TestScheduleService_UpdateOverrideChecksConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	override, err := f.schedules.CreateOverride(ctx, doctorActor, "", blockInput(monday, "13:00", "14:00"))
	require.NoError(t, err)

	// the block leaves the weekly schedule replaced, so add an open window to book in
	open := blockInput(monday, "09:00", "12:00")
	open.IsAvailable = true
	open.OverrideType = entities.OverrideTypeExtra
	_, err = f.schedules.CreateOverride(ctx, doctorActor, "", open)
	require.NoError(t, err)

	_, err = f.book(t, patientID, at(monday, 10, 0), time.Hour)
	require.NoError(t, err)

	_, err = f.schedules.UpdateOverride(ctx, doctorActor, override.ID, blockInput(monday, "10:00", "11:00"))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHasConflictingAppointments))

	stored, err := f.store.Overrides().GetByID(ctx, override.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.MustParseClockTime("13:00"), stored.StartTime, "rejected update must not persist")

	updated, err := f.schedules.UpdateOverride(ctx, doctorActor, override.ID, blockInput(monday, "15:00", "16:00"))
	require.NoError(t, err)
	assert.Equal(t, entities.MustParseClockTime("15:00"), updated.StartTime)
}

func TestScheduleService_OverrideValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		input OverrideInput
		field string
	}{
		{name: "missing date", input: blockInput(time.Time{}, "09:00", "10:00"), field: "overrideDate"},
		{name: "end before start", input: blockInput(monday, "10:00", "09:00"), field: "endTime"},
		{name: "unknown type", input: func() OverrideInput {
			in := blockInput(monday, "09:00", "10:00")
			in.OverrideType = "holiday"
			return in
		}(), field: "overrideType"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.schedules.CreateOverride(context.Background(), doctorActor, "", tt.input)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.ErrorTypeValidation, appErr.Type)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}
}

func TestScheduleService_RecurringCRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.schedules.CreateSchedule(ctx, doctorActor, ScheduleInput{
		DayOfWeek:   time.Tuesday,
		StartTime:   entities.MustParseClockTime("08:00"),
		EndTime:     entities.MustParseClockTime("12:00"),
		IsAvailable: true,
	})
	require.NoError(t, err)

	mine, err := f.schedules.ListMySchedules(ctx, doctorActor)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	updated, err := f.schedules.UpdateSchedule(ctx, doctorActor, created.ID, ScheduleInput{
		DayOfWeek:   time.Tuesday,
		StartTime:   entities.MustParseClockTime("13:00"),
		EndTime:     entities.MustParseClockTime("18:00"),
		IsAvailable: true,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.MustParseClockTime("13:00"), updated.StartTime)

	ok, err := f.availability.IsIntervalAvailable(ctx, doctorID, at(monday.AddDate(0, 0, 1), 14, 0), at(monday.AddDate(0, 0, 1), 15, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.schedules.UpdateSchedule(ctx, managerActor, created.ID, ScheduleInput{DayOfWeek: time.Tuesday, StartTime: 0, EndTime: entities.MustParseClockTime("01:00")})
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeForbidden))

	require.NoError(t, f.schedules.DeleteSchedule(ctx, doctorActor, created.ID))
	err = f.schedules.DeleteSchedule(ctx, doctorActor, created.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeNotFound))

	schedules, err := f.schedules.ListSchedules(ctx, doctorID)
	require.NoError(t, err)
	assert.Len(t, schedules, 1)
}

func TestScheduleService_ScheduleValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.schedules.CreateSchedule(context.Background(), doctorActor, ScheduleInput{
		DayOfWeek: 7,
		StartTime: entities.MustParseClockTime("12:00"),
		EndTime:   entities.MustParseClockTime("11:00"),
	})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Fields, "dayOfWeek")
	assert.Contains(t, appErr.Fields, "endTime")
}
