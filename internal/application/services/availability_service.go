package services

import (
	"context"
	"strings"
	"time"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

// AvailabilityService answers schedule and overlap questions for a doctor
type AvailabilityService struct {
	schedules    repositories.DoctorScheduleRepository
	overrides    repositories.ScheduleOverrideRepository
	appointments repositories.AppointmentRepository
	loc          *time.Location
}

// NewAvailabilityService creates a new availability service. Clock times are read in loc.
func NewAvailabilityService(
	schedules repositories.DoctorScheduleRepository,
	overrides repositories.ScheduleOverrideRepository,
	appointments repositories.AppointmentRepository,
	loc *time.Location,
) *AvailabilityService {
	if loc == nil {
		loc = time.UTC
	}
	return &AvailabilityService{
		schedules:    schedules,
		overrides:    overrides,
		appointments: appointments,
		loc:          loc,
	}
}

// Location returns the clinic time zone
func (s *AvailabilityService) Location() *time.Location {
	return s.loc
}

// ResolveAvailability reports whether the doctor can be booked at clock time at on the calendar date
func (s *AvailabilityService) ResolveAvailability(ctx context.Context, doctorID string, date time.Time, at entities.ClockTime) (entities.Availability, error) {
	if strings.TrimSpace(doctorID) == "" {
		return entities.Availability{}, apperrors.NewFieldValidationError(map[string]string{"doctorId": "required"})
	}
	if !at.Valid() || at == entities.EndOfDay {
		return entities.Availability{}, apperrors.NewFieldValidationError(map[string]string{"time": "must be between 00:00 and 23:59"})
	}

	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	schedules, overrides, err := loadSchedule(ctx, s.schedules, s.overrides, doctorID, day)
	if err != nil {
		return entities.Availability{}, err
	}
	return entities.ResolveAvailability(day, at, schedules, overrides), nil
}

// IsDoctorBusy reports whether a slot-blocking appointment of the doctor intersects [start, end).
// ignoreAppointmentID excludes the appointment being edited.
func (s *AvailabilityService) IsDoctorBusy(ctx context.Context, doctorID string, start, end time.Time, ignoreAppointmentID string) (bool, error) {
	if err := validateInterval(doctorID, start, end); err != nil {
		return false, err
	}
	return s.appointments.HasOverlap(ctx, doctorID, start, end, ignoreAppointmentID)
}

// IsIntervalAvailable reports whether the whole interval lies in one open window of the doctor's schedule
func (s *AvailabilityService) IsIntervalAvailable(ctx context.Context, doctorID string, start, end time.Time) (bool, error) {
	if err := validateInterval(doctorID, start, end); err != nil {
		return false, err
	}
	return intervalAvailable(ctx, s.schedules, s.overrides, s.loc, doctorID, entities.NewInterval(start, end))
}

func intervalAvailable(
	ctx context.Context,
	schedules repositories.DoctorScheduleRepository,
	overrides repositories.ScheduleOverrideRepository,
	loc *time.Location,
	doctorID string,
	interval entities.Interval,
) (bool, error) {
	day := entities.DateOf(interval.Start, loc)
	recurring, dated, err := loadSchedule(ctx, schedules, overrides, doctorID, day)
	if err != nil {
		return false, err
	}
	return entities.IsIntervalAvailable(interval, loc, recurring, dated), nil
}

func loadSchedule(
	ctx context.Context,
	schedules repositories.DoctorScheduleRepository,
	overrides repositories.ScheduleOverrideRepository,
	doctorID string,
	day time.Time,
) ([]*entities.DoctorSchedule, []*entities.DoctorScheduleOverride, error) {
	dated, err := overrides.ListByDoctorAndDate(ctx, doctorID, day)
	if err != nil {
		return nil, nil, err
	}
	// overrides replace the weekly schedule for the date
	if len(dated) > 0 {
		return nil, dated, nil
	}

	recurring, err := schedules.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, nil, err
	}
	return recurring, nil, nil
}

func validateInterval(doctorID string, start, end time.Time) error {
	fields := map[string]string{}
	if strings.TrimSpace(doctorID) == "" {
		fields["doctorId"] = "required"
	}
	if start.IsZero() {
		fields["start"] = "required"
	}
	if end.IsZero() {
		fields["end"] = "required"
	}
	if len(fields) == 0 && !end.After(start) {
		fields["end"] = "must be after start"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError(fields)
	}
	return nil
}
