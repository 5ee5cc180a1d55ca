package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/providers"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// ScheduleInput describes a recurring weekly shift
type ScheduleInput struct {
	DayOfWeek   time.Weekday
	StartTime   entities.ClockTime
	EndTime     entities.ClockTime
	IsAvailable bool
}

// OverrideInput describes a date-specific override
type OverrideInput struct {
	Date         time.Time
	StartTime    entities.ClockTime
	EndTime      entities.ClockTime
	IsAvailable  bool
	OverrideType entities.OverrideType
	Reason       string
}

// ScheduleService manages recurring schedules and date overrides
type ScheduleService struct {
	transactor repositories.Transactor
	schedules  repositories.DoctorScheduleRepository
	overrides  repositories.ScheduleOverrideRepository
	doctors    repositories.DoctorRepository
	eventBus   providers.EventBus
	loc        *time.Location
}

// NewScheduleService creates a new schedule service. schedules should be the cached repository
// so every write invalidates the doctor's cached schedule.
func NewScheduleService(
	transactor repositories.Transactor,
	schedules repositories.DoctorScheduleRepository,
	overrides repositories.ScheduleOverrideRepository,
	doctors repositories.DoctorRepository,
	eventBus providers.EventBus,
	loc *time.Location,
) *ScheduleService {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleService{
		transactor: transactor,
		schedules:  schedules,
		overrides:  overrides,
		doctors:    doctors,
		eventBus:   eventBus,
		loc:        loc,
	}
}

func conflictingAppointments() *apperrors.AppError {
	return apperrors.NewConflictError("conflicting appointments exist").WithCode(apperrors.CodeHasConflictingAppointments)
}

// DoctorForActor returns the doctor profile of a doctor caller
func (s *ScheduleService) DoctorForActor(ctx context.Context, actor Actor) (*entities.Doctor, error) {
	if actor.Role != entities.RoleDoctor {
		return nil, apperrors.NewForbiddenError("only doctors have a schedule")
	}
	return s.doctors.GetByUserID(ctx, actor.UserID)
}

// targetDoctor resolves the doctor an actor manages: their own profile, or doctorID for staff
func (s *ScheduleService) targetDoctor(ctx context.Context, actor Actor, doctorID string) (*entities.Doctor, error) {
	if doctorID == "" {
		return s.DoctorForActor(ctx, actor)
	}
	if !actor.IsStaff() {
		own, err := s.DoctorForActor(ctx, actor)
		if err != nil {
			return nil, err
		}
		if own.ID != doctorID {
			return nil, apperrors.NewForbiddenError("cannot manage another doctor's schedule")
		}
		return own, nil
	}
	return s.doctors.GetByID(ctx, doctorID)
}

// ListSchedules returns a doctor's recurring schedule
func (s *ScheduleService) ListSchedules(ctx context.Context, doctorID string) ([]*entities.DoctorSchedule, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, apperrors.NewFieldValidationError(map[string]string{"doctorId": "required"})
	}
	return s.schedules.ListByDoctor(ctx, doctorID)
}

// ListMySchedules returns the caller's recurring schedule
func (s *ScheduleService) ListMySchedules(ctx context.Context, actor Actor) ([]*entities.DoctorSchedule, error) {
	doctor, err := s.DoctorForActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.schedules.ListByDoctor(ctx, doctor.ID)
}

func validateSchedule(in ScheduleInput) error {
	fields := map[string]string{}
	if in.DayOfWeek < time.Sunday || in.DayOfWeek > time.Saturday {
		fields["dayOfWeek"] = "must be between 0 and 6"
	}
	if !(entities.ClockRange{Start: in.StartTime, End: in.EndTime.AsEnd()}).Valid() {
		fields["endTime"] = "must be after startTime"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError(fields)
	}
	return nil
}

// CreateSchedule adds a recurring shift for the caller
func (s *ScheduleService) CreateSchedule(ctx context.Context, actor Actor, in ScheduleInput) (*entities.DoctorSchedule, error) {
	if err := validateSchedule(in); err != nil {
		return nil, err
	}
	doctor, err := s.DoctorForActor(ctx, actor)
	if err != nil {
		return nil, err
	}

	schedule := &entities.DoctorSchedule{
		ID:          uuid.NewString(),
		DoctorID:    doctor.ID,
		DayOfWeek:   in.DayOfWeek,
		StartTime:   in.StartTime,
		EndTime:     in.EndTime,
		IsAvailable: in.IsAvailable,
	}
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.eventBus, entities.NewScheduleEvent(doctor.ID))
	return schedule, nil
}

// ownedSchedule loads a schedule row and hides rows of other doctors
func (s *ScheduleService) ownedSchedule(ctx context.Context, actor Actor, id string) (*entities.DoctorSchedule, error) {
	doctor, err := s.DoctorForActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	schedule, err := s.schedules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if schedule.DoctorID != doctor.ID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("schedule with id %s not found", id))
	}
	return schedule, nil
}

// UpdateSchedule replaces a recurring shift of the caller
func (s *ScheduleService) UpdateSchedule(ctx context.Context, actor Actor, id string, in ScheduleInput) (*entities.DoctorSchedule, error) {
	if err := validateSchedule(in); err != nil {
		return nil, err
	}
	schedule, err := s.ownedSchedule(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	schedule.DayOfWeek = in.DayOfWeek
	schedule.StartTime = in.StartTime
	schedule.EndTime = in.EndTime
	schedule.IsAvailable = in.IsAvailable
	if err := s.schedules.Update(ctx, schedule); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.eventBus, entities.NewScheduleEvent(schedule.DoctorID))
	return schedule, nil
}

// DeleteSchedule removes a recurring shift of the caller
func (s *ScheduleService) DeleteSchedule(ctx context.Context, actor Actor, id string) error {
	schedule, err := s.ownedSchedule(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.schedules.Delete(ctx, id); err != nil {
		return err
	}

	publishEvent(ctx, s.eventBus, entities.NewScheduleEvent(schedule.DoctorID))
	return nil
}

func validateOverride(in OverrideInput) error {
	fields := map[string]string{}
	if in.Date.IsZero() {
		fields["overrideDate"] = "required"
	}
	if !in.StartTime.Valid() || in.StartTime == entities.EndOfDay {
		fields["startTime"] = "must be a time of day"
	}
	if !(entities.ClockRange{Start: in.StartTime, End: in.EndTime.AsEnd()}).Valid() {
		fields["endTime"] = "must be after startTime"
	}
	if !in.OverrideType.Valid() {
		fields["overrideType"] = "must be one of block, extra, vacation, cancellation"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError(fields)
	}
	return nil
}

// ListOverrides returns a doctor's overrides with dates in [from, to]; nil bounds are open
func (s *ScheduleService) ListOverrides(ctx context.Context, actor Actor, doctorID string, from, to *time.Time) ([]*entities.DoctorScheduleOverride, error) {
	doctor, err := s.targetDoctor(ctx, actor, doctorID)
	if err != nil {
		return nil, err
	}
	return s.overrides.ListByDoctor(ctx, doctor.ID, from, to)
}

// CreateOverride adds a date override. An unavailable override is rejected while slot-blocking
// appointments intersect it. doctorID is empty for the caller's own schedule.
func (s *ScheduleService) CreateOverride(ctx context.Context, actor Actor, doctorID string, in OverrideInput) (*entities.DoctorScheduleOverride, error) {
	ctx, span := observability.StartSpan(ctx, "schedule.create_override", attribute.String("doctor.id", doctorID))
	defer span.End()

	if err := validateOverride(in); err != nil {
		return nil, err
	}
	doctor, err := s.targetDoctor(ctx, actor, doctorID)
	if err != nil {
		return nil, err
	}

	override := &entities.DoctorScheduleOverride{
		ID:       uuid.NewString(),
		DoctorID: doctor.ID,
	}
	applyOverrideInput(override, in)

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context, uow repositories.UnitOfWork) error {
		if err := uow.LockDoctor(ctx, doctor.ID); err != nil {
			return err
		}
		if err := s.checkConflicts(ctx, uow, override); err != nil {
			return err
		}
		if override.IsAvailable {
			err := s.checkCoverage(ctx, uow, override.DoctorID, override.OverrideDate, func(rows []*entities.DoctorScheduleOverride) []*entities.DoctorScheduleOverride {
				return append(rows, override)
			})
			if err != nil {
				return err
			}
		}
		return uow.Overrides().Create(ctx, override)
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	publishEvent(ctx, s.eventBus, entities.NewScheduleEvent(doctor.ID))
	return override, nil
}

// UpdateOverride replaces an override owned by the caller, or any override for staff
func (s *ScheduleService) UpdateOverride(ctx context.Context, actor Actor, id string, in OverrideInput) (*entities.DoctorScheduleOverride, error) {
	if err := validateOverride(in); err != nil {
		return nil, err
	}
	existing, err := s.ownedOverride(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var updated *entities.DoctorScheduleOverride
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context, uow repositories.UnitOfWork) error {
		if err := uow.LockDoctor(ctx, existing.DoctorID); err != nil {
			return err
		}
		current, err := uow.Overrides().GetByID(ctx, id)
		if err != nil {
			return err
		}
		previousDate, wasAvailable := current.OverrideDate, current.IsAvailable
		applyOverrideInput(current, in)
		updated = current
		if err := s.checkConflicts(ctx, uow, current); err != nil {
			return err
		}
		if !wasAvailable && !current.IsAvailable {
			return uow.Overrides().Update(ctx, current)
		}
		if err := s.checkCoverage(ctx, uow, current.DoctorID, current.OverrideDate, func(rows []*entities.DoctorScheduleOverride) []*entities.DoctorScheduleOverride {
			return append(withoutOverride(rows, id), current)
		}); err != nil {
			return err
		}
		if !entities.SameDate(previousDate, current.OverrideDate) {
			if err := s.checkCoverage(ctx, uow, current.DoctorID, previousDate, func(rows []*entities.DoctorScheduleOverride) []*entities.DoctorScheduleOverride {
				return withoutOverride(rows, id)
			}); err != nil {
				return err
			}
		}
		return uow.Overrides().Update(ctx, current)
	})
	if err != nil {
		return nil, err
	}

	publishEvent(ctx, s.eventBus, entities.NewScheduleEvent(updated.DoctorID))
	return updated, nil
}

// DeleteOverride removes an override owned by the caller, or any override for staff
func (s *ScheduleService) DeleteOverride(ctx context.Context, actor Actor, id string) error {
	existing, err := s.ownedOverride(ctx, actor, id)
	if err != nil {
		return err
	}
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context, uow repositories.UnitOfWork) error {
		if err := uow.LockDoctor(ctx, existing.DoctorID); err != nil {
			return err
		}
		if err := s.checkCoverage(ctx, uow, existing.DoctorID, existing.OverrideDate, func(rows []*entities.DoctorScheduleOverride) []*entities.DoctorScheduleOverride {
			return withoutOverride(rows, id)
		}); err != nil {
			return err
		}
		return uow.Overrides().Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	publishEvent(ctx, s.eventBus, entities.NewScheduleEvent(existing.DoctorID))
	return nil
}

func (s *ScheduleService) ownedOverride(ctx context.Context, actor Actor, id string) (*entities.DoctorScheduleOverride, error) {
	override, err := s.overrides.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsStaff() {
		return override, nil
	}

	doctor, err := s.DoctorForActor(ctx, actor)
	if err != nil {
		return nil, err
	}
	if override.DoctorID != doctor.ID {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("schedule override with id %s not found", id))
	}
	return override, nil
}

// checkConflicts rejects unavailable overrides that intersect slot-blocking appointments
func (s *ScheduleService) checkConflicts(ctx context.Context, uow repositories.UnitOfWork, override *entities.DoctorScheduleOverride) error {
	if override.IsAvailable {
		return nil
	}
	interval := override.Interval(s.loc)
	busy, err := uow.Appointments().HasOverlap(ctx, override.DoctorID, interval.Start, interval.End, "")
	if err != nil {
		return err
	}
	if busy {
		return conflictingAppointments()
	}
	return nil
}

func applyOverrideInput(o *entities.DoctorScheduleOverride, in OverrideInput) {
	o.OverrideDate = time.Date(in.Date.Year(), in.Date.Month(), in.Date.Day(), 0, 0, 0, 0, time.UTC)
	o.StartTime = in.StartTime
	o.EndTime = in.EndTime
	o.IsAvailable = in.IsAvailable
	o.OverrideType = in.OverrideType
	o.Reason = strings.TrimSpace(in.Reason)
}

// checkCoverage rejects a change to the available override rows of date that would leave a
// slot-blocking appointment outside the doctor's schedule when it was covered before.
// Override rows replace the weekly rows for their date, so an extra window uncovers every
// booking outside it. Blocks are held to checkConflicts only.
func (s *ScheduleService) checkCoverage(
	ctx context.Context,
	uow repositories.UnitOfWork,
	doctorID string,
	date time.Time,
	change func([]*entities.DoctorScheduleOverride) []*entities.DoctorScheduleOverride,
) error {
	from := entities.Midnight.OnDate(date, s.loc)
	to := entities.Midnight.OnDate(date.AddDate(0, 0, 1), s.loc)
	appointments, err := uow.Appointments().ListByDoctor(ctx, doctorID, repositories.AppointmentFilter{
		Statuses: entities.SlotBlockingStatuses,
		From:     &from,
		To:       &to,
	})
	if err != nil || len(appointments) == 0 {
		return err
	}

	recurring, err := uow.Schedules().ListByDoctor(ctx, doctorID)
	if err != nil {
		return err
	}
	before, err := uow.Overrides().ListByDoctorAndDate(ctx, doctorID, date)
	if err != nil {
		return err
	}
	after := change(append([]*entities.DoctorScheduleOverride(nil), before...))

	for _, a := range appointments {
		interval := a.Interval()
		if entities.IsIntervalAvailable(interval, s.loc, recurring, before) &&
			!entities.IsIntervalAvailable(interval, s.loc, recurring, after) {
			return conflictingAppointments()
		}
	}
	return nil
}

func withoutOverride(rows []*entities.DoctorScheduleOverride, id string) []*entities.DoctorScheduleOverride {
	kept := rows[:0]
	for _, o := range rows {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	return kept
}
