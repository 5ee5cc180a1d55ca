package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

const schedulesTable = "doctor_schedules"

var scheduleColumns = []interface{}{
	"id", "doctor_id", "day_of_week", "start_time", "end_time", "is_available", "created_at", "updated_at",
}

// DoctorScheduleAdapter implements DoctorScheduleRepository
type DoctorScheduleAdapter struct {
	q queryer
}

var _ repositories.DoctorScheduleRepository = (*DoctorScheduleAdapter)(nil)

// NewDoctorScheduleAdapter creates a new recurring schedule adapter
func NewDoctorScheduleAdapter(client *postgres.Client) *DoctorScheduleAdapter {
	return &DoctorScheduleAdapter{q: client.DB()}
}

// Create creates a recurring schedule row
func (a *DoctorScheduleAdapter) Create(ctx context.Context, schedule *entities.DoctorSchedule) error {
	now := time.Now().UTC()
	schedule.CreatedAt = now
	schedule.UpdatedAt = now

	record := goqu.Record{
		"id":           schedule.ID,
		"doctor_id":    schedule.DoctorID,
		"day_of_week":  int(schedule.DayOfWeek),
		"start_time":   schedule.StartTime.String(),
		"end_time":     schedule.EndTime.String(),
		"is_available": schedule.IsAvailable,
		"created_at":   schedule.CreatedAt,
		"updated_at":   schedule.UpdatedAt,
	}

	query, args, err := dialect.Insert(schedulesTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := a.q.ExecContext(ctx, query, args...); err != nil {
		return dbError("failed to create doctor schedule", err)
	}
	return nil
}

// GetByID retrieves a recurring schedule row by ID
func (a *DoctorScheduleAdapter) GetByID(ctx context.Context, id string) (*entities.DoctorSchedule, error) {
	query, args, err := dialect.From(schedulesTable).Prepared(true).
		Select(scheduleColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	schedule, err := scanSchedule(a.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("doctor schedule with id %s not found", id))
	}
	if err != nil {
		return nil, dbError("failed to get doctor schedule", err)
	}
	return schedule, nil
}

// Update updates a recurring schedule row
func (a *DoctorScheduleAdapter) Update(ctx context.Context, schedule *entities.DoctorSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()

	query, args, err := dialect.Update(schedulesTable).Prepared(true).
		Set(goqu.Record{
			"day_of_week":  int(schedule.DayOfWeek),
			"start_time":   schedule.StartTime.String(),
			"end_time":     schedule.EndTime.String(),
			"is_available": schedule.IsAvailable,
			"updated_at":   schedule.UpdatedAt,
		}).
		Where(goqu.Ex{"id": schedule.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	found, err := exec(ctx, a.q, query, args)
	if err != nil {
		return dbError("failed to update doctor schedule", err)
	}
	if !found {
		return apperrors.NewNotFoundError(fmt.Sprintf("doctor schedule with id %s not found", schedule.ID))
	}
	return nil
}

// Delete removes a recurring schedule row
func (a *DoctorScheduleAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := dialect.Delete(schedulesTable).Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	found, err := exec(ctx, a.q, query, args)
	if err != nil {
		return dbError("failed to delete doctor schedule", err)
	}
	if !found {
		return apperrors.NewNotFoundError(fmt.Sprintf("doctor schedule with id %s not found", id))
	}
	return nil
}

// ListByDoctor retrieves every recurring row of a doctor
func (a *DoctorScheduleAdapter) ListByDoctor(ctx context.Context, doctorID string) ([]*entities.DoctorSchedule, error) {
	query, args, err := dialect.From(schedulesTable).Prepared(true).
		Select(scheduleColumns...).
		Where(goqu.Ex{"doctor_id": doctorID}).
		Order(goqu.C("day_of_week").Asc(), goqu.C("start_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to list doctor schedules", err)
	}
	defer rows.Close()

	schedules := make([]*entities.DoctorSchedule, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, dbError("failed to scan doctor schedule", err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate doctor schedules", err)
	}
	return schedules, nil
}

func scanSchedule(row rowScanner) (*entities.DoctorSchedule, error) {
	schedule := &entities.DoctorSchedule{}
	var day int
	err := row.Scan(
		&schedule.ID,
		&schedule.DoctorID,
		&day,
		&schedule.StartTime,
		&schedule.EndTime,
		&schedule.IsAvailable,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	schedule.DayOfWeek = time.Weekday(day)
	return schedule, nil
}
