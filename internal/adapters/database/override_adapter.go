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

const (
	overridesTable = "doctor_schedule_overrides"
	dateLayout     = "2006-01-02"
)

var overrideColumns = []interface{}{
	"id", "doctor_id", "override_date", "start_time", "end_time", "is_available",
	"override_type", "reason", "created_at", "updated_at",
}

// ScheduleOverrideAdapter implements ScheduleOverrideRepository
type ScheduleOverrideAdapter struct {
	q queryer
}

var _ repositories.ScheduleOverrideRepository = (*ScheduleOverrideAdapter)(nil)

// NewScheduleOverrideAdapter creates a new schedule override adapter
func NewScheduleOverrideAdapter(client *postgres.Client) *ScheduleOverrideAdapter {
	return &ScheduleOverrideAdapter{q: client.DB()}
}

// Create creates a schedule override
func (a *ScheduleOverrideAdapter) Create(ctx context.Context, override *entities.DoctorScheduleOverride) error {
	now := time.Now().UTC()
	override.CreatedAt = now
	override.UpdatedAt = now

	record := goqu.Record{
		"id":            override.ID,
		"doctor_id":     override.DoctorID,
		"override_date": override.OverrideDate.Format(dateLayout),
		"start_time":    override.StartTime.String(),
		"end_time":      override.EndTime.String(),
		"is_available":  override.IsAvailable,
		"override_type": string(override.OverrideType),
		"reason":        nullString(override.Reason),
		"created_at":    override.CreatedAt,
		"updated_at":    override.UpdatedAt,
	}

	query, args, err := dialect.Insert(overridesTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}
	if _, err := a.q.ExecContext(ctx, query, args...); err != nil {
		if isCheckViolation(err) {
			return apperrors.NewValidationError("invalid schedule override")
		}
		return dbError("failed to create schedule override", err)
	}
	return nil
}

// GetByID retrieves a schedule override by ID
func (a *ScheduleOverrideAdapter) GetByID(ctx context.Context, id string) (*entities.DoctorScheduleOverride, error) {
	query, args, err := dialect.From(overridesTable).Prepared(true).
		Select(overrideColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	override, err := scanOverride(a.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("schedule override with id %s not found", id))
	}
	if err != nil {
		return nil, dbError("failed to get schedule override", err)
	}
	return override, nil
}

// Update updates a schedule override
func (a *ScheduleOverrideAdapter) Update(ctx context.Context, override *entities.DoctorScheduleOverride) error {
	override.UpdatedAt = time.Now().UTC()

	query, args, err := dialect.Update(overridesTable).Prepared(true).
		Set(goqu.Record{
			"override_date": override.OverrideDate.Format(dateLayout),
			"start_time":    override.StartTime.String(),
			"end_time":      override.EndTime.String(),
			"is_available":  override.IsAvailable,
			"override_type": string(override.OverrideType),
			"reason":        nullString(override.Reason),
			"updated_at":    override.UpdatedAt,
		}).
		Where(goqu.Ex{"id": override.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	found, err := exec(ctx, a.q, query, args)
	if err != nil {
		return dbError("failed to update schedule override", err)
	}
	if !found {
		return apperrors.NewNotFoundError(fmt.Sprintf("schedule override with id %s not found", override.ID))
	}
	return nil
}

// Delete removes a schedule override
func (a *ScheduleOverrideAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := dialect.Delete(overridesTable).Prepared(true).Where(goqu.Ex{"id": id}).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	found, err := exec(ctx, a.q, query, args)
	if err != nil {
		return dbError("failed to delete schedule override", err)
	}
	if !found {
		return apperrors.NewNotFoundError(fmt.Sprintf("schedule override with id %s not found", id))
	}
	return nil
}

// ListByDoctorAndDate retrieves the overrides of one calendar date
func (a *ScheduleOverrideAdapter) ListByDoctorAndDate(ctx context.Context, doctorID string, date time.Time) ([]*entities.DoctorScheduleOverride, error) {
	return a.list(ctx, dialect.From(overridesTable).Prepared(true).
		Select(overrideColumns...).
		Where(goqu.Ex{"doctor_id": doctorID, "override_date": date.Format(dateLayout)}).
		Order(goqu.C("start_time").Asc()))
}

// ListByDoctor retrieves overrides in [from, to]
func (a *ScheduleOverrideAdapter) ListByDoctor(ctx context.Context, doctorID string, from, to *time.Time) ([]*entities.DoctorScheduleOverride, error) {
	ds := dialect.From(overridesTable).Prepared(true).
		Select(overrideColumns...).
		Where(goqu.Ex{"doctor_id": doctorID})
	if from != nil {
		ds = ds.Where(goqu.C("override_date").Gte(from.Format(dateLayout)))
	}
	if to != nil {
		ds = ds.Where(goqu.C("override_date").Lte(to.Format(dateLayout)))
	}
	return a.list(ctx, ds.Order(goqu.C("override_date").Asc(), goqu.C("start_time").Asc()))
}

func (a *ScheduleOverrideAdapter) list(ctx context.Context, ds *goqu.SelectDataset) ([]*entities.DoctorScheduleOverride, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	rows, err := a.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to list schedule overrides", err)
	}
	defer rows.Close()

	overrides := make([]*entities.DoctorScheduleOverride, 0)
	for rows.Next() {
		override, err := scanOverride(rows)
		if err != nil {
			return nil, dbError("failed to scan schedule override", err)
		}
		overrides = append(overrides, override)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate schedule overrides", err)
	}
	return overrides, nil
}

func scanOverride(row rowScanner) (*entities.DoctorScheduleOverride, error) {
	override := &entities.DoctorScheduleOverride{}
	var reason sql.NullString
	err := row.Scan(
		&override.ID,
		&override.DoctorID,
		&override.OverrideDate,
		&override.StartTime,
		&override.EndTime,
		&override.IsAvailable,
		&override.OverrideType,
		&reason,
		&override.CreatedAt,
		&override.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	override.Reason = reason.String
	y, m, d := override.OverrideDate.Date()
	override.OverrideDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return override, nil
}
