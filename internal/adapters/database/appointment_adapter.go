package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/postgres"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

const appointmentsTable = "appointments"

var appointmentColumns = []interface{}{
	"id", "doctor_id", "patient_id", "appointment_start_time", "appointment_end_time",
	"status_code", "payment_status_code", "payment_method_code", "total_amount",
	"transaction_id", "notes", "created_at", "updated_at",
}

// AppointmentAdapter implements AppointmentRepository
type AppointmentAdapter struct {
	q queryer
}

var _ repositories.AppointmentRepository = (*AppointmentAdapter)(nil)

// NewAppointmentAdapter creates a new appointment adapter
func NewAppointmentAdapter(client *postgres.Client) *AppointmentAdapter {
	return &AppointmentAdapter{q: client.DB()}
}

// Create creates a new appointment
func (a *AppointmentAdapter) Create(ctx context.Context, appointment *entities.Appointment) error {
	now := time.Now().UTC()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = now
	}
	appointment.UpdatedAt = now

	record := goqu.Record{
		"id":                     appointment.ID,
		"doctor_id":              appointment.DoctorID,
		"patient_id":             appointment.PatientID,
		"appointment_start_time": appointment.AppointmentStartTime.UTC(),
		"appointment_end_time":   appointment.AppointmentEndTime.UTC(),
		"status_code":            string(appointment.StatusCode),
		"payment_status_code":    string(appointment.PaymentStatusCode),
		"payment_method_code":    string(appointment.PaymentMethodCode),
		"total_amount":           appointment.TotalAmount,
		"transaction_id":         nullStringPtr(appointment.TransactionID),
		"notes":                  nullString(appointment.Notes),
		"created_at":             appointment.CreatedAt,
		"updated_at":             appointment.UpdatedAt,
	}

	query, args, err := dialect.Insert(appointmentsTable).Prepared(true).Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.q.ExecContext(ctx, query, args...); err != nil {
		if isExclusionViolation(err) {
			return apperrors.NewSlotConflictError()
		}
		return dbError("failed to create appointment", err)
	}

	return nil
}

// GetByID retrieves an appointment by ID
func (a *AppointmentAdapter) GetByID(ctx context.Context, id string) (*entities.Appointment, error) {
	query, args, err := dialect.From(appointmentsTable).Prepared(true).
		Select(appointmentColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	appointment, err := scanAppointment(a.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	if err != nil {
		return nil, dbError("failed to get appointment", err)
	}
	return appointment, nil
}

// Update updates the mutable fields of an appointment
func (a *AppointmentAdapter) Update(ctx context.Context, appointment *entities.Appointment) error {
	appointment.UpdatedAt = time.Now().UTC()

	record := goqu.Record{
		"appointment_start_time": appointment.AppointmentStartTime.UTC(),
		"appointment_end_time":   appointment.AppointmentEndTime.UTC(),
		"status_code":            string(appointment.StatusCode),
		"payment_status_code":    string(appointment.PaymentStatusCode),
		"transaction_id":         nullStringPtr(appointment.TransactionID),
		"notes":                  nullString(appointment.Notes),
		"updated_at":             appointment.UpdatedAt,
	}

	query, args, err := dialect.Update(appointmentsTable).Prepared(true).
		Set(record).
		Where(goqu.Ex{"id": appointment.ID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	found, err := exec(ctx, a.q, query, args)
	if err != nil {
		if isExclusionViolation(err) {
			return apperrors.NewSlotConflictError()
		}
		return dbError("failed to update appointment", err)
	}
	if !found {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", appointment.ID))
	}
	return nil
}

// Delete permanently removes an appointment
func (a *AppointmentAdapter) Delete(ctx context.Context, id string) error {
	query, args, err := dialect.Delete(appointmentsTable).Prepared(true).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build delete query", err)
	}

	found, err := exec(ctx, a.q, query, args)
	if err != nil {
		return dbError("failed to delete appointment", err)
	}
	if !found {
		return apperrors.NewNotFoundError(fmt.Sprintf("appointment with id %s not found", id))
	}
	return nil
}

// ListByDoctor retrieves appointments for a doctor
func (a *AppointmentAdapter) ListByDoctor(ctx context.Context, doctorID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return a.list(ctx, goqu.Ex{"doctor_id": doctorID}, filter, goqu.C("appointment_start_time").Asc())
}

// ListByPatient retrieves appointments for a patient, latest first
func (a *AppointmentAdapter) ListByPatient(ctx context.Context, patientID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	return a.list(ctx, goqu.Ex{"patient_id": patientID}, filter, goqu.C("appointment_start_time").Desc())
}

// HasOverlap reports whether a slot-blocking appointment intersects [start, end)
func (a *AppointmentAdapter) HasOverlap(ctx context.Context, doctorID string, start, end time.Time, ignoreID string) (bool, error) {
	where := []exp.Expression{
		goqu.Ex{"doctor_id": doctorID},
		goqu.C("status_code").In(statusStrings(entities.SlotBlockingStatuses)),
		goqu.C("appointment_start_time").Lt(end.UTC()),
		goqu.C("appointment_end_time").Gt(start.UTC()),
	}
	if ignoreID != "" {
		where = append(where, goqu.C("id").Neq(ignoreID))
	}

	query, args, err := dialect.From(appointmentsTable).Prepared(true).
		Select(goqu.L("1")).
		Where(where...).
		Limit(1).
		ToSQL()
	if err != nil {
		return false, apperrors.NewInternalError("failed to build overlap query", err)
	}

	var one int
	err = a.q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, dbError("failed to check appointment overlap", err)
	}
	return true, nil
}

// ListStartingBetween retrieves OnProgressing appointments starting in [from, to)
func (a *AppointmentAdapter) ListStartingBetween(ctx context.Context, from, to time.Time) ([]*entities.Appointment, error) {
	query, args, err := dialect.From(appointmentsTable).Prepared(true).
		Select(appointmentColumns...).
		Where(
			goqu.Ex{"status_code": string(entities.AppointmentStatusOnProgressing)},
			goqu.C("appointment_start_time").Gte(from.UTC()),
			goqu.C("appointment_start_time").Lt(to.UTC()),
		).
		Order(goqu.C("appointment_start_time").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.query(ctx, query, args)
}

func (a *AppointmentAdapter) list(ctx context.Context, owner goqu.Ex, filter repositories.AppointmentFilter, order exp.OrderedExpression) ([]*entities.Appointment, error) {
	ds := dialect.From(appointmentsTable).Prepared(true).
		Select(appointmentColumns...).
		Where(owner)

	if len(filter.Statuses) > 0 {
		ds = ds.Where(goqu.C("status_code").In(statusStrings(filter.Statuses)))
	}
	if filter.From != nil {
		ds = ds.Where(goqu.C("appointment_start_time").Gte(filter.From.UTC()))
	}
	if filter.To != nil {
		ds = ds.Where(goqu.C("appointment_start_time").Lt(filter.To.UTC()))
	}
	if filter.PaidOnly {
		ds = ds.Where(goqu.C("transaction_id").IsNotNull())
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.Order(order).ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}
	return a.query(ctx, query, args)
}

func (a *AppointmentAdapter) query(ctx context.Context, query string, args []interface{}) ([]*entities.Appointment, error) {
	rows, err := a.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbError("failed to list appointments", err)
	}
	defer rows.Close()

	appointments := make([]*entities.Appointment, 0)
	for rows.Next() {
		appointment, err := scanAppointment(rows)
		if err != nil {
			return nil, dbError("failed to scan appointment", err)
		}
		appointments = append(appointments, appointment)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("failed to iterate appointments", err)
	}
	return appointments, nil
}

func scanAppointment(row rowScanner) (*entities.Appointment, error) {
	appointment := &entities.Appointment{}
	var transactionID, notes sql.NullString

	err := row.Scan(
		&appointment.ID,
		&appointment.DoctorID,
		&appointment.PatientID,
		&appointment.AppointmentStartTime,
		&appointment.AppointmentEndTime,
		&appointment.StatusCode,
		&appointment.PaymentStatusCode,
		&appointment.PaymentMethodCode,
		&appointment.TotalAmount,
		&transactionID,
		&notes,
		&appointment.CreatedAt,
		&appointment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	appointment.TransactionID = stringPtr(transactionID)
	appointment.Notes = notes.String
	appointment.AppointmentStartTime = appointment.AppointmentStartTime.UTC()
	appointment.AppointmentEndTime = appointment.AppointmentEndTime.UTC()
	return appointment, nil
}

func statusStrings(statuses []entities.AppointmentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}
