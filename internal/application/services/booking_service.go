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
	"github.com/zatekoja/telemedbooking/pkg/config"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
)

// CreateAppointmentInput is a validated booking request
type CreateAppointmentInput struct {
	PatientID string
	DoctorID  string
	Start     time.Time
	End       time.Time
	Amount    int64
	Notes     string
}

// UpdateAppointmentInput carries the editable fields of an appointment. Nil fields are kept.
type UpdateAppointmentInput struct {
	Start *time.Time
	End   *time.Time
	Notes *string
	// Echoed holds read-only values a client sent back with the full appointment
	Echoed ReadOnlyFields
}

// ReadOnlyFields are appointment fields an update may carry but never change.
// Nil means the field was not sent.
type ReadOnlyFields struct {
	DoctorID          *string
	PatientID         *string
	StatusCode        *entities.AppointmentStatus
	PaymentStatusCode *entities.PaymentStatus
	PaymentMethodCode *entities.PaymentMethod
	TotalAmount       *int64
	TransactionID     *string
}

// changes lists the fields whose echoed value differs from the stored appointment
func (f ReadOnlyFields) changes(a *entities.Appointment) map[string]string {
	fields := map[string]string{}
	if f.DoctorID != nil && *f.DoctorID != a.DoctorID {
		fields["doctorId"] = "is read-only"
	}
	if f.PatientID != nil && *f.PatientID != a.PatientID {
		fields["patientId"] = "is read-only"
	}
	if f.StatusCode != nil && *f.StatusCode != a.StatusCode {
		fields["statusCode"] = "is read-only"
	}
	if f.PaymentStatusCode != nil && *f.PaymentStatusCode != a.PaymentStatusCode {
		fields["paymentStatusCode"] = "is read-only"
	}
	if f.PaymentMethodCode != nil && *f.PaymentMethodCode != a.PaymentMethodCode {
		fields["paymentMethodCode"] = "is read-only"
	}
	if f.TotalAmount != nil && *f.TotalAmount != a.TotalAmount {
		fields["totalAmount"] = "is read-only"
	}
	if f.TransactionID != nil && (a.TransactionID == nil || *f.TransactionID != *a.TransactionID) {
		fields["transactionId"] = "is read-only"
	}
	return fields
}

// BookingService books, reschedules and settles appointments against the patient's wallet
type BookingService struct {
	transactor          repositories.Transactor
	appointments        repositories.AppointmentRepository
	doctors             repositories.DoctorRepository
	eventBus            providers.EventBus
	metrics             *observability.Metrics
	loc                 *time.Location
	enforceAvailability bool
	minLeadTime         time.Duration
	now                 func() time.Time
}

// NewBookingService creates a new booking service. eventBus and metrics may be nil.
func NewBookingService(
	transactor repositories.Transactor,
	appointments repositories.AppointmentRepository,
	doctors repositories.DoctorRepository,
	eventBus providers.EventBus,
	metrics *observability.Metrics,
	cfg *config.BookingConfig,
) *BookingService {
	return &BookingService{
		transactor:          transactor,
		appointments:        appointments,
		doctors:             doctors,
		eventBus:            eventBus,
		metrics:             metrics,
		loc:                 cfg.Location(),
		enforceAvailability: cfg.EnforceAvailability,
		minLeadTime:         cfg.MinLeadTime,
		now:                 time.Now,
	}
}

func doctorUnavailable() *apperrors.AppError {
	return apperrors.NewConflictError("doctor is not available in this time range").WithCode(apperrors.CodeDoctorUnavailable)
}

func invalidTransition(from, to entities.AppointmentStatus) *apperrors.AppError {
	return apperrors.NewValidationError(fmt.Sprintf("cannot change appointment from %s to %s", from, to)).
		WithCode(apperrors.CodeInvalidStatusTransition)
}

// CreateAppointment checks the slot, debits the patient's wallet and stores the appointment
// in one transaction serialised per doctor.
func (s *BookingService) CreateAppointment(ctx context.Context, in CreateAppointmentInput) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "booking.create_appointment",
		attribute.String("doctor.id", in.DoctorID),
		attribute.String("patient.id", in.PatientID),
	)
	defer span.End()

	appointment, err := s.createAppointment(ctx, in)
	observability.RecordBookingAttempt(ctx, s.metrics, bookingOutcome(err))
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	observability.RecordLedgerEntry(ctx, s.metrics, string(entities.TransactionTypeAppointmentPayment), appointment.TotalAmount)
	observability.LoggerFromContext(ctx).Info().
		Str("appointment_id", appointment.ID).
		Str("doctor_id", appointment.DoctorID).
		Int64("amount", appointment.TotalAmount).
		Msg("Appointment booked")

	publishEvent(ctx, s.eventBus, entities.NewAppointmentEvent(entities.BookingEventTypeBooked, appointment))
	return appointment, nil
}

func (s *BookingService) createAppointment(ctx context.Context, in CreateAppointmentInput) (*entities.Appointment, error) {
	if err := s.validateBooking(in); err != nil {
		return nil, err
	}

	doctor, err := s.doctors.GetByID(ctx, in.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.IsActive {
		return nil, doctorUnavailable()
	}

	appointment := &entities.Appointment{
		ID:                   uuid.NewString(),
		DoctorID:             in.DoctorID,
		PatientID:            in.PatientID,
		AppointmentStartTime: in.Start.UTC(),
		AppointmentEndTime:   in.End.UTC(),
		StatusCode:           entities.AppointmentStatusOnProgressing,
		PaymentStatusCode:    entities.PaymentStatusPaid,
		PaymentMethodCode:    entities.PaymentMethodWallet,
		TotalAmount:          in.Amount,
		Notes:                strings.TrimSpace(in.Notes),
	}

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context, uow repositories.UnitOfWork) error {
		if err := uow.LockDoctor(ctx, appointment.DoctorID); err != nil {
			return err
		}

		if s.enforceAvailability {
			ok, err := intervalAvailable(ctx, uow.Schedules(), uow.Overrides(), s.loc, appointment.DoctorID, appointment.Interval())
			if err != nil {
				return err
			}
			if !ok {
				return doctorUnavailable()
			}
		}

		busy, err := uow.Appointments().HasOverlap(ctx, appointment.DoctorID, appointment.AppointmentStartTime, appointment.AppointmentEndTime, "")
		if err != nil {
			return err
		}
		if busy {
			return apperrors.NewSlotConflictError()
		}

		wallet, err := uow.Wallets().GetByUserIDForUpdate(ctx, appointment.PatientID)
		if err != nil {
			return err
		}
		if !wallet.IsActive {
			return apperrors.NewValidationError("wallet is inactive")
		}
		if !wallet.CanDebit(appointment.TotalAmount) {
			return apperrors.NewInsufficientFundsError()
		}

		entry, err := postDebit(ctx, uow.Wallets(), wallet, appointment.TotalAmount,
			entities.TransactionTypeAppointmentPayment, &appointment.ID, "Appointment payment")
		if err != nil {
			return err
		}
		appointment.TransactionID = &entry.ID

		return uow.Appointments().Create(ctx, appointment)
	})
	if err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *BookingService) validateBooking(in CreateAppointmentInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(in.PatientID) == "" {
		fields["patientId"] = "required"
	}
	if strings.TrimSpace(in.DoctorID) == "" {
		fields["doctorId"] = "required"
	}
	if in.Start.IsZero() {
		fields["appointmentStartTime"] = "required"
	} else if in.Start.Before(s.now().Add(s.minLeadTime)) {
		fields["appointmentStartTime"] = "must be in the future"
	}
	if in.End.IsZero() {
		fields["appointmentEndTime"] = "required"
	} else if !in.Start.IsZero() && !in.End.After(in.Start) {
		fields["appointmentEndTime"] = "must be after start"
	}
	if in.Amount <= 0 {
		fields["totalAmount"] = "must be positive"
	}
	if len(fields) > 0 {
		return apperrors.NewFieldValidationError(fields)
	}
	return nil
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return "booked"
	case apperrors.HasCode(err, apperrors.CodeSlotConflict):
		return "slot_conflict"
	case apperrors.HasCode(err, apperrors.CodeDoctorUnavailable):
		return "doctor_unavailable"
	case apperrors.Is(err, apperrors.ErrorTypeInsufficientFunds):
		return "insufficient_funds"
	case apperrors.Is(err, apperrors.ErrorTypeValidation):
		return "invalid"
	case apperrors.Is(err, apperrors.ErrorTypeNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// GetAppointment returns an appointment visible to the actor
func (s *BookingService) GetAppointment(ctx context.Context, id string, actor Actor) (*entities.Appointment, error) {
	appointment, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, appointment, actor, true); err != nil {
		return nil, err
	}
	return appointment, nil
}

// authorize lets staff, the treating doctor and, when allowPatient is set, the patient act on
// an appointment. It returns the treating doctor.
func (s *BookingService) authorize(ctx context.Context, appointment *entities.Appointment, actor Actor, allowPatient bool) (*entities.Doctor, error) {
	doctor, err := s.doctors.GetByID(ctx, appointment.DoctorID)
	if err != nil {
		return nil, err
	}

	switch {
	case actor.IsStaff():
	case allowPatient && appointment.PatientID == actor.UserID:
	case actor.Role == entities.RoleDoctor && doctor.UserID == actor.UserID:
	default:
		return nil, apperrors.NewForbiddenError("not allowed to access this appointment")
	}
	return doctor, nil
}

// UpdateAppointment reschedules an upcoming appointment or edits its notes.
// Other fields may be echoed back unchanged but are never written.
func (s *BookingService) UpdateAppointment(ctx context.Context, id string, in UpdateAppointmentInput, actor Actor) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "booking.update_appointment", attribute.String("appointment.id", id))
	defer span.End()

	existing, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, existing, actor, true); err != nil {
		return nil, err
	}

	var updated *entities.Appointment
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context, uow repositories.UnitOfWork) error {
		if err := uow.LockDoctor(ctx, existing.DoctorID); err != nil {
			return err
		}

		current, err := uow.Appointments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if changed := in.Echoed.changes(current); len(changed) > 0 {
			return apperrors.NewFieldValidationError(changed)
		}
		if current.StatusCode != entities.AppointmentStatusOnProgressing {
			return apperrors.NewValidationError("only upcoming appointments can be changed").
				WithCode(apperrors.CodeInvalidStatusTransition)
		}

		start, end := current.AppointmentStartTime, current.AppointmentEndTime
		if in.Start != nil {
			start = in.Start.UTC()
		}
		if in.End != nil {
			end = in.End.UTC()
		}
		rescheduled := !start.Equal(current.AppointmentStartTime) || !end.Equal(current.AppointmentEndTime)

		if rescheduled {
			if err := validateInterval(current.DoctorID, start, end); err != nil {
				return err
			}
			if start.Before(s.now().Add(s.minLeadTime)) {
				return apperrors.NewFieldValidationError(map[string]string{"appointmentStartTime": "must be in the future"})
			}
			if s.enforceAvailability {
				ok, err := intervalAvailable(ctx, uow.Schedules(), uow.Overrides(), s.loc, current.DoctorID, entities.NewInterval(start, end))
				if err != nil {
					return err
				}
				if !ok {
					return doctorUnavailable()
				}
			}
			busy, err := uow.Appointments().HasOverlap(ctx, current.DoctorID, start, end, current.ID)
			if err != nil {
				return err
			}
			if busy {
				return apperrors.NewSlotConflictError()
			}
			current.AppointmentStartTime = start
			current.AppointmentEndTime = end
		}
		if in.Notes != nil {
			current.Notes = strings.TrimSpace(*in.Notes)
		}

		if err := uow.Appointments().Update(ctx, current); err != nil {
			return err
		}
		updated = current
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	publishEvent(ctx, s.eventBus, entities.NewAppointmentEvent(entities.BookingEventTypeUpdated, updated))
	return updated, nil
}

// settlement runs inside a status transition and may post ledger entries
type settlement func(ctx context.Context, uow repositories.UnitOfWork, appointment *entities.Appointment, doctor *entities.Doctor) ([]*entities.WalletTransaction, error)

// transition moves an appointment to next, applying settle in the same transaction
func (s *BookingService) transition(
	ctx context.Context,
	id string,
	actor Actor,
	allowPatient bool,
	next entities.AppointmentStatus,
	eventType entities.BookingEventType,
	settle settlement,
) (*entities.Appointment, error) {
	ctx, span := observability.StartSpan(ctx, "booking.transition",
		attribute.String("appointment.id", id),
		attribute.String("appointment.status", string(next)),
	)
	defer span.End()

	existing, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doctor, err := s.authorize(ctx, existing, actor, allowPatient)
	if err != nil {
		return nil, err
	}

	var (
		result  *entities.Appointment
		entries []*entities.WalletTransaction
	)
	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context, uow repositories.UnitOfWork) error {
		if err := uow.LockDoctor(ctx, existing.DoctorID); err != nil {
			return err
		}

		current, err := uow.Appointments().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !current.StatusCode.CanTransitionTo(next) {
			return invalidTransition(current.StatusCode, next)
		}

		if settle != nil {
			posted, err := settle(ctx, uow, current, doctor)
			if err != nil {
				return err
			}
			entries = posted
		}

		current.StatusCode = next
		if err := uow.Appointments().Update(ctx, current); err != nil {
			return err
		}
		result = current
		return nil
	})
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	for _, entry := range entries {
		observability.RecordLedgerEntry(ctx, s.metrics, string(entry.TransactionTypeCode), entry.Amount)
	}
	publishEvent(ctx, s.eventBus, entities.NewAppointmentEvent(eventType, result))
	return result, nil
}

// refund returns a paid appointment's amount to the patient
func refund(ctx context.Context, uow repositories.UnitOfWork, appointment *entities.Appointment, _ *entities.Doctor) ([]*entities.WalletTransaction, error) {
	if !appointment.IsPaid() || appointment.TotalAmount <= 0 {
		return nil, nil
	}

	wallet, err := uow.Wallets().GetByUserIDForUpdate(ctx, appointment.PatientID)
	if err != nil {
		return nil, err
	}
	entry, err := postCredit(ctx, uow.Wallets(), wallet, appointment.TotalAmount,
		entities.TransactionTypeAppointmentRefund, &appointment.ID, "Appointment refund")
	if err != nil {
		return nil, err
	}
	appointment.PaymentStatusCode = entities.PaymentStatusRefunded
	return []*entities.WalletTransaction{entry}, nil
}

// CancelAppointment cancels an upcoming appointment and refunds the patient if it was paid
func (s *BookingService) CancelAppointment(ctx context.Context, id string, actor Actor) (*entities.Appointment, error) {
	next := entities.AppointmentStatusCancelledByDoctor
	if actor.Role == entities.RolePatient {
		next = entities.AppointmentStatusCancelledByPatient
	}
	return s.transition(ctx, id, actor, true, next, entities.BookingEventTypeCancelled, refund)
}

// CompleteAppointment marks the appointment completed and pays the doctor when they hold a wallet
func (s *BookingService) CompleteAppointment(ctx context.Context, id string, actor Actor) (*entities.Appointment, error) {
	return s.transition(ctx, id, actor, false, entities.AppointmentStatusCompleted, entities.BookingEventTypeCompleted, payout)
}

// payout credits the treating doctor's wallet with a paid appointment's amount
func payout(ctx context.Context, uow repositories.UnitOfWork, appointment *entities.Appointment, doctor *entities.Doctor) ([]*entities.WalletTransaction, error) {
	if !appointment.IsPaid() || appointment.TotalAmount <= 0 {
		return nil, nil
	}

	wallet, err := uow.Wallets().GetByUserIDForUpdate(ctx, doctor.UserID)
	if apperrors.Is(err, apperrors.ErrorTypeNotFound) {
		observability.LoggerFromContext(ctx).Warn().
			Str("doctor_id", doctor.ID).
			Str("appointment_id", appointment.ID).
			Msg("Doctor has no wallet, skipping payout")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !wallet.IsActive {
		return nil, nil
	}

	entry, err := postCredit(ctx, uow.Wallets(), wallet, appointment.TotalAmount,
		entities.TransactionTypeAppointmentPayout, &appointment.ID, "Appointment payout")
	if err != nil {
		return nil, err
	}
	return []*entities.WalletTransaction{entry}, nil
}

// MarkMissed records a no-show. A doctor miss refunds the patient.
func (s *BookingService) MarkMissed(ctx context.Context, id string, status entities.AppointmentStatus, actor Actor) (*entities.Appointment, error) {
	var settle settlement
	switch status {
	case entities.AppointmentStatusNoShow, entities.AppointmentStatusMissedByPatient:
	case entities.AppointmentStatusMissedByDoctor:
		settle = refund
	default:
		return nil, apperrors.NewFieldValidationError(map[string]string{"status": "must be NoShow, MissedByDoctor or MissedByPatient"})
	}
	return s.transition(ctx, id, actor, false, status, entities.BookingEventTypeMissed, settle)
}

// ListByDoctor lists a doctor's appointments in start order
func (s *BookingService) ListByDoctor(ctx context.Context, doctorID string, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	if strings.TrimSpace(doctorID) == "" {
		return nil, apperrors.NewFieldValidationError(map[string]string{"doctorId": "required"})
	}
	return s.appointments.ListByDoctor(ctx, doctorID, filter)
}

// ListForActor lists the caller's appointments: a doctor's schedule or a patient's bookings
func (s *BookingService) ListForActor(ctx context.Context, actor Actor, filter repositories.AppointmentFilter) ([]*entities.Appointment, error) {
	if actor.Role == entities.RoleDoctor {
		doctor, err := s.doctors.GetByUserID(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		return s.appointments.ListByDoctor(ctx, doctor.ID, filter)
	}
	return s.appointments.ListByPatient(ctx, actor.UserID, filter)
}

// DeleteAppointment permanently removes an appointment. Admin only.
func (s *BookingService) DeleteAppointment(ctx context.Context, id string, actor Actor) error {
	if actor.Role != entities.RoleAdmin {
		return apperrors.NewForbiddenError("only administrators can delete appointments")
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		return err
	}
	observability.LoggerFromContext(ctx).Info().Str("appointment_id", id).Str("actor", actor.UserID).Msg("Appointment deleted")
	return nil
}
