package handlers

import (
	"time"

	"github.com/zatekoja/telemedbooking/internal/application/services"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
)

// CreateAppointmentRequest is the body of POST /api/appointments/appointment-Booking.
// PatientID is only honoured for staff booking on a patient's behalf.
type CreateAppointmentRequest struct {
	DoctorID             string    `json:"doctorId" validate:"required,uuid"`
	PatientID            string    `json:"patientId,omitempty" validate:"omitempty,uuid"`
	AppointmentStartTime time.Time `json:"appointmentStartTime" validate:"required"`
	AppointmentEndTime   time.Time `json:"appointmentEndTime" validate:"required,gtfield=AppointmentStartTime"`
	TotalAmount          int64     `json:"totalAmount" validate:"gt=0"`
	Notes                string    `json:"notes,omitempty" validate:"max=1000"`
}

// UpdateAppointmentRequest is the body of PUT /api/appointments/{id}. It takes the
// full appointment; only the times and notes are applied.
type UpdateAppointmentRequest struct {
	ID                   string                      `json:"id,omitempty"`
	DoctorID             *string                     `json:"doctorId,omitempty"`
	PatientID            *string                     `json:"patientId,omitempty"`
	AppointmentStartTime *time.Time                  `json:"appointmentStartTime,omitempty"`
	AppointmentEndTime   *time.Time                  `json:"appointmentEndTime,omitempty"`
	StatusCode           *entities.AppointmentStatus `json:"statusCode,omitempty"`
	PaymentStatusCode    *entities.PaymentStatus     `json:"paymentStatusCode,omitempty"`
	PaymentMethodCode    *entities.PaymentMethod     `json:"paymentMethodCode,omitempty"`
	TotalAmount          *int64                      `json:"totalAmount,omitempty"`
	TransactionID        *string                     `json:"transactionId,omitempty"`
	Notes                *string                     `json:"notes,omitempty" validate:"omitempty,max=1000"`
	CreatedAt            *time.Time                  `json:"createdAt,omitempty"`
	UpdatedAt            *time.Time                  `json:"updatedAt,omitempty"`
}

func (r UpdateAppointmentRequest) echoed() services.ReadOnlyFields {
	return services.ReadOnlyFields{
		DoctorID:          r.DoctorID,
		PatientID:         r.PatientID,
		StatusCode:        r.StatusCode,
		PaymentStatusCode: r.PaymentStatusCode,
		PaymentMethodCode: r.PaymentMethodCode,
		TotalAmount:       r.TotalAmount,
		TransactionID:     r.TransactionID,
	}
}

// MarkMissedRequest is the body of POST /api/appointments/{id}/missed
type MarkMissedRequest struct {
	Status entities.AppointmentStatus `json:"status" validate:"required,oneof=NoShow MissedByDoctor MissedByPatient"`
}

// ScheduleRequest describes a recurring weekly shift
type ScheduleRequest struct {
	DayOfWeek   *int                `json:"dayOfWeek" validate:"required,min=0,max=6"`
	StartTime   *entities.ClockTime `json:"startTime" validate:"required"`
	EndTime     *entities.ClockTime `json:"endTime" validate:"required"`
	IsAvailable *bool               `json:"isAvailable,omitempty"`
}

// OverrideRequest describes a date-specific override
type OverrideRequest struct {
	OverrideDate string              `json:"overrideDate" validate:"required,datetime=2006-01-02"`
	StartTime    *entities.ClockTime `json:"startTime" validate:"required"`
	EndTime      *entities.ClockTime `json:"endTime" validate:"required"`
	IsAvailable  *bool               `json:"isAvailable" validate:"required"`
	OverrideType string              `json:"overrideType" validate:"required,oneof=block extra vacation cancellation"`
	Reason       string              `json:"reason,omitempty" validate:"max=500"`
}

// CreditWalletRequest is the body of POST /api/wallets/{userId}/credit
type CreditWalletRequest struct {
	Amount      int64  `json:"amount" validate:"gt=0"`
	Description string `json:"description,omitempty" validate:"max=200"`
}

// AvailabilityResponse answers GET /api/doctors/{doctorId}/availability
type AvailabilityResponse struct {
	DoctorID  string                      `json:"doctorId"`
	Date      string                      `json:"date"`
	Time      entities.ClockTime          `json:"time"`
	Available bool                        `json:"available"`
	Source    entities.AvailabilitySource `json:"source"`
}

// BusyResponse answers GET /api/doctors/{doctorId}/busy
type BusyResponse struct {
	DoctorID string    `json:"doctorId"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Busy     bool      `json:"busy"`
}
