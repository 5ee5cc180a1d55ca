package entities

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	AppointmentStatusOnProgressing      AppointmentStatus = "OnProgressing"
	AppointmentStatusCompleted          AppointmentStatus = "Completed"
	AppointmentStatusCancelledByPatient AppointmentStatus = "CancelledByPatient"
	AppointmentStatusCancelledByDoctor  AppointmentStatus = "CancelledByDoctor"
	AppointmentStatusNoShow             AppointmentStatus = "NoShow"
	AppointmentStatusMissedByDoctor     AppointmentStatus = "MissedByDoctor"
	AppointmentStatusMissedByPatient    AppointmentStatus = "MissedByPatient"
)

// SlotBlockingStatuses are the statuses whose appointments occupy the doctor's time
var SlotBlockingStatuses = []AppointmentStatus{
	AppointmentStatusOnProgressing,
	AppointmentStatusCompleted,
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusOnProgressing: {
		AppointmentStatusCompleted,
		AppointmentStatusCancelledByPatient,
		AppointmentStatusCancelledByDoctor,
		AppointmentStatusNoShow,
		AppointmentStatusMissedByDoctor,
		AppointmentStatusMissedByPatient,
	},
}

// Valid reports whether s is a known status
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusOnProgressing, AppointmentStatusCompleted,
		AppointmentStatusCancelledByPatient, AppointmentStatusCancelledByDoctor,
		AppointmentStatusNoShow, AppointmentStatusMissedByDoctor, AppointmentStatusMissedByPatient:
		return true
	}
	return false
}

// BlocksSlot reports whether an appointment in this status occupies its interval
func (s AppointmentStatus) BlocksSlot() bool {
	for _, blocking := range SlotBlockingStatuses {
		if s == blocking {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed
func (s AppointmentStatus) IsTerminal() bool {
	return len(appointmentTransitions[s]) == 0
}

// CanTransitionTo reports whether moving from s to next is allowed
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range appointmentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentStatus represents the payment state of an appointment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusRefunded PaymentStatus = "Refunded"
)

// PaymentMethod represents how an appointment was paid
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "Wallet"
)

// Appointment represents a booked consultation between a patient and a doctor
type Appointment struct {
	ID                   string            `json:"id" db:"id"`
	DoctorID             string            `json:"doctorId" db:"doctor_id"`
	PatientID            string            `json:"patientId" db:"patient_id"`
	AppointmentStartTime time.Time         `json:"appointmentStartTime" db:"appointment_start_time"`
	AppointmentEndTime   time.Time         `json:"appointmentEndTime" db:"appointment_end_time"`
	StatusCode           AppointmentStatus `json:"statusCode" db:"status_code"`
	PaymentStatusCode    PaymentStatus     `json:"paymentStatusCode" db:"payment_status_code"`
	PaymentMethodCode    PaymentMethod     `json:"paymentMethodCode" db:"payment_method_code"`
	TotalAmount          int64             `json:"totalAmount" db:"total_amount"`
	TransactionID        *string           `json:"transactionId,omitempty" db:"transaction_id"`
	Notes                string            `json:"notes,omitempty" db:"notes"`
	CreatedAt            time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time         `json:"updatedAt" db:"updated_at"`
}

// Interval returns the appointment's half-open time range
func (a *Appointment) Interval() Interval {
	return Interval{Start: a.AppointmentStartTime, End: a.AppointmentEndTime}
}

// BlocksSlot reports whether the appointment occupies the doctor's time
func (a *Appointment) BlocksSlot() bool {
	return a.StatusCode.BlocksSlot()
}

// IsPaid reports whether the patient was charged and not yet refunded
func (a *Appointment) IsPaid() bool {
	return a.PaymentStatusCode == PaymentStatusPaid
}
