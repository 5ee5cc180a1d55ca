package entities

import (
	"time"

	"github.com/google/uuid"
)

// BookingEventType represents the type of booking event
type BookingEventType string

const (
	BookingEventTypeBooked          BookingEventType = "appointment.booked"
	BookingEventTypeUpdated         BookingEventType = "appointment.updated"
	BookingEventTypeCancelled       BookingEventType = "appointment.cancelled"
	BookingEventTypeCompleted       BookingEventType = "appointment.completed"
	BookingEventTypeMissed          BookingEventType = "appointment.missed"
	BookingEventTypeScheduleChanged BookingEventType = "schedule.changed"
)

// BookingEvent is published after a booking state change has been committed
type BookingEvent struct {
	ID            string            `json:"id"`
	EventType     BookingEventType  `json:"eventType"`
	AppointmentID string            `json:"appointmentId,omitempty"`
	DoctorID      string            `json:"doctorId"`
	PatientID     string            `json:"patientId,omitempty"`
	Status        AppointmentStatus `json:"status,omitempty"`
	StartTime     time.Time         `json:"startTime,omitempty"`
	EndTime       time.Time         `json:"endTime,omitempty"`
	Amount        int64             `json:"amount,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
}

// NewAppointmentEvent creates an event describing appointment a
func NewAppointmentEvent(eventType BookingEventType, a *Appointment) *BookingEvent {
	return &BookingEvent{
		ID:            uuid.NewString(),
		EventType:     eventType,
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		Status:        a.StatusCode,
		StartTime:     a.AppointmentStartTime,
		EndTime:       a.AppointmentEndTime,
		Amount:        a.TotalAmount,
		Timestamp:     time.Now().UTC(),
	}
}

// NewScheduleEvent creates an event announcing a schedule or override change for a doctor
func NewScheduleEvent(doctorID string) *BookingEvent {
	return &BookingEvent{
		ID:        uuid.NewString(),
		EventType: BookingEventTypeScheduleChanged,
		DoctorID:  doctorID,
		Timestamp: time.Now().UTC(),
	}
}
