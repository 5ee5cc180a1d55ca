package repositories

import (
	"context"
	"time"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
)

// AppointmentRepository defines the interface for appointment data operations
type AppointmentRepository interface {
	// Create creates a new appointment
	Create(ctx context.Context, appointment *entities.Appointment) error

	// GetByID retrieves an appointment by ID
	GetByID(ctx context.Context, id string) (*entities.Appointment, error)

	// Update updates an appointment
	Update(ctx context.Context, appointment *entities.Appointment) error

	// Delete permanently removes an appointment
	Delete(ctx context.Context, id string) error

	// ListByDoctor retrieves appointments for a doctor
	ListByDoctor(ctx context.Context, doctorID string, filter AppointmentFilter) ([]*entities.Appointment, error)

	// ListByPatient retrieves appointments for a patient
	ListByPatient(ctx context.Context, patientID string, filter AppointmentFilter) ([]*entities.Appointment, error)

	// HasOverlap reports whether a slot-blocking appointment of the doctor intersects [start, end).
	// ignoreID, when not empty, excludes that appointment from the check.
	HasOverlap(ctx context.Context, doctorID string, start, end time.Time, ignoreID string) (bool, error)

	// ListStartingBetween retrieves OnProgressing appointments starting in [from, to)
	ListStartingBetween(ctx context.Context, from, to time.Time) ([]*entities.Appointment, error)
}

// AppointmentFilter defines filters for listing appointments
type AppointmentFilter struct {
	Statuses []entities.AppointmentStatus
	From     *time.Time
	To       *time.Time
	// PaidOnly keeps appointments linked to a wallet transaction
	PaidOnly bool
	Limit    int
	Offset   int
}
