package repositories

import (
	"context"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
)

// NotificationLogRepository records notification delivery attempts
type NotificationLogRepository interface {
	// Create stores a delivery attempt
	Create(ctx context.Context, n *entities.AppointmentNotification) error

	// HasSent reports whether a notification of the given type was already delivered for the appointment
	HasSent(ctx context.Context, appointmentID string, notificationType entities.NotificationType) (bool, error)

	// ListByAppointment retrieves delivery attempts of an appointment
	ListByAppointment(ctx context.Context, appointmentID string) ([]*entities.AppointmentNotification, error)
}
