package database

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/repositories"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/clients/postgres"
)

// NotificationLogAdapter implements NotificationLogRepository with sqlx struct mapping
type NotificationLogAdapter struct {
	db *sqlx.DB
}

var _ repositories.NotificationLogRepository = (*NotificationLogAdapter)(nil)

// NewNotificationLogAdapter creates a new notification log adapter
func NewNotificationLogAdapter(client *postgres.Client) *NotificationLogAdapter {
	return &NotificationLogAdapter{db: sqlx.NewDb(client.DB(), "postgres")}
}

// Create stores a delivery attempt
func (a *NotificationLogAdapter) Create(ctx context.Context, n *entities.AppointmentNotification) error {
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	query := `
		INSERT INTO appointment_notifications
		(id, appointment_id, notification_type, channel, recipient, status, message_id,
		 sent_at, failed_at, error_message, created_at, updated_at)
		VALUES (:id, :appointment_id, :notification_type, :channel, :recipient, :status, :message_id,
		 :sent_at, :failed_at, :error_message, :created_at, :updated_at)
	`
	if _, err := a.db.NamedExecContext(ctx, query, n); err != nil {
		return dbError("failed to record notification", err)
	}
	return nil
}

// HasSent reports whether a notification of this type already went out for the appointment
func (a *NotificationLogAdapter) HasSent(ctx context.Context, appointmentID string, notificationType entities.NotificationType) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointment_notifications
			WHERE appointment_id = $1 AND notification_type = $2 AND status = $3
		)
	`
	err := a.db.GetContext(ctx, &exists, query, appointmentID, string(notificationType), string(entities.NotificationStatusSent))
	if err != nil {
		return false, dbError("failed to check notification log", err)
	}
	return exists, nil
}

// ListByAppointment retrieves delivery attempts oldest first
func (a *NotificationLogAdapter) ListByAppointment(ctx context.Context, appointmentID string) ([]*entities.AppointmentNotification, error) {
	notifications := make([]*entities.AppointmentNotification, 0)
	query := `
		SELECT id, appointment_id, notification_type, channel, recipient, status, message_id,
		       sent_at, failed_at, error_message, created_at, updated_at
		FROM appointment_notifications
		WHERE appointment_id = $1
		ORDER BY created_at
	`
	if err := a.db.SelectContext(ctx, &notifications, query, appointmentID); err != nil {
		return nil, dbError("failed to list notifications", err)
	}
	return notifications, nil
}
