package entities

import "time"

// NotificationChannel represents the delivery channel
type NotificationChannel string

const (
	ChannelWhatsApp NotificationChannel = "whatsapp"
	ChannelLog      NotificationChannel = "log"
)

// NotificationType represents the notification purpose
type NotificationType string

const (
	NotificationBookingConfirmation NotificationType = "booking_confirmation"
	NotificationReminder24h         NotificationType = "reminder_24h"
	NotificationCancellation        NotificationType = "cancellation"
	NotificationRescheduled         NotificationType = "rescheduled"
)

// NotificationStatus represents the delivery status
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

// AppointmentNotification tracks sent notifications
type AppointmentNotification struct {
	ID               string              `json:"id" db:"id"`
	AppointmentID    string              `json:"appointmentId" db:"appointment_id"`
	NotificationType NotificationType    `json:"notificationType" db:"notification_type"`
	Channel          NotificationChannel `json:"channel" db:"channel"`
	Recipient        string              `json:"recipient" db:"recipient"`
	Status           NotificationStatus  `json:"status" db:"status"`
	MessageID        *string             `json:"messageId,omitempty" db:"message_id"`
	SentAt           *time.Time          `json:"sentAt,omitempty" db:"sent_at"`
	FailedAt         *time.Time          `json:"failedAt,omitempty" db:"failed_at"`
	ErrorMessage     *string             `json:"errorMessage,omitempty" db:"error_message"`
	CreatedAt        time.Time           `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time           `json:"updatedAt" db:"updated_at"`
}
