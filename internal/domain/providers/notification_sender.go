package providers

import (
	"context"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
)

// NotificationSender delivers a plain text message to a recipient
type NotificationSender interface {
	// Send delivers body to recipient and returns the provider message id
	Send(ctx context.Context, recipient, body string) (string, error)

	// Channel identifies the delivery channel for the notification log
	Channel() entities.NotificationChannel
}
