package notifications

import (
	"context"

	"github.com/google/uuid"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/providers"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
)

// LogSender writes notifications to the application log. Used when WhatsApp is not configured.
type LogSender struct{}

var _ providers.NotificationSender = LogSender{}

// Channel implements providers.NotificationSender
func (LogSender) Channel() entities.NotificationChannel {
	return entities.ChannelLog
}

// Send logs the message and returns a generated id
func (LogSender) Send(ctx context.Context, recipient, body string) (string, error) {
	id := uuid.NewString()
	observability.LoggerFromContext(ctx).Info().Str("message_id", id).Str("recipient", recipient).Str("body", body).Msg("Notification")
	return id, nil
}
