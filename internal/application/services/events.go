package services

import (
	"context"

	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	"github.com/zatekoja/telemedbooking/internal/domain/providers"
	"github.com/zatekoja/telemedbooking/internal/infrastructure/observability"
)

// publishEvent fans an event out to the global and doctor channels. Failures are logged only.
func publishEvent(ctx context.Context, bus providers.EventBus, event *entities.BookingEvent) {
	if bus == nil || event == nil {
		return
	}

	ctx = context.WithoutCancel(ctx)
	for _, channel := range []string{providers.EventChannelBookings, providers.GetDoctorChannel(event.DoctorID)} {
		if err := bus.Publish(ctx, channel, event); err != nil {
			observability.LoggerFromContext(ctx).Warn().
				Err(err).
				Str("channel", channel).
				Str("event_type", string(event.EventType)).
				Msg("Failed to publish booking event")
		}
	}
}
