package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInitMetrics_RecordsBookingOutcomes(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	previous := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(previous) })

	metrics, err := InitMetrics()
	require.NoError(t, err)

	ctx := context.Background()
	RecordBookingAttempt(ctx, metrics, "booked")
	RecordBookingAttempt(ctx, metrics, "slot_conflict")
	RecordLedgerEntry(ctx, metrics, "AppointmentPayment", 200000)
	RecordRequestMetric(ctx, metrics, "POST", "/api/appointments/appointment-Booking", 201, 12*time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	assert.True(t, names["booking.attempt.count"])
	assert.True(t, names["wallet.ledger.amount"])
	assert.True(t, names["http.server.request.count"])
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordBookingAttempt(ctx, nil, "booked")
		RecordCacheHit(ctx, nil, "schedules")
		RecordDBMetric(ctx, nil, "select", time.Millisecond)
	})
}

func TestStartSpan_RecordError(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "booking.test")
	defer span.End()

	assert.NotNil(t, ctx)
	assert.NotPanics(t, func() { RecordError(span, errors.New("boom")) })
}
