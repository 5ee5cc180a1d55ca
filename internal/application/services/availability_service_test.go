package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/telemedbooking/internal/domain/entities"
	apperrors "github.com/zatekoja/telemedbooking/pkg/errors"
)

func TestAvailabilityService_IsDoctorBusy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	booked, err := f.book(t, patientID, at(monday, 10, 0), time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		start    time.Time
		end      time.Time
		ignoreID string
		want     bool
	}{
		{name: "same interval", start: at(monday, 10, 0), end: at(monday, 11, 0), want: true},
		{name: "overlaps start", start: at(monday, 9, 30), end: at(monday, 10, 30), want: true},
		{name: "overlaps end", start: at(monday, 10, 30), end: at(monday, 11, 30), want: true},
		{name: "contains", start: at(monday, 9, 0), end: at(monday, 12, 0), want: true},
		{name: "contained", start: at(monday, 10, 15), end: at(monday, 10, 45), want: true},
		{name: "touches before", start: at(monday, 9, 0), end: at(monday, 10, 0), want: false},
		{name: "touches after", start: at(monday, 11, 0), end: at(monday, 12, 0), want: false},
		{name: "ignores itself", start: at(monday, 10, 0), end: at(monday, 11, 0), ignoreID: booked.ID, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			busy, err := f.availability.IsDoctorBusy(ctx, doctorID, tt.start, tt.end, tt.ignoreID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, busy)
		})
	}

	other, err := f.availability.IsDoctorBusy(ctx, "doc-2", at(monday, 10, 0), at(monday, 11, 0), "")
	require.NoError(t, err)
	assert.False(t, other)
}

func TestAvailabilityService_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.availability.IsDoctorBusy(ctx, "", at(monday, 10, 0), at(monday, 11, 0), "")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	_, err = f.availability.IsDoctorBusy(ctx, doctorID, at(monday, 11, 0), at(monday, 10, 0), "")
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	_, err = f.availability.IsIntervalAvailable(ctx, doctorID, at(monday, 10, 0), at(monday, 10, 0))
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	_, err = f.availability.ResolveAvailability(ctx, doctorID, monday, entities.EndOfDay)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))

	_, err = f.availability.ResolveAvailability(ctx, " ", monday, entities.Midnight)
	assert.True(t, apperrors.Is(err, apperrors.ErrorTypeValidation))
}

func TestAvailabilityService_IsIntervalAvailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  bool
	}{
		{name: "inside shift", start: at(monday, 9, 0), end: at(monday, 17, 0), want: true},
		{name: "runs past shift", start: at(monday, 16, 30), end: at(monday, 17, 30), want: false},
		{name: "before shift", start: at(monday, 8, 0), end: at(monday, 9, 0), want: false},
		{name: "no schedule that day", start: at(monday.AddDate(0, 0, 2), 10, 0), end: at(monday.AddDate(0, 0, 2), 11, 0), want: false},
		{name: "spans two days", start: at(monday, 16, 0), end: at(monday.AddDate(0, 0, 1), 10, 0), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := f.availability.IsIntervalAvailable(ctx, doctorID, tt.start, tt.end)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestAvailabilityService_ResolveInClinicZone(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)

	f := newFixture(t)
	svc := NewAvailabilityService(f.store.Schedules(), f.store.Overrides(), f.store.Appointments(), lagos)

	// 09:00 in Lagos is 08:00 UTC
	ok, err := svc.IsIntervalAvailable(context.Background(), doctorID,
		time.Date(2030, 6, 3, 8, 0, 0, 0, time.UTC), time.Date(2030, 6, 3, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, lagos, svc.Location())
}
