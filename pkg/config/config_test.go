package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "telemed_booking", cfg.Database.Database)
	assert.True(t, cfg.Booking.EnforceAvailability)
	assert.Equal(t, "UTC", cfg.Booking.Timezone)
	assert.Equal(t, 10*time.Minute, cfg.Booking.ScheduleCacheTTL)
	assert.Equal(t, "@every 15m", cfg.Notifications.ReminderCron)
}

func TestLoad_BookingConfig(t *testing.T) {
	t.Setenv("BOOKING_ENFORCE_AVAILABILITY", "false")
	t.Setenv("SCHEDULE_TIMEZONE", "Asia/Ho_Chi_Minh")
	t.Setenv("BOOKING_RATE_LIMIT_RPS", "2.5")
	t.Setenv("BOOKING_MIN_LEAD_TIME", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.False(t, cfg.Booking.EnforceAvailability)
	assert.Equal(t, 2.5, cfg.Booking.RateLimitRPS)
	assert.Equal(t, 30*time.Minute, cfg.Booking.MinLeadTime)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Booking.Location().String())
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("DATABASE_DRIVER", "mysql")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown timezone", func(t *testing.T) {
		t.Setenv("SCHEDULE_TIMEZONE", "Mars/Olympus")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("malformed duration falls back to default", func(t *testing.T) {
		t.Setenv("SCHEDULE_CACHE_TTL", "soon")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 10*time.Minute, cfg.Booking.ScheduleCacheTTL)
	})
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=require", db.DatabaseDSN())
}
