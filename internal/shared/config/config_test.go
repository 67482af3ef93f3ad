package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("BOOKING_MAX_TICKETS", "")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Booking.MaxTicketsPerBooking)
	assert.Equal(t, "MB", cfg.Booking.ReferencePrefix)
	assert.Equal(t, "/api/v1", cfg.GetAPIBasePath())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Contains(t, cfg.Database.DSN, "dbname=moviebooking")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "MEMORY")
	t.Setenv("RETENTION_AGE", "48h")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092 ,")
	t.Setenv("JWT_EXPIRES_IN", "60")
	t.Setenv("RATE_LIMIT_ENABLED", "not-a-bool")

	cfg := Load()

	assert.True(t, cfg.UsesMemoryStore())
	assert.Equal(t, 48*time.Hour, cfg.Jobs.RetentionAge)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Events.KafkaBrokers)
	assert.Equal(t, time.Minute, cfg.JWT.JWTExpiresIn)
	assert.True(t, cfg.RateLimit.Enabled, "unparseable bool falls back to default")
}
