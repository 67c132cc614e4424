package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "TICKET_CAP_PER_ORDER", "EMI_ELIGIBILITY_MIN_AMOUNT", "HALF_PAYMENT_PERCENT", "VERIFY_MAX_ATTEMPTS", "PAYMENT_STATUS_TIMEOUT"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Checkout.TicketCap)
	assert.Equal(t, int64(10000), cfg.Checkout.EmiEligibilityMin)
	assert.Equal(t, int64(50), cfg.Checkout.HalfPaymentPercent)
	assert.Equal(t, 3, cfg.Checkout.VerifyMaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.BookingAPI.StatusTimeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOOKING_API_URL", "https://bookings.example.com/api/")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TICKET_CAP_PER_ORDER", "6")
	t.Setenv("VERIFY_BACKOFF_BASE", "250ms")
	t.Setenv("PAYMENT_STATUS_TIMEOUT", "4")
	t.Setenv("HALF_PAYMENT_PERCENT", "not-a-number")

	cfg := Load()

	assert.Equal(t, "https://bookings.example.com/api", cfg.BookingAPI.BaseURL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 6, cfg.Checkout.TicketCap)
	assert.Equal(t, 250*time.Millisecond, cfg.Checkout.VerifyBackoffBase)
	assert.Equal(t, 4*time.Second, cfg.BookingAPI.StatusTimeout)
	assert.Equal(t, int64(50), cfg.Checkout.HalfPaymentPercent)
}

func TestGetEnvDurationInvalid(t *testing.T) {
	t.Setenv("EMI_OPTIONS_CACHE_TTL", "soon")
	assert.Equal(t, time.Minute, getEnvDuration("EMI_OPTIONS_CACHE_TTL", time.Minute))
}
