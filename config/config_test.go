package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("RABBITMQ_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Checkout.DeliveryFee.Equal(decimal.NewFromInt(40)))
	assert.True(t, cfg.Checkout.TaxRate.Equal(decimal.RequireFromString("0.05")))
	assert.Equal(t, 30*time.Minute, cfg.Checkout.ScheduleDelay)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.RabbitMQ.URL)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("JWT_TTL", "1h")
	t.Setenv("AUTH_REQUIRE_EMAIL_CONFIRMATION", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.True(t, cfg.Auth.RequireEmailConfirmation)
}

func TestLoadConfigBadTaxRate(t *testing.T) {
	t.Setenv("CHECKOUT_TAX_RATE", "five percent")

	_, err := LoadConfig()
	assert.Error(t, err)
}
