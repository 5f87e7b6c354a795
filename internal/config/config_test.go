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
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "order-created", cfg.KafkaTopic)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.LockTimeout)
	assert.Equal(t, 100*time.Millisecond, cfg.LockPollInterval)
	assert.Equal(t, 15*time.Minute, cfg.ReservationTTL)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DB_PORT", "15432")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("LOCK_TIMEOUT", "3s")
	t.Setenv("RESERVATION_TTL", "5m")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 15432, cfg.DBPort)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.LockTimeout)
	assert.Equal(t, 5*time.Minute, cfg.ReservationTTL)
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value string
	}{
		{"non-numeric db port", "DB_PORT", "not-a-port"},
		{"bad lock timeout", "LOCK_TIMEOUT", "ten seconds"},
		{"negative lock timeout", "LOCK_TIMEOUT", "-1s"},
		{"poll exceeds timeout", "LOCK_POLL_INTERVAL", "1h"},
		{"negative reservation ttl", "RESERVATION_TTL", "-5m"},
		{"negative sweep interval", "SWEEP_INTERVAL", "-30s"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
