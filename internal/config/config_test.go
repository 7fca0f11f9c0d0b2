package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("DATABASE_DRIVER", "")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("RAZORPAY_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Contains(t, cfg.DatabaseDSN, "medicos.db")
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 10*time.Second, cfg.Razorpay.Timeout)
}

func TestLoadRejectsNonNumericPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	assert.Equal(t, "8080", Load().HTTPPort)
}

func TestLoadBuildsPostgresDSN(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "pgx")
	t.Setenv("DATABASE_DSN", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "pos")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_NAME", "shop")

	assert.Equal(t, "postgres://pos:pw@db:5432/shop?sslmode=disable", Load().DatabaseDSN)
}

func TestValidate(t *testing.T) {
	cfg := Config{DatabaseDriver: "sqlite", Secret: "s", Razorpay: RazorpayConfig{Mode: "fake"}}
	require.NoError(t, cfg.Validate())

	cfg.Razorpay.Mode = "live"
	require.Error(t, cfg.Validate())

	cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret = "rzp_test", "secret"
	require.NoError(t, cfg.Validate())

	cfg.Env, cfg.Secret = "prod", "dev_secret"
	require.Error(t, cfg.Validate())
}
