package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/togo_freelance/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_DSN", "host=localhost dbname=test")
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.AppPort)
	assert.Equal(t, 10080, cfg.JWTExpiresMin)
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.SMTP.Enabled())
	assert.Equal(t, 90, cfg.NotificationRetentionDays)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_DSN", "host=db")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_EXPIRES_MIN", "60")
	t.Setenv("SMTP_HOST", "smtp.example.tg")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.False(t, cfg.IsDevelopment())
	assert.Equal(t, 60, cfg.JWTExpiresMin)
	assert.True(t, cfg.SMTP.Enabled())
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("DB_DSN", "")
	t.Setenv("JWT_SECRET", "")

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DSN")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}
