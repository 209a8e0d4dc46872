package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "mysql")
	t.Setenv("VALIDATE_PATIENT", "")
	t.Setenv("UPSTREAM_TIMEOUT", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "3306", cfg.Database.Port)
	assert.Contains(t, cfg.Database.DSN, "@tcp(")
	assert.Equal(t, 5*time.Second, cfg.Services.Timeout)
	assert.True(t, cfg.Services.ValidatePatient, "only the literal \"false\" disables validation")
	assert.Equal(t, int64(10<<20), cfg.Uploads.MaxFileSize)
	assert.Equal(t, 5, cfg.Uploads.MaxFiles)
	assert.Equal(t, "/api/v1/users/{id}", cfg.Services.AuthUserPath)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("VALIDATE_DOCTOR", "false")
	t.Setenv("UPSTREAM_TIMEOUT", "2")
	t.Setenv("ORPHAN_SWEEP_INTERVAL", "15m")
	t.Setenv("ORIGIN", "http://a.test, http://b.test")
	t.Setenv("USER_SERVICE_URL", "http://users.test/")
	t.Setenv("APP_ENV", "production")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Contains(t, cfg.Database.DSN, "sslmode=disable")
	assert.False(t, cfg.Services.ValidateDoctor)
	assert.Equal(t, 2*time.Second, cfg.Services.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Uploads.SweepInterval)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Origins)
	assert.Equal(t, "http://users.test", cfg.Services.UserServiceURL)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")

	_, err := LoadConfig()
	assert.Error(t, err)
}
