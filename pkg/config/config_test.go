package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, "http://localhost:3001/api", cfg.Backend.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 2, cfg.Backend.MaxRetries)
	assert.False(t, cfg.Periods.CacheEnabled)
	assert.Equal(t, 2*time.Minute, cfg.Periods.CacheTTL)
	assert.False(t, cfg.Periods.AuditEnabled)
	assert.Equal(t, 1, cfg.Invariant.Workers)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ENV", EnvProduction)
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("BACKEND_BASE_URL", "https://notas.example.com/api/")
	t.Setenv("BACKEND_TIMEOUT", "3s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	t.Setenv("ENABLE_PERIOD_CACHE", "true")
	t.Setenv("PERIOD_CACHE_TTL", "not-a-duration")
	t.Setenv("ENABLE_ACTIVATION_AUDIT", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvProduction, cfg.Env)
	assert.Equal(t, "https://notas.example.com/api", cfg.Backend.BaseURL)
	assert.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
	assert.True(t, cfg.Periods.CacheEnabled)
	assert.Equal(t, 2*time.Minute, cfg.Periods.CacheTTL)
	assert.True(t, cfg.Periods.AuditEnabled)
}

func TestLoadRequiresSecretForUnbackedEndpoints(t *testing.T) {
	cases := map[string]map[string]string{
		"production":    {"ENV": EnvProduction},
		"audit enabled": {"ENABLE_ACTIVATION_AUDIT": "true"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), "JWT_SECRET")

			t.Setenv("JWT_SECRET", "s3cret")
			cfg, err = Load()
			require.NoError(t, err)
			assert.Equal(t, "s3cret", cfg.JWT.Secret)
		})
	}
}
