package config

import (
	"testing"
	"time"

	"github.com/devlanding/leads-api/pkg/db"
	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected bool
	}{
		{
			name: "development environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "development"},
			},
			expected: true,
		},
		{
			name: "debug gin mode",
			config: &Config{
				Server: ServerConfig{GinMode: "debug"},
			},
			expected: true,
		},
		{
			name: "production environment",
			config: &Config{
				Server: ServerConfig{AppEnv: "production"},
			},
			expected: false,
		},
		{
			name: "release mode",
			config: &Config{
				Server: ServerConfig{GinMode: "release", AppEnv: "production"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.config.IsDevelopment()
			assert.Equal(t, tt.expected, result)
		})
	}
}

func validConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           "8081",
			AppEnv:         "production",
			AllowedOrigins: []string{"https://devlanding.com.br"},
		},
		Database: DatabaseConfig{
			URL:            "postgres://leads@db.internal:5432/leads",
			MaxConns:       20,
			ConnectTimeout: 2 * time.Second,
		},
		Leads: LeadsConfig{
			RateLimitPerSecond: 5,
			RateLimitBurst:     10,
			MaxBodyBytes:       16 * 1024,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(c *Config)
		errorMsg string
		field    string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:     "missing database URL",
			mutate:   func(c *Config) { c.Database.URL = "" },
			errorMsg: "DATABASE_URL",
			field:    "DATABASE_URL",
		},
		{
			name:     "non-positive max conns",
			mutate:   func(c *Config) { c.Database.MaxConns = 0 },
			errorMsg: "DB_MAX_CONNS",
			field:    "DB_MAX_CONNS",
		},
		{
			name:     "non-positive connect timeout",
			mutate:   func(c *Config) { c.Database.ConnectTimeout = 0 },
			errorMsg: "DB_CONNECT_TIMEOUT",
			field:    "DB_CONNECT_TIMEOUT",
		},
		{
			name:     "missing CORS origins",
			mutate:   func(c *Config) { c.Server.AllowedOrigins = nil },
			errorMsg: "ALLOWED_CORS_ORIGINS is required",
		},
		{
			name:     "invalid rate limit",
			mutate:   func(c *Config) { c.Leads.RateLimitBurst = 0 },
			errorMsg: "LEADS_RATE_LIMIT_BURST",
		},
		{
			name:     "trace sample ratio above one",
			mutate:   func(c *Config) { c.Observability.TraceSampleRatio = 1.5 },
			errorMsg: "O11Y_TRACE_SAMPLE_RATIO",
		},
		{
			name: "profiling without endpoint",
			mutate: func(c *Config) {
				c.Profiling.Enabled = true
			},
			errorMsg: "O11Y_PROFILING_ENDPOINT is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				if tt.field != "" {
					var cfgErr *apperrors.ConfigError
					require.ErrorAs(t, err, &cfgErr)
					assert.Equal(t, tt.field, cfgErr.Field)
					assert.ErrorIs(t, err, apperrors.ErrConfig)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_PoolConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Database.ServiceKey = "s3cr3t"
	cfg.Database.IdleTimeout = time.Minute

	pc := cfg.PoolConfig()
	assert.Equal(t, cfg.Database.URL, pc.URL)
	assert.Equal(t, "s3cr3t", pc.ServiceKey)
	assert.Equal(t, "production", pc.Environment)
	assert.Equal(t, db.TLSRequireValidCert, pc.TLSMode)
	assert.Equal(t, int32(20), pc.MaxConns)
	assert.Equal(t, time.Minute, pc.IdleTimeout)
	assert.Equal(t, 2*time.Second, pc.ConnectTimeout)

	cfg.Server.AppEnv = "development"
	assert.Equal(t, db.TLSDisabled, cfg.PoolConfig().TLSMode)

	cfg.Database.TLSMode = "require-no-verify"
	assert.Equal(t, db.TLSRequireNoVerify, cfg.PoolConfig().TLSMode)
}

func TestLoad_WithDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "postgres://leads@db.internal:5432/leads")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.GinMode)
	assert.Equal(t, "production", cfg.Server.AppEnv)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, int32(db.DefaultMaxConns), cfg.Database.MaxConns)
	assert.Equal(t, db.DefaultIdleTimeout, cfg.Database.IdleTimeout)
	assert.Equal(t, db.DefaultConnectTimeout, cfg.Database.ConnectTimeout)
	assert.Equal(t, 5.0, cfg.Leads.RateLimitPerSecond)
	assert.Equal(t, 10, cfg.Leads.RateLimitBurst)
	assert.Equal(t, int64(16*1024), cfg.Leads.MaxBodyBytes)
	assert.Len(t, cfg.Server.AllowedOrigins, 2)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, 1.0, cfg.Observability.TraceSampleRatio)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PORT", "9000")
	t.Setenv("APP_ENV", "development")
	t.Setenv("ALLOWED_CORS_ORIGINS", "http://localhost:3000, ,http://127.0.0.1:3000")
	t.Setenv("DATABASE_URL", "postgres://dev@localhost:5432/leads")
	t.Setenv("DATABASE_SERVICE_KEY", "service-key")
	t.Setenv("DATABASE_MANAGED_ENDPOINT", "true")
	t.Setenv("DB_MAX_CONNS", "5")
	t.Setenv("DB_IDLE_TIMEOUT", "45s")
	t.Setenv("DB_CONNECT_TIMEOUT", "500ms")
	t.Setenv("LEADS_RATE_LIMIT_PER_SECOND", "0.5")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 172.16.0.1")
	t.Setenv("O11Y_TRACE_SAMPLE_RATIO", "0.25")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, "service-key", cfg.Database.ServiceKey)
	assert.True(t, cfg.Database.ManagedEndpoint)
	assert.Equal(t, int32(5), cfg.Database.MaxConns)
	assert.Equal(t, 45*time.Second, cfg.Database.IdleTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Database.ConnectTimeout)
	assert.Equal(t, 0.5, cfg.Leads.RateLimitPerSecond)
	assert.Equal(t, []string{"10.0.0.0/8", "172.16.0.1"}, cfg.Server.TrustedProxies)
	assert.Equal(t, 0.25, cfg.Observability.TraceSampleRatio)
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DATABASE_URL", "")

	cfg, err := Load()
	assert.Error(t, err)
	assert.Nil(t, cfg)
}
