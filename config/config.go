package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/devlanding/leads-api/pkg/db"
	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds all application configuration
//
//nolint:govet // Field alignment optimization would reduce readability
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Leads         LeadsConfig
	Logging       LoggingConfig
	Observability ObservabilityConfig
	Profiling     ProfilingConfig
}

type ServerConfig struct {
	Port           string
	GinMode        string
	AppEnv         string
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For; empty trusts none
	TrustedProxies []string
}

type DatabaseConfig struct {
	URL             string
	ServiceKey      string
	TLSMode         string
	ManagedEndpoint bool
	CACertPath      string
	TLSServerName   string
	MaxConns        int32
	IdleTimeout     time.Duration
	ConnectTimeout  time.Duration
	MigrationsPath  string
}

// LeadsConfig controls the public intake endpoint
type LeadsConfig struct {
	RateLimitPerSecond float64
	RateLimitBurst     int
	MaxBodyBytes       int64
}

type LoggingConfig struct {
	Level      string
	Dir        string
	MaxSizeMB  int
	MaxBackups int
}

type ObservabilityConfig struct {
	AlloyEndpoint     string
	ServiceName       string
	ServiceNamespace  string
	ServiceVersion    string
	ServiceInstanceID string
	TraceSampleRatio  float64
}

type ProfilingConfig struct {
	Enabled               bool
	Endpoint              string
	AppName               string
	SampleTypes           string
	UploadIntervalSeconds int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("PORT", "8081")
	v.SetDefault("GIN_MODE", "release")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("ALLOWED_CORS_ORIGINS", "https://devlanding.com.br,https://www.devlanding.com.br")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("DATABASE_MANAGED_ENDPOINT", false)
	v.SetDefault("DB_MAX_CONNS", db.DefaultMaxConns)
	v.SetDefault("DB_IDLE_TIMEOUT", db.DefaultIdleTimeout)
	v.SetDefault("DB_CONNECT_TIMEOUT", db.DefaultConnectTimeout)
	v.SetDefault("DB_MIGRATIONS_PATH", "file://migrations")
	v.SetDefault("LEADS_RATE_LIMIT_PER_SECOND", 5)
	v.SetDefault("LEADS_RATE_LIMIT_BURST", 10)
	v.SetDefault("LEADS_MAX_BODY_BYTES", 16*1024)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_DIR", "")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("O11Y_EXPORTER_ENDPOINT", "") // OTLP over HTTP, empty disables tracing
	v.SetDefault("O11Y_BE_SERVICE_NAME", "leads-api")
	v.SetDefault("O11Y_SERVICE_NAMESPACE", "devlanding")
	v.SetDefault("O11Y_BE_SERVICE_VERSION", "1.0.0")
	v.SetDefault("O11Y_TRACE_SAMPLE_RATIO", 1.0)
	v.SetDefault("O11Y_PROFILING_ENABLED", false)
	v.SetDefault("O11Y_PROFILING_APP_NAME", "leads-api")
	v.SetDefault("O11Y_PROFILING_SAMPLE_TYPES", "cpu,alloc_space,goroutines")
	v.SetDefault("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS", 15)

	// Automatically read environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read from .env file if it exists
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	_ = v.ReadInConfig() //nolint:errcheck // Ignore error if .env file doesn't exist

	cfg := &Config{
		Server: ServerConfig{
			Port:           v.GetString("PORT"),
			GinMode:        v.GetString("GIN_MODE"),
			AppEnv:         v.GetString("APP_ENV"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_CORS_ORIGINS")),
			TrustedProxies: splitList(v.GetString("TRUSTED_PROXIES")),
		},
		Database: DatabaseConfig{
			URL:             strings.TrimSpace(v.GetString("DATABASE_URL")),
			ServiceKey:      v.GetString("DATABASE_SERVICE_KEY"),
			TLSMode:         v.GetString("DATABASE_TLS_MODE"),
			ManagedEndpoint: v.GetBool("DATABASE_MANAGED_ENDPOINT"),
			CACertPath:      v.GetString("DATABASE_CA_CERT_PATH"),
			TLSServerName:   v.GetString("DATABASE_TLS_SERVER_NAME"),
			MaxConns:        v.GetInt32("DB_MAX_CONNS"),
			IdleTimeout:     v.GetDuration("DB_IDLE_TIMEOUT"),
			ConnectTimeout:  v.GetDuration("DB_CONNECT_TIMEOUT"),
			MigrationsPath:  v.GetString("DB_MIGRATIONS_PATH"),
		},
		Leads: LeadsConfig{
			RateLimitPerSecond: v.GetFloat64("LEADS_RATE_LIMIT_PER_SECOND"),
			RateLimitBurst:     v.GetInt("LEADS_RATE_LIMIT_BURST"),
			MaxBodyBytes:       v.GetInt64("LEADS_MAX_BODY_BYTES"),
		},
		Logging: LoggingConfig{
			Level:      v.GetString("LOG_LEVEL"),
			Dir:        v.GetString("LOG_DIR"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
		},
		Observability: ObservabilityConfig{
			AlloyEndpoint:     v.GetString("O11Y_EXPORTER_ENDPOINT"),
			ServiceName:       v.GetString("O11Y_BE_SERVICE_NAME"),
			ServiceNamespace:  v.GetString("O11Y_SERVICE_NAMESPACE"),
			ServiceVersion:    v.GetString("O11Y_BE_SERVICE_VERSION"),
			ServiceInstanceID: v.GetString("SERVICE_INSTANCE_ID"),
			TraceSampleRatio:  v.GetFloat64("O11Y_TRACE_SAMPLE_RATIO"),
		},
		Profiling: ProfilingConfig{
			Enabled:               v.GetBool("O11Y_PROFILING_ENABLED"),
			Endpoint:              v.GetString("O11Y_PROFILING_ENDPOINT"),
			AppName:               v.GetString("O11Y_PROFILING_APP_NAME"),
			SampleTypes:           v.GetString("O11Y_PROFILING_SAMPLE_TYPES"),
			UploadIntervalSeconds: v.GetInt("O11Y_PROFILING_UPLOAD_INTERVAL_SECONDS"),
		},
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration values are set.
// Connection details are checked again, in depth, by db.Init.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_CORS_ORIGINS is required")
	}

	if c.Database.URL == "" {
		return apperrors.NewConfigError("DATABASE_URL", "is required")
	}
	if c.Database.MaxConns <= 0 {
		return apperrors.NewConfigError("DB_MAX_CONNS", "must be greater than zero")
	}
	if c.Database.ConnectTimeout <= 0 {
		return apperrors.NewConfigError("DB_CONNECT_TIMEOUT", "must be greater than zero")
	}

	if c.Leads.RateLimitPerSecond <= 0 || c.Leads.RateLimitBurst <= 0 {
		return fmt.Errorf("LEADS_RATE_LIMIT_PER_SECOND and LEADS_RATE_LIMIT_BURST must be positive")
	}
	if c.Leads.MaxBodyBytes <= 0 {
		return fmt.Errorf("LEADS_MAX_BODY_BYTES must be positive")
	}

	if r := c.Observability.TraceSampleRatio; r < 0 || r > 1 {
		return fmt.Errorf("O11Y_TRACE_SAMPLE_RATIO must be between 0 and 1")
	}

	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		return fmt.Errorf("O11Y_PROFILING_ENDPOINT is required when profiling is enabled")
	}

	return nil
}

// PoolConfig maps database settings onto the connection pool configuration
func (c *Config) PoolConfig() db.PoolConfig {
	return db.PoolConfig{
		URL:             c.Database.URL,
		ServiceKey:      c.Database.ServiceKey,
		Environment:     c.Server.AppEnv,
		TLSMode:         db.ResolveTLSMode(c.Server.AppEnv, c.Database.TLSMode),
		ManagedEndpoint: c.Database.ManagedEndpoint,
		CACertPath:      c.Database.CACertPath,
		TLSServerName:   c.Database.TLSServerName,
		MaxConns:        c.Database.MaxConns,
		IdleTimeout:     c.Database.IdleTimeout,
		ConnectTimeout:  c.Database.ConnectTimeout,
	}
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.AppEnv == "development" || c.Server.GinMode == "debug"
}

func splitList(value string) []string {
	items := []string{}
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
