package db

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/devlanding/leads-api/pkg/errors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TLSMode controls certificate verification when dialling the backend
type TLSMode string

const (
	TLSDisabled         TLSMode = "disabled"
	TLSRequireValidCert TLSMode = "require-valid-cert"
	TLSRequireNoVerify  TLSMode = "require-no-verify"
)

const (
	DefaultMaxConns       = 20
	DefaultIdleTimeout    = 30 * time.Second
	DefaultConnectTimeout = 2 * time.Second
	DefaultHealthProbe    = "SELECT 1"

	// operationTimeoutFactor bounds a single statement relative to ConnectTimeout
	operationTimeoutFactor = 3
)

var placeholderMarkers = []string{"<", ">", "your-", "your_", "changeme", "placeholder", "xxxx"}

var localHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// PoolConfig contains connection pool configuration, read once at startup
type PoolConfig struct {
	URL             string
	ServiceKey      string // overrides the password embedded in URL when set
	Environment     string
	TLSMode         TLSMode
	ManagedEndpoint bool // backend is a platform-managed endpoint outside our trust boundary
	CACertPath      string
	TLSServerName   string
	MaxConns        int32
	IdleTimeout     time.Duration
	ConnectTimeout  time.Duration
	HealthProbe     string
}

// DefaultPoolConfig returns a config for url with documented defaults applied
func DefaultPoolConfig(url, environment string) PoolConfig {
	return PoolConfig{
		URL:            url,
		Environment:    environment,
		TLSMode:        ResolveTLSMode(environment, ""),
		MaxConns:       DefaultMaxConns,
		IdleTimeout:    DefaultIdleTimeout,
		ConnectTimeout: DefaultConnectTimeout,
		HealthProbe:    DefaultHealthProbe,
	}
}

// ResolveTLSMode returns the explicit mode when set, otherwise derives it from
// the deployment environment.
func ResolveTLSMode(environment, explicit string) TLSMode {
	if explicit = strings.TrimSpace(strings.ToLower(explicit)); explicit != "" {
		return TLSMode(explicit)
	}
	if environment == "development" {
		return TLSDisabled
	}
	return TLSRequireValidCert
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxConns == 0 {
		c.MaxConns = DefaultMaxConns
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if strings.TrimSpace(c.HealthProbe) == "" {
		c.HealthProbe = DefaultHealthProbe
	}
	if c.TLSMode == "" {
		c.TLSMode = ResolveTLSMode(c.Environment, "")
	}
	return c
}

// Validate checks the configuration and returns a *errors.ConfigError on the
// first problem found.
func (c PoolConfig) Validate() error {
	url := strings.TrimSpace(c.URL)
	if url == "" {
		return apperrors.NewConfigError("DATABASE_URL", "is required")
	}
	if isPlaceholder(url) {
		return apperrors.NewConfigError("DATABASE_URL", "contains a placeholder value")
	}
	if c.ServiceKey != "" && isPlaceholder(c.ServiceKey) {
		return apperrors.NewConfigError("DATABASE_SERVICE_KEY", "contains a placeholder value")
	}
	if c.MaxConns <= 0 {
		return apperrors.NewConfigError("DB_MAX_CONNS", "must be greater than zero")
	}

	mode := c.TLSMode
	if mode == "" {
		mode = ResolveTLSMode(c.Environment, "")
	}
	switch mode {
	case TLSDisabled, TLSRequireValidCert, TLSRequireNoVerify:
	default:
		return apperrors.NewConfigError("DATABASE_TLS_MODE", fmt.Sprintf("unsupported mode %q", mode))
	}
	if mode == TLSRequireNoVerify && !c.ManagedEndpoint {
		return apperrors.NewConfigError("DATABASE_TLS_MODE", "require-no-verify is only allowed for platform-managed endpoints")
	}
	if c.Environment == "production" && mode == TLSDisabled {
		return apperrors.NewConfigError("DATABASE_TLS_MODE", "TLS cannot be disabled in production")
	}
	if mode == TLSRequireValidCert && c.CACertPath != "" {
		if _, err := loadCAPool(c.CACertPath); err != nil {
			return apperrors.NewConfigError("DATABASE_CA_CERT_PATH", err.Error())
		}
	}

	parsed, err := pgxpool.ParseConfig(url)
	if err != nil {
		return apperrors.NewConfigError("DATABASE_URL", "cannot be parsed as a PostgreSQL connection string")
	}
	if c.Environment != "development" {
		host := parsed.ConnConfig.Host
		if host == "" || localHosts[host] || strings.HasPrefix(host, "/") {
			return apperrors.NewConfigError("DATABASE_URL", "local endpoint is only allowed in development")
		}
	}

	return nil
}

// OperationTimeout is the deadline applied to a single statement
func (c PoolConfig) OperationTimeout() time.Duration {
	return operationTimeoutFactor * c.withDefaults().ConnectTimeout
}

func isPlaceholder(value string) bool {
	lower := strings.ToLower(value)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
