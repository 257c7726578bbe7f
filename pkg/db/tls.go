package db

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgconn"
)

// buildTLSConfig returns the client TLS settings for host under mode.
// Returns nil when TLS is disabled.
func buildTLSConfig(cfg PoolConfig, host string) (*tls.Config, error) {
	switch cfg.TLSMode {
	case TLSDisabled:
		return nil, nil
	case TLSRequireNoVerify:
		return &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // only accepted for platform-managed endpoints, see PoolConfig.Validate
			MinVersion:         tls.VersionTLS12,
		}, nil
	case TLSRequireValidCert:
	default:
		return nil, fmt.Errorf("unsupported TLS mode %q", cfg.TLSMode)
	}

	tlsConfig := &tls.Config{
		ServerName: host,
		MinVersion: tls.VersionTLS12,
	}
	if cfg.TLSServerName != "" {
		tlsConfig.ServerName = cfg.TLSServerName
	}

	// System roots are used unless a CA bundle is configured
	if cfg.CACertPath != "" {
		rootCertPool, err := loadCAPool(cfg.CACertPath)
		if err != nil {
			return nil, err
		}
		tlsConfig.RootCAs = rootCertPool
	}

	return tlsConfig, nil
}

// loadCAPool reads a PEM bundle and fails when it holds no usable certificate
func loadCAPool(path string) (*x509.CertPool, error) {
	caPEM, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate from %s: %w", path, err)
	}

	rootCertPool := x509.NewCertPool()
	if ok := rootCertPool.AppendCertsFromPEM(caPEM); !ok {
		return nil, fmt.Errorf("failed to append CA certificate to pool")
	}
	return rootCertPool, nil
}

// applyTLS overrides whatever sslmode the URL carried with the configured mode.
// Plaintext fallbacks produced by sslmode=prefer/allow are dropped when TLS is required.
func applyTLS(connCfg *pgconn.Config, cfg PoolConfig) error {
	primary, err := buildTLSConfig(cfg, connCfg.Host)
	if err != nil {
		return err
	}
	connCfg.TLSConfig = primary

	seen := map[string]bool{endpointKey(connCfg.Host, connCfg.Port): true}
	fallbacks := make([]*pgconn.FallbackConfig, 0, len(connCfg.Fallbacks))
	for _, fb := range connCfg.Fallbacks {
		key := endpointKey(fb.Host, fb.Port)
		if seen[key] {
			continue
		}
		seen[key] = true

		fbTLS, err := buildTLSConfig(cfg, fb.Host)
		if err != nil {
			return err
		}
		fb.TLSConfig = fbTLS
		fallbacks = append(fallbacks, fb)
	}
	connCfg.Fallbacks = fallbacks

	return nil
}

func endpointKey(host string, port uint16) string {
	return fmt.Sprintf("%s:%d", host, port)
}
