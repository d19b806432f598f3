// Package tlsutil builds TLS client configurations for the bridge's NATS
// connection.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/planetf1/atlas-sub002/errors"
)

// ClientConfig describes the client side of a TLS connection.
type ClientConfig struct {
	CertFile           string // Client certificate for mutual TLS, optional
	KeyFile            string // Key of CertFile
	CAFile             string // Trusted in addition to the system pool
	MinVersion         string // "1.2" (default) or "1.3"
	InsecureSkipVerify bool   // DEV/TEST ONLY
}

// LoadClientConfig creates a tls.Config from cfg. The system CA bundle is
// always trusted; CAFile adds to it.
func LoadClientConfig(cfg ClientConfig) (*tls.Config, error) {
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errors.Fatalf(errors.ErrConfiguration, "tlsutil", "LoadClientConfig",
			"cert_file and key_file must be set together")
	}

	tlsConfig := &tls.Config{
		MinVersion: parseTLSVersion(cfg.MinVersion),
		// Operators opt in through configuration.
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		rootCAs = x509.NewCertPool()
	}
	if cfg.CAFile != "" {
		caPEM, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientConfig", fmt.Sprintf("read CA file %s", cfg.CAFile))
		}
		if !rootCAs.AppendCertsFromPEM(caPEM) {
			return nil, errors.WrapFatal(fmt.Errorf("invalid PEM data"), "tlsutil", "LoadClientConfig",
				fmt.Sprintf("parse CA certificate from %s", cfg.CAFile))
		}
	}
	tlsConfig.RootCAs = rootCAs

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, errors.WrapFatal(err, "tlsutil", "LoadClientConfig", "load client certificate")
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return tlsConfig, nil
}

func parseTLSVersion(version string) uint16 {
	switch version {
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}
