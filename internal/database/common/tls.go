package common

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/redbco/redb-nosql/pkg/adapter"
)

// TLSConfig builds the client TLS configuration. It returns nil when SSL is off.
func TLSConfig(config adapter.ConnectionConfig) (*tls.Config, error) {
	if !config.SSL {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: config.SSLRejectUnauthorized != nil && !*config.SSLRejectUnauthorized,
	}

	// Load client certificate and key if provided
	if config.SSLCert != nil && config.SSLKey != nil {
		cert, err := tls.LoadX509KeyPair(*config.SSLCert, *config.SSLKey)
		if err != nil {
			return nil, fmt.Errorf("error loading client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	// Load CA certificate if provided
	if config.SSLRootCert != nil {
		caCert, err := os.ReadFile(*config.SSLRootCert)
		if err != nil {
			return nil, fmt.Errorf("error reading CA certificate: %w", err)
		}
		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates found in %s", *config.SSLRootCert)
		}
		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}

// HTTPClient builds an http.Client honoring the TLS settings and the "timeout" option.
func HTTPClient(config adapter.ConnectionConfig) (*http.Client, error) {
	tlsConfig, err := TLSConfig(config)
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsConfig != nil {
		transport.TLSClientConfig = tlsConfig
	}
	return &http.Client{
		Transport: transport,
		Timeout:   config.OptionDuration("timeout", 30*time.Second),
	}, nil
}
