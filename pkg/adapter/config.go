package adapter

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
	"github.com/redbco/redb-nosql/pkg/settings"
)

// ConnectionConfig contains the configuration for a database connection.
// This is a unified configuration that works across all drivers.
type ConnectionConfig struct {
	// Identifier of the connection inside a connection manager
	DatabaseID string `json:"databaseId"`

	// Database type, e.g., "mongodb", "redis"
	ConnectionType string `json:"connectionType"`

	// Connection details
	// Hosts lists host:port pairs for clustered stores; Host/Port describe a single node
	Hosts        []string `json:"hosts,omitempty"`
	Host         string   `json:"host"`
	Port         int      `json:"port"`
	Username     string   `json:"username,omitempty"`
	Password     string   `json:"password,omitempty"`
	DatabaseName string   `json:"databaseName"`

	// SSL/TLS configuration
	SSL                   bool    `json:"ssl,omitempty"`
	SSLMode               string  `json:"sslMode,omitempty"` // require, verify-full, etc.
	SSLRejectUnauthorized *bool   `json:"sslRejectUnauthorized,omitempty"`
	SSLCert               *string `json:"sslCert,omitempty"`
	SSLKey                *string `json:"sslKey,omitempty"`
	SSLRootCert           *string `json:"sslRootCert,omitempty"`

	// Cloud endpoints (DynamoDB)
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`

	// Driver-specific options (use sparingly)
	Options map[string]interface{} `json:"options,omitempty"`
}

// Settings keys read by ConfigFromSettings.
const (
	KeyProvider              = "nosql.provider"
	KeyID                    = "nosql.id"
	KeyURI                   = "nosql.uri"
	KeyHost                  = "nosql.host"
	KeyHosts                 = "nosql.hosts"
	KeyPort                  = "nosql.port"
	KeyUser                  = "nosql.user"
	KeyPassword              = "nosql.password"
	KeyDatabase              = "nosql.database"
	KeySSL                   = "nosql.ssl"
	KeySSLMode               = "nosql.ssl.mode"
	KeySSLRejectUnauthorized = "nosql.ssl.reject-unauthorized"
	KeySSLCert               = "nosql.ssl.cert"
	KeySSLKey                = "nosql.ssl.key"
	KeySSLRootCert           = "nosql.ssl.root-cert"
	KeyRegion                = "nosql.region"
	KeyEndpoint              = "nosql.endpoint"
	KeyOptions               = "nosql.options"
)

// StandardKeys lists the keys that can be supplied through the environment alone.
var StandardKeys = []string{
	KeyProvider, KeyID, KeyURI, KeyHost, KeyHosts, KeyPort, KeyUser, KeyPassword, KeyDatabase,
	KeySSL, KeySSLMode, KeyRegion, KeyEndpoint,
}

// ConfigFromSettings reads a ConnectionConfig from the standard nosql.* keys. A
// nosql.uri connection string is parsed first and explicit keys override its parts.
// Hosts may be given as a list, a comma-separated string or as nosql.host.1, nosql.host.2.
func ConfigFromSettings(s *settings.Settings) (ConnectionConfig, error) {
	provider := s.GetString(KeyProvider)
	cfg := ConnectionConfig{Options: make(map[string]interface{})}

	if uri := s.GetString(KeyURI); uri != "" {
		details, err := dbcapabilities.ParseConnectionString(uri)
		if err != nil {
			return ConnectionConfig{}, NewConfigurationError(dbcapabilities.DatabaseID(provider), KeyURI, err.Error())
		}
		if provider == "" {
			provider = details.DatabaseType
		}
		cfg.Hosts = details.Hosts
		cfg.Host = details.Host
		cfg.Port = int(details.Port)
		cfg.Username = details.Username
		cfg.Password = details.Password
		cfg.DatabaseName = details.DatabaseName
		cfg.SSL = details.SSL
		cfg.SSLMode = details.SSLMode
		for k, v := range details.Parameters {
			cfg.Options[k] = v
		}
	}

	if provider == "" {
		return ConnectionConfig{}, NewConfigurationError("", KeyProvider, "provider is required")
	}
	dbType, ok := dbcapabilities.ParseID(provider)
	if !ok {
		return ConnectionConfig{}, NewConfigurationError(dbcapabilities.DatabaseID(provider), KeyProvider,
			fmt.Sprintf("unknown database type: %s", provider))
	}
	cfg.ConnectionType = string(dbType)
	cfg.DatabaseID = s.GetStringOr(KeyID, string(dbType))

	if hosts := s.GetStrings(KeyHosts); len(hosts) > 0 {
		cfg.Hosts = hosts
	} else if numbered := s.Prefixed(KeyHost + "."); len(numbered) > 0 {
		cfg.Hosts = numbered
	}
	if host := s.GetString(KeyHost); host != "" {
		cfg.Host = host
	}
	if s.Has(KeyPort) {
		port, err := cast.ToIntE(mustGet(s, KeyPort))
		if err != nil || port <= 0 || port > 65535 {
			return ConnectionConfig{}, NewConfigurationError(dbType, KeyPort, "port must be between 1 and 65535")
		}
		cfg.Port = port
	}
	if cfg.Host == "" && len(cfg.Hosts) > 0 {
		host, port, err := net.SplitHostPort(cfg.Hosts[0])
		if err == nil {
			cfg.Host = host
			if cfg.Port == 0 {
				cfg.Port, _ = strconv.Atoi(port)
			}
		} else {
			cfg.Host = cfg.Hosts[0]
		}
	}
	if cfg.Port == 0 {
		cfg.Port = dbcapabilities.MustGet(dbType).DefaultPort
	}

	if v := s.GetString(KeyUser); v != "" {
		cfg.Username = v
	}
	if v := s.GetString(KeyPassword); v != "" {
		cfg.Password = v
	}
	if v := s.GetString(KeyDatabase); v != "" {
		cfg.DatabaseName = v
	}

	if s.Has(KeySSL) {
		cfg.SSL = s.GetBool(KeySSL)
	}
	if v := s.GetString(KeySSLMode); v != "" {
		cfg.SSLMode = v
	}
	if s.Has(KeySSLRejectUnauthorized) {
		reject := s.GetBool(KeySSLRejectUnauthorized)
		cfg.SSLRejectUnauthorized = &reject
	}
	cfg.SSLCert = optionalString(s, KeySSLCert)
	cfg.SSLKey = optionalString(s, KeySSLKey)
	cfg.SSLRootCert = optionalString(s, KeySSLRootCert)

	cfg.Region = s.GetString(KeyRegion)
	cfg.Endpoint = s.GetString(KeyEndpoint)

	for k, v := range s.Sub(KeyOptions).GetAll() {
		cfg.Options[k] = v
	}

	if cfg.Host == "" && cfg.Endpoint == "" && dbType != dbcapabilities.DynamoDB {
		return ConnectionConfig{}, NewConfigurationError(dbType, KeyHost, "host is required")
	}

	return cfg, nil
}

func mustGet(s *settings.Settings, key string) interface{} {
	v, _ := s.Get(key)
	return v
}

func optionalString(s *settings.Settings, key string) *string {
	v := s.GetString(key)
	if v == "" {
		return nil
	}
	return &v
}

// Addresses returns host:port pairs for every configured node. Entries in Hosts
// without a port get the configured port.
func (c ConnectionConfig) Addresses() []string {
	if len(c.Hosts) == 0 {
		if c.Host == "" {
			return nil
		}
		return []string{net.JoinHostPort(c.Host, strconv.Itoa(c.Port))}
	}
	out := make([]string, 0, len(c.Hosts))
	for _, h := range c.Hosts {
		h = strings.TrimSpace(h)
		if _, _, err := net.SplitHostPort(h); err == nil {
			out = append(out, h)
			continue
		}
		out = append(out, net.JoinHostPort(h, strconv.Itoa(c.Port)))
	}
	return out
}

// HostNames returns the configured hosts without ports.
func (c ConnectionConfig) HostNames() []string {
	addrs := c.Addresses()
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		host, _, err := net.SplitHostPort(a)
		if err != nil {
			host = a
		}
		out = append(out, host)
	}
	return out
}

// BaseURL returns the http(s) URL of the first node, as used by REST drivers.
func (c ConnectionConfig) BaseURL() string {
	if strings.HasPrefix(c.Host, "http://") || strings.HasPrefix(c.Host, "https://") {
		return strings.TrimSuffix(c.Host, "/")
	}
	scheme := "http"
	if c.SSL {
		scheme = "https"
	}
	addrs := c.Addresses()
	if len(addrs) == 0 {
		return ""
	}
	return scheme + "://" + addrs[0]
}

// OptionString returns a driver option as a string, or def when unset.
func (c ConnectionConfig) OptionString(key, def string) string {
	if v, ok := c.Options[key]; ok {
		if s := cast.ToString(v); s != "" {
			return s
		}
	}
	return def
}

// OptionInt returns a driver option as an int, or def when unset or not numeric.
func (c ConnectionConfig) OptionInt(key string, def int) int {
	if v, ok := c.Options[key]; ok {
		if i, err := cast.ToIntE(v); err == nil {
			return i
		}
	}
	return def
}

// OptionBool returns a driver option as a bool, or def when unset.
func (c ConnectionConfig) OptionBool(key string, def bool) bool {
	if v, ok := c.Options[key]; ok {
		if b, err := cast.ToBoolE(v); err == nil {
			return b
		}
	}
	return def
}

// OptionDuration returns a driver option as a duration, or def when unset.
func (c ConnectionConfig) OptionDuration(key string, def time.Duration) time.Duration {
	if v, ok := c.Options[key]; ok {
		if d, err := cast.ToDurationE(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
