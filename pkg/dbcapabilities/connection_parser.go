package dbcapabilities

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
)

// ConnectionDetails holds parsed connection information
type ConnectionDetails struct {
	DatabaseType string            `json:"database_type"`
	Host         string            `json:"host"`
	Port         int32             `json:"port"`
	Hosts        []string          `json:"hosts"`
	Username     string            `json:"username"`
	Password     string            `json:"password"`
	DatabaseName string            `json:"database_name"`
	SSL          bool              `json:"ssl"`
	SSLMode      string            `json:"ssl_mode"`
	Parameters   map[string]string `json:"parameters"`
}

// ParseConnectionString parses a connection URI such as
// mongodb://user:pass@h1:27017,h2:27017/db?tls=true and returns connection details.
// Multi-host authorities are accepted; Host/Port describe the first host.
func ParseConnectionString(connectionString string) (*ConnectionDetails, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("connection string cannot be empty")
	}

	idx := strings.Index(connectionString, "://")
	if idx <= 0 {
		return nil, fmt.Errorf("connection string must include a scheme (e.g., mongodb://)")
	}
	scheme := strings.ToLower(connectionString[:idx])
	rest := connectionString[idx+3:]

	dbType, ok := ParseID(scheme)
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", scheme)
	}
	capability := MustGet(dbType)

	// Split the authority from the path so multi-host lists survive url.Parse.
	authority := rest
	tail := ""
	if cut := strings.IndexAny(rest, "/?"); cut >= 0 {
		authority = rest[:cut]
		tail = rest[cut:]
	}
	userInfo := ""
	if at := strings.LastIndex(authority, "@"); at >= 0 {
		userInfo = authority[:at+1]
		authority = authority[at+1:]
	}
	if authority == "" {
		return nil, fmt.Errorf("host is required in connection string")
	}
	hostList := strings.Split(authority, ",")

	parsedURL, err := url.Parse(scheme + "://" + userInfo + hostList[0] + tail)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string format: %v", err)
	}

	details := &ConnectionDetails{
		DatabaseType: string(dbType),
		Parameters:   make(map[string]string),
	}

	for _, h := range hostList {
		host, port, err := splitHostPort(h, capability.DefaultPort)
		if err != nil {
			return nil, err
		}
		details.Hosts = append(details.Hosts, net.JoinHostPort(host, strconv.Itoa(port)))
		if details.Host == "" {
			details.Host = host
			details.Port = int32(port)
		}
	}

	if parsedURL.User != nil {
		details.Username = parsedURL.User.Username()
		if password, hasPassword := parsedURL.User.Password(); hasPassword {
			details.Password = password
		}
	}

	if path := strings.Trim(parsedURL.Path, "/"); path != "" {
		details.DatabaseName = path
	}

	queryParams := parsedURL.Query()
	for key, values := range queryParams {
		if len(values) > 0 {
			details.Parameters[key] = values[0]
		}
	}

	parseSSLConfiguration(details, scheme, queryParams)

	return details, nil
}

func splitHostPort(hostPort string, defaultPort int) (string, int, error) {
	hostPort = strings.TrimSpace(hostPort)
	if hostPort == "" {
		return "", 0, fmt.Errorf("host is required in connection string")
	}
	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		// No port present.
		return strings.Trim(hostPort, "[]"), defaultPort, nil
	}
	if host == "" {
		return "", 0, fmt.Errorf("host is required in connection string")
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, fmt.Errorf("invalid port number: %s", portStr)
	}
	return host, port, nil
}

// parseSSLConfiguration handles SSL-related parameters based on database type
func parseSSLConfiguration(details *ConnectionDetails, scheme string, queryParams url.Values) {
	switch scheme {
	case "mongodb+srv", "rediss", "couchbases":
		// TLS is implied by the scheme.
		details.SSL = true
		details.SSLMode = "require"
		return
	}

	switch DatabaseID(details.DatabaseType) {
	case MongoDB:
		parseMongoDBSSL(details, queryParams)
	default:
		parseDefaultSSL(details, queryParams)
	}
}

// parseMongoDBSSL handles MongoDB-specific SSL parameters
func parseMongoDBSSL(details *ConnectionDetails, queryParams url.Values) {
	tls := queryParams.Get("tls")
	ssl := queryParams.Get("ssl") // Legacy parameter

	if tls != "" {
		details.SSL = tls == "true"
	} else {
		details.SSL = ssl == "true"
	}

	if details.SSL {
		details.SSLMode = "require"
		if queryParams.Get("tlsInsecure") == "true" {
			details.SSLMode = "prefer"
		}
	} else {
		details.SSLMode = "disable"
	}
}

// parseDefaultSSL handles the ssl=true|false parameter shared by the other drivers
func parseDefaultSSL(details *ConnectionDetails, queryParams url.Values) {
	ssl := queryParams.Get("ssl")
	if ssl == "" {
		ssl = queryParams.Get("tls")
	}

	details.SSL = ssl == "true"
	if details.SSL {
		details.SSLMode = "require"
	} else {
		details.SSLMode = "disable"
	}
}

// NormalizeHost converts localhost variants to a canonical form.
// It converts "localhost", "127.0.0.1", and "::1" to "localhost".
// All other hosts are lower-cased and otherwise unchanged (no DNS resolution is performed).
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "localhost" {
		return host
	}
	if ip := net.ParseIP(host); ip != nil && ip.IsLoopback() {
		return "localhost"
	}
	return host
}
