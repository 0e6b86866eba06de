package cassandra

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gocql/gocql"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for Apache Cassandra and ScyllaDB.
type Adapter struct {
	Translator
}

// NewAdapter creates a new Cassandra adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Cassandra
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Cassandra)
}

func sslOptions(config adapter.ConnectionConfig) *gocql.SslOptions {
	opts := &gocql.SslOptions{EnableHostVerification: true}
	if config.SSLCert != nil && config.SSLKey != nil {
		opts.CertPath = *config.SSLCert
		opts.KeyPath = *config.SSLKey
	}
	if config.SSLRootCert != nil {
		opts.CaPath = *config.SSLRootCert
	}
	if config.SSLRejectUnauthorized != nil {
		opts.EnableHostVerification = *config.SSLRejectUnauthorized
	}
	return opts
}

// clusterConfig builds the gocql cluster. The database name is the keyspace.
func clusterConfig(config adapter.ConnectionConfig) (*gocql.ClusterConfig, error) {
	hosts := config.HostNames()
	if len(hosts) == 0 {
		return nil, adapter.NewConfigurationError(dbcapabilities.Cassandra, "host", "at least one host is required")
	}
	if config.DatabaseName == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.Cassandra, "database", "a keyspace is required")
	}

	cluster := gocql.NewCluster(hosts...)
	cluster.Port = config.Port
	cluster.Keyspace = config.DatabaseName
	if config.Username != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: config.Username,
			Password: config.Password,
		}
	}
	if config.SSL {
		cluster.SslOpts = sslOptions(config)
	}

	consistency, err := gocql.ParseConsistencyWrapper(config.OptionString("consistency", "QUORUM"))
	if err != nil {
		return nil, adapter.NewConfigurationError(dbcapabilities.Cassandra, "consistency", err.Error())
	}
	cluster.Consistency = consistency
	cluster.Timeout = config.OptionDuration("timeout", 10*time.Second)
	cluster.ConnectTimeout = config.OptionDuration("connect-timeout", 10*time.Second)
	return cluster, nil
}

// Connect creates a session on the keyspace and reads the server version.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	cluster, err := clusterConfig(config)
	if err != nil {
		return nil, err
	}
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Cassandra, config.Host, config.Port, err)
	}

	conn := &Connection{
		id:         config.DatabaseID,
		session:    session,
		runner:     &sessionRunner{session: session},
		translator: Translator{AllowFiltering: config.OptionBool("allow-filtering", false)},
		config:     config,
		adapter:    a,
	}
	if err := conn.ping(ctx); err != nil {
		session.Close()
		return nil, adapter.NewConnectionError(dbcapabilities.Cassandra, config.Host, config.Port, err)
	}
	conn.connected = 1
	return conn, nil
}

// Connection implements adapter.Connection for Cassandra.
type Connection struct {
	id         string
	session    *gocql.Session
	runner     runner
	translator Translator
	config     adapter.ConnectionConfig
	adapter    *Adapter
	connected  int32
}

func (c *Connection) ping(ctx context.Context) error {
	rows, err := c.runner.rows(ctx, "SELECT release_version FROM system.local", nil)
	if err != nil {
		return fmt.Errorf("error testing Cassandra connection: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("error testing Cassandra connection: no local node row")
	}
	return nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Cassandra
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping reads the release version of the local node.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	return c.ping(ctx)
}

// Close closes the session.
func (c *Connection) Close() error {
	if !atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return nil
	}
	if c.session != nil {
		c.session.Close()
	}
	return nil
}

// DocumentManager is not supported by Cassandra.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return adapter.NewUnsupportedDocumentManager(dbcapabilities.Cassandra)
}

// ColumnManager returns a manager over the tables of the keyspace.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return &ColumnManager{conn: c}
}

// BucketManagerFactory is not supported by Cassandra.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return adapter.NewUnsupportedBucketManagerFactory(dbcapabilities.Cassandra)
}

// Raw returns the *gocql.Session.
func (c *Connection) Raw() interface{} {
	return c.session
}

// Config returns the connection configuration.
func (c *Connection) Config() adapter.ConnectionConfig {
	return c.config
}

// Adapter returns the database adapter.
func (c *Connection) Adapter() adapter.DatabaseAdapter {
	return c.adapter
}
