package ravendb

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for RavenDB over its HTTP API.
type Adapter struct {
	Translator
}

// NewAdapter creates a new RavenDB adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.RavenDB
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.RavenDB)
}

// Connect checks the database with GET /databases/{db}/stats. Client certificates
// from the TLS settings authenticate secured servers.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if config.DatabaseName == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.RavenDB, "database", "a database name is required")
	}
	httpClient, err := common.HTTPClient(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.RavenDB, config.Host, config.Port, err)
	}

	conn := &Connection{
		id:       config.DatabaseID,
		client:   common.NewRESTClient(config.BaseURL(), config.Username, config.Password, httpClient),
		database: config.DatabaseName,
		config:   config,
		adapter:  a,
	}
	if err := conn.ping(ctx); err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.RavenDB, config.Host, config.Port, err)
	}
	conn.connected = 1
	return conn, nil
}

// Connection implements adapter.Connection for RavenDB.
type Connection struct {
	id        string
	client    *common.RESTClient
	database  string
	config    adapter.ConnectionConfig
	adapter   *Adapter
	connected int32
}

// path resolves an endpoint below /databases/{db}.
func (c *Connection) path(segments ...string) string {
	return common.PathEscape(append([]string{"databases", c.database}, segments...)...)
}

func (c *Connection) ping(ctx context.Context) error {
	if _, err := c.client.DoRaw(ctx, "GET", c.path("stats"), nil, "", nil); err != nil {
		return fmt.Errorf("database check failed: %w", err)
	}
	return nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.RavenDB
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping reads the database statistics.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	return c.ping(ctx)
}

// Close closes the connection.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	return nil
}

// DocumentManager returns the document manager of the database.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return &DocumentManager{conn: c}
}

// ColumnManager is not supported by RavenDB.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.RavenDB)
}

// BucketManagerFactory is not supported by RavenDB.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return adapter.NewUnsupportedBucketManagerFactory(dbcapabilities.RavenDB)
}

// Raw returns the REST client.
func (c *Connection) Raw() interface{} {
	return c.client
}

// Config returns the connection configuration.
func (c *Connection) Config() adapter.ConnectionConfig {
	return c.config
}

// Adapter returns the database adapter.
func (c *Connection) Adapter() adapter.DatabaseAdapter {
	return c.adapter
}
