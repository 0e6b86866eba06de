package orientdb

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for OrientDB over its HTTP API.
type Adapter struct {
	Translator
}

// NewAdapter creates a new OrientDB adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.OrientDB
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.OrientDB)
}

// Connect authenticates against the database with GET /connect/{db}.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if config.DatabaseName == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.OrientDB, "database", "a database name is required")
	}
	httpClient, err := common.HTTPClient(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.OrientDB, config.Host, config.Port, err)
	}

	conn := &Connection{
		id:       config.DatabaseID,
		client:   common.NewRESTClient(config.BaseURL(), config.Username, config.Password, httpClient),
		database: config.DatabaseName,
		config:   config,
		adapter:  a,
	}
	if err := conn.ping(ctx); err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.OrientDB, config.Host, config.Port, err)
	}
	conn.connected = 1
	return conn, nil
}

// Connection implements adapter.Connection for OrientDB.
type Connection struct {
	id        string
	client    *common.RESTClient
	database  string
	config    adapter.ConnectionConfig
	adapter   *Adapter
	connected int32
}

func (c *Connection) ping(ctx context.Context) error {
	if _, err := c.client.DoRaw(ctx, "GET", common.PathEscape("connect", c.database), nil, "", nil); err != nil {
		return fmt.Errorf("connect failed: %w", err)
	}
	return nil
}

// command runs an SQL command with named parameters and returns its result rows.
func (c *Connection) command(ctx context.Context, stmt string, params map[string]interface{}) ([]map[string]interface{}, error) {
	if !c.IsConnected() {
		return nil, adapter.ErrConnectionClosed
	}
	body := map[string]interface{}{"command": stmt}
	if len(params) > 0 {
		body["parameters"] = params
	}
	var res struct {
		Result []map[string]interface{} `json:"result"`
	}
	if err := c.client.Do(ctx, "POST", common.PathEscape("command", c.database, "sql"), nil, body, &res); err != nil {
		return nil, err
	}
	return res.Result, nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.OrientDB
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping re-authenticates against the database.
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

// ColumnManager is not supported by OrientDB.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.OrientDB)
}

// BucketManagerFactory is not supported by OrientDB.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return adapter.NewUnsupportedBucketManagerFactory(dbcapabilities.OrientDB)
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
