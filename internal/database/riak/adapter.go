package riak

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for Riak KV over its HTTP API.
type Adapter struct{}

// NewAdapter creates a new Riak adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Riak
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Riak)
}

// Connect checks the node with GET /ping.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	httpClient, err := common.HTTPClient(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Riak, config.Host, config.Port, err)
	}

	conn := &Connection{
		id:         config.DatabaseID,
		client:     common.NewRESTClient(config.BaseURL(), config.Username, config.Password, httpClient),
		bucketType: config.OptionString("bucket-type", "default"),
		config:     config,
		adapter:    a,
	}
	if err := conn.ping(ctx); err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Riak, config.Host, config.Port, err)
	}
	conn.connected = 1
	return conn, nil
}

// Connection implements adapter.Connection for Riak.
type Connection struct {
	id         string
	client     *common.RESTClient
	bucketType string
	config     adapter.ConnectionConfig
	adapter    *Adapter
	connected  int32
}

func (c *Connection) ping(ctx context.Context) error {
	res, err := c.client.DoRaw(ctx, "GET", "/ping", nil, "", nil)
	if err != nil {
		return err
	}
	if body := strings.TrimSpace(string(res.Body)); body != "OK" {
		return fmt.Errorf("unexpected ping response: %q", body)
	}
	return nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Riak
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks the node.
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

// DocumentManager is not supported by Riak.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return adapter.NewUnsupportedDocumentManager(dbcapabilities.Riak)
}

// ColumnManager is not supported by Riak.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.Riak)
}

// BucketManagerFactory returns buckets of the configured bucket type.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return &BucketManagerFactory{conn: c}
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
