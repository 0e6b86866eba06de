package memcached

import (
	"context"
	"sync/atomic"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for Memcached.
type Adapter struct{}

// NewAdapter creates a new Memcached adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Memcached
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Memcached)
}

// Connect creates a client over every configured server and pings them.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	servers := config.Addresses()
	if len(servers) == 0 {
		return nil, adapter.NewConfigurationError(dbcapabilities.Memcached, "host", "at least one server is required")
	}

	client := memcache.New(servers...)
	client.Timeout = config.OptionDuration("timeout", memcache.DefaultTimeout)
	client.MaxIdleConns = config.OptionInt("max-idle-conns", memcache.DefaultMaxIdleConns)

	if err := client.Ping(); err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Memcached, config.Host, config.Port, err)
	}

	return &Connection{
		id:        config.DatabaseID,
		client:    client,
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

// Connection implements adapter.Connection for Memcached.
type Connection struct {
	id        string
	client    *memcache.Client
	config    adapter.ConnectionConfig
	adapter   *Adapter
	connected int32
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Memcached
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks every server.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	return c.client.Ping()
}

// Close marks the connection closed. Idle sockets are reaped by the client.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	return nil
}

// DocumentManager is not supported by Memcached.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return adapter.NewUnsupportedDocumentManager(dbcapabilities.Memcached)
}

// ColumnManager is not supported by Memcached.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.Memcached)
}

// BucketManagerFactory returns buckets whose keys are prefixed with the bucket name.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return &BucketManagerFactory{client: c.client, connected: c.IsConnected}
}

// Raw returns the *memcache.Client.
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
