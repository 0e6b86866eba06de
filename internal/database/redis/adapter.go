package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for Redis.
type Adapter struct{}

// NewAdapter creates a new Redis adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Redis
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Redis)
}

// Connect establishes a connection to Redis. Several hosts select cluster mode, and
// the "master" option selects a sentinel-managed master.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	options := &redis.UniversalOptions{
		Addrs:      config.Addresses(),
		Username:   config.Username,
		Password:   config.Password,
		MasterName: config.OptionString("master", ""),
	}

	// A numeric database name selects the logical database
	if config.DatabaseName != "" {
		dbIndex, err := strconv.Atoi(config.DatabaseName)
		if err != nil || dbIndex < 0 {
			return nil, adapter.NewConfigurationError(dbcapabilities.Redis, "database",
				fmt.Sprintf("database must be a non-negative integer, got %q", config.DatabaseName))
		}
		options.DB = dbIndex
	}

	// Configure TLS if SSL is enabled
	tlsConfig, err := common.TLSConfig(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Redis, config.Host, config.Port, err)
	}
	options.TLSConfig = tlsConfig

	client := redis.NewUniversalClient(options)

	// Test the connection with a timeout
	pingCtx, cancel := context.WithTimeout(ctx, config.OptionDuration("connect-timeout", 5*time.Second))
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, adapter.NewConnectionError(dbcapabilities.Redis, config.Host, config.Port,
			fmt.Errorf("error connecting to Redis: %w", err))
	}

	return &Connection{
		id:        config.DatabaseID,
		client:    client,
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

// Connection implements adapter.Connection for Redis.
type Connection struct {
	id        string
	client    redis.UniversalClient
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
	return dbcapabilities.Redis
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping checks if the connection is alive.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	return c.client.Ping(ctx).Err()
}

// Close closes the connection.
func (c *Connection) Close() error {
	if !atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return nil
	}
	return c.client.Close()
}

// DocumentManager is not supported by Redis.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return adapter.NewUnsupportedDocumentManager(dbcapabilities.Redis)
}

// ColumnManager is not supported by Redis.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.Redis)
}

// BucketManagerFactory returns the factory for key-value buckets and data structures.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return &BucketManagerFactory{client: c.client, connected: c.IsConnected}
}

// Raw returns the redis.UniversalClient.
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
