package hbase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/tsuna/gohbase"
	"github.com/tsuna/gohbase/hrpc"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for Apache HBase.
type Adapter struct {
	Translator
}

// NewAdapter creates a new HBase adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.HBase
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.HBase)
}

func clientOptions(config adapter.ConnectionConfig) []gohbase.Option {
	var opts []gohbase.Option
	if root := config.OptionString("zookeeper-root", ""); root != "" {
		opts = append(opts, gohbase.ZookeeperRoot(root))
	}
	if config.Username != "" {
		opts = append(opts, gohbase.EffectiveUser(config.Username))
	}
	return opts
}

// Connect builds clients for the ZooKeeper quorum given by the configured hosts and
// lists the tables to verify the cluster answers.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	quorum := strings.Join(config.Addresses(), ",")
	if quorum == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.HBase, "host", "a ZooKeeper quorum is required")
	}

	conn := &Connection{
		id:      config.DatabaseID,
		client:  gohbase.NewClient(quorum, clientOptions(config)...),
		admin:   gohbase.NewAdminClient(quorum, clientOptions(config)...),
		family:  config.OptionString("family", "cf"),
		config:  config,
		adapter: a,
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.OptionDuration("connect-timeout", 10*time.Second))
	defer cancel()
	if err := conn.ping(pingCtx); err != nil {
		conn.client.Close()
		return nil, adapter.NewConnectionError(dbcapabilities.HBase, config.Host, config.Port, err)
	}
	conn.connected = 1
	return conn, nil
}

// Connection implements adapter.Connection for HBase.
type Connection struct {
	id        string
	client    gohbase.Client
	admin     gohbase.AdminClient
	family    string
	config    adapter.ConnectionConfig
	adapter   *Adapter
	connected int32
}

func (c *Connection) ping(ctx context.Context) error {
	req, err := hrpc.NewListTableNames(ctx)
	if err != nil {
		return err
	}
	if _, err := c.admin.ListTableNames(req); err != nil {
		return fmt.Errorf("failed to list tables: %w", err)
	}
	return nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.HBase
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping lists the tables.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	if err := c.ping(ctx); err != nil {
		return adapter.WrapError(dbcapabilities.HBase, "ping", err)
	}
	return nil
}

// Close closes the client.
func (c *Connection) Close() error {
	if atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		c.client.Close()
	}
	return nil
}

// DocumentManager is not supported by HBase.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return adapter.NewUnsupportedDocumentManager(dbcapabilities.HBase)
}

// ColumnManager returns the column manager over the configured namespace.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return &ColumnManager{
		store:     &clientStore{client: c.client},
		namespace: c.config.DatabaseName,
		family:    c.family,
		connected: c.IsConnected,
	}
}

// BucketManagerFactory is not supported by HBase.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return adapter.NewUnsupportedBucketManagerFactory(dbcapabilities.HBase)
}

// Raw returns the gohbase.Client.
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
