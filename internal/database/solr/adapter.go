package solr

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

// Adapter implements adapter.DatabaseAdapter for Apache Solr.
type Adapter struct {
	Translator
}

// NewAdapter creates a new Solr adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Solr
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Solr)
}

// Connect establishes a connection to a Solr core.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if config.DatabaseName == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.Solr, "database", "the core name is required")
	}

	httpClient, err := common.HTTPClient(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Solr, config.Host, config.Port, err)
	}

	// Build Solr base URL
	baseURL := config.BaseURL() + "/" + strings.Trim(config.OptionString("path", "solr"), "/")

	conn := &Connection{
		id:      config.DatabaseID,
		client:  common.NewRESTClient(baseURL, config.Username, config.Password, httpClient),
		core:    config.DatabaseName,
		config:  config,
		adapter: a,
	}

	// Test connection
	if err := conn.ping(ctx); err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Solr, config.Host, config.Port, err)
	}
	conn.connected = 1
	return conn, nil
}

// Connection implements adapter.Connection for Solr.
type Connection struct {
	id        string
	client    *common.RESTClient
	core      string
	config    adapter.ConnectionConfig
	adapter   *Adapter
	connected int32
}

func (c *Connection) path(endpoint string) string {
	return common.PathEscape(c.core) + endpoint
}

func (c *Connection) ping(ctx context.Context) error {
	var status struct {
		Status string `json:"status"`
	}
	if err := c.client.Do(ctx, "GET", c.path("/admin/ping"), nil, nil, &status); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	if status.Status != "" && status.Status != "OK" {
		return fmt.Errorf("ping failed with status: %s", status.Status)
	}
	return nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Solr
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping tests the connection.
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

// DocumentManager returns the document manager for the configured core.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return &DocumentManager{
		conn:       c,
		commit:     c.config.OptionBool("commit", true),
		maxResults: c.config.OptionInt("max-results", defaultMaxResults),
	}
}

// ColumnManager is not supported by Solr.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.Solr)
}

// BucketManagerFactory is not supported by Solr.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return adapter.NewUnsupportedBucketManagerFactory(dbcapabilities.Solr)
}

// Raw returns the REST client bound to the Solr base URL.
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
