package opensearch

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/internal/database/search"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for OpenSearch.
type Adapter struct {
	search.Translator
}

// NewAdapter creates a new OpenSearch adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{Translator: search.Translator{Driver: string(dbcapabilities.OpenSearch)}}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.OpenSearch
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.OpenSearch)
}

// Connect establishes a connection to OpenSearch.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if config.DatabaseName == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.OpenSearch, "database", "the index name is required")
	}

	tlsConfig, err := common.TLSConfig(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.OpenSearch, config.Host, config.Port, err)
	}

	// Build OpenSearch configuration
	cfg := opensearch.Config{
		Addresses: addresses(config),
		Username:  config.Username,
		Password:  config.Password,
	}
	if tlsConfig != nil {
		cfg.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}

	// Create client
	client, err := opensearch.NewClient(cfg)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.OpenSearch, config.Host, config.Port, err)
	}

	conn := &Connection{
		id:        config.DatabaseID,
		client:    client,
		indexName: config.DatabaseName,
		config:    config,
		adapter:   a,
	}

	// Test connection
	if err := conn.info(ctx); err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.OpenSearch, config.Host, config.Port, err)
	}
	conn.connected = 1
	return conn, nil
}

func addresses(config adapter.ConnectionConfig) []string {
	scheme := "http"
	if config.SSL {
		scheme = "https"
	}
	var out []string
	for _, addr := range config.Addresses() {
		out = append(out, scheme+"://"+addr)
	}
	return out
}

// Connection implements adapter.Connection for OpenSearch.
type Connection struct {
	id        string
	client    *opensearch.Client
	indexName string
	config    adapter.ConnectionConfig
	adapter   *Adapter
	connected int32
}

func (c *Connection) info(ctx context.Context) error {
	res, err := c.client.Info(c.client.Info.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("connection test failed: %s", res.Status())
	}
	return nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.OpenSearch
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
	return c.info(ctx)
}

// Close closes the connection.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	return nil
}

// DocumentManager returns a manager storing entities in the configured index.
func (c *Connection) DocumentManager() communication.DocumentManager {
	b := &backend{client: c.client, refresh: c.config.OptionBool("refresh", true)}
	return search.NewDocumentManager(b, dbcapabilities.OpenSearch, c.indexName,
		c.config.OptionInt("max-results", search.DefaultMaxResults), c.IsConnected)
}

// ColumnManager is not supported by OpenSearch.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.OpenSearch)
}

// BucketManagerFactory is not supported by OpenSearch.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return adapter.NewUnsupportedBucketManagerFactory(dbcapabilities.OpenSearch)
}

// Raw returns the *opensearch.Client.
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
