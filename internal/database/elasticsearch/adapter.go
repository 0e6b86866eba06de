package elasticsearch

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/internal/database/search"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for Elasticsearch.
type Adapter struct {
	search.Translator
}

// NewAdapter creates a new Elasticsearch adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{Translator: search.Translator{Driver: string(dbcapabilities.Elasticsearch)}}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Elasticsearch
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Elasticsearch)
}

// Connect establishes a connection to an Elasticsearch cluster.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if config.DatabaseName == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.Elasticsearch, "database", "the index name is required")
	}

	cfg := elasticsearch.Config{
		Addresses: addresses(config),
	}

	// Add authentication if provided
	if config.Username != "" {
		cfg.Username = config.Username
		cfg.Password = config.Password
	}

	// Configure SSL/TLS if enabled
	tlsConfig, err := common.TLSConfig(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Elasticsearch, config.Host, config.Port,
			fmt.Errorf("error configuring TLS: %w", err))
	}
	if tlsConfig != nil {
		cfg.Transport = &http.Transport{TLSClientConfig: tlsConfig}
	}

	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Elasticsearch, config.Host, config.Port,
			fmt.Errorf("error creating Elasticsearch client: %w", err))
	}

	conn := &Connection{
		id:      config.DatabaseID,
		client:  client,
		index:   config.DatabaseName,
		config:  config,
		adapter: a,
	}
	if err := conn.info(ctx); err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Elasticsearch, config.Host, config.Port, err)
	}
	conn.connected = 1
	return conn, nil
}

func addresses(config adapter.ConnectionConfig) []string {
	scheme := "http"
	if config.SSL {
		scheme = "https"
	}
	addrs := config.Addresses()
	out := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		out = append(out, scheme+"://"+addr)
	}
	return out
}

// Connection implements adapter.Connection for Elasticsearch.
type Connection struct {
	id        string
	client    *elasticsearch.Client
	index     string
	config    adapter.ConnectionConfig
	adapter   *Adapter
	connected int32
}

func (c *Connection) info(ctx context.Context) error {
	res, err := c.client.Info(c.client.Info.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("error connecting to Elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("error response from Elasticsearch: %s", res.String())
	}
	return nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Elasticsearch
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
	return search.NewDocumentManager(b, dbcapabilities.Elasticsearch, c.index,
		c.config.OptionInt("max-results", search.DefaultMaxResults), c.IsConnected)
}

// ColumnManager is not supported by Elasticsearch.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.Elasticsearch)
}

// BucketManagerFactory is not supported by Elasticsearch.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return adapter.NewUnsupportedBucketManagerFactory(dbcapabilities.Elasticsearch)
}

// Raw returns the *elasticsearch.Client.
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
