package arangodb

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	driver "github.com/arangodb/go-driver"
	arangohttp "github.com/arangodb/go-driver/http"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for ArangoDB.
type Adapter struct {
	Translator
}

// NewAdapter creates a new ArangoDB adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.ArangoDB
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.ArangoDB)
}

// endpoints returns one http(s) URL per configured coordinator.
func endpoints(config adapter.ConnectionConfig) []string {
	if strings.HasPrefix(config.Host, "http://") || strings.HasPrefix(config.Host, "https://") {
		return []string{config.BaseURL()}
	}
	scheme := "http://"
	if config.SSL {
		scheme = "https://"
	}
	addrs := config.Addresses()
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = scheme + a
	}
	return out
}

// Connect opens the configured database; "_system" when none is given.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	tlsConfig, err := common.TLSConfig(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.ArangoDB, config.Host, config.Port, err)
	}

	httpConn, err := arangohttp.NewConnection(arangohttp.ConnectionConfig{
		Endpoints: endpoints(config),
		TLSConfig: tlsConfig,
	})
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.ArangoDB, config.Host, config.Port,
			fmt.Errorf("failed to create connection: %w", err))
	}

	clientConfig := driver.ClientConfig{Connection: httpConn}
	if config.Username != "" {
		clientConfig.Authentication = driver.BasicAuthentication(config.Username, config.Password)
	}
	client, err := driver.NewClient(clientConfig)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.ArangoDB, config.Host, config.Port,
			fmt.Errorf("failed to create client: %w", err))
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.OptionDuration("connect-timeout", 10*time.Second))
	defer cancel()

	name := config.DatabaseName
	if name == "" {
		name = "_system"
	}
	db, err := client.Database(pingCtx, name)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.ArangoDB, config.Host, config.Port,
			fmt.Errorf("failed to open database %s: %w", name, err))
	}

	return &Connection{
		id:        config.DatabaseID,
		client:    client,
		db:        db,
		store:     newDatabaseStore(db),
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

// Connection implements adapter.Connection for ArangoDB.
type Connection struct {
	id      string
	client  driver.Client
	db      driver.Database
	config  adapter.ConnectionConfig
	adapter *Adapter

	store *databaseStore

	connected int32
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.ArangoDB
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping asks the server for its version.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	if _, err := c.client.Version(ctx); err != nil {
		return adapter.WrapError(dbcapabilities.ArangoDB, "ping", err)
	}
	return nil
}

// Close closes the connection.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	return nil
}

// DocumentManager returns the document manager of the database.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return &DocumentManager{store: c.store, connected: c.IsConnected}
}

// ColumnManager is not supported by ArangoDB.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.ArangoDB)
}

// BucketManagerFactory stores each bucket in a collection of {_key, value} documents.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return &BucketManagerFactory{store: c.store, connected: c.IsConnected}
}

// Raw returns the driver.Database.
func (c *Connection) Raw() interface{} {
	return c.db
}

// Config returns the connection configuration.
func (c *Connection) Config() adapter.ConnectionConfig {
	return c.config
}

// Adapter returns the database adapter.
func (c *Connection) Adapter() adapter.DatabaseAdapter {
	return c.adapter
}
