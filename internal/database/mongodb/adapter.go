package mongodb

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements the adapter.DatabaseAdapter interface for MongoDB.
type Adapter struct{}

// NewAdapter creates a new MongoDB adapter.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.MongoDB
}

// Capabilities returns the capabilities metadata for MongoDB.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.MongoDB)
}

// Connect establishes a connection to a MongoDB database.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if config.DatabaseName == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.MongoDB, "database", "a database name is required")
	}

	clientOptions := options.Client().ApplyURI(connectionString(config))
	tlsConfig, err := common.TLSConfig(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.MongoDB, config.Host, config.Port, err)
	}
	if tlsConfig != nil {
		clientOptions.SetTLSConfig(tlsConfig)
	}

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.MongoDB, config.Host, config.Port,
			fmt.Errorf("error connecting to database: %w", err))
	}

	// Set context with timeout for ping
	pingCtx, cancel := context.WithTimeout(ctx, config.OptionDuration("connect-timeout", 10*time.Second))
	defer cancel()

	// Test the connection
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, adapter.NewConnectionError(dbcapabilities.MongoDB, config.Host, config.Port,
			fmt.Errorf("error pinging database: %w", err))
	}

	return newConnection(config, a, client), nil
}

func newConnection(config adapter.ConnectionConfig, a *Adapter, client *mongo.Client) *Connection {
	return &Connection{
		id:        config.DatabaseID,
		client:    client,
		db:        client.Database(config.DatabaseName),
		config:    config,
		adapter:   a,
		connected: 1,
	}
}

// connectionString builds the mongodb:// URI. TLS material is applied through the
// client options instead of URI parameters.
func connectionString(config adapter.ConnectionConfig) string {
	var connString strings.Builder

	scheme := "mongodb"
	if strings.EqualFold(config.ConnectionType, "mongodb+srv") || config.OptionBool("srv", false) {
		scheme = "mongodb+srv"
	}
	connString.WriteString(scheme + "://")

	if config.Username != "" {
		connString.WriteString(url.UserPassword(config.Username, config.Password).String())
		connString.WriteString("@")
	}

	if scheme == "mongodb+srv" {
		connString.WriteString(config.Host)
	} else {
		connString.WriteString(strings.Join(config.Addresses(), ","))
	}

	query := url.Values{}
	if config.Username != "" {
		query.Set("authSource", config.OptionString("authsource", "admin"))
	}
	if rs := config.OptionString("replicaset", ""); rs != "" {
		query.Set("replicaSet", rs)
	}
	if config.SSL {
		query.Set("tls", "true")
	}

	fmt.Fprintf(&connString, "/%s", url.PathEscape(config.DatabaseName))
	if len(query) > 0 {
		connString.WriteString("?" + query.Encode())
	}
	return connString.String()
}

// TranslateSelect renders a select query as the MongoDB find command it runs.
func (a *Adapter) TranslateSelect(query communication.SelectQuery) (adapter.NativeQuery, error) {
	cmd, err := findCommand(query)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return renderCommand(cmd)
}

// TranslateDelete renders a delete query as the MongoDB delete or update command it runs.
func (a *Adapter) TranslateDelete(query communication.DeleteQuery) (adapter.NativeQuery, error) {
	cmd, err := deleteCommand(query)
	if err != nil {
		return adapter.NativeQuery{}, err
	}
	return renderCommand(cmd)
}

// Connection implements adapter.Connection for MongoDB.
type Connection struct {
	id        string
	client    *mongo.Client
	db        *mongo.Database
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
	return dbcapabilities.MongoDB
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
	return c.client.Ping(ctx, readpref.Primary())
}

// Close closes the connection.
func (c *Connection) Close() error {
	if !atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return nil
	}
	return c.client.Disconnect(context.Background())
}

// DocumentManager returns the document manager for the configured database.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return &DocumentManager{store: &databaseStore{db: c.db}, connected: c.IsConnected}
}

// ColumnManager is not supported by MongoDB.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.MongoDB)
}

// BucketManagerFactory is not supported by MongoDB.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return adapter.NewUnsupportedBucketManagerFactory(dbcapabilities.MongoDB)
}

// Raw returns the *mongo.Database.
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
