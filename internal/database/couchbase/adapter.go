package couchbase

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchbase/gocb/v2"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Adapter implements adapter.DatabaseAdapter for Couchbase Server.
type Adapter struct {
	Translator
}

// NewAdapter creates a new Couchbase adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Couchbase
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.Couchbase)
}

// connectionString lists the bootstrap hosts. The SDK picks its own service ports.
func connectionString(config adapter.ConnectionConfig) string {
	scheme := "couchbase://"
	if config.SSL {
		scheme = "couchbases://"
	}
	return scheme + strings.Join(config.HostNames(), ",")
}

// Connect opens the bucket named by the database and the scope from the "scope" option.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if config.DatabaseName == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.Couchbase, "database", "the bucket name is required")
	}

	opts := gocb.ClusterOptions{}
	tlsConfig, err := common.TLSConfig(config)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Couchbase, config.Host, config.Port, err)
	}
	if tlsConfig != nil {
		opts.SecurityConfig = gocb.SecurityConfig{
			TLSRootCAs:    tlsConfig.RootCAs,
			TLSSkipVerify: tlsConfig.InsecureSkipVerify,
		}
	}
	switch {
	case config.Username != "":
		opts.Authenticator = gocb.PasswordAuthenticator{Username: config.Username, Password: config.Password}
	case tlsConfig != nil && len(tlsConfig.Certificates) > 0:
		opts.Authenticator = gocb.CertificateAuthenticator{ClientCertificate: &tlsConfig.Certificates[0]}
	}

	cluster, err := gocb.Connect(connectionString(config), opts)
	if err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.Couchbase, config.Host, config.Port,
			fmt.Errorf("failed to connect: %w", err))
	}

	bucket := cluster.Bucket(config.DatabaseName)
	if err := bucket.WaitUntilReady(config.OptionDuration("connect-timeout", 10*time.Second), nil); err != nil {
		_ = cluster.Close(nil)
		return nil, adapter.NewConnectionError(dbcapabilities.Couchbase, config.Host, config.Port,
			fmt.Errorf("bucket %s not ready: %w", config.DatabaseName, err))
	}

	return &Connection{
		id:        config.DatabaseID,
		cluster:   cluster,
		scope:     bucket.Scope(config.OptionString("scope", "_default")),
		config:    config,
		adapter:   a,
		connected: 1,
	}, nil
}

// Connection implements adapter.Connection for Couchbase.
type Connection struct {
	id        string
	cluster   *gocb.Cluster
	scope     *gocb.Scope
	config    adapter.ConnectionConfig
	adapter   *Adapter
	connected int32
}

func (c *Connection) collection(name string) (*gocb.Collection, error) {
	if !c.IsConnected() {
		return nil, adapter.ErrConnectionClosed
	}
	if name == "" {
		return nil, communication.ErrEntityRequired
	}
	return c.scope.Collection(name), nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.Couchbase
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping pings the cluster services.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	if _, err := c.cluster.Ping(&gocb.PingOptions{Context: ctx}); err != nil {
		return adapter.WrapError(dbcapabilities.Couchbase, "ping", err)
	}
	return nil
}

// Close closes the cluster connection.
func (c *Connection) Close() error {
	if !atomic.CompareAndSwapInt32(&c.connected, 1, 0) {
		return nil
	}
	return c.cluster.Close(nil)
}

// DocumentManager returns the document manager of the scope.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return &DocumentManager{store: &scopeStore{scope: c.scope}, connected: c.IsConnected}
}

// ColumnManager is not supported by Couchbase.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.Couchbase)
}

// BucketManagerFactory maps key-value buckets to collections of the scope.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return &BucketManagerFactory{conn: c}
}

// Raw returns the *gocb.Cluster.
func (c *Connection) Raw() interface{} {
	return c.cluster
}

// Config returns the connection configuration.
func (c *Connection) Config() adapter.ConnectionConfig {
	return c.config
}

// Adapter returns the database adapter.
func (c *Connection) Adapter() adapter.DatabaseAdapter {
	return c.adapter
}
