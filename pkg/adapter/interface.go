// Package adapter provides the unified interface for all NoSQL drivers.
// This package defines the contracts that vendor-specific implementations must follow.
package adapter

import (
	"context"

	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// DatabaseAdapter represents a NoSQL technology driver.
// Each database type (MongoDB, Redis, Solr, etc.) must implement this interface.
type DatabaseAdapter interface {
	// Type returns the canonical database type identifier
	Type() dbcapabilities.DatabaseID

	// Capabilities returns the capability metadata for this database type
	Capabilities() dbcapabilities.Capability

	// Connect builds the native client from the configuration and verifies it
	Connect(ctx context.Context, config ConnectionConfig) (Connection, error)
}

// Connection represents an active connection to a specific database.
// This is the main interface for interacting with a database.
type Connection interface {
	// Identity and status
	ID() string
	Type() dbcapabilities.DatabaseID
	IsConnected() bool

	// Lifecycle management
	Ping(ctx context.Context) error
	Close() error

	// Managers
	// Categories the database does not support return the Unsupported* nil objects
	DocumentManager() communication.DocumentManager
	ColumnManager() communication.ColumnManager
	BucketManagerFactory() communication.BucketManagerFactory

	// Raw returns the underlying vendor client object.
	// Use this only when you need to perform operations not covered by the managers.
	// Type assertion is required when using Raw().
	Raw() interface{}

	// Configuration
	Config() ConnectionConfig
	Adapter() DatabaseAdapter
}

// NativeQuery is a condition tree rendered in the vendor's own language.
type NativeQuery struct {
	Language  string                 `json:"language"`
	Statement string                 `json:"statement"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// QueryTranslator is implemented by adapters whose queries can be rendered without a
// connection. It exposes the same translation the managers run.
type QueryTranslator interface {
	TranslateSelect(query communication.SelectQuery) (NativeQuery, error)
	TranslateDelete(query communication.DeleteQuery) (NativeQuery, error)
}
