package couchbase

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register Couchbase adapter with the global registry
	adapter.Register(NewAdapter())
}
