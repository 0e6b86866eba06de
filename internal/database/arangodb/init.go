package arangodb

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register ArangoDB adapter with the global registry
	adapter.Register(NewAdapter())
}
