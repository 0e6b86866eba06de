package orientdb

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register OrientDB adapter with the global registry
	adapter.Register(NewAdapter())
}
