package cassandra

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register Cassandra adapter with the global registry
	adapter.Register(NewAdapter())
}
