package memcached

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register Memcached adapter with the global registry
	adapter.Register(NewAdapter())
}
