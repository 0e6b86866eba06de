package redis

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register Redis adapter with the global registry
	adapter.Register(NewAdapter())
}
