package mongodb

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register MongoDB adapter with the global registry
	adapter.Register(NewAdapter())
}
