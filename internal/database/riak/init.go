package riak

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register Riak adapter with the global registry
	adapter.Register(NewAdapter())
}
