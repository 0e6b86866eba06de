package hbase

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register HBase adapter with the global registry
	adapter.Register(NewAdapter())
}
