package ravendb

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register RavenDB adapter with the global registry
	adapter.Register(NewAdapter())
}
