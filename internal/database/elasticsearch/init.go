package elasticsearch

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register Elasticsearch adapter with the global registry
	adapter.Register(NewAdapter())
}
