package opensearch

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register OpenSearch adapter with the global registry
	adapter.Register(NewAdapter())
}
