package solr

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register Solr adapter with the global registry
	adapter.Register(NewAdapter())
}
