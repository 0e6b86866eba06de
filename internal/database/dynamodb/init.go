package dynamodb

import (
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func init() {
	// Register DynamoDB adapter with the global registry
	adapter.Register(NewAdapter())
}
