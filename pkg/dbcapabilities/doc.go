// Package dbcapabilities provides a shared registry describing the NoSQL technologies the
// drivers support. Callers can import this package to make decisions based on uniform
// metadata (paradigms, managers, TTL support, default ports).
//
// Minimal usage example:
//
//	import "github.com/redbco/redb-nosql/pkg/dbcapabilities"
//
//	func canExpire(db string) bool {
//	    id, ok := dbcapabilities.ParseID(db)
//	    return ok && dbcapabilities.SupportsTTL(id)
//	}
//
// Connection URIs can be turned into structured details:
//
//	details, err := dbcapabilities.ParseConnectionString("rediss://cache.internal:6380/0")
//
// The package exposes constants for IDs (e.g., dbcapabilities.MongoDB) and a
// registry `All` for advanced consumers.
package dbcapabilities
