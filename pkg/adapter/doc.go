// Package adapter defines the driver contracts shared by every NoSQL store.
//
// Each driver package registers itself from init:
//
//	func init() {
//	    adapter.Register(NewAdapter())
//	}
//
// Importing the driver for its side effect makes it available through the global
// registry. A connection is then opened from a ConnectionConfig or straight from
// settings:
//
//	import _ "github.com/redbco/redb-nosql/internal/database/mongodb"
//
//	s := settings.FromMap(map[string]interface{}{
//	    "nosql.provider": "mongodb",
//	    "nosql.host":     "localhost",
//	    "nosql.database": "app",
//	})
//	conn, err := adapter.GlobalRegistry().ConnectSettings(ctx, s)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
// Work goes through the managers of the connection:
//
//	docs := conn.DocumentManager()
//	people, err := docs.Select(ctx, query)
//
// Managers of categories the store does not offer are nil objects whose methods fail
// with UnsupportedOperationError, so IsUnsupported can be checked instead of nil.
//
// # Condition translation
//
// Adapters with a query language also implement QueryTranslator, which renders a
// SelectQuery or DeleteQuery in the native language without a connection. Conditions
// the language cannot express fail with communication.ErrUnsupportedCondition.
package adapter
