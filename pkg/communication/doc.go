// Package communication is the vendor-neutral API the drivers translate from.
//
// Records are Entities made of named Elements. Reads and removals are described by
// SelectQuery and DeleteQuery, whose Condition tree combines comparisons with And, Or
// and Not:
//
//	query, err := communication.Select("name", "age").
//	    From("person").
//	    Where(communication.Gte("age", 18)).
//	    And(communication.InOf("city", "Lisbon", "Porto")).
//	    Desc("age").
//	    Limit(10).
//	    Build()
//
// Drivers expose DocumentManager, ColumnManager or BucketManagerFactory implementations
// depending on the store.
package communication
