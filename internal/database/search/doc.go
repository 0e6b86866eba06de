// Package search holds the query DSL translation and the document manager shared by
// the Elasticsearch and OpenSearch drivers. Each driver supplies a Backend around its
// own client.
//
// Every entity kind lives in one index, the configured database, and documents carry
// their kind in the @entity field. The entity key element _id is the document id.
package search
