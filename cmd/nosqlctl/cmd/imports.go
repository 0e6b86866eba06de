package main

// Drivers register themselves with the global registry.
import (
	_ "github.com/redbco/redb-nosql/internal/database/arangodb"
	_ "github.com/redbco/redb-nosql/internal/database/cassandra"
	_ "github.com/redbco/redb-nosql/internal/database/couchbase"
	_ "github.com/redbco/redb-nosql/internal/database/dynamodb"
	_ "github.com/redbco/redb-nosql/internal/database/elasticsearch"
	_ "github.com/redbco/redb-nosql/internal/database/hbase"
	_ "github.com/redbco/redb-nosql/internal/database/memcached"
	_ "github.com/redbco/redb-nosql/internal/database/mongodb"
	_ "github.com/redbco/redb-nosql/internal/database/opensearch"
	_ "github.com/redbco/redb-nosql/internal/database/orientdb"
	_ "github.com/redbco/redb-nosql/internal/database/ravendb"
	_ "github.com/redbco/redb-nosql/internal/database/redis"
	_ "github.com/redbco/redb-nosql/internal/database/riak"
	_ "github.com/redbco/redb-nosql/internal/database/solr"
)
