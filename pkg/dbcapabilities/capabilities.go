package dbcapabilities

import (
	"sort"
	"strings"
)

// DatabaseID is the canonical identifier for a NoSQL technology supported by the drivers.
// Use these constants to look up capability information.
type DatabaseID string

const (
	// Document stores
	ArangoDB  DatabaseID = "arangodb"
	Couchbase DatabaseID = "couchbase"
	MongoDB   DatabaseID = "mongodb"
	OrientDB  DatabaseID = "orientdb"
	RavenDB   DatabaseID = "ravendb"
	DynamoDB  DatabaseID = "dynamodb"

	// Search engines
	Elasticsearch DatabaseID = "elasticsearch"
	OpenSearch    DatabaseID = "opensearch"
	Solr          DatabaseID = "solr"

	// Wide-column
	Cassandra DatabaseID = "cassandra"
	HBase     DatabaseID = "hbase"

	// Key-value
	Redis     DatabaseID = "redis"
	Memcached DatabaseID = "memcached"
	Riak      DatabaseID = "riak"
)

// DataParadigm enumerates the primary data storage paradigms a database supports.
type DataParadigm string

const (
	ParadigmDocument    DataParadigm = "document"    // Collections, documents
	ParadigmKeyValue    DataParadigm = "keyvalue"    // Key/Value
	ParadigmGraph       DataParadigm = "graph"       // Nodes/Edges
	ParadigmWideColumn  DataParadigm = "widecolumn"  // Column families
	ParadigmSearchIndex DataParadigm = "searchindex" // Inverted indices
)

// ManagerKind names the communication managers a driver can hand out.
type ManagerKind string

const (
	ManagerDocument ManagerKind = "document"
	ManagerColumn   ManagerKind = "column"
	ManagerBucket   ManagerKind = "bucket"
)

// Capability describes what a driver supports in a way callers can consume uniformly.
type Capability struct {
	// Human-friendly product name, e.g., "MongoDB".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see DatabaseID constants), e.g., "mongodb".
	ID DatabaseID `json:"id"`

	// Primary data storage paradigms supported.
	Paradigms []DataParadigm `json:"paradigms"`

	// Managers exposed by the driver.
	Managers []ManagerKind `json:"managers"`

	// Whether entities or values can be written with a time-to-live.
	SupportsTTL bool `json:"supportsTTL"`

	// Native query language the condition tree is translated into, if any.
	QueryLanguage string `json:"queryLanguage,omitempty"`

	// Port used when a connection string or configuration omits one.
	DefaultPort int `json:"defaultPort"`

	// URI schemes and common names that map to this database.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical database ID.
var All = map[DatabaseID]Capability{
	ArangoDB: {
		Name:          "ArangoDB",
		ID:            ArangoDB,
		Paradigms:     []DataParadigm{ParadigmDocument, ParadigmKeyValue, ParadigmGraph},
		Managers:      []ManagerKind{ManagerDocument, ManagerBucket},
		QueryLanguage: "aql",
		DefaultPort:   8529,
		Aliases:       []string{"arango"},
	},
	Couchbase: {
		Name:          "Couchbase",
		ID:            Couchbase,
		Paradigms:     []DataParadigm{ParadigmDocument, ParadigmKeyValue},
		Managers:      []ManagerKind{ManagerDocument, ManagerBucket},
		SupportsTTL:   true,
		QueryLanguage: "n1ql",
		DefaultPort:   11210,
		Aliases:       []string{"couchbases"},
	},
	MongoDB: {
		Name:          "MongoDB",
		ID:            MongoDB,
		Paradigms:     []DataParadigm{ParadigmDocument},
		Managers:      []ManagerKind{ManagerDocument},
		QueryLanguage: "bson",
		DefaultPort:   27017,
		Aliases:       []string{"mongo", "mongodb+srv"},
	},
	OrientDB: {
		Name:          "OrientDB",
		ID:            OrientDB,
		Paradigms:     []DataParadigm{ParadigmDocument, ParadigmGraph},
		Managers:      []ManagerKind{ManagerDocument},
		QueryLanguage: "sql",
		DefaultPort:   2480,
		Aliases:       []string{"orient"},
	},
	RavenDB: {
		Name:          "RavenDB",
		ID:            RavenDB,
		Paradigms:     []DataParadigm{ParadigmDocument},
		Managers:      []ManagerKind{ManagerDocument},
		SupportsTTL:   true,
		QueryLanguage: "rql",
		DefaultPort:   8080,
		Aliases:       []string{"raven"},
	},
	DynamoDB: {
		Name:          "Amazon DynamoDB",
		ID:            DynamoDB,
		Paradigms:     []DataParadigm{ParadigmDocument, ParadigmKeyValue},
		Managers:      []ManagerKind{ManagerDocument, ManagerBucket},
		SupportsTTL:   true,
		QueryLanguage: "filter-expression",
		DefaultPort:   8000,
		Aliases:       []string{"dynamo", "aws-dynamodb"},
	},
	Elasticsearch: {
		Name:          "Elasticsearch",
		ID:            Elasticsearch,
		Paradigms:     []DataParadigm{ParadigmSearchIndex, ParadigmDocument},
		Managers:      []ManagerKind{ManagerDocument},
		QueryLanguage: "query-dsl",
		DefaultPort:   9200,
		Aliases:       []string{"elastic", "es"},
	},
	OpenSearch: {
		Name:          "OpenSearch",
		ID:            OpenSearch,
		Paradigms:     []DataParadigm{ParadigmSearchIndex, ParadigmDocument},
		Managers:      []ManagerKind{ManagerDocument},
		QueryLanguage: "query-dsl",
		DefaultPort:   9200,
		Aliases:       []string{"aws-opensearch"},
	},
	Solr: {
		Name:          "Apache Solr",
		ID:            Solr,
		Paradigms:     []DataParadigm{ParadigmSearchIndex, ParadigmDocument},
		Managers:      []ManagerKind{ManagerDocument},
		QueryLanguage: "lucene",
		DefaultPort:   8983,
		Aliases:       []string{"apache-solr"},
	},
	Cassandra: {
		Name:          "Apache Cassandra",
		ID:            Cassandra,
		Paradigms:     []DataParadigm{ParadigmWideColumn},
		Managers:      []ManagerKind{ManagerColumn},
		SupportsTTL:   true,
		QueryLanguage: "cql",
		DefaultPort:   9042,
		Aliases:       []string{"scylladb", "scylla"},
	},
	HBase: {
		Name:          "Apache HBase",
		ID:            HBase,
		Paradigms:     []DataParadigm{ParadigmWideColumn},
		Managers:      []ManagerKind{ManagerColumn},
		SupportsTTL:   true,
		QueryLanguage: "row-keys",
		DefaultPort:   2181,
		Aliases:       []string{"apache-hbase"},
	},
	Redis: {
		Name:        "Redis",
		ID:          Redis,
		Paradigms:   []DataParadigm{ParadigmKeyValue},
		Managers:    []ManagerKind{ManagerBucket},
		SupportsTTL: true,
		DefaultPort: 6379,
		Aliases:     []string{"rediss", "valkey"},
	},
	Memcached: {
		Name:        "Memcached",
		ID:          Memcached,
		Paradigms:   []DataParadigm{ParadigmKeyValue},
		Managers:    []ManagerKind{ManagerBucket},
		SupportsTTL: true,
		DefaultPort: 11211,
		Aliases:     []string{"memcache"},
	},
	Riak: {
		Name:        "Riak KV",
		ID:          Riak,
		Paradigms:   []DataParadigm{ParadigmKeyValue},
		Managers:    []ManagerKind{ManagerBucket},
		DefaultPort: 8098,
		Aliases:     []string{"riakkv", "riak-kv"},
	},
}

// nameToID is a normalized lookup index from any known name/alias to the canonical DatabaseID.
var nameToID map[string]DatabaseID

func init() {
	nameToID = make(map[string]DatabaseID, len(All)*3)
	for id, c := range All {
		nameToID[strings.ToLower(string(id))] = id
		if c.Name != "" {
			nameToID[strings.ToLower(c.Name)] = id
		}
		for _, a := range c.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseID attempts to resolve an arbitrary database name (canonical id, alias, URI scheme or
// product name) to a canonical DatabaseID. Returns false if unknown.
func ParseID(name string) (DatabaseID, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// GetByName returns the Capability by looking up using a free-form name (id or alias).
func GetByName(name string) (Capability, bool) {
	if id, ok := ParseID(name); ok {
		return Get(id)
	}
	return Capability{}, false
}

// MustGetByName returns the Capability by name or panics if unknown.
func MustGetByName(name string) Capability {
	c, ok := GetByName(name)
	if !ok {
		panic("dbcapabilities: unknown database name: " + name)
	}
	return c
}

// IDs returns all known database IDs in lexical order.
func IDs() []DatabaseID {
	out := make([]DatabaseID, 0, len(All))
	for id := range All {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns capabilities for the given ID and a boolean indicating existence.
func Get(id DatabaseID) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// MustGet returns capabilities for the given ID and panics if not found.
func MustGet(id DatabaseID) Capability {
	c, ok := Get(id)
	if !ok {
		panic("dbcapabilities: unknown database id: " + string(id))
	}
	return c
}

// SupportsParadigm reports whether the database supports a given data paradigm.
func SupportsParadigm(id DatabaseID, p DataParadigm) bool {
	c, ok := Get(id)
	if !ok {
		return false
	}
	for _, dp := range c.Paradigms {
		if dp == p {
			return true
		}
	}
	return false
}

// SupportsManager reports whether the driver hands out the given manager kind.
func SupportsManager(id DatabaseID, kind ManagerKind) bool {
	c, ok := Get(id)
	if !ok {
		return false
	}
	for _, k := range c.Managers {
		if k == kind {
			return true
		}
	}
	return false
}

// SupportsTTL reports whether writes with a time-to-live are supported.
func SupportsTTL(id DatabaseID) bool {
	c, ok := Get(id)
	return ok && c.SupportsTTL
}
