package drivers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/cmd/nosqlctl/internal/output"
	"github.com/redbco/redb-nosql/internal/database/cassandra"
	"github.com/redbco/redb-nosql/internal/database/memcached"
	"github.com/redbco/redb-nosql/pkg/adapter"
)

func testRegistry() *adapter.Registry {
	registry := adapter.NewRegistry()
	registry.Register(cassandra.NewAdapter())
	registry.Register(memcached.NewAdapter())
	return registry
}

func writeQuery(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "query.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestList(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, List(&buf, output.Table, testRegistry()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "QUERY LANGUAGE")
	assert.Equal(t, []string{"cassandra", "Apache", "Cassandra", "column", "true", "cql", "9042"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"memcached", "Memcached", "bucket", "true", "-", "11211"}, strings.Fields(lines[2]))

	buf.Reset()
	require.NoError(t, List(&buf, output.Table, adapter.NewRegistry()))
	assert.Equal(t, "No drivers registered.\n", buf.String())
}

func TestParseURI(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ParseURI(&buf, output.JSON, "mongodb://ada:secret@h1:27017,h2:27018/app?tls=true"))
	out := buf.String()
	assert.Contains(t, out, `"database_type": "mongodb"`)
	assert.Contains(t, out, `"password": "********"`)
	assert.NotContains(t, out, "secret")

	buf.Reset()
	require.NoError(t, ParseURI(&buf, output.Table, "cassandra://node1/shop"))
	assert.Contains(t, buf.String(), "Database:")
	assert.Contains(t, buf.String(), "shop")

	assert.Error(t, ParseURI(&buf, output.Table, "nope://host"))
}

func TestTranslate(t *testing.T) {
	path := writeQuery(t, `
entity: people
fields: [name]
where: {op: gte, name: age, value: 18}
sort: [{name: age, order: desc}]
limit: 10
`)

	var buf bytes.Buffer
	require.NoError(t, Translate(&buf, output.Table, testRegistry(), "cassandra", path, false))
	assert.Equal(t, "-- cql\nSELECT name FROM people WHERE age >= ? ORDER BY age DESC LIMIT 10\n-- params\nargs:\n  - 18\n", buf.String())

	buf.Reset()
	require.NoError(t, Translate(&buf, output.JSON, testRegistry(), "cassandra", path, true))
	assert.JSONEq(t, `{"language": "cql", "statement": "DELETE name FROM people WHERE age >= ?", "params": {"args": [18]}}`, buf.String())
}

func TestTranslateErrors(t *testing.T) {
	path := writeQuery(t, "entity: people\nwhere: {op: or, conditions: [{op: eq, name: a, value: 1}, {op: eq, name: b, value: 2}]}\n")

	var buf bytes.Buffer
	err := Translate(&buf, output.Table, testRegistry(), "cassandra", path, false)
	assert.True(t, adapter.IsUnsupportedCondition(err))

	err = Translate(&buf, output.Table, testRegistry(), "memcached", path, false)
	assert.True(t, adapter.IsUnsupported(err))

	err = Translate(&buf, output.Table, testRegistry(), "mongodb", path, false)
	assert.ErrorIs(t, err, adapter.ErrAdapterNotFound)
}
