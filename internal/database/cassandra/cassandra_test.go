package cassandra

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

type statement struct {
	cql  string
	args []interface{}
}

type fakeRunner struct {
	executed []statement
	result   []map[string]interface{}
	total    int64
	err      error
}

func (f *fakeRunner) exec(_ context.Context, cql string, args []interface{}) error {
	f.executed = append(f.executed, statement{cql, args})
	return f.err
}

func (f *fakeRunner) rows(_ context.Context, cql string, args []interface{}) ([]map[string]interface{}, error) {
	f.executed = append(f.executed, statement{cql, args})
	return f.result, f.err
}

func (f *fakeRunner) count(_ context.Context, cql string) (int64, error) {
	f.executed = append(f.executed, statement{cql: cql})
	return f.total, f.err
}

func (f *fakeRunner) last() statement {
	return f.executed[len(f.executed)-1]
}

func testConnection(r *fakeRunner) *Connection {
	return &Connection{id: "cassandra-test", runner: r, connected: 1}
}

func TestTranslateSelect(t *testing.T) {
	cond := communication.AndOf(
		communication.Eq("city", "Oslo"),
		communication.BetweenOf("age", 20, 30),
		communication.InOf("Kind", "a", "b"),
	)
	nq, err := Translator{AllowFiltering: true}.TranslateSelect(communication.SelectQuery{
		Entity:    "people",
		Fields:    []string{"name", "age"},
		Condition: &cond,
		Sorts:     []communication.Sort{communication.SortDesc("age")},
		Skip:      5,
		Limit:     10,
	})
	require.NoError(t, err)
	assert.Equal(t, "cql", nq.Language)
	assert.Equal(t, `SELECT name, age FROM people WHERE city = ? AND age >= ? AND age <= ? AND "Kind" IN (?, ?) ORDER BY age DESC LIMIT 15 ALLOW FILTERING`, nq.Statement)
	assert.Equal(t, []interface{}{"Oslo", 20, 30, "a", "b"}, nq.Params["args"])
}

func TestTranslateSelectAll(t *testing.T) {
	nq, err := Translator{}.TranslateSelect(communication.SelectQuery{Entity: "people"})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM people", nq.Statement)
	assert.Nil(t, nq.Params)
}

func TestTranslateUnsupported(t *testing.T) {
	for _, cond := range []communication.Condition{
		communication.OrOf(communication.Eq("a", 1), communication.Eq("b", 2)),
		communication.NotOf(communication.Eq("a", 1)),
	} {
		c := cond
		_, err := Translator{}.TranslateSelect(communication.SelectQuery{Entity: "people", Condition: &c})
		assert.True(t, adapter.IsUnsupportedCondition(err), cond.String())
	}
	_, err := Translator{}.TranslateDelete(communication.DeleteQuery{})
	assert.ErrorIs(t, err, communication.ErrEntityRequired)
}

func TestTranslateDelete(t *testing.T) {
	nq, err := Translator{}.TranslateDelete(communication.DeleteQuery{Entity: "people"})
	require.NoError(t, err)
	assert.Equal(t, "TRUNCATE people", nq.Statement)

	cond := communication.Eq("id", 7)
	nq, err = Translator{}.TranslateDelete(communication.DeleteQuery{Entity: "people", Fields: []string{"age"}, Condition: &cond})
	require.NoError(t, err)
	assert.Equal(t, "DELETE age FROM people WHERE id = ?", nq.Statement)
	assert.Equal(t, []interface{}{7}, nq.Params["args"])
}

func TestInsertCQL(t *testing.T) {
	e := communication.NewEntity("people")
	e.Add("id", 1)
	e.Add("Name", "Ada")

	cql, args := insertCQL(e, 0)
	assert.Equal(t, `INSERT INTO people (id, "Name") VALUES (?, ?)`, cql)
	assert.Equal(t, []interface{}{1, "Ada"}, args)

	cql, _ = insertCQL(e, 90*time.Second)
	assert.Equal(t, `INSERT INTO people (id, "Name") VALUES (?, ?) USING TTL 90`, cql)

	cql, _ = insertCQL(e, time.Millisecond)
	assert.Contains(t, cql, "USING TTL 1")
}

func TestColumnManager(t *testing.T) {
	ctx := context.Background()
	uuid := gocql.TimeUUID()
	r := &fakeRunner{
		result: []map[string]interface{}{
			{"id": uuid, "name": "Ada"},
			{"id": gocql.TimeUUID(), "name": "Bob"},
		},
		total: 2,
	}
	cm := testConnection(r).ColumnManager()

	e := communication.NewEntity("people")
	e.Add("id", 1)
	_, err := cm.InsertTTL(ctx, e, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO people (id) VALUES (?) USING TTL 60", r.last().cql)

	_, err = cm.Insert(ctx, communication.NewEntity("people"))
	assert.ErrorIs(t, err, communication.ErrKeyRequired)

	results, err := cm.Select(ctx, communication.SelectQuery{Entity: "people", Skip: 1, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM people LIMIT 2", r.last().cql)
	require.Len(t, results, 1)
	assert.Equal(t, "Bob", results[0].Value("name"))

	all, err := cm.Select(ctx, communication.SelectQuery{Entity: "people"})
	require.NoError(t, err)
	assert.Equal(t, uuid.String(), all[0].Value("id"))

	n, err := cm.Count(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, "SELECT COUNT(*) FROM people", r.last().cql)

	require.NoError(t, cm.Delete(ctx, communication.DeleteQuery{Entity: "people"}))
	assert.Equal(t, "TRUNCATE people", r.last().cql)
}

func TestColumnManagerErrors(t *testing.T) {
	ctx := context.Background()
	r := &fakeRunner{err: errors.New("unavailable")}
	conn := testConnection(r)
	cm := conn.ColumnManager()

	_, err := cm.Count(ctx, "people")
	assert.ErrorContains(t, err, "unavailable")

	cond := communication.NotOf(communication.Eq("a", 1))
	_, err = cm.Select(ctx, communication.SelectQuery{Entity: "people", Condition: &cond})
	assert.True(t, adapter.IsUnsupportedCondition(err))

	require.NoError(t, conn.Close())
	_, err = cm.Select(ctx, communication.SelectQuery{Entity: "people"})
	assert.ErrorIs(t, err, adapter.ErrConnectionClosed)

	_, err = conn.DocumentManager().Count(ctx, "people")
	assert.True(t, adapter.IsUnsupported(err))
}

func TestClusterConfig(t *testing.T) {
	reject := false
	cert := "/certs/ca.pem"
	cluster, err := clusterConfig(adapter.ConnectionConfig{
		Hosts:                 []string{"c1:9042", "c2"},
		Port:                  9042,
		DatabaseName:          "shop",
		Username:              "u",
		Password:              "p",
		SSL:                   true,
		SSLRejectUnauthorized: &reject,
		SSLRootCert:           &cert,
		Options:               map[string]interface{}{"consistency": "ONE"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, cluster.Hosts)
	assert.Equal(t, "shop", cluster.Keyspace)
	assert.Equal(t, gocql.One, cluster.Consistency)
	require.NotNil(t, cluster.SslOpts)
	assert.False(t, cluster.SslOpts.EnableHostVerification)
	assert.Equal(t, cert, cluster.SslOpts.CaPath)

	_, err = clusterConfig(adapter.ConnectionConfig{Host: "c1", Port: 9042})
	assert.True(t, adapter.IsConfigurationError(err))

	_, err = clusterConfig(adapter.ConnectionConfig{Host: "c1", Port: 9042, DatabaseName: "shop",
		Options: map[string]interface{}{"consistency": "SOMETIMES"}})
	assert.True(t, adapter.IsConfigurationError(err))
}
