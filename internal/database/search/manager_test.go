package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

type call struct {
	op    string
	index string
	id    string
	body  string
}

type fakeBackend struct {
	calls    []call
	response []byte
	err      error
}

func (f *fakeBackend) record(op, index, id string, body []byte) {
	f.calls = append(f.calls, call{op: op, index: index, id: id, body: string(body)})
}

func (f *fakeBackend) Index(ctx context.Context, index, id string, body []byte) error {
	f.record("index", index, id, body)
	return f.err
}

func (f *fakeBackend) Bulk(ctx context.Context, index string, body []byte) ([]byte, error) {
	f.record("bulk", index, "", body)
	return f.response, f.err
}

func (f *fakeBackend) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	f.record("search", index, "", body)
	return f.response, f.err
}

func (f *fakeBackend) Count(ctx context.Context, index string, body []byte) ([]byte, error) {
	f.record("count", index, "", body)
	return f.response, f.err
}

func (f *fakeBackend) DeleteByQuery(ctx context.Context, index string, body []byte) error {
	f.record("delete_by_query", index, "", body)
	return f.err
}

func (f *fakeBackend) UpdateByQuery(ctx context.Context, index string, body []byte) error {
	f.record("update_by_query", index, "", body)
	return f.err
}

func mustJSON(t *testing.T, v interface{}) string {
	t.Helper()
	out, err := json.Marshal(v)
	require.NoError(t, err)
	return string(out)
}

func newManager(backend *fakeBackend) *DocumentManager {
	return NewDocumentManager(backend, dbcapabilities.Elasticsearch, "app", 0, nil)
}

func TestInsertAndUpdate(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(backend)
	ctx := context.Background()

	e := communication.NewEntity("person")
	e.Add("name", "Ada")

	stored, err := m.Insert(ctx, e)
	require.NoError(t, err)
	id, ok := stored.Value("_id").(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)
	assert.Nil(t, e.Value("_id"), "input entity must not be modified")

	require.Len(t, backend.calls, 1)
	assert.Equal(t, "app", backend.calls[0].index)
	assert.Equal(t, id, backend.calls[0].id)
	assert.JSONEq(t, `{"name":"Ada","@entity":"person"}`, backend.calls[0].body)

	_, err = m.Update(ctx, e)
	assert.ErrorIs(t, err, communication.ErrKeyRequired)

	_, err = m.InsertTTL(ctx, e, 0)
	assert.True(t, adapter.IsUnsupported(err))
}

func TestInsertAllBulk(t *testing.T) {
	backend := &fakeBackend{response: []byte(`{"errors":false,"items":[]}`)}
	m := newManager(backend)

	a := communication.NewEntity("person")
	a.Add("_id", "1")
	b := communication.NewEntity("person")
	b.Add("_id", "2")

	stored, err := m.InsertAll(context.Background(), []communication.Entity{a, b})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	require.Len(t, backend.calls, 1)
	assert.Equal(t,
		`{"index":{"_id":"1","_index":"app"}}`+"\n"+`{"@entity":"person"}`+"\n"+
			`{"index":{"_id":"2","_index":"app"}}`+"\n"+`{"@entity":"person"}`+"\n",
		backend.calls[0].body)

	backend.response = []byte(`{"errors":true,"items":[{"index":{"_id":"2","error":{"reason":"mapping conflict"}}}]}`)
	_, err = m.InsertAll(context.Background(), []communication.Entity{a, b})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapping conflict")
}

func TestSelect(t *testing.T) {
	backend := &fakeBackend{response: []byte(`{"hits":{"total":{"value":1},"hits":[
		{"_id":"42","_source":{"@entity":"person","name":"Ada","age":36,"score":1.5}}
	]}}`)}
	m := newManager(backend)

	q, err := communication.Select().From("person").Where(communication.Eq("name", "Ada")).Build()
	require.NoError(t, err)

	entities, err := m.Select(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, entities, 1)

	e := entities[0]
	assert.Equal(t, "person", e.Name)
	assert.Equal(t, []string{"_id", "age", "name", "score"}, e.Names())
	assert.Equal(t, "42", e.Value("_id"))
	assert.Equal(t, int64(36), e.Value("age"))
	assert.Equal(t, 1.5, e.Value("score"))
}

func TestSelectProjection(t *testing.T) {
	backend := &fakeBackend{response: []byte(`{"hits":{"hits":[
		{"_id":"42","_source":{"@entity":"person","name":"Ada"}}
	]}}`)}
	m := newManager(backend)

	q, err := communication.Select("name").From("person").Build()
	require.NoError(t, err)
	entities, err := m.Select(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, []string{"name"}, entities[0].Names())

	q.Fields = []string{"_id", "name"}
	entities, err = m.Select(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, []string{"_id", "name"}, entities[0].Names())
	assert.Equal(t, "42", entities[0].Value("_id"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(backend.calls[1].body), &body))
	assert.Equal(t, []interface{}{"name"}, body["_source"])

	q.Fields = []string{"_id"}
	_, err = m.Select(context.Background(), q)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(backend.calls[2].body), &body))
	assert.Equal(t, false, body["_source"])
}

func TestDeleteAndCount(t *testing.T) {
	backend := &fakeBackend{}
	m := newManager(backend)
	ctx := context.Background()

	q, err := communication.Delete().From("person").Where(communication.Eq("name", "Ada")).Build()
	require.NoError(t, err)
	require.NoError(t, m.Delete(ctx, q))

	q.Fields = []string{"age"}
	require.NoError(t, m.Delete(ctx, q))

	require.Len(t, backend.calls, 2)
	assert.Equal(t, "delete_by_query", backend.calls[0].op)
	assert.Equal(t, "update_by_query", backend.calls[1].op)

	backend.response = []byte(`{"count":7}`)
	n, err := m.Count(ctx, "person")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}

func TestBackendErrorsAreWrapped(t *testing.T) {
	backend := &fakeBackend{err: errors.New("index_not_found_exception")}
	m := newManager(backend)

	_, err := m.Count(context.Background(), "person")
	require.Error(t, err)
	var dbErr *adapter.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
}

func TestClosedConnection(t *testing.T) {
	m := NewDocumentManager(&fakeBackend{}, dbcapabilities.OpenSearch, "app", 0, func() bool { return false })
	_, err := m.Count(context.Background(), "person")
	assert.ErrorIs(t, err, adapter.ErrConnectionClosed)
}
