package arangodb

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

type executed struct {
	aql  string
	vars map[string]interface{}
}

type fakeStore struct {
	collections map[string]map[string]map[string]interface{}
	rows        []map[string]interface{}
	queries     []executed
	err         error
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string]map[string]map[string]interface{})}
}

func (s *fakeStore) hasCollection(ctx context.Context, name string) (bool, error) {
	_, ok := s.collections[name]
	return ok, s.err
}

func (s *fakeStore) createCollection(ctx context.Context, name string) error {
	if s.err != nil {
		return s.err
	}
	if _, ok := s.collections[name]; !ok {
		s.collections[name] = make(map[string]map[string]interface{})
	}
	return nil
}

func (s *fakeStore) createDocument(ctx context.Context, collection string, doc map[string]interface{}) error {
	if err := s.createCollection(ctx, collection); err != nil {
		return err
	}
	s.collections[collection][doc["_key"].(string)] = doc
	return nil
}

func (s *fakeStore) updateDocument(ctx context.Context, collection, key string, doc map[string]interface{}) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	existing, ok := s.collections[collection][key]
	if !ok {
		return false, nil
	}
	for k, v := range doc {
		existing[k] = v
	}
	return true, nil
}

func (s *fakeStore) readDocument(ctx context.Context, collection, key string, out interface{}) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	doc, ok := s.collections[collection][key]
	if !ok {
		return false, nil
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, out)
}

func (s *fakeStore) count(ctx context.Context, collection string) (int64, error) {
	return int64(len(s.collections[collection])), s.err
}

func (s *fakeStore) query(ctx context.Context, aql string, vars map[string]interface{}) ([]map[string]interface{}, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.queries = append(s.queries, executed{aql: aql, vars: vars})
	return s.rows, nil
}

func newTestManager(s *fakeStore) *DocumentManager {
	return &DocumentManager{store: s, connected: func() bool { return true }}
}

func TestDocumentManagerInsert(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	m := newTestManager(s)

	e := communication.NewEntity("people")
	e.Add("name", "Ada")
	stored, err := m.Insert(ctx, e)
	require.NoError(t, err)

	key, ok := stored.Value(keyField).(string)
	require.True(t, ok)
	_, err = uuid.Parse(key)
	assert.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"_key": key, "name": "Ada"}, s.collections["people"][key])

	e.Add(keyField, "ada")
	stored, err = m.Insert(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, "ada", stored.Value(keyField))
	assert.Contains(t, s.collections["people"], "ada")

	n, err := m.Count(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDocumentManagerUpdate(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	m := newTestManager(s)
	s.collections["people"] = map[string]map[string]interface{}{
		"ada": {"_key": "ada", "name": "Ada", "age": 36},
	}

	e := communication.NewEntity("people")
	e.Add("name", "Ada Lovelace")
	_, err := m.Update(ctx, e)
	assert.ErrorIs(t, err, communication.ErrKeyRequired)

	e.Add(keyField, "bob")
	_, err = m.Update(ctx, e)
	var notFound *adapter.NotFoundError
	assert.ErrorAs(t, err, &notFound)

	e.Add(keyField, "ada")
	_, err = m.Update(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"_key": "ada", "name": "Ada Lovelace", "age": 36}, s.collections["people"]["ada"])
}

func TestDocumentManagerSelect(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	m := newTestManager(s)
	q, err := communication.Select().From("people").Where(communication.Eq("name", "Ada")).Build()
	require.NoError(t, err)

	got, err := m.Select(ctx, q)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, s.queries, "a missing collection is not queried")

	s.collections["people"] = map[string]map[string]interface{}{}
	s.rows = []map[string]interface{}{{"_id": "people/ada", "_rev": "_x", "_key": "ada", "name": "Ada"}}
	got, err = m.Select(ctx, q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, map[string]interface{}{"_key": "ada", "name": "Ada"}, got[0].ToMap())

	aql, vars, err := selectAQL(q)
	require.NoError(t, err)
	require.Len(t, s.queries, 1)
	assert.Equal(t, executed{aql: aql, vars: vars}, s.queries[0])
}

func TestDocumentManagerDelete(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	m := newTestManager(s)

	require.NoError(t, m.Delete(ctx, communication.DeleteQuery{Entity: "people"}))
	assert.Empty(t, s.queries)

	s.collections["people"] = map[string]map[string]interface{}{}
	require.NoError(t, m.Delete(ctx, communication.DeleteQuery{Entity: "people", Fields: []string{"age"}}))
	require.Len(t, s.queries, 1)
	assert.Contains(t, s.queries[0].aql, "UPDATE d WITH @unset")
}

func TestDocumentManagerErrors(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	m := newTestManager(s)

	_, err := m.Select(ctx, communication.SelectQuery{})
	assert.ErrorIs(t, err, communication.ErrEntityRequired)

	_, err = m.InsertTTL(ctx, communication.NewEntity("people"), 0)
	assert.True(t, adapter.IsUnsupported(err))

	s.err = errors.New("connection reset")
	_, err = m.Count(ctx, "people")
	var dbErr *adapter.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "count", dbErr.Operation)

	closed := &DocumentManager{store: s, connected: func() bool { return false }}
	_, err = closed.Insert(ctx, communication.NewEntity("people"))
	assert.ErrorIs(t, err, adapter.ErrConnectionClosed)
}

func TestBucketManager(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	f := &BucketManagerFactory{store: s, connected: func() bool { return true }}
	b, err := f.Bucket("settings")
	require.NoError(t, err)

	got, err := b.GetAll(ctx, []string{"theme"})
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, b.Put(ctx, "theme", "dark"))
	require.Len(t, s.queries, 1)
	assert.Equal(t, upsertAQL, s.queries[0].aql)
	assert.Equal(t, "theme", s.queries[0].vars["key"])

	s.collections["settings"]["theme"] = map[string]interface{}{"_key": "theme", "value": "dark"}
	v, ok, err := b.Get(ctx, "theme")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dark", v.String())

	_, ok, err = b.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	s.rows = []map[string]interface{}{
		{"_key": "size", "value": 12.0},
		{"_key": "theme", "value": "dark"},
	}
	got, err = b.GetAll(ctx, []string{"theme", "absent", "size"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "theme", got[0].Key)
	assert.Equal(t, "size", got[1].Key)
	assert.Equal(t, communication.Value("12"), got[1].Value)
}
