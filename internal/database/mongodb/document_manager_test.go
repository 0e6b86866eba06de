package mongodb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

type fakeStore struct {
	docs    map[string][]bson.D
	updates []bson.D
	deletes []bson.D
	found   []findPlan
	err     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[string][]bson.D)}
}

func lookup(doc bson.D, key string) (interface{}, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

func (s *fakeStore) insertOne(ctx context.Context, collection string, doc bson.D) error {
	if s.err != nil {
		return s.err
	}
	s.docs[collection] = append(s.docs[collection], doc)
	return nil
}

func (s *fakeStore) replaceOne(ctx context.Context, collection string, filter, doc bson.D) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	want, _ := lookup(filter, keyField)
	for i, existing := range s.docs[collection] {
		if id, ok := lookup(existing, keyField); ok && id == want {
			s.docs[collection][i] = doc
			return 1, nil
		}
	}
	return 0, nil
}

func (s *fakeStore) updateMany(ctx context.Context, collection string, filter, update bson.D) error {
	if s.err != nil {
		return s.err
	}
	s.updates = append(s.updates, filter, update)
	return nil
}

func (s *fakeStore) deleteMany(ctx context.Context, collection string, filter bson.D) error {
	if s.err != nil {
		return s.err
	}
	s.deletes = append(s.deletes, filter)
	return nil
}

func (s *fakeStore) find(ctx context.Context, plan findPlan) ([]bson.D, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.found = append(s.found, plan)
	return s.docs[plan.collection], nil
}

func (s *fakeStore) count(ctx context.Context, collection string) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	return int64(len(s.docs[collection])), nil
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

	id, ok := stored.Find(keyField)
	require.True(t, ok)
	oid, err := bson.ObjectIDFromHex(id.Value.(string))
	require.NoError(t, err)

	require.Len(t, s.docs["people"], 1)
	assert.Equal(t, bson.D{{Key: "name", Value: "Ada"}, {Key: "_id", Value: oid}}, s.docs["people"][0])

	_, ok = e.Find(keyField)
	assert.False(t, ok, "the caller's entity is not modified")
}

func TestDocumentManagerUpdate(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	m := newTestManager(s)
	oid := bson.NewObjectID()
	s.docs["people"] = []bson.D{{{Key: "_id", Value: oid}, {Key: "name", Value: "Ada"}}}

	t.Run("without key", func(t *testing.T) {
		e := communication.NewEntity("people")
		e.Add("name", "Bob")
		_, err := m.Update(ctx, e)
		assert.ErrorIs(t, err, communication.ErrKeyRequired)
	})

	t.Run("missing document", func(t *testing.T) {
		e := communication.NewEntity("people")
		e.Add("_id", bson.NewObjectID().Hex())
		_, err := m.Update(ctx, e)
		var notFound *adapter.NotFoundError
		assert.ErrorAs(t, err, &notFound)
	})

	t.Run("replaces by object id", func(t *testing.T) {
		e := communication.NewEntity("people")
		e.Add("_id", oid.Hex())
		e.Add("name", "Ada Lovelace")
		_, err := m.Update(ctx, e)
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "_id", Value: oid}, {Key: "name", Value: "Ada Lovelace"}}, s.docs["people"][0])
	})
}

func TestDocumentManagerDelete(t *testing.T) {
	ctx := context.Background()
	cond := communication.Eq("name", "Ada")
	filter := bson.D{{Key: "name", Value: bson.D{{Key: "$eq", Value: "Ada"}}}}

	t.Run("fields are unset", func(t *testing.T) {
		s := newFakeStore()
		err := newTestManager(s).Delete(ctx, communication.DeleteQuery{Entity: "people", Fields: []string{"age"}, Condition: &cond})
		require.NoError(t, err)
		assert.Empty(t, s.deletes)
		assert.Equal(t, []bson.D{
			filter,
			{{Key: "$unset", Value: bson.D{{Key: "age", Value: ""}}}},
		}, s.updates)
	})

	t.Run("documents are removed", func(t *testing.T) {
		s := newFakeStore()
		err := newTestManager(s).Delete(ctx, communication.DeleteQuery{Entity: "people", Condition: &cond})
		require.NoError(t, err)
		assert.Empty(t, s.updates)
		assert.Equal(t, []bson.D{filter}, s.deletes)
	})
}

func TestDocumentManagerSelect(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	m := newTestManager(s)
	oid := bson.NewObjectID()
	s.docs["people"] = []bson.D{{
		{Key: "_id", Value: oid},
		{Key: "name", Value: "Ada"},
		{Key: "address", Value: bson.D{{Key: "city", Value: "Oslo"}}},
	}}

	q, err := communication.Select("name", "address").From("people").Desc("age").Skip(1).Limit(2).Build()
	require.NoError(t, err)

	got, err := m.Select(ctx, q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "people", got[0].Name)
	assert.Equal(t, map[string]interface{}{
		"_id":     oid.Hex(),
		"name":    "Ada",
		"address": map[string]interface{}{"city": "Oslo"},
	}, got[0].ToMap())

	require.Len(t, s.found, 1)
	plan := s.found[0]
	assert.Equal(t, bson.D{{Key: "name", Value: 1}, {Key: "address", Value: 1}}, plan.projection)
	assert.Equal(t, bson.D{{Key: "age", Value: -1}}, plan.sort)
	assert.Equal(t, int64(1), plan.skip)
	assert.Equal(t, int64(2), plan.limit)

	n, err := m.Count(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDocumentManagerErrors(t *testing.T) {
	ctx := context.Background()
	s := newFakeStore()
	m := newTestManager(s)

	_, err := m.Select(ctx, communication.SelectQuery{})
	assert.ErrorIs(t, err, communication.ErrEntityRequired)

	_, err = m.InsertTTL(ctx, communication.NewEntity("people"), 0)
	assert.True(t, adapter.IsUnsupported(err))

	s.err = errors.New("socket closed")
	_, err = m.Count(ctx, "people")
	var dbErr *adapter.DatabaseError
	require.ErrorAs(t, err, &dbErr)
	assert.Equal(t, "count", dbErr.Operation)

	closed := &DocumentManager{store: s, connected: func() bool { return false }}
	_, err = closed.Insert(ctx, communication.NewEntity("people"))
	assert.ErrorIs(t, err, adapter.ErrConnectionClosed)
}
