package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// DocumentManager implements communication.DocumentManager over a MongoDB database.
// Documents are keyed by _id; inserts without one get a generated ObjectID.
type DocumentManager struct {
	store     store
	connected func() bool
}

func (m *DocumentManager) check(collection string) error {
	if !m.connected() {
		return adapter.ErrConnectionClosed
	}
	if collection == "" {
		return communication.ErrEntityRequired
	}
	return nil
}

// Insert stores the entity and returns it with its _id.
func (m *DocumentManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if err := m.check(entity.Name); err != nil {
		return communication.Entity{}, err
	}

	stored := entity.Clone()
	if el, ok := stored.Find(keyField); !ok || el.Value == nil {
		stored.Add(keyField, bson.NewObjectID().Hex())
	}

	if err := m.store.insertOne(ctx, entity.Name, toDocument(stored)); err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.MongoDB, "insert", err)
	}
	return stored, nil
}

// InsertTTL is not supported; expiry in MongoDB is declared with a TTL index.
func (m *DocumentManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return communication.Entity{}, adapter.NewUnsupportedOperationError(dbcapabilities.MongoDB, "insert with ttl", "expiry is configured with a TTL index")
}

// InsertAll stores the entities one by one.
func (m *DocumentManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Insert)
}

// Update replaces the document with the entity's _id.
func (m *DocumentManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if err := m.check(entity.Name); err != nil {
		return communication.Entity{}, err
	}
	el, ok := entity.Find(keyField)
	if !ok || el.Value == nil {
		return communication.Entity{}, communication.KeyRequired(keyField)
	}

	filter := bson.D{{Key: keyField, Value: keyValue(keyField, el.Value)}}
	matched, err := m.store.replaceOne(ctx, entity.Name, filter, toDocument(entity))
	if err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.MongoDB, "update", err)
	}
	if matched == 0 {
		return communication.Entity{}, adapter.NewNotFoundError(dbcapabilities.MongoDB, "document", fmt.Sprint(el.Value))
	}
	return entity, nil
}

// UpdateAll updates the entities one by one.
func (m *DocumentManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

// Delete removes matching documents, or unsets the query fields when any are listed.
func (m *DocumentManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	if err := m.check(query.Entity); err != nil {
		return err
	}
	filter, err := toFilter(query.Condition)
	if err != nil {
		return err
	}

	if unset := unsetFields(query.Fields); unset != nil {
		err = m.store.updateMany(ctx, query.Entity, filter, bson.D{{Key: "$unset", Value: unset}})
	} else {
		err = m.store.deleteMany(ctx, query.Entity, filter)
	}
	if err != nil {
		return adapter.WrapError(dbcapabilities.MongoDB, "delete", err)
	}
	return nil
}

// Select runs a find with the query's projection, sort, skip and limit.
func (m *DocumentManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	if err := m.check(query.Entity); err != nil {
		return nil, err
	}
	plan, err := buildFind(query)
	if err != nil {
		return nil, err
	}

	docs, err := m.store.find(ctx, plan)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.MongoDB, "select", err)
	}

	entities := make([]communication.Entity, 0, len(docs))
	for _, doc := range docs {
		entities = append(entities, fromDocument(query.Entity, doc))
	}
	return entities, nil
}

// Count returns the number of documents in the collection.
func (m *DocumentManager) Count(ctx context.Context, entity string) (int64, error) {
	if err := m.check(entity); err != nil {
		return 0, err
	}
	n, err := m.store.count(ctx, entity)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "count", err)
	}
	return n, nil
}

// Close is a no-op; the connection owns the client.
func (m *DocumentManager) Close() error {
	return nil
}
