package arangodb

import (
	"context"
	"time"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// DocumentManager implements communication.DocumentManager with one collection per
// entity. Collections are created on the first insert.
type DocumentManager struct {
	store     store
	connected func() bool
}

// toEntity drops the server-side _id and _rev attributes.
func toEntity(name string, doc map[string]interface{}) communication.Entity {
	return common.EntityFromJSON(name, doc, "_id", "_rev")
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

// Insert creates the document and returns the entity with its _key. Entities
// without a _key get a UUID.
func (m *DocumentManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if err := m.check(entity.Name); err != nil {
		return communication.Entity{}, err
	}
	stored := entity.Clone()
	if _, err := common.EnsureKey(&stored, keyField, true); err != nil {
		return communication.Entity{}, err
	}
	if err := m.store.createDocument(ctx, entity.Name, stored.ToMap()); err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.ArangoDB, "insert", err)
	}
	return stored, nil
}

// InsertTTL is not supported; expiry in ArangoDB is declared with a TTL index.
func (m *DocumentManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return communication.Entity{}, adapter.NewUnsupportedOperationError(dbcapabilities.ArangoDB, "insert with ttl", "expiry is configured with a TTL index")
}

// InsertAll creates the documents one by one.
func (m *DocumentManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Insert)
}

// Update merges the entity into the document with the same _key.
func (m *DocumentManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if err := m.check(entity.Name); err != nil {
		return communication.Entity{}, err
	}
	key, err := common.EnsureKey(&entity, keyField, false)
	if err != nil {
		return communication.Entity{}, err
	}

	found, err := m.store.updateDocument(ctx, entity.Name, key, entity.ToMap())
	if err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.ArangoDB, "update", err)
	}
	if !found {
		return communication.Entity{}, adapter.NewNotFoundError(dbcapabilities.ArangoDB, "document", key)
	}
	return entity, nil
}

// UpdateAll updates the entities one by one.
func (m *DocumentManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

// Delete removes matching documents, or unsets query.Fields on them.
func (m *DocumentManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	if err := m.check(query.Entity); err != nil {
		return err
	}
	aql, vars, err := deleteAQL(query)
	if err != nil {
		return err
	}
	exists, err := m.store.hasCollection(ctx, query.Entity)
	if err != nil {
		return adapter.WrapError(dbcapabilities.ArangoDB, "delete", err)
	}
	if !exists {
		return nil
	}
	if _, err := m.store.query(ctx, aql, vars); err != nil {
		return adapter.WrapError(dbcapabilities.ArangoDB, "delete", err)
	}
	return nil
}

// Select runs the query; a collection that does not exist yields no entities.
func (m *DocumentManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	if err := m.check(query.Entity); err != nil {
		return nil, err
	}
	aql, vars, err := selectAQL(query)
	if err != nil {
		return nil, err
	}
	exists, err := m.store.hasCollection(ctx, query.Entity)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.ArangoDB, "select", err)
	}
	if !exists {
		return []communication.Entity{}, nil
	}

	rows, err := m.store.query(ctx, aql, vars)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.ArangoDB, "select", err)
	}
	entities := make([]communication.Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, toEntity(query.Entity, row))
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
		return 0, adapter.WrapError(dbcapabilities.ArangoDB, "count", err)
	}
	return n, nil
}

// Close is a no-op; the connection owns the client.
func (m *DocumentManager) Close() error {
	return nil
}
