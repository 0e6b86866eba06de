package couchbase

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// DocumentManager implements communication.DocumentManager. Each entity is a
// collection of the connection's scope and _id is the document key.
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

// content returns the document body and key of an entity, generating a key when
// generate is set.
func content(entity *communication.Entity, generate bool) (string, map[string]interface{}, error) {
	key, err := common.EnsureKey(entity, keyField, generate)
	if err != nil {
		return "", nil, err
	}
	doc := entity.ToMap()
	delete(doc, keyField)
	return key, doc, nil
}

// decodeRow decodes a query row keeping integers exact.
func decodeRow(raw json.RawMessage) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var row map[string]interface{}
	if err := dec.Decode(&row); err != nil {
		return nil, err
	}
	return row, nil
}

func (m *DocumentManager) insert(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	if err := m.check(entity.Name); err != nil {
		return communication.Entity{}, err
	}
	stored := entity.Clone()
	key, doc, err := content(&stored, true)
	if err != nil {
		return communication.Entity{}, err
	}
	if err := m.store.insert(ctx, entity.Name, key, doc, ttl); err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.Couchbase, "insert", err)
	}
	return stored, nil
}

// Insert stores a new document; a generated key is returned in _id.
func (m *DocumentManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return m.insert(ctx, entity, 0)
}

// InsertTTL stores a new document that expires after ttl.
func (m *DocumentManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return m.insert(ctx, entity, ttl)
}

// InsertAll stores the documents one by one.
func (m *DocumentManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Insert)
}

// Update replaces the document with the entity's _id.
func (m *DocumentManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if err := m.check(entity.Name); err != nil {
		return communication.Entity{}, err
	}
	key, doc, err := content(&entity, false)
	if err != nil {
		return communication.Entity{}, err
	}
	found, err := m.store.replace(ctx, entity.Name, key, doc)
	if err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.Couchbase, "update", err)
	}
	if !found {
		return communication.Entity{}, adapter.NewNotFoundError(dbcapabilities.Couchbase, "document", key)
	}
	return entity, nil
}

// UpdateAll replaces the documents one by one.
func (m *DocumentManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

// Delete runs DELETE, or UPDATE ... UNSET when query.Fields is set.
func (m *DocumentManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	if err := m.check(query.Entity); err != nil {
		return err
	}
	stmt, params, err := deleteN1QL(query)
	if err != nil {
		return err
	}
	if _, err := m.store.query(ctx, stmt, params); err != nil {
		return adapter.WrapError(dbcapabilities.Couchbase, "delete", err)
	}
	return nil
}

// Select runs the SELECT statement.
func (m *DocumentManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	if err := m.check(query.Entity); err != nil {
		return nil, err
	}
	stmt, params, err := selectN1QL(query)
	if err != nil {
		return nil, err
	}
	rows, err := m.store.query(ctx, stmt, params)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Couchbase, "select", err)
	}

	entities := make([]communication.Entity, 0, len(rows))
	for _, raw := range rows {
		row, err := decodeRow(raw)
		if err != nil {
			return nil, adapter.WrapError(dbcapabilities.Couchbase, "select", err)
		}
		entities = append(entities, common.EntityFromJSON(query.Entity, row))
	}
	return entities, nil
}

// Count returns the number of documents in the collection.
func (m *DocumentManager) Count(ctx context.Context, entity string) (int64, error) {
	if err := m.check(entity); err != nil {
		return 0, err
	}
	rows, err := m.store.query(ctx, countN1QL(entity), nil)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.Couchbase, "count", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	var n int64
	if err := json.Unmarshal(rows[0], &n); err != nil {
		return 0, adapter.WrapError(dbcapabilities.Couchbase, "count", err)
	}
	return n, nil
}

// Close is a no-op; the connection owns the cluster.
func (m *DocumentManager) Close() error {
	return nil
}
