package ravendb

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// DocumentManager implements communication.DocumentManager. The entity name is the
// @collection metadata and the "id" element is the document id.
type DocumentManager struct {
	conn *Connection
}

type queryRequest struct {
	Query           string                 `json:"Query"`
	QueryParameters map[string]interface{} `json:"QueryParameters,omitempty"`
}

type queryResult struct {
	Results      []map[string]interface{} `json:"Results"`
	TotalResults int64                    `json:"TotalResults"`
}

// document builds the stored JSON of an entity with its metadata.
func document(entity communication.Entity, expires time.Time) map[string]interface{} {
	doc := entity.ToMap()
	delete(doc, keyField)
	meta := map[string]interface{}{"@collection": entity.Name}
	if !expires.IsZero() {
		meta["@expires"] = expires.UTC().Format(time.RFC3339Nano)
	}
	doc[metadataField] = meta
	return doc
}

// toEntity moves @metadata.@id into the id element.
func toEntity(name string, doc map[string]interface{}) communication.Entity {
	var id interface{}
	if meta, ok := doc[metadataField].(map[string]interface{}); ok {
		id = meta["@id"]
	}
	entity := common.EntityFromJSON(name, doc, metadataField)
	if id != nil {
		entity.Add(keyField, cast.ToString(id))
	}
	return entity
}

func (m *DocumentManager) put(ctx context.Context, id string, doc map[string]interface{}) error {
	if !m.conn.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	return m.conn.client.Do(ctx, http.MethodPut, m.conn.path("docs"), url.Values{"id": {id}}, doc, nil)
}

func (m *DocumentManager) insert(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	if entity.Name == "" {
		return communication.Entity{}, communication.ErrEntityRequired
	}
	stored := entity.Clone()
	if _, ok := stored.Find(keyField); !ok {
		stored.Add(keyField, strings.ToLower(entity.Name)+"/"+common.NewID())
	}
	id, err := common.EnsureKey(&stored, keyField, false)
	if err != nil {
		return communication.Entity{}, err
	}
	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	if err := m.put(ctx, id, document(stored, expires)); err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.RavenDB, "insert", err)
	}
	return stored, nil
}

// Insert stores the document; without an id one of the form collection/uuid is generated.
func (m *DocumentManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return m.insert(ctx, entity, 0)
}

// InsertTTL stores the document with an @expires metadata entry.
func (m *DocumentManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return m.insert(ctx, entity, ttl)
}

// InsertAll stores the documents one by one.
func (m *DocumentManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Insert)
}

// Update replaces an existing document.
func (m *DocumentManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if !m.conn.IsConnected() {
		return communication.Entity{}, adapter.ErrConnectionClosed
	}
	id, err := common.EnsureKey(&entity, keyField, false)
	if err != nil {
		return communication.Entity{}, err
	}
	_, err = m.conn.client.DoRaw(ctx, http.MethodHead, m.conn.path("docs"), url.Values{"id": {id}}, "", nil)
	if common.IsNotFound(err) {
		return communication.Entity{}, adapter.NewNotFoundError(dbcapabilities.RavenDB, "document", id)
	}
	if err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.RavenDB, "update", err)
	}
	if err := m.put(ctx, id, document(entity, time.Time{})); err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.RavenDB, "update", err)
	}
	return entity, nil
}

// UpdateAll replaces the documents one by one.
func (m *DocumentManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

func (m *DocumentManager) query(ctx context.Context, rql string, params map[string]interface{}) ([]map[string]interface{}, error) {
	if !m.conn.IsConnected() {
		return nil, adapter.ErrConnectionClosed
	}
	var res queryResult
	req := queryRequest{Query: rql, QueryParameters: params}
	if err := m.conn.client.Do(ctx, http.MethodPost, m.conn.path("queries"), nil, req, &res); err != nil {
		return nil, err
	}
	return res.Results, nil
}

// Delete deletes every matching document, or rewrites them without query.Fields.
func (m *DocumentManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	rql, params, err := deleteRQL(query)
	if err != nil {
		return err
	}
	docs, err := m.query(ctx, rql, params)
	if err != nil {
		return adapter.WrapError(dbcapabilities.RavenDB, "delete", err)
	}

	for _, doc := range docs {
		entity := toEntity(query.Entity, doc)
		id := cast.ToString(entity.Value(keyField))
		if id == "" {
			continue
		}
		if len(query.Fields) == 0 {
			_, err = m.conn.client.DoRaw(ctx, http.MethodDelete, m.conn.path("docs"), url.Values{"id": {id}}, "", nil)
		} else {
			for _, f := range query.Fields {
				entity.Remove(f)
			}
			err = m.put(ctx, id, document(entity, time.Time{}))
		}
		if err != nil && !common.IsNotFound(err) {
			return adapter.WrapError(dbcapabilities.RavenDB, "delete", err)
		}
	}
	return nil
}

// Select runs the query.
func (m *DocumentManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	rql, params, err := selectRQL(query)
	if err != nil {
		return nil, err
	}
	docs, err := m.query(ctx, rql, params)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.RavenDB, "select", err)
	}
	entities := make([]communication.Entity, 0, len(docs))
	for _, doc := range docs {
		entities = append(entities, toEntity(query.Entity, doc))
	}
	return entities, nil
}

// Count reads the collection size from the collection statistics.
func (m *DocumentManager) Count(ctx context.Context, entity string) (int64, error) {
	if entity == "" {
		return 0, communication.ErrEntityRequired
	}
	if !m.conn.IsConnected() {
		return 0, adapter.ErrConnectionClosed
	}
	var stats struct {
		Collections map[string]interface{} `json:"Collections"`
	}
	if err := m.conn.client.Do(ctx, http.MethodGet, m.conn.path("collections", "stats"), nil, nil, &stats); err != nil {
		return 0, adapter.WrapError(dbcapabilities.RavenDB, "count", err)
	}
	n, ok := stats.Collections[entity]
	if !ok {
		return 0, nil
	}
	return cast.ToInt64E(common.NormalizeJSON(n))
}

// Close is a no-op.
func (m *DocumentManager) Close() error {
	return nil
}
