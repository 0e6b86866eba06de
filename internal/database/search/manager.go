package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// DocumentManager implements communication.DocumentManager on top of a Backend.
type DocumentManager struct {
	backend    Backend
	dbType     dbcapabilities.DatabaseID
	index      string
	maxResults int
	connected  func() bool
}

// NewDocumentManager creates a manager storing every entity kind in index. connected
// reports whether the owning connection is still open.
func NewDocumentManager(backend Backend, dbType dbcapabilities.DatabaseID, index string, maxResults int, connected func() bool) *DocumentManager {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &DocumentManager{
		backend:    backend,
		dbType:     dbType,
		index:      index,
		maxResults: maxResults,
		connected:  connected,
	}
}

func (m *DocumentManager) check() error {
	if m.connected != nil && !m.connected() {
		return adapter.ErrConnectionClosed
	}
	return nil
}

// source returns the document id and the JSON body stored for the entity.
func (m *DocumentManager) source(entity *communication.Entity, generate bool) (string, []byte, error) {
	if entity.Name == "" {
		return "", nil, communication.ErrEntityRequired
	}
	id, err := common.EnsureKey(entity, KeyField, generate)
	if err != nil {
		return "", nil, err
	}
	doc := entity.ToMap()
	delete(doc, KeyField)
	doc[EntityField] = entity.Name
	body, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("error encoding document: %w", err)
	}
	return id, body, nil
}

// Insert indexes the entity, generating an _id when it has none.
func (m *DocumentManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if err := m.check(); err != nil {
		return communication.Entity{}, err
	}
	stored := entity.Clone()
	id, body, err := m.source(&stored, true)
	if err != nil {
		return communication.Entity{}, err
	}
	if err := m.backend.Index(ctx, m.index, id, body); err != nil {
		return communication.Entity{}, adapter.WrapError(m.dbType, "insert", err)
	}
	return stored, nil
}

// InsertTTL is not supported by search engines.
func (m *DocumentManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return communication.Entity{}, adapter.NewUnsupportedOperationError(m.dbType, "insert with ttl", "documents do not expire")
}

// InsertAll indexes the entities with a single bulk request.
func (m *DocumentManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return []communication.Entity{}, nil
	}

	var buf bytes.Buffer
	stored := make([]communication.Entity, 0, len(entities))
	for _, e := range entities {
		s := e.Clone()
		id, body, err := m.source(&s, true)
		if err != nil {
			return nil, err
		}
		action := map[string]interface{}{"index": map[string]interface{}{"_index": m.index, "_id": id}}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return nil, fmt.Errorf("error encoding action: %w", err)
		}
		buf.Write(body)
		buf.WriteByte('\n')
		stored = append(stored, s)
	}

	res, err := m.backend.Bulk(ctx, m.index, buf.Bytes())
	if err != nil {
		return nil, adapter.WrapError(m.dbType, "insert", err)
	}
	if err := bulkError(res); err != nil {
		return nil, adapter.WrapError(m.dbType, "insert", err)
	}
	return stored, nil
}

// bulkError returns the first item error of a bulk response.
func bulkError(res []byte) error {
	var parsed struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID    string                 `json:"_id"`
			Error map[string]interface{} `json:"error"`
		} `json:"items"`
	}
	if err := json.Unmarshal(res, &parsed); err != nil {
		return fmt.Errorf("error parsing bulk response: %w", err)
	}
	if !parsed.Errors {
		return nil
	}
	for _, item := range parsed.Items {
		for action, result := range item {
			if result.Error != nil {
				return fmt.Errorf("bulk %s of %s failed: %v", action, result.ID, result.Error["reason"])
			}
		}
	}
	return fmt.Errorf("bulk request reported errors")
}

// Update reindexes the entity under its _id.
func (m *DocumentManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if err := m.check(); err != nil {
		return communication.Entity{}, err
	}
	id, body, err := m.source(&entity, false)
	if err != nil {
		return communication.Entity{}, err
	}
	if err := m.backend.Index(ctx, m.index, id, body); err != nil {
		return communication.Entity{}, adapter.WrapError(m.dbType, "update", err)
	}
	return entity, nil
}

// UpdateAll updates the entities one by one.
func (m *DocumentManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

// Delete runs a delete by query, or an update by query removing the listed fields.
func (m *DocumentManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	if err := m.check(); err != nil {
		return err
	}
	body, update, err := DeleteBody(string(m.dbType), query)
	if err != nil {
		return err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if update {
		err = m.backend.UpdateByQuery(ctx, m.index, data)
	} else {
		err = m.backend.DeleteByQuery(ctx, m.index, data)
	}
	if err != nil {
		return adapter.WrapError(m.dbType, "delete", err)
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string                 `json:"_id"`
			Source map[string]interface{} `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Select runs a search and converts the hits back to entities. Every entity starts
// with its _id unless the query lists fields without it.
func (m *DocumentManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	body, err := SearchBody(string(m.dbType), query, m.maxResults)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	res, err := m.backend.Search(ctx, m.index, data)
	if err != nil {
		return nil, adapter.WrapError(m.dbType, "select", err)
	}

	var parsed searchResponse
	decoder := json.NewDecoder(bytes.NewReader(res))
	decoder.UseNumber()
	if err := decoder.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("error parsing response: %w", err)
	}

	withKey := len(query.Fields) == 0
	for _, f := range query.Fields {
		withKey = withKey || f == KeyField
	}
	entities := make([]communication.Entity, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		e := common.EntityFromJSON(query.Entity, hit.Source, EntityField, KeyField)
		if withKey {
			e.Elements = append([]communication.Element{{Name: KeyField, Value: hit.ID}}, e.Elements...)
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// Count returns the number of documents of the entity kind.
func (m *DocumentManager) Count(ctx context.Context, entity string) (int64, error) {
	if err := m.check(); err != nil {
		return 0, err
	}
	query, err := EntityQuery(string(m.dbType), entity, nil)
	if err != nil {
		return 0, err
	}
	data, err := json.Marshal(map[string]interface{}{"query": query})
	if err != nil {
		return 0, err
	}
	res, err := m.backend.Count(ctx, m.index, data)
	if err != nil {
		return 0, adapter.WrapError(m.dbType, "count", err)
	}
	var parsed struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal(res, &parsed); err != nil {
		return 0, fmt.Errorf("error parsing count response: %w", err)
	}
	return parsed.Count, nil
}

// Close is a no-op; the connection owns the client.
func (m *DocumentManager) Close() error {
	return nil
}
