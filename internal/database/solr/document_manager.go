package solr

import (
	"context"
	"net/url"
	"time"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// DocumentManager implements communication.DocumentManager for a Solr core. Every
// entity kind shares the core; the kind is stored in the _entity field.
type DocumentManager struct {
	conn       *Connection
	commit     bool
	maxResults int
}

type selectResponse struct {
	Response struct {
		NumFound int64                    `json:"numFound"`
		Docs     []map[string]interface{} `json:"docs"`
	} `json:"response"`
}

func (m *DocumentManager) updateQuery() url.Values {
	q := url.Values{}
	if m.commit {
		q.Set("commit", "true")
	} else {
		q.Set("commitWithin", "1000")
	}
	return q
}

func (m *DocumentManager) update(ctx context.Context, op string, body interface{}) error {
	if !m.conn.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	if err := m.conn.client.Do(ctx, "POST", m.conn.path("/update"), m.updateQuery(), body, nil); err != nil {
		return adapter.WrapError(dbcapabilities.Solr, op, err)
	}
	return nil
}

func document(entity *communication.Entity, generate bool) (map[string]interface{}, error) {
	if entity.Name == "" {
		return nil, communication.ErrEntityRequired
	}
	if _, err := common.EnsureKey(entity, keyField, generate); err != nil {
		return nil, err
	}
	doc := entity.ToMap()
	doc[entityField] = entity.Name
	return doc, nil
}

// Insert adds the entity, generating an id when it has none.
func (m *DocumentManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	stored, err := m.InsertAll(ctx, []communication.Entity{entity})
	if err != nil {
		return communication.Entity{}, err
	}
	return stored[0], nil
}

// InsertTTL is not supported.
func (m *DocumentManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return communication.Entity{}, adapter.NewUnsupportedOperationError(dbcapabilities.Solr, "insert with ttl", "")
}

// InsertAll adds the entities with one update request.
func (m *DocumentManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	stored := make([]communication.Entity, 0, len(entities))
	docs := make([]map[string]interface{}, 0, len(entities))
	for _, e := range entities {
		s := e.Clone()
		doc, err := document(&s, true)
		if err != nil {
			return nil, err
		}
		stored = append(stored, s)
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return stored, nil
	}
	if err := m.update(ctx, "insert", docs); err != nil {
		return nil, err
	}
	return stored, nil
}

// Update overwrites the document with the entity's id.
func (m *DocumentManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	doc, err := document(&entity, false)
	if err != nil {
		return communication.Entity{}, err
	}
	if err := m.update(ctx, "update", []map[string]interface{}{doc}); err != nil {
		return communication.Entity{}, err
	}
	return entity, nil
}

// UpdateAll updates the entities one by one.
func (m *DocumentManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

// Delete removes the matching documents. With fields listed, those fields are set to
// null on every matching document through atomic updates.
func (m *DocumentManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	q, err := entityQuery(query.Entity, query.Condition)
	if err != nil {
		return err
	}
	if len(query.Fields) == 0 {
		return m.update(ctx, "delete", map[string]interface{}{"delete": map[string]interface{}{"query": q}})
	}

	matches, err := m.Select(ctx, communication.SelectQuery{
		Entity:    query.Entity,
		Fields:    []string{keyField},
		Condition: query.Condition,
	})
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}
	updates := make([]map[string]interface{}, 0, len(matches))
	for _, e := range matches {
		doc := map[string]interface{}{keyField: e.Value(keyField)}
		for _, f := range query.Fields {
			doc[f] = map[string]interface{}{"set": nil}
		}
		updates = append(updates, doc)
	}
	return m.update(ctx, "delete", updates)
}

func (m *DocumentManager) query(ctx context.Context, params url.Values) (selectResponse, error) {
	var res selectResponse
	if !m.conn.IsConnected() {
		return res, adapter.ErrConnectionClosed
	}
	err := m.conn.client.Do(ctx, "GET", m.conn.path("/select"), params, nil, &res)
	return res, err
}

// Select runs the query against /select.
func (m *DocumentManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	params, err := selectParams(query, m.maxResults)
	if err != nil {
		return nil, err
	}
	res, err := m.query(ctx, params)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Solr, "select", err)
	}

	entities := make([]communication.Entity, 0, len(res.Response.Docs))
	for _, doc := range res.Response.Docs {
		entities = append(entities, common.EntityFromJSON(query.Entity, doc, entityField, versionField))
	}
	return entities, nil
}

// Count returns numFound for the entity kind.
func (m *DocumentManager) Count(ctx context.Context, entity string) (int64, error) {
	q, err := entityQuery(entity, nil)
	if err != nil {
		return 0, err
	}
	params := url.Values{}
	params.Set("q", q)
	params.Set("rows", "0")
	params.Set("wt", "json")

	res, err := m.query(ctx, params)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.Solr, "count", err)
	}
	return res.Response.NumFound, nil
}

// Close is a no-op.
func (m *DocumentManager) Close() error {
	return nil
}
