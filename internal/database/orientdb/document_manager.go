package orientdb

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// DocumentManager implements communication.DocumentManager. Entities are classes
// and the record id @rid is the key.
type DocumentManager struct {
	conn *Connection
}

// toEntity keeps @rid and @version and drops the other record attributes.
func toEntity(name string, doc map[string]interface{}) communication.Entity {
	return common.EntityFromJSON(name, doc, classField, "@type", "@fieldTypes")
}

func (m *DocumentManager) documentPath(rid string) string {
	if rid == "" {
		return common.PathEscape("document", m.conn.database)
	}
	return common.PathEscape("document", m.conn.database, strings.TrimPrefix(rid, "#"))
}

// Insert creates the record and returns the entity with its @rid and @version.
func (m *DocumentManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if !m.conn.IsConnected() {
		return communication.Entity{}, adapter.ErrConnectionClosed
	}
	if entity.Name == "" {
		return communication.Entity{}, communication.ErrEntityRequired
	}
	doc := entity.ToMap()
	delete(doc, ridField)
	delete(doc, versionField)
	doc[classField] = entity.Name

	var created map[string]interface{}
	if err := m.conn.client.Do(ctx, http.MethodPost, m.documentPath(""), nil, doc, &created); err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.OrientDB, "insert", err)
	}
	stored := entity.Clone()
	stored.Add(ridField, cast.ToString(created[ridField]))
	if v, ok := created[versionField]; ok {
		stored.Add(versionField, common.NormalizeJSON(v))
	}
	return stored, nil
}

// InsertTTL is not supported by OrientDB.
func (m *DocumentManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return communication.Entity{}, adapter.NewUnsupportedOperationError(dbcapabilities.OrientDB, "insert with ttl", "records do not expire")
}

// InsertAll creates the records one by one.
func (m *DocumentManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Insert)
}

// Update replaces the record with the entity's @rid. A @version element is sent
// along for the optimistic concurrency check.
func (m *DocumentManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	if !m.conn.IsConnected() {
		return communication.Entity{}, adapter.ErrConnectionClosed
	}
	rid, err := common.EnsureKey(&entity, ridField, false)
	if err != nil {
		return communication.Entity{}, err
	}
	doc := entity.ToMap()
	doc[classField] = entity.Name

	var updated map[string]interface{}
	err = m.conn.client.Do(ctx, http.MethodPut, m.documentPath(rid), nil, doc, &updated)
	if common.IsNotFound(err) {
		return communication.Entity{}, adapter.NewNotFoundError(dbcapabilities.OrientDB, "record", rid)
	}
	if err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.OrientDB, "update", err)
	}
	out := entity.Clone()
	if v, ok := updated[versionField]; ok {
		out.Add(versionField, common.NormalizeJSON(v))
	}
	return out, nil
}

// UpdateAll replaces the records one by one.
func (m *DocumentManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

// Delete runs DELETE, or UPDATE ... REMOVE when query.Fields is set.
func (m *DocumentManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	stmt, params, err := deleteSQL(query)
	if err != nil {
		return err
	}
	if _, err := m.conn.command(ctx, stmt, params); err != nil {
		return adapter.WrapError(dbcapabilities.OrientDB, "delete", err)
	}
	return nil
}

// Select runs the SELECT statement.
func (m *DocumentManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	stmt, params, err := selectSQL(query)
	if err != nil {
		return nil, err
	}
	rows, err := m.conn.command(ctx, stmt, params)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.OrientDB, "select", err)
	}
	entities := make([]communication.Entity, 0, len(rows))
	for _, row := range rows {
		entities = append(entities, toEntity(query.Entity, row))
	}
	return entities, nil
}

// Count returns the number of records of the class.
func (m *DocumentManager) Count(ctx context.Context, entity string) (int64, error) {
	if entity == "" {
		return 0, communication.ErrEntityRequired
	}
	rows, err := m.conn.command(ctx, "SELECT count(*) AS count FROM "+class(entity), nil)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.OrientDB, "count", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return cast.ToInt64E(common.NormalizeJSON(rows[0]["count"]))
}

// Close is a no-op.
func (m *DocumentManager) Close() error {
	return nil
}
