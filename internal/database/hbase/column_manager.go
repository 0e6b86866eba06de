package hbase

import (
	"context"
	"time"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// ColumnManager implements communication.ColumnManager. Entities are tables, the "id"
// element is the row key and other elements are family:qualifier columns.
type ColumnManager struct {
	store     store
	namespace string
	family    string
	connected func() bool
}

func (m *ColumnManager) table(entity string) (string, error) {
	if !m.connected() {
		return "", adapter.ErrConnectionClosed
	}
	if entity == "" {
		return "", communication.ErrEntityRequired
	}
	if m.namespace == "" || m.namespace == "default" {
		return entity, nil
	}
	return m.namespace + ":" + entity, nil
}

func (m *ColumnManager) put(ctx context.Context, entity communication.Entity, ttl time.Duration, op string) (communication.Entity, error) {
	table, err := m.table(entity.Name)
	if err != nil {
		return communication.Entity{}, err
	}
	key, err := common.EnsureKey(&entity, keyField, false)
	if err != nil {
		return communication.Entity{}, err
	}
	cols, err := toColumns(entity, m.family)
	if err != nil {
		return communication.Entity{}, err
	}
	if len(cols) == 0 {
		return communication.Entity{}, adapter.NewUnsupportedOperationError(dbcapabilities.HBase, op, "a row needs at least one column")
	}
	if err := m.store.put(ctx, table, key, cols, ttl); err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.HBase, op, err)
	}
	return entity, nil
}

// Insert puts the row.
func (m *ColumnManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return m.put(ctx, entity, 0, "insert")
}

// InsertTTL puts the row with a cell TTL.
func (m *ColumnManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return m.put(ctx, entity, ttl, "insert")
}

// InsertAll puts the rows one by one.
func (m *ColumnManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Insert)
}

// Update puts the row; HBase puts overwrite the given columns.
func (m *ColumnManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return m.put(ctx, entity, 0, "update")
}

// UpdateAll puts the rows one by one.
func (m *ColumnManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

// rows fetches the rows a condition names, or scans the table for a nil condition.
func (m *ColumnManager) rows(ctx context.Context, table string, c *communication.Condition) ([]row, error) {
	keys, all, err := rowKeys(c)
	if err != nil {
		return nil, err
	}
	if all {
		rows, err := m.store.scan(ctx, table, false)
		if err != nil {
			return nil, adapter.WrapError(dbcapabilities.HBase, "scan", err)
		}
		return rows, nil
	}
	rows := make([]row, 0, len(keys))
	for _, k := range keys {
		r, found, err := m.store.get(ctx, table, k)
		if err != nil {
			return nil, adapter.WrapError(dbcapabilities.HBase, "get", err)
		}
		if found {
			rows = append(rows, r)
		}
	}
	return rows, nil
}

// Delete removes the rows, or only query.Fields of them.
func (m *ColumnManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	table, err := m.table(query.Entity)
	if err != nil {
		return err
	}
	keys, all, err := rowKeys(query.Condition)
	if err != nil {
		return err
	}
	if all {
		rows, err := m.store.scan(ctx, table, true)
		if err != nil {
			return adapter.WrapError(dbcapabilities.HBase, "delete", err)
		}
		for _, r := range rows {
			keys = append(keys, r.key)
		}
	}

	var cols columns
	if len(query.Fields) > 0 {
		cols = fieldColumns(query.Fields, m.family)
	}
	for _, k := range keys {
		if err := m.store.delete(ctx, table, k, cols); err != nil {
			return adapter.WrapError(dbcapabilities.HBase, "delete", err)
		}
	}
	return nil
}

// Select fetches the rows and applies sort, paging and projection client-side.
func (m *ColumnManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	table, err := m.table(query.Entity)
	if err != nil {
		return nil, err
	}
	rows, err := m.rows(ctx, table, query.Condition)
	if err != nil {
		return nil, err
	}

	entities := make([]communication.Entity, 0, len(rows))
	for _, r := range rows {
		entities = append(entities, toEntity(query.Entity, r, m.family))
	}
	communication.SortEntities(entities, query.Sorts)
	entities = communication.Paginate(entities, query.Skip, query.Limit)
	for i := range entities {
		entities[i] = communication.Project(entities[i], query.Fields)
	}
	return entities, nil
}

// Count scans the row keys of the table.
func (m *ColumnManager) Count(ctx context.Context, entity string) (int64, error) {
	table, err := m.table(entity)
	if err != nil {
		return 0, err
	}
	rows, err := m.store.scan(ctx, table, true)
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.HBase, "count", err)
	}
	return int64(len(rows)), nil
}

// Close is a no-op; the connection owns the client.
func (m *ColumnManager) Close() error {
	return nil
}
