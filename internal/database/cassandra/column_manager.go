package cassandra

import (
	"context"
	"time"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// ColumnManager implements communication.ColumnManager. The entity name is the table
// and the elements are its columns, primary key included.
type ColumnManager struct {
	conn *Connection
}

func (m *ColumnManager) check(entity string) error {
	if !m.conn.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	if entity == "" {
		return communication.ErrEntityRequired
	}
	return nil
}

func (m *ColumnManager) insert(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	if err := m.check(entity.Name); err != nil {
		return communication.Entity{}, err
	}
	if len(entity.Elements) == 0 {
		return communication.Entity{}, communication.KeyRequired("primary key")
	}
	statement, args := insertCQL(entity, ttl)
	if err := m.conn.runner.exec(ctx, statement, args); err != nil {
		return communication.Entity{}, adapter.WrapError(dbcapabilities.Cassandra, "insert", err)
	}
	return entity.Clone(), nil
}

// Insert writes the row with INSERT.
func (m *ColumnManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return m.insert(ctx, entity, 0)
}

// InsertTTL writes the row with INSERT ... USING TTL.
func (m *ColumnManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return m.insert(ctx, entity, ttl)
}

// InsertAll inserts the rows one by one.
func (m *ColumnManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Insert)
}

// Update writes the row with INSERT; Cassandra writes are upserts.
func (m *ColumnManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return m.insert(ctx, entity, 0)
}

// UpdateAll updates the rows one by one.
func (m *ColumnManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

// Delete runs DELETE, or TRUNCATE for an unconditional delete.
func (m *ColumnManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	if err := m.check(query.Entity); err != nil {
		return err
	}
	nq, err := m.conn.translator.TranslateDelete(query)
	if err != nil {
		return err
	}
	args, _ := nq.Params["args"].([]interface{})
	return adapter.WrapError(dbcapabilities.Cassandra, "delete", m.conn.runner.exec(ctx, nq.Statement, args))
}

// Select runs the translated SELECT and drops the first Skip rows.
func (m *ColumnManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	if err := m.check(query.Entity); err != nil {
		return nil, err
	}
	nq, err := m.conn.translator.TranslateSelect(query)
	if err != nil {
		return nil, err
	}
	args, _ := nq.Params["args"].([]interface{})
	rows, err := m.conn.runner.rows(ctx, nq.Statement, args)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Cassandra, "select", err)
	}

	entities := make([]communication.Entity, 0, len(rows))
	for _, row := range rows {
		converted, _ := convertValue(row).(map[string]interface{})
		entities = append(entities, communication.EntityFromMap(query.Entity, converted))
	}
	return communication.Paginate(entities, query.Skip, 0), nil
}

// Count runs SELECT COUNT(*).
func (m *ColumnManager) Count(ctx context.Context, entity string) (int64, error) {
	if err := m.check(entity); err != nil {
		return 0, err
	}
	n, err := m.conn.runner.count(ctx, countCQL(entity))
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.Cassandra, "count", err)
	}
	return n, nil
}

// Close is a no-op; the connection owns the session.
func (m *ColumnManager) Close() error {
	return nil
}
