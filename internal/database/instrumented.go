package database

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/metrics"
)

// instrumentation records a span, metrics and a log line for each manager call.
type instrumentation struct {
	databaseType string
	databaseID   string
	collector    *metrics.Collector
	tracer       *metrics.Tracer
	log          *DatabaseLogger
}

// run calls fn inside a span. fn returns the number of entities or values it moved.
func (in instrumentation) run(ctx context.Context, operation, entity string, fn func(context.Context) (int, error)) error {
	start := time.Now()
	attrs := []attribute.KeyValue{attribute.String("db.connection_id", in.databaseID)}
	if entity != "" {
		attrs = append(attrs, attribute.String("db.collection", entity))
	}
	ctx, end := in.tracer.Start(ctx, in.databaseType, operation, attrs...)

	n, err := fn(ctx)
	end(err)

	if in.collector != nil {
		in.collector.Observe(in.databaseType, operation, start, err)
		if err == nil {
			in.collector.AddEntities(in.databaseType, operation, n)
		}
	}

	logCtx := DatabaseLogContext{
		DatabaseType: in.databaseType,
		DatabaseID:   in.databaseID,
		Operation:    operation,
		Entity:       entity,
	}
	if err != nil {
		in.log.LogOperationFailure(logCtx, err)
	} else {
		in.log.LogOperationSuccess(logCtx)
	}
	return err
}

// entityManager is the common method set of document and column managers.
type entityManager interface {
	communication.DocumentManager
}

// instrumentedEntityManager wraps a document or column manager.
type instrumentedEntityManager struct {
	inner entityManager
	in    instrumentation
}

func (m *instrumentedEntityManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	var out communication.Entity
	err := m.in.run(ctx, "insert", entity.Name, func(ctx context.Context) (int, error) {
		var err error
		out, err = m.inner.Insert(ctx, entity)
		return 1, err
	})
	return out, err
}

func (m *instrumentedEntityManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	var out communication.Entity
	err := m.in.run(ctx, "insert_ttl", entity.Name, func(ctx context.Context) (int, error) {
		var err error
		out, err = m.inner.InsertTTL(ctx, entity, ttl)
		return 1, err
	})
	return out, err
}

func (m *instrumentedEntityManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	var out []communication.Entity
	err := m.in.run(ctx, "insert_all", firstName(entities), func(ctx context.Context) (int, error) {
		var err error
		out, err = m.inner.InsertAll(ctx, entities)
		return len(out), err
	})
	return out, err
}

func (m *instrumentedEntityManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	var out communication.Entity
	err := m.in.run(ctx, "update", entity.Name, func(ctx context.Context) (int, error) {
		var err error
		out, err = m.inner.Update(ctx, entity)
		return 1, err
	})
	return out, err
}

func (m *instrumentedEntityManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	var out []communication.Entity
	err := m.in.run(ctx, "update_all", firstName(entities), func(ctx context.Context) (int, error) {
		var err error
		out, err = m.inner.UpdateAll(ctx, entities)
		return len(out), err
	})
	return out, err
}

func (m *instrumentedEntityManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	return m.in.run(ctx, "delete", query.Entity, func(ctx context.Context) (int, error) {
		return 0, m.inner.Delete(ctx, query)
	})
}

func (m *instrumentedEntityManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	var out []communication.Entity
	err := m.in.run(ctx, "select", query.Entity, func(ctx context.Context) (int, error) {
		var err error
		out, err = m.inner.Select(ctx, query)
		return len(out), err
	})
	return out, err
}

func (m *instrumentedEntityManager) Count(ctx context.Context, entity string) (int64, error) {
	var n int64
	err := m.in.run(ctx, "count", entity, func(ctx context.Context) (int, error) {
		var err error
		n, err = m.inner.Count(ctx, entity)
		return 0, err
	})
	return n, err
}

func (m *instrumentedEntityManager) Close() error {
	return m.inner.Close()
}

func firstName(entities []communication.Entity) string {
	if len(entities) == 0 {
		return ""
	}
	return entities[0].Name
}

// instrumentedBucketManager wraps a bucket manager; the bucket name is the span's collection.
type instrumentedBucketManager struct {
	inner communication.BucketManager
	in    instrumentation
}

func (b *instrumentedBucketManager) Name() string {
	return b.inner.Name()
}

func (b *instrumentedBucketManager) Put(ctx context.Context, key string, value interface{}) error {
	return b.in.run(ctx, "put", b.inner.Name(), func(ctx context.Context) (int, error) {
		return 1, b.inner.Put(ctx, key, value)
	})
}

func (b *instrumentedBucketManager) PutTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return b.in.run(ctx, "put_ttl", b.inner.Name(), func(ctx context.Context) (int, error) {
		return 1, b.inner.PutTTL(ctx, key, value, ttl)
	})
}

func (b *instrumentedBucketManager) PutAll(ctx context.Context, values []communication.KeyValue) error {
	return b.in.run(ctx, "put_all", b.inner.Name(), func(ctx context.Context) (int, error) {
		return len(values), b.inner.PutAll(ctx, values)
	})
}

func (b *instrumentedBucketManager) Get(ctx context.Context, key string) (communication.Value, bool, error) {
	var (
		value communication.Value
		found bool
	)
	err := b.in.run(ctx, "get", b.inner.Name(), func(ctx context.Context) (int, error) {
		var err error
		value, found, err = b.inner.Get(ctx, key)
		if found {
			return 1, err
		}
		return 0, err
	})
	return value, found, err
}

func (b *instrumentedBucketManager) GetAll(ctx context.Context, keys []string) ([]communication.KeyValue, error) {
	var out []communication.KeyValue
	err := b.in.run(ctx, "get_all", b.inner.Name(), func(ctx context.Context) (int, error) {
		var err error
		out, err = b.inner.GetAll(ctx, keys)
		return len(out), err
	})
	return out, err
}

func (b *instrumentedBucketManager) Delete(ctx context.Context, key string) error {
	return b.in.run(ctx, "delete", b.inner.Name(), func(ctx context.Context) (int, error) {
		return 0, b.inner.Delete(ctx, key)
	})
}

func (b *instrumentedBucketManager) DeleteAll(ctx context.Context, keys []string) error {
	return b.in.run(ctx, "delete_all", b.inner.Name(), func(ctx context.Context) (int, error) {
		return 0, b.inner.DeleteAll(ctx, keys)
	})
}

func (b *instrumentedBucketManager) Close() error {
	return b.inner.Close()
}
