package communication

import (
	"context"
	"encoding/json"
	"time"
)

// entityManager is the contract shared by document and column managers.
type entityManager interface {
	// Insert stores an entity and returns it as stored (with any generated key).
	Insert(ctx context.Context, entity Entity) (Entity, error)

	// InsertTTL stores an entity that expires after ttl.
	InsertTTL(ctx context.Context, entity Entity, ttl time.Duration) (Entity, error)

	// InsertAll stores several entities.
	InsertAll(ctx context.Context, entities []Entity) ([]Entity, error)

	// Update replaces a stored entity identified by its key element.
	Update(ctx context.Context, entity Entity) (Entity, error)

	// UpdateAll updates several entities.
	UpdateAll(ctx context.Context, entities []Entity) ([]Entity, error)

	// Delete removes the entities, or only the listed fields, matching the query.
	Delete(ctx context.Context, query DeleteQuery) error

	// Select returns the entities matching the query.
	Select(ctx context.Context, query SelectQuery) ([]Entity, error)

	// Count returns the number of entities stored under the entity name.
	Count(ctx context.Context, entity string) (int64, error)

	// Close releases the manager.
	Close() error
}

// DocumentManager reads and writes documents.
type DocumentManager interface {
	entityManager
}

// ColumnManager reads and writes column family rows.
type ColumnManager interface {
	entityManager
}

// Selector is satisfied by both document and column managers.
type Selector interface {
	Select(ctx context.Context, query SelectQuery) ([]Entity, error)
}

// SingleResult runs the query and returns its only entity. The boolean is false when
// nothing matched; more than one match fails with ErrNonUniqueResult.
func SingleResult(ctx context.Context, m Selector, query SelectQuery) (Entity, bool, error) {
	entities, err := m.Select(ctx, query)
	if err != nil {
		return Entity{}, false, err
	}
	switch len(entities) {
	case 0:
		return Entity{}, false, nil
	case 1:
		return entities[0], true, nil
	default:
		return Entity{}, false, ErrNonUniqueResult
	}
}

// InsertEach inserts entities one at a time through insert.
func InsertEach(ctx context.Context, entities []Entity, insert func(context.Context, Entity) (Entity, error)) ([]Entity, error) {
	out := make([]Entity, 0, len(entities))
	for _, e := range entities {
		stored, err := insert(ctx, e)
		if err != nil {
			return out, err
		}
		out = append(out, stored)
	}
	return out, nil
}

// Value is a stored key-value payload in its JSON encoding.
type Value []byte

// EncodeValue encodes v for storage. []byte and Value are stored as-is.
func EncodeValue(v interface{}) (Value, error) {
	switch t := v.(type) {
	case Value:
		return t, nil
	case []byte:
		return Value(t), nil
	case json.RawMessage:
		return Value(t), nil
	}
	b, err := json.Marshal(ToNative(v))
	if err != nil {
		return nil, err
	}
	return Value(b), nil
}

// Decode unmarshals the payload into dst.
func (v Value) Decode(dst interface{}) error {
	return json.Unmarshal(v, dst)
}

// Bytes returns the raw payload.
func (v Value) Bytes() []byte { return []byte(v) }

// String returns the payload, unquoting JSON strings.
func (v Value) String() string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	return string(v)
}

// KeyValue is a key with its value.
type KeyValue struct {
	Key   string
	Value interface{}
}

// BucketManager reads and writes values by key inside a bucket.
type BucketManager interface {
	// Name returns the bucket name.
	Name() string

	Put(ctx context.Context, key string, value interface{}) error
	PutTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	PutAll(ctx context.Context, values []KeyValue) error

	// Get returns the value stored under key; false when the key is absent.
	Get(ctx context.Context, key string) (Value, bool, error)

	// GetAll returns the present keys among keys, skipping absent ones.
	GetAll(ctx context.Context, keys []string) ([]KeyValue, error)

	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context, keys []string) error

	Close() error
}

// BucketManagerFactory opens bucket managers by name.
type BucketManagerFactory interface {
	Bucket(name string) (BucketManager, error)
	Close() error
}
