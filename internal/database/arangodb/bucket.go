package arangodb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const (
	upsertAQL = "UPSERT { _key: @key } INSERT { _key: @key, value: @value } REPLACE { _key: @key, value: @value } IN @@collection"
	getAllAQL = "FOR d IN @@collection FILTER d._key IN @keys RETURN { _key: d._key, value: d.value }"
	removeAQL = "FOR k IN @keys REMOVE k IN @@collection OPTIONS { ignoreErrors: true }"
)

// BucketManagerFactory opens ArangoDB collections as buckets.
type BucketManagerFactory struct {
	store     store
	connected func() bool
}

// Bucket returns the bucket stored in the named collection.
func (f *BucketManagerFactory) Bucket(name string) (communication.BucketManager, error) {
	if name == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.ArangoDB, "bucket", "bucket name is required")
	}
	return &BucketManager{name: name, store: f.store, connected: f.connected}, nil
}

// Close is a no-op.
func (f *BucketManagerFactory) Close() error {
	return nil
}

// BucketManager stores values as {_key, value} documents.
type BucketManager struct {
	name      string
	store     store
	connected func() bool
}

type bucketDocument struct {
	Key   string          `json:"_key"`
	Value json.RawMessage `json:"value"`
}

// Name returns the bucket name.
func (b *BucketManager) Name() string {
	return b.name
}

func (b *BucketManager) check() error {
	if !b.connected() {
		return adapter.ErrConnectionClosed
	}
	return nil
}

// Put stores value under key, replacing an existing entry.
func (b *BucketManager) Put(ctx context.Context, key string, value interface{}) error {
	if err := b.check(); err != nil {
		return err
	}
	if key == "" {
		return communication.KeyRequired("key")
	}
	v, err := communication.EncodeValue(value)
	if err != nil {
		return err
	}
	if err := b.store.createCollection(ctx, b.name); err != nil {
		return adapter.WrapError(dbcapabilities.ArangoDB, "put", err)
	}
	vars := map[string]interface{}{
		collectionBV: b.name,
		"key":         key,
		"value":       json.RawMessage(v),
	}
	if _, err := b.store.query(ctx, upsertAQL, vars); err != nil {
		return adapter.WrapError(dbcapabilities.ArangoDB, "put", err)
	}
	return nil
}

// PutTTL is not supported.
func (b *BucketManager) PutTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return adapter.NewUnsupportedOperationError(dbcapabilities.ArangoDB, "put with ttl", "expiry is configured with a TTL index")
}

// PutAll stores the values one by one.
func (b *BucketManager) PutAll(ctx context.Context, values []communication.KeyValue) error {
	for _, kv := range values {
		if err := b.Put(ctx, kv.Key, kv.Value); err != nil {
			return err
		}
	}
	return nil
}

// Get reads the value under key.
func (b *BucketManager) Get(ctx context.Context, key string) (communication.Value, bool, error) {
	if err := b.check(); err != nil {
		return nil, false, err
	}
	var doc bucketDocument
	found, err := b.store.readDocument(ctx, b.name, key, &doc)
	if err != nil {
		return nil, false, adapter.WrapError(dbcapabilities.ArangoDB, "get", err)
	}
	if !found {
		return nil, false, nil
	}
	return communication.Value(doc.Value), true, nil
}

// GetAll reads the keys with one query, in request order.
func (b *BucketManager) GetAll(ctx context.Context, keys []string) ([]communication.KeyValue, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	exists, err := b.store.hasCollection(ctx, b.name)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.ArangoDB, "get all", err)
	}
	if !exists || len(keys) == 0 {
		return []communication.KeyValue{}, nil
	}

	rows, err := b.store.query(ctx, getAllAQL, map[string]interface{}{collectionBV: b.name, "keys": keys})
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.ArangoDB, "get all", err)
	}

	found := make(map[string]communication.Value, len(rows))
	for _, row := range rows {
		k, _ := row["_key"].(string)
		v, err := json.Marshal(row["value"])
		if err != nil {
			return nil, err
		}
		found[k] = communication.Value(v)
	}

	out := make([]communication.KeyValue, 0, len(found))
	for _, k := range keys {
		if v, ok := found[k]; ok {
			out = append(out, communication.KeyValue{Key: k, Value: v})
		}
	}
	return out, nil
}

// Delete removes key; a missing key is not an error.
func (b *BucketManager) Delete(ctx context.Context, key string) error {
	return b.DeleteAll(ctx, []string{key})
}

// DeleteAll removes the keys with one query.
func (b *BucketManager) DeleteAll(ctx context.Context, keys []string) error {
	if err := b.check(); err != nil || len(keys) == 0 {
		return err
	}
	exists, err := b.store.hasCollection(ctx, b.name)
	if err != nil {
		return adapter.WrapError(dbcapabilities.ArangoDB, "delete", err)
	}
	if !exists {
		return nil
	}
	if _, err := b.store.query(ctx, removeAQL, map[string]interface{}{collectionBV: b.name, "keys": keys}); err != nil {
		return adapter.WrapError(dbcapabilities.ArangoDB, "delete", err)
	}
	return nil
}

// Close is a no-op.
func (b *BucketManager) Close() error {
	return nil
}
