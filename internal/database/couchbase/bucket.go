package couchbase

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/couchbase/gocb/v2"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// BucketManagerFactory opens collections of the scope as key-value buckets.
type BucketManagerFactory struct {
	conn *Connection
}

// Bucket returns the bucket backed by the named collection, which must exist.
func (f *BucketManagerFactory) Bucket(name string) (communication.BucketManager, error) {
	coll, err := f.conn.collection(name)
	if err != nil {
		return nil, err
	}
	return &BucketManager{name: name, coll: coll, conn: f.conn}, nil
}

// Close is a no-op.
func (f *BucketManagerFactory) Close() error {
	return nil
}

// BucketManager stores JSON values as whole documents.
type BucketManager struct {
	name string
	coll *gocb.Collection
	conn *Connection
}

// Name returns the bucket name.
func (b *BucketManager) Name() string {
	return b.name
}

func (b *BucketManager) check(key string) error {
	if !b.conn.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	if key == "" {
		return communication.KeyRequired("key")
	}
	return nil
}

// Put stores value under key.
func (b *BucketManager) Put(ctx context.Context, key string, value interface{}) error {
	return b.PutTTL(ctx, key, value, 0)
}

// PutTTL stores value under key with an expiry; zero means none.
func (b *BucketManager) PutTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := b.check(key); err != nil {
		return err
	}
	v, err := communication.EncodeValue(value)
	if err != nil {
		return err
	}
	if _, err := b.coll.Upsert(key, json.RawMessage(v), &gocb.UpsertOptions{Expiry: ttl, Context: ctx}); err != nil {
		return adapter.WrapError(dbcapabilities.Couchbase, "put", err)
	}
	return nil
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
	if err := b.check(key); err != nil {
		return nil, false, err
	}
	res, err := b.coll.Get(key, &gocb.GetOptions{Context: ctx})
	if errors.Is(err, gocb.ErrDocumentNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, adapter.WrapError(dbcapabilities.Couchbase, "get", err)
	}
	var raw json.RawMessage
	if err := res.Content(&raw); err != nil {
		return nil, false, adapter.WrapError(dbcapabilities.Couchbase, "get", err)
	}
	return communication.Value(raw), true, nil
}

// GetAll reads the keys one by one, skipping absent ones.
func (b *BucketManager) GetAll(ctx context.Context, keys []string) ([]communication.KeyValue, error) {
	out := make([]communication.KeyValue, 0, len(keys))
	for _, k := range keys {
		v, found, err := b.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, communication.KeyValue{Key: k, Value: v})
		}
	}
	return out, nil
}

// Delete removes key; a missing key is not an error.
func (b *BucketManager) Delete(ctx context.Context, key string) error {
	if err := b.check(key); err != nil {
		return err
	}
	_, err := b.coll.Remove(key, &gocb.RemoveOptions{Context: ctx})
	if err != nil && !errors.Is(err, gocb.ErrDocumentNotFound) {
		return adapter.WrapError(dbcapabilities.Couchbase, "delete", err)
	}
	return nil
}

// DeleteAll removes the keys one by one.
func (b *BucketManager) DeleteAll(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := b.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op.
func (b *BucketManager) Close() error {
	return nil
}
