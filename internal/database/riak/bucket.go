package riak

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// BucketManagerFactory opens Riak buckets.
type BucketManagerFactory struct {
	conn *Connection
}

// Bucket returns the named bucket.
func (f *BucketManagerFactory) Bucket(name string) (communication.BucketManager, error) {
	if name == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.Riak, "bucket", "bucket name is required")
	}
	return &BucketManager{name: name, conn: f.conn}, nil
}

// Close is a no-op.
func (f *BucketManagerFactory) Close() error {
	return nil
}

// BucketManager reads and writes objects under /types/{type}/buckets/{bucket}/keys/{key}.
type BucketManager struct {
	name string
	conn *Connection
}

func (b *BucketManager) path(key string) (string, error) {
	if !b.conn.IsConnected() {
		return "", adapter.ErrConnectionClosed
	}
	if key == "" {
		return "", communication.KeyRequired("key")
	}
	return common.PathEscape("types", b.conn.bucketType, "buckets", b.name, "keys", key), nil
}

// Name returns the bucket name.
func (b *BucketManager) Name() string {
	return b.name
}

// Put stores value as JSON.
func (b *BucketManager) Put(ctx context.Context, key string, value interface{}) error {
	p, err := b.path(key)
	if err != nil {
		return err
	}
	v, err := communication.EncodeValue(value)
	if err != nil {
		return err
	}
	if _, err := b.conn.client.DoRaw(ctx, http.MethodPut, p, nil, "application/json", v); err != nil {
		return adapter.WrapError(dbcapabilities.Riak, "put", err)
	}
	return nil
}

// PutTTL is not supported; Riak expiry is configured per backend.
func (b *BucketManager) PutTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return adapter.NewUnsupportedOperationError(dbcapabilities.Riak, "put with ttl", "expiry is a backend setting")
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

// Get returns the object under key; false on 404. Objects with siblings fail.
func (b *BucketManager) Get(ctx context.Context, key string) (communication.Value, bool, error) {
	p, err := b.path(key)
	if err != nil {
		return nil, false, err
	}
	res, err := b.conn.client.DoRaw(ctx, http.MethodGet, p, nil, "", nil)
	if common.IsNotFound(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, adapter.WrapError(dbcapabilities.Riak, "get", err)
	}
	return communication.Value(res.Body), true, nil
}

// GetAll fetches the keys one by one, skipping absent ones.
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
	p, err := b.path(key)
	if err != nil {
		return err
	}
	_, err = b.conn.client.DoRaw(ctx, http.MethodDelete, p, nil, "", nil)
	if err != nil && !common.IsNotFound(err) {
		return adapter.WrapError(dbcapabilities.Riak, "delete", fmt.Errorf("key %s: %w", url.PathEscape(key), err))
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
