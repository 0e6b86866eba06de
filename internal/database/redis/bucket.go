package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// BucketManagerFactory opens buckets and data structures on a Redis client.
type BucketManagerFactory struct {
	client    redis.UniversalClient
	connected func() bool
}

// NewBucketManagerFactory wraps an existing client.
func NewBucketManagerFactory(client redis.UniversalClient) *BucketManagerFactory {
	return &BucketManagerFactory{client: client}
}

// Bucket returns the bucket whose keys are stored as "<name>:<key>".
func (f *BucketManagerFactory) Bucket(name string) (communication.BucketManager, error) {
	if name == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.Redis, "bucket", "bucket name is required")
	}
	return &BucketManager{name: name, client: f.client, connected: f.connected}, nil
}

// List returns the list stored under key.
func (f *BucketManagerFactory) List(key string) *List {
	return &List{key: key, client: f.client}
}

// Set returns the set stored under key.
func (f *BucketManagerFactory) Set(key string) *Set {
	return &Set{key: key, client: f.client}
}

// Queue returns the FIFO queue stored under key.
func (f *BucketManagerFactory) Queue(key string) *Queue {
	return &Queue{key: key, client: f.client}
}

// Map returns the hash stored under key.
func (f *BucketManagerFactory) Map(key string) *Map {
	return &Map{key: key, client: f.client}
}

// SortedSet returns the sorted set stored under key.
func (f *BucketManagerFactory) SortedSet(key string) *SortedSet {
	return &SortedSet{key: key, client: f.client}
}

// Counter returns the integer counter stored under key.
func (f *BucketManagerFactory) Counter(key string) *Counter {
	return &Counter{key: key, client: f.client}
}

// Close is a no-op; the connection owns the client.
func (f *BucketManagerFactory) Close() error {
	return nil
}

// BucketManager stores JSON values under prefixed keys.
type BucketManager struct {
	name      string
	client    redis.UniversalClient
	connected func() bool
}

func (b *BucketManager) key(k string) string {
	return b.name + ":" + k
}

func (b *BucketManager) check(key string) error {
	if b.connected != nil && !b.connected() {
		return adapter.ErrConnectionClosed
	}
	if key == "" {
		return communication.KeyRequired("key")
	}
	return nil
}

// Name returns the bucket name.
func (b *BucketManager) Name() string {
	return b.name
}

// Put stores value under key without expiry.
func (b *BucketManager) Put(ctx context.Context, key string, value interface{}) error {
	return b.PutTTL(ctx, key, value, 0)
}

// PutTTL stores value under key, expiring after ttl when ttl is positive.
func (b *BucketManager) PutTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if err := b.check(key); err != nil {
		return err
	}
	v, err := communication.EncodeValue(value)
	if err != nil {
		return err
	}
	if err := b.client.Set(ctx, b.key(key), []byte(v), ttl).Err(); err != nil {
		return adapter.WrapError(dbcapabilities.Redis, "put", err)
	}
	return nil
}

// PutAll stores the values in one transaction.
func (b *BucketManager) PutAll(ctx context.Context, values []communication.KeyValue) error {
	if len(values) == 0 {
		return nil
	}
	encoded := make([][]byte, len(values))
	for i, kv := range values {
		if err := b.check(kv.Key); err != nil {
			return err
		}
		v, err := communication.EncodeValue(kv.Value)
		if err != nil {
			return err
		}
		encoded[i] = v
	}
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, kv := range values {
			pipe.Set(ctx, b.key(kv.Key), encoded[i], 0)
		}
		return nil
	})
	if err != nil {
		return adapter.WrapError(dbcapabilities.Redis, "put", err)
	}
	return nil
}

// Get returns the value under key; false when absent.
func (b *BucketManager) Get(ctx context.Context, key string) (communication.Value, bool, error) {
	if err := b.check(key); err != nil {
		return nil, false, err
	}
	data, err := b.client.Get(ctx, b.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, adapter.WrapError(dbcapabilities.Redis, "get", err)
	}
	return communication.Value(data), true, nil
}

// GetAll fetches the keys with MGET, skipping absent ones.
func (b *BucketManager) GetAll(ctx context.Context, keys []string) ([]communication.KeyValue, error) {
	if len(keys) == 0 {
		return []communication.KeyValue{}, nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		if err := b.check(k); err != nil {
			return nil, err
		}
		full[i] = b.key(k)
	}

	values, err := b.client.MGet(ctx, full...).Result()
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Redis, "get", err)
	}
	out := make([]communication.KeyValue, 0, len(keys))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, communication.KeyValue{Key: keys[i], Value: communication.Value(s)})
	}
	return out, nil
}

// Delete removes key.
func (b *BucketManager) Delete(ctx context.Context, key string) error {
	return b.DeleteAll(ctx, []string{key})
}

// DeleteAll removes the keys.
func (b *BucketManager) DeleteAll(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		if err := b.check(k); err != nil {
			return err
		}
		full[i] = b.key(k)
	}
	if err := b.client.Del(ctx, full...).Err(); err != nil {
		return adapter.WrapError(dbcapabilities.Redis, "delete", err)
	}
	return nil
}

// Close is a no-op.
func (b *BucketManager) Close() error {
	return nil
}
