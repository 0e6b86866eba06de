package memcached

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const maxKeyLength = 250

// ErrInvalidKey is returned for keys memcached cannot store.
var ErrInvalidKey = errors.New("invalid memcached key")

// client is the part of *memcache.Client the buckets use.
type client interface {
	Set(item *memcache.Item) error
	Get(key string) (*memcache.Item, error)
	GetMulti(keys []string) (map[string]*memcache.Item, error)
	Delete(key string) error
}

// BucketManagerFactory opens buckets on a memcached client.
type BucketManagerFactory struct {
	client    client
	connected func() bool
}

// Bucket returns the bucket whose keys are stored as "<name>:<key>".
func (f *BucketManagerFactory) Bucket(name string) (communication.BucketManager, error) {
	if err := validateKey(name + ":"); err != nil {
		return nil, err
	}
	return &BucketManager{name: name, client: f.client, connected: f.connected}, nil
}

// Close is a no-op; the connection owns the client.
func (f *BucketManagerFactory) Close() error {
	return nil
}

// validateKey enforces the memcached key rules: at most 250 bytes, no whitespace or
// control characters.
func validateKey(key string) error {
	if key == "" {
		return communication.KeyRequired("key")
	}
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: %d bytes exceeds %d", ErrInvalidKey, len(key), maxKeyLength)
	}
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return fmt.Errorf("%w: %q contains whitespace or control characters", ErrInvalidKey, key)
		}
	}
	return nil
}

// expiration converts a ttl into memcached seconds. Values above 30 days are sent as
// absolute unix times.
func expiration(ttl time.Duration, now time.Time) (int32, error) {
	if ttl <= 0 {
		return 0, nil
	}
	seconds := int64(math.Ceil(ttl.Seconds()))
	const relativeLimit = 60 * 60 * 24 * 30
	if seconds > relativeLimit {
		seconds += now.Unix()
	}
	if seconds > math.MaxInt32 {
		return 0, fmt.Errorf("ttl %s is too large", ttl)
	}
	return int32(seconds), nil
}

// BucketManager stores JSON values in memcached.
type BucketManager struct {
	name      string
	client    client
	connected func() bool
}

func (b *BucketManager) key(k string) (string, error) {
	if b.connected != nil && !b.connected() {
		return "", adapter.ErrConnectionClosed
	}
	if k == "" {
		return "", communication.KeyRequired("key")
	}
	full := b.name + ":" + k
	return full, validateKey(full)
}

// Name returns the bucket name.
func (b *BucketManager) Name() string {
	return b.name
}

// Put stores value without expiry.
func (b *BucketManager) Put(ctx context.Context, key string, value interface{}) error {
	return b.PutTTL(ctx, key, value, 0)
}

// PutTTL stores value expiring after ttl.
func (b *BucketManager) PutTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	full, err := b.key(key)
	if err != nil {
		return err
	}
	v, err := communication.EncodeValue(value)
	if err != nil {
		return err
	}
	exp, err := expiration(ttl, time.Now())
	if err != nil {
		return err
	}
	if err := b.client.Set(&memcache.Item{Key: full, Value: v, Expiration: exp}); err != nil {
		return adapter.WrapError(dbcapabilities.Memcached, "put", err)
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

// Get returns the value under key; false on a cache miss.
func (b *BucketManager) Get(ctx context.Context, key string) (communication.Value, bool, error) {
	full, err := b.key(key)
	if err != nil {
		return nil, false, err
	}
	item, err := b.client.Get(full)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, adapter.WrapError(dbcapabilities.Memcached, "get", err)
	}
	return communication.Value(item.Value), true, nil
}

// GetAll fetches the keys with one multi-get, keeping the requested order.
func (b *BucketManager) GetAll(ctx context.Context, keys []string) ([]communication.KeyValue, error) {
	full := make([]string, len(keys))
	for i, k := range keys {
		f, err := b.key(k)
		if err != nil {
			return nil, err
		}
		full[i] = f
	}
	items, err := b.client.GetMulti(full)
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.Memcached, "get", err)
	}
	out := make([]communication.KeyValue, 0, len(items))
	for i, f := range full {
		if item, ok := items[f]; ok {
			out = append(out, communication.KeyValue{Key: keys[i], Value: communication.Value(item.Value)})
		}
	}
	return out, nil
}

// Delete removes key; deleting a missing key is not an error.
func (b *BucketManager) Delete(ctx context.Context, key string) error {
	full, err := b.key(key)
	if err != nil {
		return err
	}
	if err := b.client.Delete(full); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return adapter.WrapError(dbcapabilities.Memcached, "delete", err)
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
