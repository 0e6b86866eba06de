package dynamodb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const (
	bucketKeyAttr   = "key"
	bucketValueAttr = "value"
	batchGetLimit   = 100
)

// BucketManagerFactory opens buckets stored as tables with a string "key" partition key.
type BucketManagerFactory struct {
	conn *Connection
}

// Bucket returns the bucket backed by the table of the same name.
func (f *BucketManagerFactory) Bucket(name string) (communication.BucketManager, error) {
	if name == "" {
		return nil, adapter.NewConfigurationError(dbcapabilities.DynamoDB, "bucket", "a bucket name is required")
	}
	return &BucketManager{conn: f.conn, name: name, table: f.conn.table(name)}, nil
}

// Close is a no-op.
func (f *BucketManagerFactory) Close() error {
	return nil
}

// BucketManager keeps each value as the JSON text of the "value" attribute.
type BucketManager struct {
	conn  *Connection
	name  string
	table string
}

// Name returns the bucket name.
func (b *BucketManager) Name() string {
	return b.name
}

func (b *BucketManager) key(key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{bucketKeyAttr: &types.AttributeValueMemberS{Value: key}}
}

func (b *BucketManager) item(key string, value interface{}, ttl time.Duration) (map[string]types.AttributeValue, error) {
	if key == "" {
		return nil, communication.KeyRequired(bucketKeyAttr)
	}
	encoded, err := communication.EncodeValue(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	item := b.key(key)
	item[bucketValueAttr] = &types.AttributeValueMemberS{Value: string(encoded)}
	if ttl > 0 {
		expires := strconv.FormatInt(time.Now().Add(ttl).Unix(), 10)
		item[b.conn.ttlAttr] = &types.AttributeValueMemberN{Value: expires}
	}
	return item, nil
}

func (b *BucketManager) put(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !b.conn.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	item, err := b.item(key, value, ttl)
	if err != nil {
		return err
	}
	_, err = b.conn.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(b.table), Item: item})
	return adapter.WrapError(dbcapabilities.DynamoDB, "put", err)
}

// Put stores value under key.
func (b *BucketManager) Put(ctx context.Context, key string, value interface{}) error {
	return b.put(ctx, key, value, 0)
}

// PutTTL stores value with an expiry attribute.
func (b *BucketManager) PutTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return b.put(ctx, key, value, ttl)
}

// PutAll writes the values with BatchWriteItem.
func (b *BucketManager) PutAll(ctx context.Context, values []communication.KeyValue) error {
	if !b.conn.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	for start := 0; start < len(values); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(values) {
			end = len(values)
		}
		requests := make([]types.WriteRequest, 0, end-start)
		for _, kv := range values[start:end] {
			item, err := b.item(kv.Key, kv.Value, 0)
			if err != nil {
				return err
			}
			requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
		}
		if err := batchWrite(ctx, b.conn.client, b.table, requests); err != nil {
			return err
		}
	}
	return nil
}

// value returns the payload of an item unless its expiry has passed. Expired items
// linger until DynamoDB removes them.
func (b *BucketManager) value(item map[string]types.AttributeValue, now time.Time) (communication.Value, bool) {
	if exp, ok := item[b.conn.ttlAttr].(*types.AttributeValueMemberN); ok {
		if sec, err := strconv.ParseInt(exp.Value, 10, 64); err == nil && sec <= now.Unix() {
			return nil, false
		}
	}
	v, ok := item[bucketValueAttr].(*types.AttributeValueMemberS)
	if !ok {
		return nil, false
	}
	return communication.Value(v.Value), true
}

// Get reads the item with a consistent read.
func (b *BucketManager) Get(ctx context.Context, key string) (communication.Value, bool, error) {
	if !b.conn.IsConnected() {
		return nil, false, adapter.ErrConnectionClosed
	}
	if key == "" {
		return nil, false, communication.KeyRequired(bucketKeyAttr)
	}
	out, err := b.conn.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(b.table),
		Key:            b.key(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, false, adapter.WrapError(dbcapabilities.DynamoDB, "get", err)
	}
	if len(out.Item) == 0 {
		return nil, false, nil
	}
	v, ok := b.value(out.Item, time.Now())
	return v, ok, nil
}

// GetAll reads the keys with BatchGetItem and returns the present ones in request order.
func (b *BucketManager) GetAll(ctx context.Context, keys []string) ([]communication.KeyValue, error) {
	if !b.conn.IsConnected() {
		return nil, adapter.ErrConnectionClosed
	}
	found := make(map[string]communication.Value, len(keys))
	now := time.Now()
	for start := 0; start < len(keys); start += batchGetLimit {
		end := start + batchGetLimit
		if end > len(keys) {
			end = len(keys)
		}
		seen := make(map[string]bool)
		var request []map[string]types.AttributeValue
		for _, k := range keys[start:end] {
			if k == "" || seen[k] {
				continue
			}
			seen[k] = true
			request = append(request, b.key(k))
		}
		pending := map[string]types.KeysAndAttributes{b.table: {Keys: request, ConsistentRead: aws.Bool(true)}}
		for len(pending[b.table].Keys) > 0 {
			out, err := b.conn.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: pending})
			if err != nil {
				return nil, adapter.WrapError(dbcapabilities.DynamoDB, "batch get", err)
			}
			for _, item := range out.Responses[b.table] {
				k, ok := item[bucketKeyAttr].(*types.AttributeValueMemberS)
				if !ok {
					continue
				}
				if v, ok := b.value(item, now); ok {
					found[k.Value] = v
				}
			}
			pending = out.UnprocessedKeys
		}
	}

	out := make([]communication.KeyValue, 0, len(found))
	for _, k := range keys {
		if v, ok := found[k]; ok {
			out = append(out, communication.KeyValue{Key: k, Value: v})
			delete(found, k)
		}
	}
	return out, nil
}

// Delete removes the item; absent keys are not an error.
func (b *BucketManager) Delete(ctx context.Context, key string) error {
	if !b.conn.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	if key == "" {
		return communication.KeyRequired(bucketKeyAttr)
	}
	_, err := b.conn.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{TableName: aws.String(b.table), Key: b.key(key)})
	return adapter.WrapError(dbcapabilities.DynamoDB, "delete", err)
}

// DeleteAll removes the keys with BatchWriteItem.
func (b *BucketManager) DeleteAll(ctx context.Context, keys []string) error {
	if !b.conn.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	seen := make(map[string]bool)
	items := make([]map[string]types.AttributeValue, 0, len(keys))
	for _, k := range keys {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		items = append(items, b.key(k))
	}
	return deleteKeys(ctx, b.conn.client, b.table, items)
}

// Close is a no-op.
func (b *BucketManager) Close() error {
	return nil
}
