package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// batchWriteLimit is the maximum number of requests in one BatchWriteItem call.
const batchWriteLimit = 25

// DocumentManager implements communication.DocumentManager. Each entity name is a
// table and the table's partition key is the entity key.
type DocumentManager struct {
	conn *Connection
}

func (m *DocumentManager) check(entity string) error {
	if !m.conn.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	if entity == "" {
		return communication.ErrEntityRequired
	}
	return nil
}

func (m *DocumentManager) put(ctx context.Context, entity communication.Entity, ttl time.Duration, update bool) (communication.Entity, error) {
	if err := m.check(entity.Name); err != nil {
		return communication.Entity{}, err
	}
	table := m.conn.table(entity.Name)
	ks, err := m.conn.schema(ctx, table)
	if err != nil {
		return communication.Entity{}, err
	}

	stored := entity.Clone()
	// Only string partition keys are generated
	generate := !update && ks.hashType == types.ScalarAttributeTypeS
	if _, err := common.EnsureKey(&stored, ks.hash, generate); err != nil {
		return communication.Entity{}, err
	}
	if ks.rng != "" {
		if _, err := common.EnsureKey(&stored, ks.rng, false); err != nil {
			return communication.Entity{}, err
		}
	}
	if ttl > 0 {
		stored.Add(m.conn.ttlAttr, time.Now().Add(ttl).Unix())
	}

	item, err := marshalEntity(stored)
	if err != nil {
		return communication.Entity{}, fmt.Errorf("failed to marshal item: %w", err)
	}
	input := &dynamodb.PutItemInput{TableName: aws.String(table), Item: item}
	if update {
		input.ConditionExpression = aws.String("attribute_exists(#k)")
		input.ExpressionAttributeNames = map[string]string{"#k": ks.hash}
	}

	if _, err := m.conn.client.PutItem(ctx, input); err != nil {
		var failed *types.ConditionalCheckFailedException
		if update && errors.As(err, &failed) {
			return communication.Entity{}, adapter.NewNotFoundError(dbcapabilities.DynamoDB, "item", fmt.Sprint(stored.Value(ks.hash)))
		}
		return communication.Entity{}, adapter.WrapError(dbcapabilities.DynamoDB, "put item", err)
	}
	stored.Remove(m.conn.ttlAttr)
	return stored, nil
}

// Insert puts the entity as an item, generating a string partition key when missing.
func (m *DocumentManager) Insert(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return m.put(ctx, entity, 0, false)
}

// InsertTTL sets the expiry attribute to the epoch second the item expires at. The
// table's TTL setting must name the same attribute.
func (m *DocumentManager) InsertTTL(ctx context.Context, entity communication.Entity, ttl time.Duration) (communication.Entity, error) {
	return m.put(ctx, entity, ttl, false)
}

// InsertAll inserts entities one by one.
func (m *DocumentManager) InsertAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Insert)
}

// Update replaces an existing item; a missing item is a NotFoundError.
func (m *DocumentManager) Update(ctx context.Context, entity communication.Entity) (communication.Entity, error) {
	return m.put(ctx, entity, 0, true)
}

// UpdateAll updates entities one by one.
func (m *DocumentManager) UpdateAll(ctx context.Context, entities []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, entities, m.Update)
}

// scan runs a paginated scan, calling fn for each item until fn returns false.
func (m *DocumentManager) scan(ctx context.Context, table string, plan scanPlan, fn func(map[string]types.AttributeValue) bool) error {
	values, err := plan.expr.attributeValues()
	if err != nil {
		return err
	}
	input := &dynamodb.ScanInput{
		TableName:                 aws.String(table),
		ExpressionAttributeNames:  plan.expr.attributeNames(),
		ExpressionAttributeValues: values,
	}
	if plan.filter != "" {
		input.FilterExpression = aws.String(plan.filter)
	}
	if plan.projection != "" {
		input.ProjectionExpression = aws.String(plan.projection)
	}

	paginator := dynamodb.NewScanPaginator(m.conn.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return adapter.NewNotFoundError(dbcapabilities.DynamoDB, "table", table)
			}
			return err
		}
		for _, item := range page.Items {
			if !fn(item) {
				return nil
			}
		}
	}
	return nil
}

// Select scans the table with the translated filter. Sorting and paging are applied
// to the scanned items; without sorts the scan stops once skip+limit items matched.
func (m *DocumentManager) Select(ctx context.Context, query communication.SelectQuery) ([]communication.Entity, error) {
	if err := m.check(query.Entity); err != nil {
		return nil, err
	}

	fields := query.Fields
	if len(fields) > 0 {
		for _, s := range query.Sorts {
			fields = appendMissing(fields, s.Name)
		}
	}
	plan, err := buildScan(query.Entity, query.Condition, fields)
	if err != nil {
		return nil, err
	}

	stop := int64(-1)
	if len(query.Sorts) == 0 && query.Limit > 0 {
		stop = query.Skip + query.Limit
	}

	var entities []communication.Entity
	var decodeErr error
	table := m.conn.table(query.Entity)
	err = m.scan(ctx, table, plan, func(item map[string]types.AttributeValue) bool {
		entity, err := itemToEntity(query.Entity, item, m.conn.ttlAttr)
		if err != nil {
			decodeErr = err
			return false
		}
		entities = append(entities, entity)
		return stop < 0 || int64(len(entities)) < stop
	})
	if err == nil {
		err = decodeErr
	}
	if err != nil {
		return nil, adapter.WrapError(dbcapabilities.DynamoDB, "scan", err)
	}

	communication.SortEntities(entities, query.Sorts)
	entities = communication.Paginate(entities, query.Skip, query.Limit)
	if len(query.Fields) > 0 {
		for i := range entities {
			entities[i] = communication.Project(entities[i], query.Fields)
		}
	}
	if entities == nil {
		entities = []communication.Entity{}
	}
	return entities, nil
}

func appendMissing(fields []string, name string) []string {
	for _, f := range fields {
		if f == name {
			return fields
		}
	}
	out := make([]string, len(fields), len(fields)+1)
	copy(out, fields)
	return append(out, name)
}

// Delete scans the keys of the matching items. Whole items are removed with
// BatchWriteItem; field deletes run one REMOVE update per item.
func (m *DocumentManager) Delete(ctx context.Context, query communication.DeleteQuery) error {
	if err := m.check(query.Entity); err != nil {
		return err
	}
	table := m.conn.table(query.Entity)
	ks, err := m.conn.schema(ctx, table)
	if err != nil {
		return err
	}
	plan, err := buildScan(query.Entity, query.Condition, ks.names())
	if err != nil {
		return err
	}

	var keys []map[string]types.AttributeValue
	err = m.scan(ctx, table, plan, func(item map[string]types.AttributeValue) bool {
		keys = append(keys, keyOf(item, ks))
		return true
	})
	if err != nil {
		return adapter.WrapError(dbcapabilities.DynamoDB, "scan", err)
	}

	if len(query.Fields) > 0 {
		return m.removeFields(ctx, table, keys, query.Fields)
	}
	return deleteKeys(ctx, m.conn.client, table, keys)
}

func (m *DocumentManager) removeFields(ctx context.Context, table string, keys []map[string]types.AttributeValue, fields []string) error {
	expr := newExpression()
	update := "REMOVE " + expr.projection(fields)
	for _, key := range keys {
		_, err := m.conn.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:                aws.String(table),
			Key:                      key,
			UpdateExpression:         aws.String(update),
			ExpressionAttributeNames: expr.attributeNames(),
		})
		if err != nil {
			return adapter.WrapError(dbcapabilities.DynamoDB, "remove fields", err)
		}
	}
	return nil
}

// deleteKeys removes items in batches, resubmitting unprocessed requests.
func deleteKeys(ctx context.Context, client api, table string, keys []map[string]types.AttributeValue) error {
	for start := 0; start < len(keys); start += batchWriteLimit {
		end := start + batchWriteLimit
		if end > len(keys) {
			end = len(keys)
		}
		requests := make([]types.WriteRequest, 0, end-start)
		for _, key := range keys[start:end] {
			requests = append(requests, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: key}})
		}
		if err := batchWrite(ctx, client, table, requests); err != nil {
			return err
		}
	}
	return nil
}

func batchWrite(ctx context.Context, client api, table string, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{table: requests}
	for attempt := 0; len(pending[table]) > 0; attempt++ {
		if attempt > 0 {
			if attempt > 5 {
				return fmt.Errorf("%d write requests on %s left unprocessed", len(pending[table]), table)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt*50) * time.Millisecond):
			}
		}
		out, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return adapter.WrapError(dbcapabilities.DynamoDB, "batch write", err)
		}
		pending = out.UnprocessedItems
	}
	return nil
}

// Count scans the table with Select COUNT.
func (m *DocumentManager) Count(ctx context.Context, entity string) (int64, error) {
	if err := m.check(entity); err != nil {
		return 0, err
	}
	table := m.conn.table(entity)
	paginator := dynamodb.NewScanPaginator(m.conn.client, &dynamodb.ScanInput{
		TableName: aws.String(table),
		Select:    types.SelectCount,
	})
	var total int64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return 0, nil
			}
			return 0, adapter.WrapError(dbcapabilities.DynamoDB, "count", err)
		}
		total += int64(page.Count)
	}
	return total, nil
}

// Close is a no-op; the connection owns the client.
func (m *DocumentManager) Close() error {
	return nil
}
