package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
)

type fakeTable struct {
	hash  string
	order []string
	items map[string]map[string]types.AttributeValue
}

// fakeDynamo keeps tables in memory. Scans ignore filter expressions and record their input.
type fakeDynamo struct {
	mu     sync.Mutex
	tables map[string]*fakeTable
	scans  []*dynamodb.ScanInput
}

func newFakeDynamo(tables ...string) *fakeDynamo {
	f := &fakeDynamo{tables: make(map[string]*fakeTable)}
	for _, t := range tables {
		hash := "id"
		if strings.HasPrefix(t, "kv") {
			hash = bucketKeyAttr
		}
		f.tables[t] = &fakeTable{hash: hash, items: make(map[string]map[string]types.AttributeValue)}
	}
	return f
}

func attrString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	}
	return fmt.Sprint(av)
}

func (f *fakeDynamo) table(name *string) (*fakeTable, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found")}
	}
	return t, nil
}

func (t *fakeTable) put(item map[string]types.AttributeValue) {
	k := attrString(item[t.hash])
	if _, ok := t.items[k]; !ok {
		t.order = append(t.order, k)
	}
	t.items[k] = item
}

func (t *fakeTable) remove(key map[string]types.AttributeValue) {
	k := attrString(key[t.hash])
	delete(t.items, k)
	for i, o := range t.order {
		if o == k {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, in)
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if in.Select == types.SelectCount {
		return &dynamodb.ScanOutput{Count: int32(len(t.items))}, nil
	}
	out := &dynamodb.ScanOutput{}
	for _, k := range t.order {
		item := t.items[k]
		if in.ProjectionExpression != nil {
			projected := make(map[string]types.AttributeValue)
			for _, ph := range strings.Split(aws.ToString(in.ProjectionExpression), ", ") {
				name := in.ExpressionAttributeNames[ph]
				if av, ok := item[name]; ok {
					projected[name] = av
				}
			}
			item = projected
		}
		out.Items = append(out.Items, item)
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if in.ConditionExpression != nil {
		if _, ok := t.items[attrString(in.Item[t.hash])]; !ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("conditional check failed")}
		}
	}
	t.put(in.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.GetItemOutput{Item: t.items[attrString(in.Key[t.hash])]}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	t.remove(in.Key)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[attrString(in.Key[t.hash])]
	if !ok {
		return &dynamodb.UpdateItemOutput{}, nil
	}
	for _, ph := range strings.Split(strings.TrimPrefix(aws.ToString(in.UpdateExpression), "REMOVE "), ", ") {
		delete(item, in.ExpressionAttributeNames[ph])
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) BatchGetItem(_ context.Context, in *dynamodb.BatchGetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.BatchGetItemOutput{Responses: make(map[string][]map[string]types.AttributeValue)}
	for name, req := range in.RequestItems {
		t, err := f.table(aws.String(name))
		if err != nil {
			return nil, err
		}
		for _, key := range req.Keys {
			if item, ok := t.items[attrString(key[t.hash])]; ok {
				out.Responses[name] = append(out.Responses[name], item)
			}
		}
	}
	return out, nil
}

func (f *fakeDynamo) BatchWriteItem(_ context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for name, requests := range in.RequestItems {
		t, err := f.table(aws.String(name))
		if err != nil {
			return nil, err
		}
		if len(requests) > batchWriteLimit {
			return nil, errors.New("too many write requests")
		}
		for _, r := range requests {
			switch {
			case r.PutRequest != nil:
				t.put(r.PutRequest.Item)
			case r.DeleteRequest != nil:
				t.remove(r.DeleteRequest.Key)
			}
		}
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeDynamo) DescribeTable(_ context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	return &dynamodb.DescribeTableOutput{Table: &types.TableDescription{
		TableName: in.TableName,
		KeySchema: []types.KeySchemaElement{{AttributeName: aws.String(t.hash), KeyType: types.KeyTypeHash}},
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(t.hash), AttributeType: types.ScalarAttributeTypeS},
		},
	}}, nil
}

func (f *fakeDynamo) ListTables(_ context.Context, _ *dynamodb.ListTablesInput, _ ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	return &dynamodb.ListTablesOutput{}, nil
}

func testConnection(f *fakeDynamo) *Connection {
	conn := newConnection(f, adapter.ConnectionConfig{DatabaseID: "dynamo-test"}, &Adapter{})
	conn.connected = 1
	return conn
}

func TestTranslateSelect(t *testing.T) {
	cond := communication.AndOf(communication.Eq("age", 30), communication.LikeOf("name", "Ada%"))
	nq, err := Translator{}.TranslateSelect(communication.SelectQuery{
		Entity:    "people",
		Fields:    []string{"name"},
		Condition: &cond,
		Sorts:     []communication.Sort{communication.SortDesc("age")},
	})
	require.NoError(t, err)
	assert.Equal(t, "(#n0 = :v0 AND begins_with(#n1, :v1))", nq.Statement)
	assert.Equal(t, map[string]string{"#n0": "age", "#n1": "name"}, nq.Params["names"])
	assert.Equal(t, map[string]interface{}{":v0": 30, ":v1": "Ada"}, nq.Params["values"])
	assert.Equal(t, "#n1", nq.Params["projection"])
	assert.Equal(t, []string{"age DESC"}, nq.Params["sort"])
}

func TestTranslateConditions(t *testing.T) {
	tests := []struct {
		name string
		cond communication.Condition
		want string
	}{
		{"nested path", communication.Eq("address.city", "Oslo"), "#n0.#n1 = :v0"},
		{"contains", communication.LikeOf("name", "%ada%"), "contains(#n0, :v0)"},
		{"plain like", communication.LikeOf("name", "Ada"), "#n0 = :v0"},
		{"like anything", communication.LikeOf("name", "%"), "attribute_exists(#n0)"},
		{"like anything repeated", communication.LikeOf("name", "%%"), "attribute_exists(#n0)"},
		{"in", communication.InOf("age", 1, 2), "#n0 IN (:v0, :v1)"},
		{"between", communication.BetweenOf("age", 10, 20), "#n0 BETWEEN :v0 AND :v1"},
		{"or", communication.OrOf(communication.Gt("age", 1), communication.Lte("age", 0)), "(#n0 > :v0 OR #n0 <= :v1)"},
		{"not", communication.NotOf(communication.Lt("age", 5)), "NOT (#n0 < :v0)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cond := tt.cond
			nq, err := Translator{}.TranslateSelect(communication.SelectQuery{Entity: "people", Condition: &cond})
			require.NoError(t, err)
			assert.Equal(t, tt.want, nq.Statement)
		})
	}
}

func TestTranslateErrors(t *testing.T) {
	cond := communication.LikeOf("name", "%ada")
	_, err := Translator{}.TranslateSelect(communication.SelectQuery{Entity: "people", Condition: &cond})
	assert.True(t, adapter.IsUnsupportedCondition(err))

	_, err = Translator{}.TranslateSelect(communication.SelectQuery{})
	assert.ErrorIs(t, err, communication.ErrEntityRequired)

	nq, err := Translator{}.TranslateDelete(communication.DeleteQuery{Entity: "people", Fields: []string{"age"}})
	require.NoError(t, err)
	assert.Empty(t, nq.Statement)
	assert.Equal(t, []string{"age"}, nq.Params["remove"])
}

func TestEndpoint(t *testing.T) {
	assert.Equal(t, "", endpoint(adapter.ConnectionConfig{}))
	assert.Equal(t, "", endpoint(adapter.ConnectionConfig{Host: "dynamodb.eu-west-1.amazonaws.com", Port: 443}))
	assert.Equal(t, "http://localhost:8000", endpoint(adapter.ConnectionConfig{Host: "localhost", Port: 8000}))
	assert.Equal(t, "http://custom:9000", endpoint(adapter.ConnectionConfig{Host: "localhost", Endpoint: "http://custom:9000"}))
}

func TestDocumentManagerFlow(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo("people")
	dm := testConnection(fake).DocumentManager()

	ada := communication.NewEntity("people")
	ada.Add("name", "Ada")
	ada.Add("age", 36)
	stored, err := dm.Insert(ctx, ada)
	require.NoError(t, err)
	id, ok := stored.Value("id").(string)
	require.True(t, ok)
	assert.NotEmpty(t, id)

	bob := communication.NewEntity("people")
	bob.Add("id", "bob")
	bob.Add("name", "Bob")
	bob.Add("age", 41)
	_, err = dm.InsertTTL(ctx, bob, time.Hour)
	require.NoError(t, err)
	assert.Contains(t, fake.tables["people"].items["bob"], "ttl")

	ghost := communication.NewEntity("people")
	ghost.Add("id", "ghost")
	_, err = dm.Update(ctx, ghost)
	var notFound *adapter.NotFoundError
	assert.True(t, errors.As(err, &notFound))

	bob.Add("age", 42)
	_, err = dm.Update(ctx, bob)
	require.NoError(t, err)

	results, err := dm.Select(ctx, communication.SelectQuery{
		Entity: "people",
		Fields: []string{"name"},
		Sorts:  []communication.Sort{communication.SortDesc("age")},
		Limit:  1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, []string{"name"}, results[0].Names())
	assert.Equal(t, "Bob", results[0].Value("name"))

	all, err := dm.Select(ctx, communication.SelectQuery{Entity: "people"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(36), all[0].Value("age"))
	_, hasTTL := all[1].Find("ttl")
	assert.False(t, hasTTL)

	count, err := dm.Count(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	err = dm.Delete(ctx, communication.DeleteQuery{Entity: "people", Fields: []string{"age"}})
	require.NoError(t, err)
	assert.NotContains(t, fake.tables["people"].items["bob"], "age")

	cond := communication.Eq("name", "Bob")
	require.NoError(t, dm.Delete(ctx, communication.DeleteQuery{Entity: "people", Condition: &cond}))
	last := fake.scans[len(fake.scans)-1]
	assert.Equal(t, "#n0 = :v0", aws.ToString(last.FilterExpression))
	assert.Equal(t, "#n1", aws.ToString(last.ProjectionExpression))

	count, err = dm.Count(ctx, "people")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestDocumentManagerMissingTable(t *testing.T) {
	ctx := context.Background()
	dm := testConnection(newFakeDynamo()).DocumentManager()

	_, err := dm.Insert(ctx, communication.NewEntity("nothing"))
	assert.ErrorIs(t, err, adapter.ErrCollectionNotFound)

	count, err := dm.Count(ctx, "nothing")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestDocumentManagerClosed(t *testing.T) {
	conn := testConnection(newFakeDynamo("people"))
	require.NoError(t, conn.Close())

	_, err := conn.DocumentManager().Select(context.Background(), communication.SelectQuery{Entity: "people"})
	assert.ErrorIs(t, err, adapter.ErrConnectionClosed)
	assert.ErrorIs(t, conn.Ping(context.Background()), adapter.ErrConnectionClosed)
}

func TestBucketManager(t *testing.T) {
	ctx := context.Background()
	fake := newFakeDynamo("kv")
	factory := testConnection(fake).BucketManagerFactory()
	bucket, err := factory.Bucket("kv")
	require.NoError(t, err)
	assert.Equal(t, "kv", bucket.Name())

	require.NoError(t, bucket.Put(ctx, "a", map[string]interface{}{"n": 1}))
	require.NoError(t, bucket.PutTTL(ctx, "b", "two", time.Minute))
	require.NoError(t, bucket.PutAll(ctx, []communication.KeyValue{{Key: "c", Value: 3}, {Key: "d", Value: true}}))

	v, ok, err := bucket.Get(ctx, "b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "two", v.String())

	_, ok, err = bucket.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	// expired but not yet removed by the service
	past := strconv.FormatInt(time.Now().Add(-time.Minute).Unix(), 10)
	fake.tables["kv"].items["d"]["ttl"] = &types.AttributeValueMemberN{Value: past}
	_, ok, err = bucket.Get(ctx, "d")
	require.NoError(t, err)
	assert.False(t, ok)

	values, err := bucket.GetAll(ctx, []string{"c", "missing", "a", "d"})
	require.NoError(t, err)
	require.Len(t, values, 2)
	assert.Equal(t, "c", values[0].Key)
	assert.Equal(t, "a", values[1].Key)
	assert.JSONEq(t, `{"n":1}`, string(values[1].Value.(communication.Value)))

	require.NoError(t, bucket.Delete(ctx, "a"))
	require.NoError(t, bucket.Delete(ctx, "a"))
	require.NoError(t, bucket.DeleteAll(ctx, []string{"b", "c", "c"}))
	assert.Len(t, fake.tables["kv"].items, 1)

	assert.Error(t, bucket.Put(ctx, "", 1))
}
