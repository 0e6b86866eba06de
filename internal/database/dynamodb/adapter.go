package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/redbco/redb-nosql/internal/database/common"
	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

const defaultRegion = "us-east-1"

// api is the part of the DynamoDB client the managers use.
type api interface {
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
	BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTables(ctx context.Context, in *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
}

// Adapter implements adapter.DatabaseAdapter for Amazon DynamoDB.
type Adapter struct {
	Translator
}

// NewAdapter creates a new DynamoDB adapter instance.
func NewAdapter() adapter.DatabaseAdapter {
	return &Adapter{}
}

// Type returns the database type identifier.
func (a *Adapter) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.DynamoDB
}

// Capabilities returns the capability metadata.
func (a *Adapter) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.DynamoDB)
}

// endpoint returns the custom endpoint for DynamoDB Local and compatible stores.
// AWS hosts and an empty host use the regional endpoint.
func endpoint(config adapter.ConnectionConfig) string {
	if config.Endpoint != "" {
		return config.Endpoint
	}
	if config.Host == "" || strings.Contains(config.Host, "amazonaws.com") {
		return ""
	}
	return config.BaseURL()
}

func loadAWSConfig(ctx context.Context, config adapter.ConnectionConfig) (aws.Config, error) {
	region := config.Region
	if region == "" {
		region = defaultRegion
	}
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}

	// Username and password carry the access key pair
	if config.Username != "" && config.Password != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.Username, config.Password, config.OptionString("session-token", "")),
		))
	}
	if config.SSL {
		httpClient, err := common.HTTPClient(config)
		if err != nil {
			return aws.Config{}, err
		}
		opts = append(opts, awsconfig.WithHTTPClient(httpClient))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// Connect loads the AWS configuration and lists one table to verify access.
func (a *Adapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	awsCfg, err := loadAWSConfig(ctx, config)
	if err != nil {
		return nil, adapter.NewConfigurationError(dbcapabilities.DynamoDB, "aws", err.Error())
	}

	url := endpoint(config)
	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if url != "" {
			o.BaseEndpoint = aws.String(url)
		}
	})

	conn := newConnection(client, config, a)
	if err := conn.ping(ctx); err != nil {
		return nil, adapter.NewConnectionError(dbcapabilities.DynamoDB, config.Host, config.Port, err)
	}
	conn.connected = 1
	return conn, nil
}

// keySchema is the primary key of a table.
type keySchema struct {
	hash     string
	hashType types.ScalarAttributeType
	rng      string
}

func (k keySchema) names() []string {
	if k.rng == "" {
		return []string{k.hash}
	}
	return []string{k.hash, k.rng}
}

// Connection implements adapter.Connection for DynamoDB.
type Connection struct {
	id          string
	client      api
	config      adapter.ConnectionConfig
	adapter     *Adapter
	prefix      string
	ttlAttr     string
	connected   int32
	schemaMu    sync.Mutex
	schemaCache map[string]keySchema
}

func newConnection(client api, config adapter.ConnectionConfig, a *Adapter) *Connection {
	return &Connection{
		id:          config.DatabaseID,
		client:      client,
		config:      config,
		adapter:     a,
		prefix:      config.OptionString("table-prefix", ""),
		ttlAttr:     config.OptionString("ttl-attribute", "ttl"),
		schemaCache: make(map[string]keySchema),
	}
}

func (c *Connection) ping(ctx context.Context) error {
	_, err := c.client.ListTables(ctx, &dynamodb.ListTablesInput{Limit: aws.Int32(1)})
	return err
}

func (c *Connection) table(entity string) string {
	return c.prefix + entity
}

// schema returns the cached key schema of a table, describing it on first use.
func (c *Connection) schema(ctx context.Context, table string) (keySchema, error) {
	c.schemaMu.Lock()
	defer c.schemaMu.Unlock()

	if ks, ok := c.schemaCache[table]; ok {
		return ks, nil
	}
	out, err := c.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(table)})
	if err != nil {
		var notFound *types.ResourceNotFoundException
		if errors.As(err, &notFound) {
			return keySchema{}, adapter.NewNotFoundError(dbcapabilities.DynamoDB, "table", table)
		}
		return keySchema{}, fmt.Errorf("failed to describe table %s: %w", table, err)
	}

	var ks keySchema
	for _, k := range out.Table.KeySchema {
		switch k.KeyType {
		case types.KeyTypeHash:
			ks.hash = aws.ToString(k.AttributeName)
		case types.KeyTypeRange:
			ks.rng = aws.ToString(k.AttributeName)
		}
	}
	for _, d := range out.Table.AttributeDefinitions {
		if aws.ToString(d.AttributeName) == ks.hash {
			ks.hashType = d.AttributeType
		}
	}
	if ks.hash == "" {
		return keySchema{}, fmt.Errorf("table %s has no partition key", table)
	}
	c.schemaCache[table] = ks
	return ks, nil
}

// ID returns the connection identifier.
func (c *Connection) ID() string {
	return c.id
}

// Type returns the database type.
func (c *Connection) Type() dbcapabilities.DatabaseID {
	return dbcapabilities.DynamoDB
}

// IsConnected returns whether the connection is active.
func (c *Connection) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

// Ping lists one table.
func (c *Connection) Ping(ctx context.Context) error {
	if !c.IsConnected() {
		return adapter.ErrConnectionClosed
	}
	return c.ping(ctx)
}

// Close marks the connection closed. The SDK client holds no sessions.
func (c *Connection) Close() error {
	atomic.StoreInt32(&c.connected, 0)
	return nil
}

// DocumentManager returns a manager storing entities as items, one table per entity.
func (c *Connection) DocumentManager() communication.DocumentManager {
	return &DocumentManager{conn: c}
}

// ColumnManager is not supported by DynamoDB.
func (c *Connection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(dbcapabilities.DynamoDB)
}

// BucketManagerFactory returns buckets backed by key/value tables.
func (c *Connection) BucketManagerFactory() communication.BucketManagerFactory {
	return &BucketManagerFactory{conn: c}
}

// Raw returns the *dynamodb.Client.
func (c *Connection) Raw() interface{} {
	return c.client
}

// Config returns the connection configuration.
func (c *Connection) Config() adapter.ConnectionConfig {
	return c.config
}

// Adapter returns the database adapter.
func (c *Connection) Adapter() adapter.DatabaseAdapter {
	return c.adapter
}
