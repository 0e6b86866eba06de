package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
	"github.com/redbco/redb-nosql/pkg/health"
	"github.com/redbco/redb-nosql/pkg/logger"
	"github.com/redbco/redb-nosql/pkg/metrics"
	"github.com/redbco/redb-nosql/pkg/settings"
)

type memoryDocs struct {
	entities []communication.Entity
	err      error
}

func (m *memoryDocs) Insert(ctx context.Context, e communication.Entity) (communication.Entity, error) {
	if m.err != nil {
		return communication.Entity{}, m.err
	}
	m.entities = append(m.entities, e)
	return e, nil
}

func (m *memoryDocs) InsertTTL(ctx context.Context, e communication.Entity, _ time.Duration) (communication.Entity, error) {
	return m.Insert(ctx, e)
}

func (m *memoryDocs) InsertAll(ctx context.Context, es []communication.Entity) ([]communication.Entity, error) {
	return communication.InsertEach(ctx, es, m.Insert)
}

func (m *memoryDocs) Update(ctx context.Context, e communication.Entity) (communication.Entity, error) {
	return e, m.err
}

func (m *memoryDocs) UpdateAll(ctx context.Context, es []communication.Entity) ([]communication.Entity, error) {
	return es, m.err
}

func (m *memoryDocs) Delete(ctx context.Context, q communication.DeleteQuery) error {
	return m.err
}

func (m *memoryDocs) Select(ctx context.Context, q communication.SelectQuery) ([]communication.Entity, error) {
	if m.err != nil {
		return nil, m.err
	}
	return communication.Filter(m.entities, q.Condition)
}

func (m *memoryDocs) Count(ctx context.Context, entity string) (int64, error) {
	return int64(len(m.entities)), m.err
}

func (m *memoryDocs) Close() error { return nil }

type fakeConnection struct {
	id       string
	config   adapter.ConnectionConfig
	adapter  *fakeAdapter
	docs     *memoryDocs
	closed   bool
	closeErr error
	pingErr  error
}

func (c *fakeConnection) ID() string                      { return c.id }
func (c *fakeConnection) Type() dbcapabilities.DatabaseID { return c.adapter.id }
func (c *fakeConnection) IsConnected() bool               { return !c.closed }
func (c *fakeConnection) Ping(ctx context.Context) error  { return c.pingErr }
func (c *fakeConnection) Raw() interface{}                { return nil }
func (c *fakeConnection) Config() adapter.ConnectionConfig {
	return c.config
}
func (c *fakeConnection) Adapter() adapter.DatabaseAdapter { return c.adapter }

func (c *fakeConnection) Close() error {
	c.closed = true
	return c.closeErr
}

func (c *fakeConnection) DocumentManager() communication.DocumentManager {
	return c.docs
}

func (c *fakeConnection) ColumnManager() communication.ColumnManager {
	return adapter.NewUnsupportedColumnManager(c.adapter.id)
}

func (c *fakeConnection) BucketManagerFactory() communication.BucketManagerFactory {
	return adapter.NewUnsupportedBucketManagerFactory(c.adapter.id)
}

type fakeAdapter struct {
	id          dbcapabilities.DatabaseID
	connectErr  error
	closeErr    error
	connections []*fakeConnection
}

func (a *fakeAdapter) Type() dbcapabilities.DatabaseID { return a.id }

func (a *fakeAdapter) Capabilities() dbcapabilities.Capability { return dbcapabilities.MustGet(a.id) }

func (a *fakeAdapter) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if a.connectErr != nil {
		return nil, a.connectErr
	}
	conn := &fakeConnection{id: config.DatabaseID, config: config, adapter: a, docs: &memoryDocs{}, closeErr: a.closeErr}
	a.connections = append(a.connections, conn)
	return conn, nil
}

func newTestManager(t *testing.T, adapters ...*fakeAdapter) (*ConnectionManager, *observer.ObservedLogs) {
	t.Helper()
	registry := adapter.NewRegistry()
	for _, a := range adapters {
		registry.Register(a)
	}
	core, logs := observer.New(zapcore.DebugLevel)

	cm := NewConnectionManager()
	cm.SetRegistry(registry)
	cm.SetLogger(logger.NewFromZap(zap.New(core), "nosql-test", ""))
	return cm, logs
}

func mongoConfig(id string) adapter.ConnectionConfig {
	return adapter.ConnectionConfig{DatabaseID: id, ConnectionType: "mongodb", Host: "localhost", Port: 27017, DatabaseName: "shop"}
}

func TestConnectionLifecycle(t *testing.T) {
	ctx := context.Background()
	mongo := &fakeAdapter{id: dbcapabilities.MongoDB}
	cm, logs := newTestManager(t, mongo)

	require.NoError(t, cm.Connect(ctx, mongoConfig("orders")))
	require.NoError(t, cm.Connect(ctx, mongoConfig("")))
	assert.Error(t, cm.Connect(ctx, mongoConfig("orders")))
	assert.Equal(t, []string{"mongodb", "orders"}, cm.ListConnections())

	info, err := cm.GetConnectionInfo("orders")
	require.NoError(t, err)
	assert.Equal(t, "mongodb", info["type"])
	assert.Equal(t, "MongoDB", info["product"])
	assert.Equal(t, 27017, info["port"])
	assert.Equal(t, true, info["is_connected"])

	require.NoError(t, cm.CheckHealth(ctx, "orders"))
	mongo.connections[0].pingErr = errors.New("timeout")
	assert.ErrorContains(t, cm.CheckHealth(ctx, "orders"), "timeout")

	status, checks := cm.CheckAllHealth(ctx)
	assert.Equal(t, health.StatusDegraded, status)
	require.Len(t, checks, 2)
	assert.Equal(t, "orders", checks[1].Name)
	assert.Equal(t, health.StatusUnhealthy, checks[1].Status)

	require.NoError(t, cm.Disconnect(ctx, "orders"))
	assert.True(t, mongo.connections[0].closed)
	status, checks = cm.CheckAllHealth(ctx)
	assert.Equal(t, health.StatusHealthy, status)
	assert.Len(t, checks, 1)
	_, err = cm.GetConnection("orders")
	assert.ErrorIs(t, err, adapter.ErrConnectionNotFound)
	assert.ErrorIs(t, cm.Disconnect(ctx, "orders"), adapter.ErrConnectionNotFound)

	messages := logs.FilterMessageSnippet("Connection established").All()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0].Message, "database_id=orders host=localhost:27017")
	assert.Equal(t, 2, logs.FilterMessageSnippet("Health check failed").Len())
}

func TestConnectFailures(t *testing.T) {
	ctx := context.Background()
	cm, logs := newTestManager(t, &fakeAdapter{id: dbcapabilities.Redis, connectErr: errors.New("refused")})

	err := cm.Connect(ctx, adapter.ConnectionConfig{ConnectionType: "redis", Host: "cache", Port: 6379})
	assert.ErrorContains(t, err, "refused")
	assert.Empty(t, cm.ListConnections())
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	err = cm.Connect(ctx, mongoConfig("x"))
	assert.ErrorIs(t, err, adapter.ErrAdapterNotFound)

	err = cm.Connect(ctx, adapter.ConnectionConfig{ConnectionType: "nothing"})
	assert.True(t, adapter.IsConfigurationError(err))
}

func TestConnectSettings(t *testing.T) {
	cm, _ := newTestManager(t, &fakeAdapter{id: dbcapabilities.MongoDB})

	id, err := cm.ConnectSettings(context.Background(), settings.FromMap(map[string]interface{}{
		"nosql": map[string]interface{}{"provider": "mongo", "id": "main", "host": "db1"},
	}))
	require.NoError(t, err)
	assert.Equal(t, "main", id)

	conn, err := cm.GetConnection("main")
	require.NoError(t, err)
	assert.Equal(t, 27017, conn.Config().Port)

	_, err = cm.ConnectSettings(context.Background(), settings.New())
	assert.True(t, adapter.IsConfigurationError(err))
}

func TestDisconnectAllJoinsErrors(t *testing.T) {
	ctx := context.Background()
	cm, _ := newTestManager(t, &fakeAdapter{id: dbcapabilities.MongoDB, closeErr: errors.New("busy")})
	require.NoError(t, cm.Connect(ctx, mongoConfig("a")))
	require.NoError(t, cm.Connect(ctx, mongoConfig("b")))

	err := cm.DisconnectAll(ctx)
	assert.ErrorContains(t, err, "failed to close a")
	assert.ErrorContains(t, err, "failed to close b")
	assert.Empty(t, cm.ListConnections())
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
	metrics:
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if want, ok := labels[l.GetName()]; ok && want != l.GetValue() {
					continue metrics
				}
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	return 0
}

func TestInstrumentedManagers(t *testing.T) {
	ctx := context.Background()
	mongo := &fakeAdapter{id: dbcapabilities.MongoDB}
	cm, logs := newTestManager(t, mongo)

	reg := prometheus.NewRegistry()
	cm.SetCollector(metrics.NewCollector(reg))
	recorder := tracetest.NewSpanRecorder()
	cm.SetTracer(metrics.NewTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))))

	require.NoError(t, cm.Connect(ctx, mongoConfig("shop")))
	assert.Equal(t, float64(1), counterValue(t, reg, "nosql_active_connections", map[string]string{"database": "mongodb"}))

	docs, err := cm.DocumentManager("shop")
	require.NoError(t, err)

	e := communication.NewEntity("orders")
	e.Add("total", 10)
	_, err = docs.InsertAll(ctx, []communication.Entity{e, e})
	require.NoError(t, err)
	found, err := docs.Select(ctx, communication.SelectQuery{Entity: "orders"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	mongo.connections[0].docs.err = errors.New("write conflict")
	_, err = docs.Insert(ctx, e)
	assert.ErrorContains(t, err, "write conflict")

	assert.Equal(t, float64(1), counterValue(t, reg, "nosql_operations_total",
		map[string]string{"database": "mongodb", "operation": "insert_all", "status": "success"}))
	assert.Equal(t, float64(1), counterValue(t, reg, "nosql_operations_total",
		map[string]string{"database": "mongodb", "operation": "insert", "status": "error"}))
	assert.Equal(t, float64(2), counterValue(t, reg, "nosql_entities_total",
		map[string]string{"database": "mongodb", "operation": "select"}))

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "nosql.insert_all", spans[0].Name())
	assert.Equal(t, "nosql.select", spans[1].Name())
	assert.Equal(t, "Error", spans[2].Status().Code.String())

	failures := logs.FilterMessageSnippet("Operation failed").All()
	require.Len(t, failures, 1)
	assert.Contains(t, failures[0].Message, "operation=insert entity=orders database_id=shop")

	_, err = cm.ColumnManager("shop")
	assert.True(t, adapter.IsUnsupported(err))
	_, err = cm.Bucket("shop", "cache")
	assert.True(t, adapter.IsUnsupported(err))

	m, err := cm.EntityManager("shop")
	require.NoError(t, err)
	n, err := m.Count(ctx, "orders")
	assert.ErrorContains(t, err, "write conflict")
	assert.Equal(t, int64(2), n)

	require.NoError(t, cm.Disconnect(ctx, "shop"))
	assert.Equal(t, float64(0), counterValue(t, reg, "nosql_active_connections", map[string]string{"database": "mongodb"}))
}
