package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/redbco/redb-nosql/pkg/adapter"
	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
	"github.com/redbco/redb-nosql/pkg/health"
	"github.com/redbco/redb-nosql/pkg/logger"
	"github.com/redbco/redb-nosql/pkg/metrics"
	"github.com/redbco/redb-nosql/pkg/settings"
)

// ConnectionManager holds live driver connections by id. It only handles the connection
// lifecycle; reads and writes go through the instrumented managers it hands out.
type ConnectionManager struct {
	connections map[string]adapter.Connection // Live connections by database id
	registry    *adapter.Registry             // Adapter registry
	mu          sync.RWMutex                  // Protects connections
	logger      *logger.Logger
	dbLogger    *DatabaseLogger
	collector   *metrics.Collector
	tracer      *metrics.Tracer
	health      *health.Checker
}

// NewConnectionManager creates a manager over the global adapter registry.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]adapter.Connection),
		registry:    adapter.GlobalRegistry(),
		dbLogger:    NewDatabaseLogger(nil),
		tracer:      metrics.NewTracer(nil),
		health:      health.NewChecker(),
	}
}

// SetLogger sets the logger for the connection manager
func (cm *ConnectionManager) SetLogger(logger *logger.Logger) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.logger = logger
	cm.dbLogger = NewDatabaseLogger(logger)
}

// GetLogger returns the logger
func (cm *ConnectionManager) GetLogger() *logger.Logger {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return cm.logger
}

// SetRegistry replaces the adapter registry used by Connect.
func (cm *ConnectionManager) SetRegistry(registry *adapter.Registry) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.registry = registry
}

// SetCollector enables Prometheus metrics for handed out managers.
func (cm *ConnectionManager) SetCollector(collector *metrics.Collector) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.collector = collector
}

// SetTracer replaces the tracer used for manager spans.
func (cm *ConnectionManager) SetTracer(tracer *metrics.Tracer) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.tracer = tracer
}

func logContext(cfg adapter.ConnectionConfig) DatabaseLogContext {
	return DatabaseLogContext{
		DatabaseType: cfg.ConnectionType,
		DatabaseID:   cfg.DatabaseID,
		Host:         cfg.Host,
		Port:         cfg.Port,
	}
}

// Connect establishes a connection through the registered adapter and stores it under
// cfg.DatabaseID, which defaults to the connection type.
func (cm *ConnectionManager) Connect(ctx context.Context, cfg adapter.ConnectionConfig) error {
	if cfg.DatabaseID == "" {
		cfg.DatabaseID = cfg.ConnectionType
	}

	cm.mu.RLock()
	_, exists := cm.connections[cfg.DatabaseID]
	registry := cm.registry
	dbLogger := cm.dbLogger
	cm.mu.RUnlock()
	if exists {
		return fmt.Errorf("connection %s already exists", cfg.DatabaseID)
	}

	dbLogger.LogConnectionAttempt(logContext(cfg))

	conn, err := registry.Connect(ctx, cfg)
	if err != nil {
		dbLogger.LogConnectionFailure(logContext(cfg), err)
		return err
	}

	cm.mu.Lock()
	if _, exists := cm.connections[cfg.DatabaseID]; exists {
		cm.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("connection %s already exists", cfg.DatabaseID)
	}
	cm.connections[cfg.DatabaseID] = conn
	collector := cm.collector
	cm.mu.Unlock()

	if collector != nil {
		collector.ConnectionOpened(string(conn.Type()))
	}
	dbLogger.LogConnectionSuccess(logContext(cfg))
	return nil
}

// ConnectSettings reads the nosql.* keys from s and connects.
func (cm *ConnectionManager) ConnectSettings(ctx context.Context, s *settings.Settings) (string, error) {
	cfg, err := adapter.ConfigFromSettings(s)
	if err != nil {
		return "", err
	}
	if err := cm.Connect(ctx, cfg); err != nil {
		return "", err
	}
	return cfg.DatabaseID, nil
}

// GetConnection retrieves a database connection by ID
func (cm *ConnectionManager) GetConnection(id string) (adapter.Connection, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	conn, exists := cm.connections[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", adapter.ErrConnectionNotFound, id)
	}
	return conn, nil
}

// Disconnect closes and removes a database connection
func (cm *ConnectionManager) Disconnect(ctx context.Context, id string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	conn, exists := cm.connections[id]
	if !exists {
		return fmt.Errorf("%w: %s", adapter.ErrConnectionNotFound, id)
	}

	logCtx := logContext(conn.Config())
	logCtx.DatabaseID = id
	delete(cm.connections, id)
	cm.health.Remove(id)
	if cm.collector != nil {
		cm.collector.ConnectionClosed(string(conn.Type()))
	}

	if err := conn.Close(); err != nil {
		cm.dbLogger.LogDisconnectionFailure(logCtx, err)
		return err
	}
	cm.dbLogger.LogDisconnectionSuccess(logCtx)
	return nil
}

// DisconnectAll closes all connections and joins the close errors.
func (cm *ConnectionManager) DisconnectAll(ctx context.Context) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	var errs []error
	for id, conn := range cm.connections {
		logCtx := logContext(conn.Config())
		logCtx.DatabaseID = id
		cm.health.Remove(id)
		if cm.collector != nil {
			cm.collector.ConnectionClosed(string(conn.Type()))
		}
		if err := conn.Close(); err != nil {
			cm.dbLogger.LogDisconnectionFailure(logCtx, err)
			errs = append(errs, fmt.Errorf("failed to close %s: %w", id, err))
			continue
		}
		cm.dbLogger.LogDisconnectionSuccess(logCtx)
	}
	cm.connections = make(map[string]adapter.Connection)

	return errors.Join(errs...)
}

// ListConnections returns the ids of all live connections in lexical order
func (cm *ConnectionManager) ListConnections() []string {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	ids := make([]string, 0, len(cm.connections))
	for id := range cm.connections {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// GetConnectionInfo returns connection information for a database
func (cm *ConnectionManager) GetConnectionInfo(id string) (map[string]interface{}, error) {
	conn, err := cm.GetConnection(id)
	if err != nil {
		return nil, err
	}

	config := conn.Config()
	capability := conn.Adapter().Capabilities()
	return map[string]interface{}{
		"database_id":     id,
		"type":            string(conn.Type()),
		"product":         capability.Name,
		"host":            config.Host,
		"port":            config.Port,
		"database_name":   config.DatabaseName,
		"is_connected":    conn.IsConnected(),
		"connection_type": config.ConnectionType,
	}, nil
}

// CheckHealth pings a database connection to verify it's healthy
func (cm *ConnectionManager) CheckHealth(ctx context.Context, id string) error {
	conn, err := cm.GetConnection(id)
	if err != nil {
		return err
	}

	logCtx := logContext(conn.Config())
	logCtx.DatabaseID = id
	err = cm.health.RunCheck(ctx, id, func(ctx context.Context) error {
		if !conn.IsConnected() {
			return fmt.Errorf("database %s is disconnected", id)
		}
		if pingErr := conn.Ping(ctx); pingErr != nil {
			return fmt.Errorf("health check failed: %w", pingErr)
		}
		return nil
	})
	cm.dbLogger.LogHealthCheck(logCtx, err)
	return err
}

// CheckAllHealth pings every live connection and returns the overall status with the
// result of each check.
func (cm *ConnectionManager) CheckAllHealth(ctx context.Context) (health.Status, []health.Check) {
	for _, id := range cm.ListConnections() {
		_ = cm.CheckHealth(ctx, id)
	}
	return cm.health.OverallStatus(), cm.health.Checks()
}

func (cm *ConnectionManager) instrumentation(id string, conn adapter.Connection) instrumentation {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return instrumentation{
		databaseType: string(conn.Type()),
		databaseID:   id,
		collector:    cm.collector,
		tracer:       cm.tracer,
		log:          cm.dbLogger,
	}
}

// DocumentManager returns the instrumented document manager of a connection.
func (cm *ConnectionManager) DocumentManager(id string) (communication.DocumentManager, error) {
	conn, err := cm.GetConnection(id)
	if err != nil {
		return nil, err
	}
	m := conn.DocumentManager()
	if adapter.IsUnsupportedManager(m) {
		return nil, adapter.NewUnsupportedOperationError(conn.Type(), "document manager", supportedKinds(conn))
	}
	return &instrumentedEntityManager{inner: m, in: cm.instrumentation(id, conn)}, nil
}

// ColumnManager returns the instrumented column manager of a connection.
func (cm *ConnectionManager) ColumnManager(id string) (communication.ColumnManager, error) {
	conn, err := cm.GetConnection(id)
	if err != nil {
		return nil, err
	}
	m := conn.ColumnManager()
	if adapter.IsUnsupportedManager(m) {
		return nil, adapter.NewUnsupportedOperationError(conn.Type(), "column manager", supportedKinds(conn))
	}
	return &instrumentedEntityManager{inner: m, in: cm.instrumentation(id, conn)}, nil
}

// EntityManager returns the document manager of a connection, or its column manager
// when the store is column oriented.
func (cm *ConnectionManager) EntityManager(id string) (communication.DocumentManager, error) {
	m, err := cm.DocumentManager(id)
	if err == nil || !adapter.IsUnsupported(err) {
		return m, err
	}
	return cm.ColumnManager(id)
}

// Bucket opens an instrumented bucket manager on a connection.
func (cm *ConnectionManager) Bucket(id, name string) (communication.BucketManager, error) {
	conn, err := cm.GetConnection(id)
	if err != nil {
		return nil, err
	}
	factory := conn.BucketManagerFactory()
	if adapter.IsUnsupportedManager(factory) {
		return nil, adapter.NewUnsupportedOperationError(conn.Type(), "bucket manager", supportedKinds(conn))
	}
	bucket, err := factory.Bucket(name)
	if err != nil {
		return nil, err
	}
	return &instrumentedBucketManager{inner: bucket, in: cm.instrumentation(id, conn)}, nil
}

func supportedKinds(conn adapter.Connection) string {
	var kinds []string
	for _, k := range dbcapabilities.MustGet(conn.Type()).Managers {
		kinds = append(kinds, string(k))
	}
	return fmt.Sprintf("supported managers: %v", kinds)
}
