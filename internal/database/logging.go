package database

import (
	"fmt"

	"github.com/redbco/redb-nosql/pkg/logger"
)

// DatabaseLogContext provides structured context for database logging
type DatabaseLogContext struct {
	DatabaseType string
	DatabaseID   string
	Host         string
	Port         int
	Operation    string
	Entity       string
}

// DatabaseLogger provides unified logging for connection lifecycle and manager operations
type DatabaseLogger struct {
	logger *logger.Logger
}

// NewDatabaseLogger creates a new database logger. A nil logger discards everything.
func NewDatabaseLogger(logger *logger.Logger) *DatabaseLogger {
	return &DatabaseLogger{
		logger: logger,
	}
}

// LogConnectionAttempt logs when a connection attempt is starting
func (dl *DatabaseLogger) LogConnectionAttempt(ctx DatabaseLogContext) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.Info("%s", dl.formatConnectionMessage("Attempting connection", ctx))
}

// LogConnectionSuccess logs successful database connections
func (dl *DatabaseLogger) LogConnectionSuccess(ctx DatabaseLogContext) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.Info("%s", dl.formatConnectionMessage("Connection established", ctx))
}

// LogConnectionFailure logs connection failures as warnings; the caller gets the error
func (dl *DatabaseLogger) LogConnectionFailure(ctx DatabaseLogContext, err error) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.Warn("%s: %v", dl.formatConnectionMessage("Connection failed", ctx), err)
}

// LogDisconnectionSuccess logs successful disconnections
func (dl *DatabaseLogger) LogDisconnectionSuccess(ctx DatabaseLogContext) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.Info("%s", dl.formatConnectionMessage("Disconnection completed", ctx))
}

// LogDisconnectionFailure logs disconnection failures
func (dl *DatabaseLogger) LogDisconnectionFailure(ctx DatabaseLogContext, err error) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.Warn("%s: %v", dl.formatConnectionMessage("Disconnection failed", ctx), err)
}

// LogOperationSuccess logs completed manager operations at debug level
func (dl *DatabaseLogger) LogOperationSuccess(ctx DatabaseLogContext) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.Debug("%s", dl.formatOperationMessage("Operation completed", ctx))
}

// LogOperationFailure logs operation failures
func (dl *DatabaseLogger) LogOperationFailure(ctx DatabaseLogContext, err error) {
	if dl == nil || dl.logger == nil {
		return
	}
	dl.logger.Warn("%s: %v", dl.formatOperationMessage("Operation failed", ctx), err)
}

// LogHealthCheck logs database health check results
func (dl *DatabaseLogger) LogHealthCheck(ctx DatabaseLogContext, err error) {
	if dl == nil || dl.logger == nil {
		return
	}
	if err == nil {
		dl.logger.Debug("%s", dl.formatConnectionMessage("Health check passed", ctx))
		return
	}
	dl.logger.Warn("%s: %v", dl.formatConnectionMessage("Health check failed", ctx), err)
}

func (dl *DatabaseLogger) formatConnectionMessage(action string, ctx DatabaseLogContext) string {
	base := fmt.Sprintf("[%s] %s", ctx.DatabaseType, action)

	if ctx.DatabaseID != "" {
		base = fmt.Sprintf("%s database_id=%s", base, ctx.DatabaseID)
	}
	if ctx.Host != "" {
		if ctx.Port > 0 {
			base = fmt.Sprintf("%s host=%s:%d", base, ctx.Host, ctx.Port)
		} else {
			base = fmt.Sprintf("%s host=%s", base, ctx.Host)
		}
	}

	return base
}

func (dl *DatabaseLogger) formatOperationMessage(action string, ctx DatabaseLogContext) string {
	base := fmt.Sprintf("[%s] %s", ctx.DatabaseType, action)

	if ctx.Operation != "" {
		base = fmt.Sprintf("%s operation=%s", base, ctx.Operation)
	}
	if ctx.Entity != "" {
		base = fmt.Sprintf("%s entity=%s", base, ctx.Entity)
	}
	if ctx.DatabaseID != "" {
		base = fmt.Sprintf("%s database_id=%s", base, ctx.DatabaseID)
	}

	return base
}
