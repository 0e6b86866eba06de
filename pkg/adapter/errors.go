package adapter

import (
	"errors"
	"fmt"

	"github.com/redbco/redb-nosql/pkg/communication"
	"github.com/redbco/redb-nosql/pkg/dbcapabilities"
)

// Sentinels matched with errors.Is against the typed errors below.
var (
	ErrOperationNotSupported = errors.New("operation not supported by this database")
	ErrConnectionClosed      = errors.New("connection is closed")
	ErrConnectionFailed      = errors.New("connection failed")
	ErrInvalidConfiguration  = errors.New("invalid configuration")
	ErrNotFound              = errors.New("not found")
	// ErrCollectionNotFound also matches ErrNotFound.
	ErrCollectionNotFound = fmt.Errorf("collection %w", ErrNotFound)
	ErrAdapterNotFound    = errors.New("adapter not found")
	ErrConnectionNotFound = errors.New("connection not found")
)

// DatabaseError tags a driver error with the database and the manager operation
// that produced it.
type DatabaseError struct {
	DatabaseType dbcapabilities.DatabaseID
	Operation    string
	Cause        error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.DatabaseType, e.Operation, e.Cause)
}

func (e *DatabaseError) Unwrap() error { return e.Cause }

// WrapError tags err with dbType and operation. Nil stays nil and an error that
// already carries a DatabaseError keeps its original tag.
func WrapError(dbType dbcapabilities.DatabaseID, operation string, err error) error {
	if err == nil {
		return nil
	}
	var dbErr *DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}
	return &DatabaseError{DatabaseType: dbType, Operation: operation, Cause: err}
}

// UnsupportedOperationError reports an operation outside a database's capabilities.
type UnsupportedOperationError struct {
	DatabaseType dbcapabilities.DatabaseID
	Operation    string
	Reason       string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s does not support %s: %s", e.DatabaseType, e.Operation, e.Reason)
	}
	return fmt.Sprintf("%s does not support %s", e.DatabaseType, e.Operation)
}

func (e *UnsupportedOperationError) Is(target error) bool {
	return target == ErrOperationNotSupported
}

func NewUnsupportedOperationError(dbType dbcapabilities.DatabaseID, operation string, reason string) *UnsupportedOperationError {
	return &UnsupportedOperationError{DatabaseType: dbType, Operation: operation, Reason: reason}
}

// ConnectionError is returned by Connect when the server cannot be reached.
type ConnectionError struct {
	DatabaseType dbcapabilities.DatabaseID
	Host         string
	Port         int
	Cause        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s at %s:%d: %v", e.DatabaseType, e.Host, e.Port, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

func NewConnectionError(dbType dbcapabilities.DatabaseID, host string, port int, cause error) *ConnectionError {
	return &ConnectionError{DatabaseType: dbType, Host: host, Port: port, Cause: cause}
}

// ConfigurationError names the settings field a driver rejected. Field is empty
// when the problem spans several fields.
type ConfigurationError struct {
	DatabaseType dbcapabilities.DatabaseID
	Field        string
	Reason       string
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s settings: %s: %s", e.DatabaseType, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s settings: %s", e.DatabaseType, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

func NewConfigurationError(dbType dbcapabilities.DatabaseID, field string, reason string) *ConfigurationError {
	return &ConfigurationError{DatabaseType: dbType, Field: field, Reason: reason}
}

// NotFoundError reports a missing document, item or container. Every value
// matches ErrNotFound; tables and other containers also match ErrCollectionNotFound.
type NotFoundError struct {
	DatabaseType dbcapabilities.DatabaseID
	ResourceType string
	ResourceName string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found in %s", e.ResourceType, e.ResourceName, e.DatabaseType)
}

func (e *NotFoundError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return true
	case ErrCollectionNotFound:
		switch e.ResourceType {
		case "collection", "table", "index", "bucket", "core", "class":
			return true
		}
	}
	return false
}

func NewNotFoundError(dbType dbcapabilities.DatabaseID, resourceType string, resourceName string) *NotFoundError {
	return &NotFoundError{DatabaseType: dbType, ResourceType: resourceType, ResourceName: resourceName}
}

func IsUnsupported(err error) bool { return errors.Is(err, ErrOperationNotSupported) }

func IsConnectionError(err error) bool { return errors.Is(err, ErrConnectionFailed) }

func IsConfigurationError(err error) bool { return errors.Is(err, ErrInvalidConfiguration) }

// IsUnsupportedCondition reports whether a translator rejected a condition it
// cannot express.
func IsUnsupportedCondition(err error) bool {
	return errors.Is(err, communication.ErrUnsupportedCondition)
}
