package communication

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedCondition is returned when a translator cannot express a condition node.
	ErrUnsupportedCondition = errors.New("unsupported condition")

	// ErrInvalidCondition is returned when a condition node has the wrong shape.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrNonUniqueResult is returned by SingleResult when more than one entity matches.
	ErrNonUniqueResult = errors.New("query returned more than one result")

	// ErrEntityRequired is returned when a query or entity lacks an entity name.
	ErrEntityRequired = errors.New("entity name is required")

	// ErrKeyRequired is returned when an operation needs the entity key and it is missing.
	ErrKeyRequired = errors.New("entity key is required")
)

// UnsupportedCondition wraps ErrUnsupportedCondition with the driver and operator.
func UnsupportedCondition(driver string, op Operator) error {
	return fmt.Errorf("%w: %s does not support %s", ErrUnsupportedCondition, driver, op)
}

// KeyRequired wraps ErrKeyRequired with the name of the missing key element.
func KeyRequired(key string) error {
	return fmt.Errorf("%w: element %q", ErrKeyRequired, key)
}
