package storage

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned by backends when a record does not exist.
var ErrNotFound = errors.New("record not found")

// ConfigurationError signals a programming error in how the store is used,
// such as touching a table that was never registered.
type ConfigurationError struct {
	Table  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Table == "" {
		return fmt.Sprintf("storage configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("storage configuration error on table %q: %s", e.Table, e.Reason)
}
