// Package state holds the durable backends for state tables. Every store
// keys scalars by table name and satisfies table.StateStore.
package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atlas-tuning/arduino/pkg/table"
)

var ErrUnknownBackend = errors.New("state: unknown backend")

// Store is a durable key-value store for state scalars.
type Store interface {
	table.StateStore
	Keys() ([]string, error)
	Close() error
}

// Backend names accepted by ParseBackend.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// ParseBackend normalizes a backend name.
func ParseBackend(name string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendMemory:
		return BackendMemory, nil
	case BackendFile:
		return BackendFile, nil
	case BackendRedis:
		return BackendRedis, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}
