package storage

import (
	"errors"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// Common storage errors.
var (
	// ErrNotFound is returned when an entry is not found.
	ErrNotFound = errors.New("entry not found")
)

// isNotFound checks if an error indicates a key was not found.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, jetstream.ErrKeyNotFound) || strings.Contains(err.Error(), "key not found")
}
