// Package store defines the boundary between liveplot and the data store
// holding the plotted sequences.
package store

import (
	"context"
	"errors"

	"github.com/sliink/liveplot/internal/model"
)

var (
	// ErrNotFound is returned when a key does not exist
	ErrNotFound = errors.New("key not found")
	// ErrWrongType is returned when a key exists but does not hold a list
	ErrWrongType = errors.New("key does not hold a list")
)

// Reader gives read access to stored sequences
type Reader interface {
	// Range returns every element of the list stored at key
	Range(ctx context.Context, key string) ([]model.Value, error)
}

// Writer stores rendered output and appends samples
type Writer interface {
	// Set stores an opaque value at key, replacing what was there
	Set(ctx context.Context, key string, value []byte) error

	// Append pushes values to the tail of the list at key
	Append(ctx context.Context, key string, values ...string) error
}

// Handler receives one change notification. It runs on the notifier's
// goroutine and must return promptly.
type Handler func(kind, key string)

// Notifier delivers change notifications until its context is cancelled
type Notifier interface {
	Listen(ctx context.Context, handler Handler) error
}

// Store is a complete data store backend
type Store interface {
	Reader
	Writer
	Notifier
	Close() error
}

var listEvents = map[string]bool{
	"lpush":     true,
	"rpush":     true,
	"linsert":   true,
	"lset":      true,
	"lrem":      true,
	"ltrim":     true,
	"lpop":      true,
	"rpop":      true,
	"del":       true,
	"expired":   true,
	"rename_to": true,
}

// IsListEvent reports whether kind is a mutation that can change the
// contents of a list
func IsListEvent(kind string) bool {
	return listEvents[kind]
}
