// Package interfaces defines service contracts for tradeclient
package interfaces

import "context"

// KeyValueStore is the durable string-keyed store backing the session.
// Get returns "" with a nil error when the key is absent.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error

	// Lifecycle
	Close() error
}
