// Package storage provides the persisted key-value collaborator backing the
// catalog and basket stores. Each namespace holds one JSON-encoded ordered
// collection; writes replace the whole collection.
package storage

import "context"

// Namespace keys. One whole-collection JSON value lives under each.
const (
	KeyItems      = "items"
	KeyCategories = "categories"
	KeyBasket     = "basket"
)

// KV is the port for the persisted key-value store.
type KV interface {
	// Read returns the stored value for key, or (nil, nil) if the key is
	// absent (first run).
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the value stored under key.
	Write(ctx context.Context, key string, value []byte) error

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
