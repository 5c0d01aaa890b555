// Package kv provides the small persistent key-value abstraction used for
// user preferences such as the endpoint selection and the notification gate.
//
// Two implementations are provided: MemoryStore for tests and single-process
// development, and RedisStore for deployments where choices must survive
// restarts. Namespace scopes every key of a store under a prefix.
package kv

import (
	"context"
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a key.
const MaxKeyLength = 512

// Sentinel errors for store operations.
var (
	ErrNotFound   = errors.New("kv: key not found")
	ErrInvalidKey = errors.New("kv: key is invalid")
	ErrKeyTooLong = errors.New("kv: key exceeds max length")
	ErrNilStore   = errors.New("kv: store is nil")
)

// Store is a persistent key-value store.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods honor cancellation/deadlines.
// - Errors: Get returns ErrNotFound on miss; transport failures are wrapped.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error

	// Delete is idempotent: deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey checks that a key is usable by every Store implementation.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
