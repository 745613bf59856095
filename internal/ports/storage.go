package ports

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by DurableStorage.Get when a key is absent.
var ErrKeyNotFound = errors.New("storage: key not found")

// DurableStorage is a string key/value store that outlives the process.
// Implementations must treat Remove of a missing key as success.
type DurableStorage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
