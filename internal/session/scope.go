package session

import (
	"context"

	"github.com/eduassist/portal/internal/ports"
)

// scopedStorage namespaces every key of an underlying storage.
type scopedStorage struct {
	inner  ports.DurableStorage
	prefix string
}

// Scope returns a view of storage whose keys are prefixed with "<scope>:".
// An empty scope returns storage unchanged.
func Scope(storage ports.DurableStorage, scope string) ports.DurableStorage {
	if scope == "" {
		return storage
	}
	return scopedStorage{inner: storage, prefix: scope + ":"}
}

func (s scopedStorage) Get(ctx context.Context, key string) (string, error) {
	return s.inner.Get(ctx, s.prefix+key)
}

func (s scopedStorage) Set(ctx context.Context, key, value string) error {
	return s.inner.Set(ctx, s.prefix+key, value)
}

func (s scopedStorage) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}
