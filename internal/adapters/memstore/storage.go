// Package memstore provides an in-process DurableStorage for development and tests.
// Values do not survive a restart.
package memstore

import (
	"context"
	"sync"

	"github.com/eduassist/portal/internal/ports"
)

var _ ports.DurableStorage = (*Storage)(nil)

// Storage is a mutex-guarded map.
type Storage struct {
	mu   sync.RWMutex
	data map[string]string
}

// New returns an empty Storage.
func New() *Storage {
	return &Storage{data: make(map[string]string)}
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return "", ports.ErrKeyNotFound
	}
	return v, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
