package redis

// Package redis provides Redis-based adapters for the portal.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eduassist/portal/internal/ports"
)

var _ ports.DurableStorage = (*Storage)(nil)

// Storage is a Redis-backed DurableStorage shared by every portal instance.
// A positive TTL bounds how long an unused token is retained.
type Storage struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// StorageOptions groups constructor options.
type StorageOptions struct {
	Prefix string
	TTL    time.Duration
}

// NewStorage creates a Redis storage. The prefix defaults to "portal:storage:".
func NewStorage(client redis.UniversalClient, opts StorageOptions) *Storage {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "portal:storage:"
	}
	return &Storage{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *Storage) Get(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", ports.ErrKeyNotFound
	}
	v, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrKeyNotFound
		}
		return "", fmt.Errorf("redis get: %w", err)
	}
	return v, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return errors.New("storage key cannot be empty")
	}
	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Storage) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil // Nothing to delete
	}
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
