// Package data holds the SQL-backed persistence for the portal.
package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/eduassist/portal/internal/errors"
	"github.com/eduassist/portal/internal/migrate"
	"github.com/eduassist/portal/internal/ports"
)

var _ ports.DurableStorage = (*StorageRepo)(nil)

// StorageRepo is a DurableStorage over the portal_storage table. The same
// queries serve Postgres (pgx) and SQLite (modernc) through Dialect.Rebind.
type StorageRepo struct {
	db      *sql.DB
	dialect migrate.Dialect
}

// NewStorageRepo creates a StorageRepo. The schema must already be migrated.
func NewStorageRepo(db *sql.DB, dialect migrate.Dialect) *StorageRepo {
	return &StorageRepo{db: db, dialect: dialect}
}

// Get returns the stored value or ports.ErrKeyNotFound.
func (r *StorageRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	q := r.dialect.Rebind(`SELECT value FROM portal_storage WHERE key = $1`)
	err := r.db.QueryRowContext(ctx, q, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get %q: %w", key, apperrors.MapDBError(err))
	}
	return value, nil
}

// Set upserts key.
func (r *StorageRepo) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return apperrors.ValidationField("key", "storage key cannot be empty")
	}
	q := r.dialect.Rebind(`
		INSERT INTO portal_storage (key, value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if _, err := r.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("set %q: %w", key, apperrors.MapDBError(err))
	}
	return nil
}

// Remove deletes key. Removing a missing key succeeds.
func (r *StorageRepo) Remove(ctx context.Context, key string) error {
	q := r.dialect.Rebind(`DELETE FROM portal_storage WHERE key = $1`)
	if _, err := r.db.ExecContext(ctx, q, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, apperrors.MapDBError(err))
	}
	return nil
}
