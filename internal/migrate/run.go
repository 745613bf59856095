// Package migrate applies the embedded SQL schema for durable portal storage.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// Dialect selects the SQL flavor of the target database.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) valid() bool { return d == Postgres || d == SQLite }

// Rebind converts $N placeholders to the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d == SQLite {
		return strings.ReplaceAll(query, "$", "?")
	}
	return query
}

func (d Dialect) schemaTableDDL() string {
	if d == SQLite {
		return `CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`
	}
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`
}

// Run applies all migrations for dialect. It is safe to call multiple times.
func Run(ctx context.Context, db *sql.DB, dialect Dialect) error {
	if !dialect.valid() {
		return fmt.Errorf("unsupported migration dialect %q", dialect)
	}
	if _, err := db.ExecContext(ctx, dialect.schemaTableDDL()); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	dir := "migrations/" + string(dialect)
	entries, err := migrationsFS.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		info := migrationInfo{
			versionStr: strings.TrimSuffix(f, ".sql"),
			path:       dir + "/" + f,
			dialect:    dialect,
		}
		if applyErr := applyMigration(ctx, db, info); applyErr != nil {
			return applyErr
		}
	}
	return nil
}

type migrationInfo struct {
	versionStr string
	path       string
	dialect    Dialect
}

func migrationExists(ctx context.Context, db *sql.DB, info migrationInfo) (bool, error) {
	var n int
	query := info.dialect.Rebind(`SELECT COUNT(1) FROM schema_migrations WHERE version = $1`)
	if err := db.QueryRowContext(ctx, query, info.versionStr).Scan(&n); err != nil {
		return false, fmt.Errorf("check migration %s: %w", info.path, err)
	}
	return n > 0, nil
}

func applyMigration(ctx context.Context, db *sql.DB, info migrationInfo) error {
	exists, err := migrationExists(ctx, db, info)
	if err != nil || exists {
		return err
	}

	sqlBytes, err := migrationsFS.ReadFile(info.path)
	if err != nil {
		return fmt.Errorf("read migration %s: %w", info.path, err)
	}

	logger := slog.Default().With("component", "migrations", "dialect", string(info.dialect))
	logger.InfoContext(ctx, "applying migration", "version", info.versionStr)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			logger.ErrorContext(ctx, "failed to rollback transaction", "err", rollbackErr, "migration", info.path)
		}
	}()

	if _, execErr := tx.ExecContext(ctx, string(sqlBytes)); execErr != nil {
		return fmt.Errorf("exec migration %s: %w", info.path, execErr)
	}
	insert := info.dialect.Rebind(`INSERT INTO schema_migrations (version) VALUES ($1)`)
	if _, insertErr := tx.ExecContext(ctx, insert, info.versionStr); insertErr != nil {
		return fmt.Errorf("record migration %s: %w", info.path, insertErr)
	}
	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("commit migration %s: %w", info.path, commitErr)
	}
	return nil
}
