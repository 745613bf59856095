// Package testutil opens the storage backends package tests run against.
// Postgres and Redis tests skip when the service is unreachable, unless
// TEST_REQUIRE_INFRA (or TEST_REQUIRE_DB / TEST_REQUIRE_REDIS) is set.
package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	// Import pgx driver for database/sql compatibility in tests.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	// Pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/eduassist/portal/internal/migrate"
)

// TestDBConfig locates the Postgres server used by tests.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_* variables. The port defaults to 55432,
// the docker-compose test profile; CI sets TEST_DB_PORT=5432.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "portal"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "portal"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "portal"),
	}
}

func buildBaseDSN(cfg TestDBConfig) string {
	hostPort := net.JoinHostPort(cfg.Host, cfg.Port)
	sslMode := getEnvOrDefault("DB_SSL_MODE", "disable")
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		cfg.User, cfg.Password, hostPort, cfg.DBName, sslMode,
	)
}

// SetupPostgres returns a connection whose search_path is a fresh schema
// holding the portal tables. The schema is dropped when the test ends.
func SetupPostgres(t testing.TB) *sql.DB {
	t.Helper()

	admin, err := sql.Open("pgx", buildBaseDSN(DefaultTestDBConfig()))
	if err != nil {
		t.Fatal("open test database:", err)
	}
	if err := ping(admin); err != nil {
		closeAndLog(t, "admin DB", admin)
		skipOrFail(t, requireDB(), "Postgres not available for testing: %v", err)
	}

	schema := schemaName()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		closeAndLog(t, "admin DB", admin)
		t.Fatalf("create schema %s: %v", schema, err)
	}

	u, err := url.Parse(buildBaseDSN(DefaultTestDBConfig()))
	if err != nil {
		t.Fatal("parse DSN:", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()

	db, err := sql.Open("pgx", u.String())
	if err != nil {
		t.Fatal("open schema-scoped DB:", err)
	}
	t.Cleanup(func() {
		closeAndLog(t, "schema DB", db)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := admin.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("warning: failed to drop schema %s: %v", schema, err)
		}
		closeAndLog(t, "admin DB", admin)
	})

	if err := migrate.Run(ctx, db, migrate.Postgres); err != nil {
		t.Fatal("run postgres migrations:", err)
	}
	return db
}

// SetupSQLiteDB opens a migrated SQLite database in a per-test temp dir.
func SetupSQLiteDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "portal.db"))
	if err != nil {
		t.Fatal("open sqlite database:", err)
	}
	t.Cleanup(func() { closeAndLog(t, "sqlite DB", db) })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := migrate.Run(ctx, db, migrate.SQLite); err != nil {
		t.Fatal("run sqlite migrations:", err)
	}
	return db
}

// SetupTestRedis returns a client on an emptied test database. REDIS_ADDR
// wins; otherwise the compose service names and the local test port are tried.
// TEST_REDIS_DB picks the database index (default 15).
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	candidates := []string{"redis:6379", "localhost:6379", "localhost:56379"}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		candidates = []string{addr}
	}

	dbIndex := 15
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		if i, err := strconv.Atoi(v); err == nil && i >= 0 {
			dbIndex = i
		}
	}

	var lastErr error
	for _, addr := range candidates {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIndex})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		if err == nil {
			err = client.FlushDB(ctx).Err()
		}
		cancel()
		if err != nil {
			lastErr = err
			closeAndLog(t, "redis client", client)
			continue
		}
		t.Cleanup(func() { closeAndLog(t, "redis client", client) })
		return client
	}
	skipOrFail(t, requireRedis(), "Redis not available for testing: %v", lastErr)
	return nil
}

func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

func skipOrFail(t testing.TB, required bool, format string, args ...any) {
	t.Helper()
	if required {
		t.Fatalf(format, args...)
	}
	t.Skipf(format, args...)
}

// schemaName returns a lowercase schema name unique to one test.
func schemaName() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t_%d", time.Now().UnixNano())
	}
	return "t_" + hex.EncodeToString(b)
}

func closeAndLog(t testing.TB, name string, closer interface{ Close() error }) {
	if err := closer.Close(); err != nil {
		t.Logf("warning: failed to close %s: %v", name, err)
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

func requireDB() bool    { return envBool("TEST_REQUIRE_DB") || envBool("TEST_REQUIRE_INFRA") }
func requireRedis() bool { return envBool("TEST_REQUIRE_REDIS") || envBool("TEST_REQUIRE_INFRA") }
