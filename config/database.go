package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DBConfig contains PostgreSQL configuration for STORAGE_DRIVER=postgres.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"portal"`
	Password string `env:"PASSWORD" envDefault:"portal"`
	Name     string `env:"NAME"     envDefault:"portal"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DSN builds a pgx connection URL, escaping credentials.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig contains Redis configuration, shared by durable storage and
// the capture transport.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
	// KeyPrefix namespaces every portal key.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"portal"`
}

// Sanitize trims the URI and prefix.
func (c *RedisConfig) Sanitize() {
	c.URI = strings.TrimSpace(c.URI)
	c.KeyPrefix = strings.Trim(strings.TrimSpace(c.KeyPrefix), ":")
}

// SQLiteConfig contains configuration for STORAGE_DRIVER=sqlite.
type SQLiteConfig struct {
	Path        string        `env:"PATH"         envDefault:"portal.db"`
	BusyTimeout time.Duration `env:"BUSY_TIMEOUT" envDefault:"5s"`
}

// Sanitize trims the path and clamps the busy timeout.
func (c *SQLiteConfig) Sanitize() {
	c.Path = strings.TrimSpace(c.Path)
	if c.BusyTimeout < 0 {
		c.BusyTimeout = 0
	}
}

// DSN returns a modernc.org/sqlite connection string with pragmas applied.
func (c SQLiteConfig) DSN() string {
	v := url.Values{}
	v.Add("_pragma", "busy_timeout("+strconv.FormatInt(c.BusyTimeout.Milliseconds(), 10)+")")
	v.Add("_pragma", "journal_mode(WAL)")
	return "file:" + c.Path + "?" + v.Encode()
}
