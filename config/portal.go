package config

import (
	"fmt"
	"strings"
	"time"
)

// BackendConfig configures the client for the course backend API.
type BackendConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:8000"`
	Timeout time.Duration `env:"TIMEOUT"  envDefault:"30s"`
	// ReplyPath is a JMESPath expression selecting the chat reply text.
	ReplyPath string `env:"REPLY_PATH" envDefault:"response || rag_prompt"`
}

// Sanitize trims the base URL and restores defaults for empty values.
func (c *BackendConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if strings.TrimSpace(c.ReplyPath) == "" {
		c.ReplyPath = "response || rag_prompt"
	}
}

// SessionConfig bounds the per-client session registry.
type SessionConfig struct {
	Capacity       int           `env:"CAPACITY"        envDefault:"10000"`
	HydrateTimeout time.Duration `env:"HYDRATE_TIMEOUT" envDefault:"5s"`
	// TTL expires durable tokens in Redis; zero keeps them until logout.
	TTL time.Duration `env:"TTL" envDefault:"0s"`
}

// Sanitize clamps registry limits.
func (c *SessionConfig) Sanitize() {
	if c.Capacity < 1 {
		c.Capacity = 10000
	}
	if c.HydrateTimeout <= 0 {
		c.HydrateTimeout = 5 * time.Second
	}
	if c.TTL < 0 {
		c.TTL = 0
	}
}

// GuardConfig configures the route guard.
type GuardConfig struct {
	HydrationTimeout time.Duration `env:"HYDRATION_TIMEOUT" envDefault:"2s"`
	// PreserveDestination appends redirect_uri to the sign-in redirect.
	PreserveDestination bool `env:"PRESERVE_DESTINATION" envDefault:"false"`
}

// Sanitize restores the default wait bound.
func (c *GuardConfig) Sanitize() {
	if c.HydrationTimeout <= 0 {
		c.HydrationTimeout = 2 * time.Second
	}
}

// StorageDriver selects the durable storage backend.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverRedis    StorageDriver = "redis"
	StorageDriverSQLite   StorageDriver = "sqlite"
	StorageDriverPostgres StorageDriver = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for StorageDriver.
func (d *StorageDriver) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch StorageDriver(v) {
	case StorageDriverMemory, StorageDriverRedis, StorageDriverSQLite, StorageDriverPostgres:
		*d = StorageDriver(v)
		return nil
	default:
		return fmt.Errorf("invalid StorageDriver: %q (valid options: memory, redis, sqlite, postgres)", v)
	}
}

// StorageConfig selects durable storage.
type StorageConfig struct {
	Driver StorageDriver `env:"STORAGE_DRIVER" envDefault:"memory"`
	// EncryptionKey seals stored tokens with AES-256-GCM (32 bytes, hex or base64).
	EncryptionKey string `env:"STORAGE_ENCRYPTION_KEY"`
}

// CaptureTransport selects how capture messages move between bridge and agent.
type CaptureTransport string

const (
	CaptureTransportLocal CaptureTransport = "local"
	CaptureTransportRedis CaptureTransport = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for CaptureTransport.
func (t *CaptureTransport) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch CaptureTransport(v) {
	case CaptureTransportLocal, CaptureTransportRedis:
		*t = CaptureTransport(v)
		return nil
	default:
		return fmt.Errorf("invalid CaptureTransport: %q (valid options: local, redis)", v)
	}
}

// CaptureConfig configures the browser capture bridge.
type CaptureConfig struct {
	Transport CaptureTransport `env:"TRANSPORT" envDefault:"local"`
	// Timeout bounds one FetchLatestIR round trip.
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
	// PollTimeout bounds one agent long poll.
	PollTimeout time.Duration `env:"POLL_TIMEOUT" envDefault:"25s"`
	// Token, when set, must be presented by the agent in X-Capture-Token.
	Token string `env:"TOKEN"`
	// QueueSize sizes the in-process transport buffer.
	QueueSize int `env:"QUEUE_SIZE" envDefault:"64"`
}

// Sanitize restores defaults for non-positive durations and sizes.
func (c *CaptureConfig) Sanitize() {
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 25 * time.Second
	}
	if c.QueueSize < 1 {
		c.QueueSize = 64
	}
	c.Token = strings.TrimSpace(c.Token)
}
