package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/eduassist/portal/config"
	"github.com/eduassist/portal/internal/adapters/memstore"
	redisadapter "github.com/eduassist/portal/internal/adapters/redis"
	"github.com/eduassist/portal/internal/data"
	"github.com/eduassist/portal/internal/data/cryptoutil"
	"github.com/eduassist/portal/internal/migrate"
	"github.com/eduassist/portal/internal/ports"
)

// Infrastructure holds the connections opened for the configured storage.
// Either connection may be nil.
type Infrastructure struct {
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Storage     ports.DurableStorage
}

// Close releases open connections.
func (i *Infrastructure) Close(logger *slog.Logger) {
	if i.DB != nil {
		if err := i.DB.Close(); err != nil {
			logger.Error("close database failed", "error", err)
		}
	}
	if i.RedisClient != nil {
		if err := i.RedisClient.Close(); err != nil {
			logger.Error("close redis failed", "error", err)
		}
	}
}

// InitInfrastructure connects the durable storage selected by STORAGE_DRIVER,
// plus Redis when the capture transport needs it.
func InitInfrastructure(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Infrastructure, error) {
	infra := &Infrastructure{}
	dbCfg := DatabaseConfig{
		DBConfig:     cfg.Postgres,
		SQLiteConfig: cfg.SQLite,
		RedisConfig:  cfg.Redis,
		Logger:       logger,
	}

	needRedis := cfg.Storage.Driver == config.StorageDriverRedis || cfg.Capture.Transport == config.CaptureTransportRedis
	if needRedis {
		client, err := ConnectRedis(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		infra.RedisClient = client
	}

	storage, err := buildStorage(ctx, cfg, dbCfg, infra)
	if err != nil {
		infra.Close(logger)
		return nil, err
	}
	if key := cfg.Storage.EncryptionKey; key != "" {
		storage, err = encryptStorage(storage, key)
		if err != nil {
			infra.Close(logger)
			return nil, err
		}
	}
	infra.Storage = storage
	logger.InfoContext(ctx, "durable storage ready", "driver", string(cfg.Storage.Driver))
	return infra, nil
}

//nolint:ireturn // the storage driver is chosen at runtime.
func buildStorage(
	ctx context.Context,
	cfg *config.AppConfig,
	dbCfg DatabaseConfig,
	infra *Infrastructure,
) (ports.DurableStorage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverRedis:
		return redisadapter.NewStorage(infra.RedisClient, redisadapter.StorageOptions{
			Prefix: cfg.Redis.KeyPrefix + ":storage:",
			TTL:    cfg.Session.TTL,
		}), nil

	case config.StorageDriverPostgres:
		db, err := ConnectDB(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		infra.DB = db
		return sqlStorage(ctx, db, migrate.Postgres, cfg.Postgres.RunMigrationsOnStart, dbCfg.Logger)

	case config.StorageDriverSQLite:
		db, err := ConnectSQLite(dbCfg)
		if err != nil {
			return nil, fmt.Errorf("connect sqlite: %w", err)
		}
		infra.DB = db
		// A local file is always migrated; there is no separate deploy step.
		return sqlStorage(ctx, db, migrate.SQLite, true, dbCfg.Logger)

	default:
		return memstore.New(), nil
	}
}

func sqlStorage(
	ctx context.Context,
	db *sql.DB,
	dialect migrate.Dialect,
	runMigrations bool,
	logger *slog.Logger,
) (*data.StorageRepo, error) {
	if runMigrations {
		if err := RunMigrations(ctx, db, dialect, logger); err != nil {
			return nil, err
		}
	} else if logger != nil {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}
	return data.NewStorageRepo(db, dialect), nil
}

func encryptStorage(inner ports.DurableStorage, key string) (*cryptoutil.Storage, error) {
	raw, err := cryptoutil.ParseKey(key)
	if err != nil {
		return nil, fmt.Errorf("STORAGE_ENCRYPTION_KEY: %w", err)
	}
	enc, err := cryptoutil.NewAESGCMEncryptor(raw)
	if err != nil {
		return nil, err
	}
	return cryptoutil.NewStorage(inner, enc), nil
}
