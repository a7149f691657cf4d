package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/papercomputeco/keepsake/pkg/config"
	"github.com/papercomputeco/keepsake/pkg/storage"
	"github.com/papercomputeco/keepsake/pkg/storage/badger"
	"github.com/papercomputeco/keepsake/pkg/storage/dynamodb"
	"github.com/papercomputeco/keepsake/pkg/storage/file"
	"github.com/papercomputeco/keepsake/pkg/storage/inmemory"
	"github.com/papercomputeco/keepsake/pkg/storage/postgres"
	"github.com/papercomputeco/keepsake/pkg/storage/sqlite"
)

const (
	sqliteFile = "keepsake.sqlite"
	badgerDir  = "badger"
)

// OpenDriver opens the storage backend named by c.Backend. Local backends
// without an explicit path live under dir, the resolved .keepsake directory.
func OpenDriver(ctx context.Context, c config.StorageConfig, dir string, logger *slog.Logger) (storage.Driver, error) {
	switch c.Backend {
	case "inmemory":
		logger.Info("using in-memory storage", "quota_bytes", c.QuotaBytes)
		return inmemory.NewDriver(inmemory.WithQuota(c.QuotaBytes)), nil

	case "", "file":
		target := c.FileDir
		if target == "" {
			target = dir
		}
		driver, err := file.NewDriver(target)
		if err != nil {
			return nil, fmt.Errorf("failed to create file driver: %w", err)
		}
		logger.Info("using file storage", "dir", driver.Dir())
		return driver, nil

	case "sqlite":
		path := c.SQLitePath
		if path == "" {
			if dir == "" {
				return nil, errors.New("sqlite backend needs storage.sqlite_path")
			}
			path = filepath.Join(dir, sqliteFile)
		}
		driver, err := sqlite.NewSQLiteDriver(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		logger.Info("using SQLite storage", "path", path)
		return driver, nil

	case "postgres":
		if c.PostgresDSN == "" {
			return nil, errors.New("postgres backend needs storage.postgres_dsn")
		}
		driver, err := postgres.NewDriver(ctx, c.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return driver, nil

	case "badger":
		path := c.BadgerPath
		if path == "" {
			if dir == "" {
				return nil, errors.New("badger backend needs storage.badger_path")
			}
			path = filepath.Join(dir, badgerDir)
		}
		driver, err := badger.NewDriver(badger.Config{Path: path, Logger: logger})
		if err != nil {
			return nil, fmt.Errorf("failed to create Badger driver: %w", err)
		}
		logger.Info("using Badger storage", "path", path)
		return driver, nil

	case "dynamodb":
		if c.DynamoDBTable == "" {
			return nil, errors.New("dynamodb backend needs storage.dynamodb_table")
		}
		driver, err := dynamodb.NewDriverFromEnv(ctx, c.DynamoDBTable, c.DynamoDBRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to create DynamoDB driver: %w", err)
		}
		logger.Info("using DynamoDB storage", "table", c.DynamoDBTable, "region", c.DynamoDBRegion)
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q (valid: %v)", c.Backend, config.ValidBackends())
	}
}
