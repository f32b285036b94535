package database

import (
	"context"
	"fmt"
	"time"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/config"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"

	"github.com/cenkalti/backoff/v4"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const connectTimeout = 30 * time.Second

type ConnectionManager struct {
	db     *gorm.DB
	driver string
	logger logger.Logger
}

// NewConnectionManager opens the configured database. Postgres connections
// are retried with exponential backoff so the API can start before the
// database container is ready.
func NewConnectionManager(cfg config.DatabaseConfig, logger logger.Logger) (*ConnectionManager, error) {
	cm := &ConnectionManager{
		driver: cfg.Driver,
		logger: logger,
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = connectTimeout

	attempt := 0
	operation := func() error {
		attempt++
		db, err := Open(cfg, logger)
		if err != nil {
			logger.Warn("Database connection attempt failed", map[string]interface{}{
				"driver":  cfg.Driver,
				"attempt": attempt,
				"error":   err.Error(),
			})
			return err
		}
		cm.db = db
		return nil
	}

	var b backoff.BackOff = policy
	if cfg.Driver == "sqlite" {
		b = &backoff.StopBackOff{}
	}
	if err := backoff.Retry(operation, b); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	logger.Info("Database connection established", map[string]interface{}{
		"driver":   cfg.Driver,
		"attempts": attempt,
	})
	return cm, nil
}

// Open connects once and verifies the connection with a ping.
func Open(cfg config.DatabaseConfig, log logger.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(sqliteDSN(cfg.DSN()))
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log, 200*time.Millisecond),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if cfg.Driver == "sqlite" {
		// one connection keeps ":memory:" databases alive and serializes writers
		sqlDB.SetMaxOpenConns(1)
	} else if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns / 2)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

func sqliteDSN(path string) string {
	if path == "" {
		path = ":memory:"
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

func (cm *ConnectionManager) DB() *gorm.DB {
	return cm.db
}

func (cm *ConnectionManager) Driver() string {
	return cm.driver
}

func (cm *ConnectionManager) Ping(ctx context.Context) error {
	sqlDB, err := cm.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (cm *ConnectionManager) Close() error {
	sqlDB, err := cm.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		cm.logger.Error("Failed to close database", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}

func (cm *ConnectionManager) GetStats() map[string]interface{} {
	stats := map[string]interface{}{"driver": cm.driver}
	sqlDB, err := cm.db.DB()
	if err != nil {
		return stats
	}
	dbStats := sqlDB.Stats()
	stats["open_connections"] = dbStats.OpenConnections
	stats["in_use"] = dbStats.InUse
	stats["idle"] = dbStats.Idle
	return stats
}
