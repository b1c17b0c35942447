package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garmentflow/backend/internal/infrastructure/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database is the process-wide gorm handle plus the pool underneath it.
type Database struct {
	DB  *gorm.DB
	SQL *sql.DB
}

type DatabaseOption func(*gorm.Config)

// WithGormLogger replaces the silent default, usually with logger.NewGormLogger.
func WithGormLogger(l gormlogger.Interface) DatabaseOption {
	return func(c *gorm.Config) { c.Logger = l }
}

// NewDatabase connects to Postgres, sizes the pool and pings once.
func NewDatabase(cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	gcfg := &gorm.Config{
		Logger:                 gormlogger.Discard,
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		TranslateError:         true,
	}
	for _, opt := range opts {
		opt(gcfg)
	}

	gdb, err := gorm.Open(postgres.Open(cfg.DSN()), gcfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db, err := wrap(gdb)
	if err != nil {
		return nil, err
	}
	configurePool(db.SQL, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return db, nil
}

func wrap(gdb *gorm.DB) (*Database, error) {
	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	return &Database{DB: gdb, SQL: sqlDB}, nil
}

func configurePool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func (d *Database) Ping(ctx context.Context) error { return d.SQL.PingContext(ctx) }

func (d *Database) Close() error { return d.SQL.Close() }
