// Package database opens the gorm connection for the configured backend.
package database

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxOpenConns    = 16
	maxIdleConns    = 4
	connMaxLifetime = 5 * time.Minute

	// SQLite only
	sqliteMaxOpenConns = 8
	busyTimeout        = 5000  // 5 seconds
	cacheSize          = 10000 // 10MB
)

// IsPostgres reports whether url points at a PostgreSQL server
func IsPostgres(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}

// Open opens the database. PostgreSQL URLs use the lib/pq driver, anything
// else is treated as a SQLite file path (":memory:" works for tests).
func Open(url string, zlog zerolog.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	}

	var (
		db  *gorm.DB
		err error
	)
	postgresBackend := IsPostgres(url)
	if postgresBackend {
		db, err = gorm.Open(postgres.New(postgres.Config{
			DriverName: "postgres",
			DSN:        url,
		}), gormCfg)
	} else {
		db, err = gorm.Open(sqlite.Open(url), gormCfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	if postgresBackend {
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
	} else if url == ":memory:" {
		// Every connection to ":memory:" is a separate database
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(sqliteMaxOpenConns)
		sqlDB.SetMaxIdleConns(maxIdleConns)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if !postgresBackend {
		applySQLitePragmas(db, zlog)
	}

	zlog.Debug().Bool("postgres", postgresBackend).Msg("Database connection established")

	return db, nil
}

// applySQLitePragmas sets pragmas directly (connection string pragmas may not work with all drivers)
func applySQLitePragmas(db *gorm.DB, zlog zerolog.Logger) {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		fmt.Sprintf("PRAGMA cache_size=-%d", cacheSize),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}
}

// Close closes the underlying connection pool
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
