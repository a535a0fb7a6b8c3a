/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/friendsincode/grouptrip/internal/config"
)

// Connect establishes a gorm DB connection for the configured backend.
func Connect(cfg *config.Config) (*gorm.DB, error) {
	return Open(cfg.DBBackend, cfg.DBDSN, cfg.Environment == "development")
}

// Open opens a connection without a full Config, as the CLI and tests do.
func Open(backend config.DatabaseBackend, dsn string, verbose bool) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch backend {
	case config.DatabasePostgres:
		dialector = postgres.Open(dsn)
	case config.DatabaseMySQL:
		dialector = mysql.Open(dsn)
	case config.DatabaseSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database backend: %s", backend)
	}

	level := logger.Warn
	if verbose {
		level = logger.Info
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", backend, err)
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	if backend == config.DatabaseSQLite {
		// A single connection keeps :memory: databases shared across queries.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(50)
	}
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := RegisterCallbacks(database); err != nil {
		return nil, fmt.Errorf("register callbacks: %w", err)
	}

	return database, nil
}

// Close releases database resources.
func Close(database *gorm.DB) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
