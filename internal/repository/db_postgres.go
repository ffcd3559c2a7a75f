// Package repository contains the repository layer for the Findex API
package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codeit/findexapi/internal/config"
	"github.com/codeit/findexapi/internal/models"
	"github.com/codeit/findexapi/pkg/utils/zaplogger"
)

// SchemaName is the Postgres schema holding all Findex tables
var SchemaName = "findex"

// ConnectPostgres connects to a Postgres database and returns a GORM database object
func ConnectPostgres(cfg *config.Config) (*gorm.DB, error) {
	zaplogger.Info(config.SingleLine)
	zaplogger.Info("Initializing Postgres")
	zaplogger.Info(config.SingleLine)

	// Set up GORM logger
	var logLevel logger.LogLevel
	switch cfg.PostgresLogLevel {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "warn":
		logLevel = logger.Warn
	case "info":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	}

	// Open database connection
	postgresDSN := cfg.PostgresDsn + " search_path=" + SchemaName + ",public"
	db, err := gorm.Open(postgres.Open(postgresDSN), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Postgres: %v", err)
	}

	zaplogger.Info("  * connected")

	// Create the schema if it doesn't exist
	createSchemaSQL := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", SchemaName)
	if err := db.Exec(createSchemaSQL).Error; err != nil {
		return nil, fmt.Errorf("failed to create schema %s: %v", SchemaName, err)
	}
	zaplogger.Info("  * migrating schema: \"" + SchemaName + "\"")

	// AutoMigrate will create tables and add/modify columns
	if err := autoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %v", err)
	}

	return db, nil
}

func autoMigrate(db *gorm.DB) error {
	tables := []struct {
		name  string
		model interface{}
	}{
		{models.IndexDefinitionsTableName, &models.IndexDefinition{}},
		{models.IndexObservationsTableName, &models.IndexObservation{}},
		{models.SyncLedgerTableName, &models.SyncLedgerEntry{}},
	}

	zaplogger.Info("  * migrating tables")
	for _, table := range tables {
		err := db.Table(SchemaName + "." + table.name).AutoMigrate(table.model)
		if err != nil {
			return fmt.Errorf("failed to auto migrate table: %s, err:%v", table.name, err)
		}
		zaplogger.Info("    - \"" + SchemaName + "." + table.name + "\"")
	}

	return nil
}
