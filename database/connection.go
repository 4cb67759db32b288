package database

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/Ananth-NQI/dinepe-backend/internal/config"
	"github.com/Ananth-NQI/dinepe-backend/internal/storage"
)

// Connect opens the ledger database. TranslateError is required by
// storage.DatabaseStore to detect duplicate commit keys.
func Connect(cfg config.DatabaseConfig, logger zerolog.Logger) (*gorm.DB, error) {
	if cfg.InstanceConnectionName != "" {
		logger.Info().Str("instance", cfg.InstanceConnectionName).Msg("connecting to Cloud SQL via socket")
	} else {
		logger.Info().Str("host", cfg.Host).Str("port", cfg.Port).Msg("connecting to PostgreSQL")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	logger.Info().Msg("database connected")
	return db, nil
}

// Migrate creates or updates the ledger tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(storage.Models()...); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}
