package database

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/ptcg-carddb/internal/config"
	"github.com/codyseavey/ptcg-carddb/internal/models"
)

var DB *gorm.DB

// Initialize opens the configured database, migrates the schema and stores the
// handle in DB
func Initialize(cfg config.DatabaseConfig, log *zap.Logger) error {
	db, err := Open(cfg)
	if err != nil {
		return err
	}
	log.Info("Database connected successfully", zap.String("driver", cfg.Driver))

	if err := Migrate(db, log); err != nil {
		return err
	}
	log.Info("Database migration completed")

	DB = db
	return nil
}

// Open connects without migrating
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.URL)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// Migrate runs pre-migration cleanups, AutoMigrate and the data migrations
func Migrate(db *gorm.DB, log *zap.Logger) error {
	if err := normalizeExpansionCodes(db, log); err != nil {
		return err
	}

	err := db.AutoMigrate(
		&models.PrimaryExpansion{},
		&models.RegionalExpansion{},
		&models.PrimaryCard{},
		&models.Card{},
		&models.ProductType{},
		&models.Product{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	return RunMigrations(db, log)
}

func GetDB() *gorm.DB {
	return DB
}

func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}
