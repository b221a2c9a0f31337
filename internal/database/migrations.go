package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/ptcg-carddb/internal/models"
)

// normalizeExpansionCodes brings expansion codes written by older importers into
// canonical case. Runs BEFORE AutoMigrate so the (code, region) unique index is
// built over normalized values.
func normalizeExpansionCodes(db *gorm.DB, log *zap.Logger) error {
	if db.Migrator().HasTable("primary_expansions") {
		result := db.Exec(`UPDATE primary_expansions SET code = UPPER(code) WHERE code <> UPPER(code)`)
		if result.Error != nil {
			log.Warn("failed to normalize primary expansion codes", zap.Error(result.Error))
		} else if result.RowsAffected > 0 {
			log.Info("Normalized primary expansion codes", zap.Int64("rows", result.RowsAffected))
		}
	}

	if !db.Migrator().HasTable("regional_expansions") {
		return nil
	}

	result := db.Exec(`UPDATE regional_expansions SET code = LOWER(code) WHERE code <> LOWER(code)`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Info("Normalized regional expansion codes", zap.Int64("rows", result.RowsAffected))
	}
	return nil
}

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	if err := dropLegacyIndexes(db, log); err != nil {
		return err
	}
	if err := normalizeEvolvesTo(db, log); err != nil {
		return err
	}
	return seedProductTypes(db, log)
}

// dropLegacyIndexes removes the old one-regional-expansion-per-region constraint,
// which blocked two regional codes from sharing a primary expansion.
// Note: AutoMigrate will not reliably drop old indexes.
func dropLegacyIndexes(db *gorm.DB, log *zap.Logger) error {
	const legacy = "idx_regional_expansion_primary_region"
	if db.Migrator().HasIndex(&models.RegionalExpansion{}, legacy) {
		if err := db.Migrator().DropIndex(&models.RegionalExpansion{}, legacy); err != nil {
			log.Warn("failed to drop legacy index", zap.String("index", legacy), zap.Error(err))
		}
	}
	return nil
}

// normalizeEvolvesTo strips the spaces older scrapers left around the commas
// separating evolution targets. Safe to run multiple times.
func normalizeEvolvesTo(db *gorm.DB, log *zap.Logger) error {
	result := db.Exec(`UPDATE cards SET evolves_to = REPLACE(evolves_to, ', ', ',') WHERE evolves_to LIKE '%, %'`)
	if result.Error != nil {
		log.Warn("failed to normalize evolves_to", zap.Error(result.Error))
		return nil
	}
	if result.RowsAffected > 0 {
		log.Info("Normalized evolves_to values", zap.Int64("rows", result.RowsAffected))
	}

	result = db.Exec(`UPDATE cards SET evolves_to = NULL WHERE evolves_to = ''`)
	if result.Error != nil {
		log.Warn("failed to clear empty evolves_to", zap.Error(result.Error))
	}
	return nil
}

// seedProductTypes inserts the known product categories, leaving edited rows alone
func seedProductTypes(db *gorm.DB, log *zap.Logger) error {
	types := models.DefaultProductTypes()
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&types)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Info("Seeded product types", zap.Int64("rows", result.RowsAffected))
	}
	return nil
}
