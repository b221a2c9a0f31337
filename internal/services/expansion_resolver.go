package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/ptcg-carddb/internal/models"
)

// ExpansionResolver finds or creates the primary/regional expansion pair for an
// expansion code seen during import
type ExpansionResolver struct{}

func NewExpansionResolver() *ExpansionResolver {
	return &ExpansionResolver{}
}

// Resolve returns the regional expansion for (code, region) with its primary
// expansion loaded, creating both when absent. It must run inside the import
// transaction; a concurrent creator surfaces as a unique violation, which the
// importer answers by retrying the whole transaction.
func (r *ExpansionResolver) Resolve(tx *gorm.DB, code string, region models.Region) (*models.RegionalExpansion, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, validationErrorf("expansion code is required")
	}
	regionalCode := strings.ToLower(code)
	primaryCode := strings.ToUpper(code)

	var regional models.RegionalExpansion
	err := tx.Preload("PrimaryExpansion").
		Where("code = ? AND region = ?", regionalCode, region).
		Take(&regional).Error
	if err == nil {
		return &regional, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up expansion %s/%s: %w", region, regionalCode, err)
	}

	primary := models.PrimaryExpansion{
		Code:   primaryCode,
		NameEn: placeholderExpansionName(primaryCode),
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoNothing: true,
	}).Create(&primary).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create primary expansion %s: %w", primaryCode, err)
	}
	// on conflict the generated id was never stored, so re-read by code
	primary = models.PrimaryExpansion{}
	if err := tx.Where("code = ?", primaryCode).Take(&primary).Error; err != nil {
		return nil, fmt.Errorf("failed to load primary expansion %s: %w", primaryCode, err)
	}

	regional = models.RegionalExpansion{
		PrimaryExpansionID: primary.ID,
		Region:             region,
		Code:               regionalCode,
		Name:               fmt.Sprintf("%s %s", region, regionalCode),
	}
	if err := tx.Create(&regional).Error; err != nil {
		return nil, fmt.Errorf("failed to create regional expansion %s/%s: %w", region, regionalCode, err)
	}
	regional.PrimaryExpansion = &primary
	return &regional, nil
}

func placeholderExpansionName(primaryCode string) string {
	return "Japanese Set " + primaryCode
}
