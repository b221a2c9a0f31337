package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PrimaryExpansion is a set independent of the market it was released in.
// Code is stored uppercase.
type PrimaryExpansion struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	Code        string     `json:"code" gorm:"not null;uniqueIndex"`
	NameEn      string     `json:"nameEn" gorm:"not null"`
	NameJa      *string    `json:"nameJa"`
	Series      *string    `json:"series"`
	ReleaseDate *time.Time `json:"releaseDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (e *PrimaryExpansion) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// RegionalExpansion is the printing of a primary expansion in one region.
// Code is stored lowercase and is unique per region.
type RegionalExpansion struct {
	ID                 string            `json:"id" gorm:"primaryKey;size:36"`
	PrimaryExpansionID string            `json:"primaryExpansionId" gorm:"size:36;not null;index"`
	PrimaryExpansion   *PrimaryExpansion `json:"primaryExpansion,omitempty"`
	Region             Region            `json:"region" gorm:"not null;uniqueIndex:idx_regional_expansion_code_region"`
	Code               string            `json:"code" gorm:"not null;uniqueIndex:idx_regional_expansion_code_region"`
	Name               string            `json:"name" gorm:"not null"`
	ReleaseDate        *time.Time        `json:"releaseDate"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

func (e *RegionalExpansion) BeforeCreate(_ *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}
