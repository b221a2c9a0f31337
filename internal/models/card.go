package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PrimaryCard is a card's game identity, shared by every language and printing
// with the same name and mechanics
type PrimaryCard struct {
	ID                 string            `json:"id" gorm:"primaryKey;size:36"`
	Name               string            `json:"name" gorm:"not null;uniqueIndex:idx_primary_card_name_signature"`
	SkillsSignature    string            `json:"skillsSignature" gorm:"size:16;not null;uniqueIndex:idx_primary_card_name_signature"`
	PrimaryExpansionID *string           `json:"primaryExpansionId" gorm:"size:36;index"`
	PrimaryExpansion   *PrimaryExpansion `json:"primaryExpansion,omitempty"`
	CardNumber         *string           `json:"cardNumber"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

func (p *PrimaryCard) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Card is a single printing: one language, one variant, one web card id
type Card struct {
	ID                  string             `json:"id" gorm:"primaryKey;size:36"`
	WebCardID           string             `json:"webCardId" gorm:"not null;uniqueIndex"`
	PrimaryCardID       string             `json:"primaryCardId" gorm:"size:36;not null;index"`
	PrimaryCard         *PrimaryCard       `json:"primaryCard,omitempty"`
	RegionalExpansionID string             `json:"regionalExpansionId" gorm:"size:36;not null;index"`
	RegionalExpansion   *RegionalExpansion `json:"regionalExpansion,omitempty"`
	Language            LanguageCode       `json:"language" gorm:"not null;index"`
	VariantType         VariantType        `json:"variantType" gorm:"not null;default:'NORMAL'"`
	Name                string             `json:"name" gorm:"not null;index"`
	Supertype           *Supertype         `json:"supertype" gorm:"index"`
	Subtypes            StringList         `json:"subtypes"`
	EvolutionStage      *EvolutionStage    `json:"evolutionStage"`
	EvolvesFrom         *string            `json:"evolvesFrom"`
	EvolvesTo           *string            `json:"evolvesTo"` // comma-joined names
	RuleBox             *RuleBox           `json:"ruleBox"`
	HP                  *int               `json:"hp" gorm:"column:hp"`
	Types               StringList         `json:"types"`
	Abilities           datatypes.JSON     `json:"abilities"`
	Attacks             datatypes.JSON     `json:"attacks"`
	Rules               StringList         `json:"rules"`
	Text                *string            `json:"text"`
	FlavorText          *string            `json:"flavorText"`
	Artist              *string            `json:"artist"`
	Rarity              *Rarity            `json:"rarity" gorm:"index"`
	RegulationMark      *string            `json:"regulationMark"`
	ImageURL            *string            `json:"imageUrl"`
	ImageURLHiRes       *string            `json:"imageUrlHiRes"`
	SourceURL           *string            `json:"sourceUrl"`
	PokedexNumber       *int               `json:"pokedexNumber"`
	RetreatCost         *int               `json:"retreatCost"`
	Weakness            datatypes.JSON     `json:"weakness"`
	ScrapedAt           *time.Time         `json:"scrapedAt"`
	CreatedAt           time.Time          `json:"createdAt" gorm:"index"`
	UpdatedAt           time.Time          `json:"updatedAt"`
}

func (c *Card) BeforeCreate(_ *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// LanguageVariant is the short form of a sibling printing returned with card details
type LanguageVariant struct {
	ID          string       `json:"id"`
	WebCardID   string       `json:"webCardId"`
	Name        string       `json:"name"`
	Language    LanguageCode `json:"language"`
	VariantType VariantType  `json:"variantType"`
	ImageURL    *string      `json:"imageUrl"`
}
