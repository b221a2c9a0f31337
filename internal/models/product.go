package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductType is a retail product category, looked up by code
type ProductType struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Code      string    `json:"code" gorm:"not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"not null"`
	NameJa    *string   `json:"nameJa"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *ProductType) BeforeCreate(_ *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

const (
	ProductTypeExpansionPack     = "expansion_pack"
	ProductTypeEnhancedExpansion = "enhanced_expansion"
	ProductTypeHighClassPack     = "high_class_pack"
	ProductTypeStarterSet        = "starter_set"
	ProductTypeConstructedDeck   = "constructed_deck"
	ProductTypeDeck              = "deck"
	ProductTypeAccessories       = "accessories"
	ProductTypeSpecialProducts   = "special_products"
)

// DefaultProductTypes returns the product categories seeded on startup
func DefaultProductTypes() []ProductType {
	ja := func(s string) *string { return &s }
	return []ProductType{
		{Code: ProductTypeExpansionPack, Name: "Expansion Pack", NameJa: ja("拡張パック")},
		{Code: ProductTypeEnhancedExpansion, Name: "Enhanced Expansion Pack", NameJa: ja("強化拡張パック")},
		{Code: ProductTypeHighClassPack, Name: "High Class Pack", NameJa: ja("ハイクラスパック")},
		{Code: ProductTypeStarterSet, Name: "Starter Set", NameJa: ja("入門セット")},
		{Code: ProductTypeConstructedDeck, Name: "Constructed Deck", NameJa: ja("構築デッキ")},
		{Code: ProductTypeDeck, Name: "Deck", NameJa: ja("デッキ")},
		{Code: ProductTypeAccessories, Name: "Accessories", NameJa: ja("周辺グッズ")},
		{Code: ProductTypeSpecialProducts, Name: "Special Products", NameJa: ja("その他の商品")},
	}
}

// Product is a retail product as scraped from the official product catalogues.
// Prices and dates are kept as the source strings.
type Product struct {
	ID                string       `json:"id" gorm:"primaryKey;size:36"`
	Country           string       `json:"country" gorm:"not null;uniqueIndex:idx_product_identity"`
	ProductName       string       `json:"productName" gorm:"not null;uniqueIndex:idx_product_identity"`
	Price             *string      `json:"price"`
	ReleaseDate       string       `json:"releaseDate" gorm:"not null;default:'';uniqueIndex:idx_product_identity"`
	Code              string       `json:"code" gorm:"not null;default:'';uniqueIndex:idx_product_identity"`
	Link              *string      `json:"link"`
	ImageURL          *string      `json:"imageUrl"`
	Include           *string      `json:"include"`
	CardOnly          *string      `json:"cardOnly"`
	ProductTypeID     *string      `json:"productTypeId" gorm:"size:36;index"`
	ProductType       *ProductType `json:"productType,omitempty"`
	BeginnerFlag      int          `json:"beginnerFlag" gorm:"default:0"`
	StoresAvailable   *string      `json:"storesAvailable"`
	LinkCardList      *string      `json:"linkCardList"`
	LinkPokemonCenter *string      `json:"linkPokemonCenter"`
	CreatedAt         time.Time    `json:"createdAt"`
	UpdatedAt         time.Time    `json:"updatedAt"`
}

func (p *Product) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// UpdateProductRequest is the full-record body for PUT /products/:id
type UpdateProductRequest struct {
	Country           string  `json:"country" binding:"required"`
	ProductName       string  `json:"productName" binding:"required"`
	Price             *string `json:"price"`
	ReleaseDate       string  `json:"releaseDate"`
	Code              string  `json:"code"`
	Link              *string `json:"link"`
	ImageURL          *string `json:"imageUrl"`
	Include           *string `json:"include"`
	CardOnly          *string `json:"cardOnly"`
	ProductTypeID     *string `json:"productTypeId"`
	BeginnerFlag      int     `json:"beginnerFlag"`
	StoresAvailable   *string `json:"storesAvailable"`
	LinkCardList      *string `json:"linkCardList"`
	LinkPokemonCenter *string `json:"linkPokemonCenter"`
}
