package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/ptcg-carddb/internal/metrics"
	"github.com/codyseavey/ptcg-carddb/internal/models"
)

// ProductQuery is the parameter bag for GET /products
type ProductQuery struct {
	Country     string `form:"country"`
	ProductType string `form:"productType"`
	Search      string `form:"search"`
	Skip        int    `form:"skip" binding:"min=0"`
	Take        int    `form:"take" binding:"min=0"`
}

type ProductPage struct {
	Data       []models.Product `json:"data"`
	Pagination Pagination       `json:"pagination"`
}

// ProductService serves the retail product catalogue
type ProductService struct {
	db     *gorm.DB
	cards  *CardService
	logger *zap.Logger
}

func NewProductService(db *gorm.DB, cards *CardService, logger *zap.Logger) *ProductService {
	return &ProductService{db: db, cards: cards, logger: logger.Named("products")}
}

func (s *ProductService) ListProducts(ctx context.Context, q ProductQuery) (*ProductPage, error) {
	skip, take := clampPage(q.Skip, q.Take)
	db := s.db.WithContext(ctx)

	var typeID string
	if code := strings.TrimSpace(q.ProductType); code != "" {
		var pt models.ProductType
		err := db.Where("code = ?", code).Take(&pt).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &ProductPage{Data: []models.Product{}, Pagination: newPagination(0, skip, take)}, nil
		}
		if err != nil {
			return nil, err
		}
		typeID = pt.ID
	}

	base := func() *gorm.DB {
		tx := db.Model(&models.Product{})
		if q.Country != "" {
			tx = tx.Where("country = ?", q.Country)
		}
		if typeID != "" {
			tx = tx.Where("product_type_id = ?", typeID)
		}
		if search := strings.TrimSpace(q.Search); search != "" {
			tx = tx.Where(`LOWER(product_name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(search))+"%")
		}
		return tx
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	products := []models.Product{}
	err := base().
		Preload("ProductType").
		Order("release_date DESC").
		Order("product_name ASC").
		Offset(skip).
		Limit(take).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return &ProductPage{Data: products, Pagination: newPagination(total, skip, take)}, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var p models.Product
	err := s.db.WithContext(ctx).Preload("ProductType").Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Product with ID %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProduct replaces every editable field of a product
func (s *ProductService) UpdateProduct(ctx context.Context, id string, req models.UpdateProductRequest) (*models.Product, error) {
	if _, err := s.GetProduct(ctx, id); err != nil {
		return nil, err
	}
	if req.ProductTypeID != nil && *req.ProductTypeID != "" {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.ProductType{}).Where("id = ?", *req.ProductTypeID).Count(&n).Error; err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, validationErrorf("unknown product type %s", *req.ProductTypeID)
		}
	}

	updates := map[string]any{
		"country":             req.Country,
		"product_name":        req.ProductName,
		"price":               req.Price,
		"release_date":        req.ReleaseDate,
		"code":                req.Code,
		"link":                req.Link,
		"image_url":           req.ImageURL,
		"include":             req.Include,
		"card_only":           req.CardOnly,
		"product_type_id":     emptyToNil(req.ProductTypeID),
		"beginner_flag":       req.BeginnerFlag,
		"stores_available":    req.StoresAvailable,
		"link_card_list":      req.LinkCardList,
		"link_pokemon_center": req.LinkPokemonCenter,
	}
	err := s.db.WithContext(ctx).Model(&models.Product{ID: id}).Updates(updates).Error
	if isUniqueViolation(err) {
		return nil, validationErrorf("another product already has this country, name, release date and code")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update product %s: %w", id, err)
	}
	return s.GetProduct(ctx, id)
}

func (s *ProductService) ListProductTypes(ctx context.Context) ([]models.ProductType, error) {
	types := []models.ProductType{}
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&types).Error; err != nil {
		return nil, err
	}
	return types, nil
}

// CardsForProduct lists the cards of the expansion whose code matches the
// product code. Products without a code have no cards.
func (s *ProductService) CardsForProduct(ctx context.Context, id string, skip, take int) (*CardPage, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(p.Code) == "" {
		skip, take = clampPage(skip, take)
		return &CardPage{Data: []CardView{}, Pagination: newPagination(0, skip, take)}, nil
	}
	return s.cards.ListCards(ctx, CardQuery{ExpansionCode: p.Code, Skip: skip, Take: take})
}

// ProductImport is one record of the scraped product catalogue
type ProductImport struct {
	Country           string  `json:"country"`
	ProductName       string  `json:"product_name"`
	Price             *string `json:"price"`
	ReleaseDate       string  `json:"release_date"`
	Code              string  `json:"code"`
	Link              *string `json:"link"`
	ImageURL          *string `json:"image_url"`
	Include           *string `json:"include"`
	CardOnly          *string `json:"card_only"`
	ProductType       string  `json:"product_type"`
	BeginnerFlag      int     `json:"beginner_flag"`
	StoresAvailable   *string `json:"stores_available"`
	LinkCardList      *string `json:"link_card_list"`
	LinkPokemonCenter *string `json:"link_pokemon_center"`
}

var productTypeNames = map[string]string{
	"拡張パック":                   models.ProductTypeExpansionPack,
	"強化拡張パック":                 models.ProductTypeEnhancedExpansion,
	"ハイクラスパック":                models.ProductTypeHighClassPack,
	"スターターセット":                models.ProductTypeStarterSet,
	"入門セット":                   models.ProductTypeStarterSet,
	"構築デッキ":                   models.ProductTypeConstructedDeck,
	"デッキ":                     models.ProductTypeDeck,
	"周辺グッズ":                   models.ProductTypeAccessories,
	"サプライ":                    models.ProductTypeAccessories,
	"その他の商品":                  models.ProductTypeSpecialProducts,
	"特別商品":                    models.ProductTypeSpecialProducts,
	"Expansion Pack":          models.ProductTypeExpansionPack,
	"Enhanced Expansion Pack": models.ProductTypeEnhancedExpansion,
	"High Class Pack":         models.ProductTypeHighClassPack,
	"Starter Set":             models.ProductTypeStarterSet,
	"Constructed Deck":        models.ProductTypeConstructedDeck,
	"Deck":                    models.ProductTypeDeck,
	"Accessories":             models.ProductTypeAccessories,
	"Special Products":        models.ProductTypeSpecialProducts,
}

// Chinese catalogues carry no category, so it is inferred from the name.
// More specific patterns come first.
var productNamePatterns = []struct {
	patterns []string
	code     string
}{
	{[]string{"高級擴充包", "強化擴充包"}, models.ProductTypeEnhancedExpansion},
	{[]string{"擴充包"}, models.ProductTypeExpansionPack},
	{[]string{"初階牌組", "入門套組", "starter"}, models.ProductTypeStarterSet},
	{[]string{"構築牌組", "牌組"}, models.ProductTypeConstructedDeck},
	{[]string{"周邊", "accessories", "デッキシールド"}, models.ProductTypeAccessories},
}

// ProductTypeCode maps a category name to a product type code. Records without
// a category are classified by name; unknown categories yield "".
func ProductTypeCode(category, productName string) string {
	category = strings.TrimSpace(category)
	if category != "" {
		return productTypeNames[category]
	}
	name := strings.ToLower(productName)
	for _, p := range productNamePatterns {
		for _, pattern := range p.patterns {
			if strings.Contains(name, pattern) {
				return p.code
			}
		}
	}
	return models.ProductTypeSpecialProducts
}

type ProductImportResult struct {
	Imported int      `json:"imported"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
}

// ParseProductFile reads a JSON array of product records
func ParseProductFile(r io.Reader) ([]ProductImport, error) {
	var products []ProductImport
	if err := json.NewDecoder(r).Decode(&products); err != nil {
		return nil, validationErrorf("invalid product file: %v", err)
	}
	return products, nil
}

// ImportProducts upserts products on (country, product name, release date, code)
func (s *ProductService) ImportProducts(ctx context.Context, products []ProductImport) (ProductImportResult, error) {
	result := ProductImportResult{Errors: []string{}}

	var types []models.ProductType
	if err := s.db.WithContext(ctx).Find(&types).Error; err != nil {
		return result, fmt.Errorf("failed to load product types: %w", err)
	}
	typeIDs := make(map[string]string, len(types))
	for _, t := range types {
		typeIDs[t.Code] = t.ID
	}

	for _, in := range products {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if strings.TrimSpace(in.Country) == "" || strings.TrimSpace(in.ProductName) == "" {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to import %q: country and product_name are required", in.ProductName))
			metrics.ProductsImportedTotal.WithLabelValues("failed").Inc()
			continue
		}

		p := models.Product{
			Country:           in.Country,
			ProductName:       in.ProductName,
			Price:             in.Price,
			ReleaseDate:       in.ReleaseDate,
			Code:              in.Code,
			Link:              in.Link,
			ImageURL:          in.ImageURL,
			Include:           in.Include,
			CardOnly:          in.CardOnly,
			BeginnerFlag:      in.BeginnerFlag,
			StoresAvailable:   in.StoresAvailable,
			LinkCardList:      in.LinkCardList,
			LinkPokemonCenter: in.LinkPokemonCenter,
		}
		if id, ok := typeIDs[ProductTypeCode(in.ProductType, in.ProductName)]; ok {
			p.ProductTypeID = &id
		}

		err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "country"}, {Name: "product_name"}, {Name: "release_date"}, {Name: "code"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"price", "link", "image_url", "include", "card_only", "product_type_id",
				"beginner_flag", "stores_available", "link_card_list", "link_pokemon_center", "updated_at",
			}),
		}).Create(&p).Error
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to import %q: %v", in.ProductName, err))
			metrics.ProductsImportedTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("product import failed", zap.String("product", in.ProductName), zap.Error(err))
			continue
		}
		result.Imported++
		metrics.ProductsImportedTotal.WithLabelValues("success").Inc()
	}

	s.logger.Info("product import finished",
		zap.Int("imported", result.Imported),
		zap.Int("failed", result.Failed))
	return result, nil
}

func clampPage(skip, take int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = defaultTake
	}
	if take > maxTake {
		take = maxTake
	}
	return skip, take
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
