package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/codyseavey/ptcg-carddb/internal/metrics"
	"github.com/codyseavey/ptcg-carddb/internal/models"
)

const (
	maxLanguageVariants = 10
	unknownExpansion    = "Unknown expansion"
)

// Pagination is returned with every list response
type Pagination struct {
	Total   int64 `json:"total"`
	Skip    int   `json:"skip"`
	Take    int   `json:"take"`
	HasMore bool  `json:"hasMore"`
}

func newPagination(total int64, skip, take int) Pagination {
	return Pagination{Total: total, Skip: skip, Take: take, HasMore: int64(skip+take) < total}
}

// ExpansionSummary flattens a card's expansion chain for display
type ExpansionSummary struct {
	Code        string        `json:"code"`
	Region      models.Region `json:"region,omitempty"`
	Name        string        `json:"name"`
	PrimaryCode string        `json:"primaryCode"`
	PrimaryName string        `json:"primaryName"`
}

// CardView is the card shape returned by every read endpoint
type CardView struct {
	models.Card
	Expansion ExpansionSummary `json:"expansion"`
}

// CardDetail adds the sibling printings to a card
type CardDetail struct {
	CardView
	LanguageVariants []models.LanguageVariant `json:"languageVariants"`
}

type CardPage struct {
	Data       []CardView `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// CardService serves card reads and admin edits
type CardService struct {
	db       *gorm.DB
	mapper   *EnumMapper
	variants *VariantCache
	logger   *zap.Logger
}

func NewCardService(db *gorm.DB, mapper *EnumMapper, variants *VariantCache, logger *zap.Logger) *CardService {
	return &CardService{
		db:       db,
		mapper:   mapper,
		variants: variants,
		logger:   logger.Named("cards"),
	}
}

// ListCards runs the filter on the ORM path, or on the raw SQL path when a JSON
// predicate is present. Both return the same page shape.
func (s *CardService) ListCards(ctx context.Context, q CardQuery) (*CardPage, error) {
	return s.list(ctx, BuildCardFilter(q, s.mapper))
}

func (s *CardService) list(ctx context.Context, f *CardFilter) (*CardPage, error) {
	var (
		cards []models.Card
		total int64
		err   error
	)
	if f.RequiresRaw() {
		metrics.CardQueriesTotal.WithLabelValues("raw").Inc()
		cards, total, err = s.listRaw(ctx, f)
	} else {
		metrics.CardQueriesTotal.WithLabelValues("orm").Inc()
		cards, total, err = s.listORM(ctx, f)
	}
	if err != nil {
		return nil, err
	}

	views := make([]CardView, 0, len(cards))
	for _, c := range cards {
		views = append(views, newCardView(c))
	}
	return &CardPage{Data: views, Pagination: newPagination(total, f.Skip, f.Take)}, nil
}

func (s *CardService) listORM(ctx context.Context, f *CardFilter) ([]models.Card, int64, error) {
	d := DialectOf(s.db)
	base := func() *gorm.DB {
		return f.Apply(s.db.WithContext(ctx).Model(&models.Card{}), d)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	var cards []models.Card
	err := base().
		Preload("PrimaryCard").
		Preload("RegionalExpansion.PrimaryExpansion").
		Order(f.OrderBy()).
		Offset(f.Skip).
		Limit(f.Take).
		Find(&cards).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	return cards, total, nil
}

func (s *CardService) listRaw(ctx context.Context, f *CardFilter) ([]models.Card, int64, error) {
	db := s.db.WithContext(ctx)
	where, vars := f.Where(DialectOf(s.db))

	var total int64
	if err := db.Raw("SELECT COUNT(*) FROM cards WHERE "+where, vars...).Scan(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count cards: %w", err)
	}

	query := "SELECT cards.* FROM cards WHERE " + where + " ORDER BY " + f.OrderBy() + " LIMIT ? OFFSET ?"
	args := append(append([]any{}, vars...), f.Take, f.Skip)

	var cards []models.Card
	if err := db.Raw(query, args...).Scan(&cards).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list cards: %w", err)
	}
	if err := s.attachRelations(ctx, cards); err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

// attachRelations loads what Preload provides on the ORM path
func (s *CardService) attachRelations(ctx context.Context, cards []models.Card) error {
	if len(cards) == 0 {
		return nil
	}
	primaryIDs := make([]string, 0, len(cards))
	regionalIDs := make([]string, 0, len(cards))
	for _, c := range cards {
		primaryIDs = append(primaryIDs, c.PrimaryCardID)
		regionalIDs = append(regionalIDs, c.RegionalExpansionID)
	}

	var primaries []models.PrimaryCard
	if err := s.db.WithContext(ctx).Where("id IN ?", primaryIDs).Find(&primaries).Error; err != nil {
		return fmt.Errorf("failed to load primary cards: %w", err)
	}
	var regionals []models.RegionalExpansion
	err := s.db.WithContext(ctx).Preload("PrimaryExpansion").Where("id IN ?", regionalIDs).Find(&regionals).Error
	if err != nil {
		return fmt.Errorf("failed to load expansions: %w", err)
	}

	primaryByID := make(map[string]*models.PrimaryCard, len(primaries))
	for i := range primaries {
		primaryByID[primaries[i].ID] = &primaries[i]
	}
	regionalByID := make(map[string]*models.RegionalExpansion, len(regionals))
	for i := range regionals {
		regionalByID[regionals[i].ID] = &regionals[i]
	}
	for i := range cards {
		cards[i].PrimaryCard = primaryByID[cards[i].PrimaryCardID]
		cards[i].RegionalExpansion = regionalByID[cards[i].RegionalExpansionID]
	}
	return nil
}

func newCardView(c models.Card) CardView {
	summary := ExpansionSummary{
		Name:        unknownExpansion,
		PrimaryName: unknownExpansion,
	}
	if re := c.RegionalExpansion; re != nil {
		summary.Code = re.Code
		summary.Region = re.Region
		summary.Name = re.Name
		if pe := re.PrimaryExpansion; pe != nil {
			summary.PrimaryCode = pe.Code
			summary.PrimaryName = pe.NameEn
		}
	}
	return CardView{Card: c, Expansion: summary}
}

// GetCard looks a card up by internal id
func (s *CardService) GetCard(ctx context.Context, id string) (*CardView, error) {
	var card models.Card
	err := s.db.WithContext(ctx).
		Preload("PrimaryCard").
		Preload("RegionalExpansion.PrimaryExpansion").
		Where("id = ?", id).
		Take(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Card with ID %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	view := newCardView(card)
	return &view, nil
}

// GetCardByWebCardID returns the card with up to ten other printings of the
// same primary card, newest first
func (s *CardService) GetCardByWebCardID(ctx context.Context, webCardID string) (*CardDetail, error) {
	var card models.Card
	err := s.db.WithContext(ctx).
		Preload("PrimaryCard").
		Preload("RegionalExpansion.PrimaryExpansion").
		Where("web_card_id = ?", webCardID).
		Take(&card).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundf("Card with webCardId %s not found", webCardID)
	}
	if err != nil {
		return nil, err
	}

	all, err := s.variantsOf(ctx, card.PrimaryCardID)
	if err != nil {
		return nil, err
	}
	siblings := make([]models.LanguageVariant, 0, maxLanguageVariants)
	for _, v := range all {
		if v.ID == card.ID {
			continue
		}
		if len(siblings) == maxLanguageVariants {
			break
		}
		siblings = append(siblings, v)
	}

	return &CardDetail{CardView: newCardView(card), LanguageVariants: siblings}, nil
}

// variantsOf returns the newest printings of a primary card. One more than the
// cap is kept so the viewed card can be excluded without shortening the list.
func (s *CardService) variantsOf(ctx context.Context, primaryCardID string) ([]models.LanguageVariant, error) {
	if cached, ok := s.variants.Get(primaryCardID); ok {
		return cached, nil
	}

	var variants []models.LanguageVariant
	err := s.db.WithContext(ctx).
		Model(&models.Card{}).
		Select("id", "web_card_id", "name", "language", "variant_type", "image_url").
		Where("primary_card_id = ?", primaryCardID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(maxLanguageVariants + 1).
		Scan(&variants).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load language variants: %w", err)
	}
	s.variants.Add(primaryCardID, variants)
	return variants, nil
}

// EvolutionUpdate is the body of PATCH /cards/web/:webCardId/evolution. Absent
// fields are left unchanged; an empty string clears the field.
type EvolutionUpdate struct {
	EvolvesFrom *string   `json:"evolvesFrom"`
	EvolvesTo   *NameList `json:"evolvesTo"`
}

// UpdateEvolution changes only the evolution chain fields
func (s *CardService) UpdateEvolution(ctx context.Context, webCardID string, in EvolutionUpdate) (*CardView, error) {
	updates := map[string]any{}
	if in.EvolvesFrom != nil {
		if v := strings.TrimSpace(*in.EvolvesFrom); v != "" {
			updates["evolves_from"] = v
		} else {
			updates["evolves_from"] = nil
		}
	}
	if in.EvolvesTo != nil {
		updates["evolves_to"] = in.EvolvesTo.Joined()
	}
	if len(updates) == 0 {
		return nil, validationErrorf("evolvesFrom or evolvesTo is required")
	}
	return s.updateByWebCardID(ctx, webCardID, func(tx *gorm.DB, card *models.Card) error {
		return tx.Model(card).Updates(updates).Error
	})
}

// immutableCardFields cannot be changed through the field patch. The parent
// ids are set by the importer only.
var immutableCardFields = map[string]bool{
	"id":                  true,
	"webCardId":           true,
	"primaryCardId":       true,
	"regionalExpansionId": true,
	"createdAt":           true,
	"updatedAt":           true,
}

// PatchCard applies an arbitrary field patch. Keys are the JSON field names of
// the card; relations and identity fields are rejected.
func (s *CardService) PatchCard(ctx context.Context, webCardID string, patch map[string]json.RawMessage) (*CardView, error) {
	if len(patch) == 0 {
		return nil, validationErrorf("patch body is empty")
	}

	stmt := &gorm.Statement{DB: s.db}
	if err := stmt.Parse(&models.Card{}); err != nil {
		return nil, err
	}
	// look fields up by their JSON name
	byJSON := make(map[string]*schema.Field, len(stmt.Schema.Fields))
	for _, f := range stmt.Schema.Fields {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name != "" && name != "-" && f.DBName != "" {
			byJSON[name] = f
		}
	}

	columns := make([]string, 0, len(patch))
	for key := range patch {
		if immutableCardFields[key] {
			return nil, validationErrorf("field %s cannot be changed", key)
		}
		f, ok := byJSON[key]
		if !ok {
			return nil, validationErrorf("unknown card field %s", key)
		}
		columns = append(columns, f.DBName)
	}

	body, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}

	return s.updateByWebCardID(ctx, webCardID, func(tx *gorm.DB, card *models.Card) error {
		updated := *card
		if err := json.Unmarshal(body, &updated); err != nil {
			return validationErrorf("invalid card patch: %v", err)
		}
		updated.ID = card.ID
		updated.WebCardID = card.WebCardID
		return tx.Model(card).Select(columns).Updates(&updated).Error
	})
}

func (s *CardService) updateByWebCardID(ctx context.Context, webCardID string, apply func(tx *gorm.DB, card *models.Card) error) (*CardView, error) {
	var card models.Card
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("web_card_id = ?", webCardID).Take(&card).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundf("Card with webCardId %s not found", webCardID)
		}
		if err != nil {
			return err
		}
		previousPID := card.PrimaryCardID
		if err := apply(tx, &card); err != nil {
			return err
		}
		s.variants.Invalidate(previousPID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("card updated", zap.String("webCardId", webCardID))
	view, err := s.GetCard(ctx, card.ID)
	if err != nil {
		return nil, err
	}
	s.variants.Invalidate(view.PrimaryCardID)
	return view, nil
}
