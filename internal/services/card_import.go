package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/codyseavey/ptcg-carddb/internal/metrics"
	"github.com/codyseavey/ptcg-carddb/internal/models"
)

// placeholderCardName is what the card search page returns for ids that do not exist
const placeholderCardName = "カード検索"

const defaultImportAttempts = 3

// CardImporter runs the normalization pipeline: enum mapping, signature,
// expansion and primary card resolution, and the card upsert
type CardImporter struct {
	db          *gorm.DB
	mapper      *EnumMapper
	expansions  *ExpansionResolver
	variants    *VariantCache
	limiter     *rate.Limiter
	logger      *zap.Logger
	maxAttempts int
}

type ImporterOption func(*CardImporter)

// WithMaxAttempts bounds how often a card is retried after a unique violation
func WithMaxAttempts(n int) ImporterOption {
	return func(i *CardImporter) {
		if n > 0 {
			i.maxAttempts = n
		}
	}
}

// WithVariantCache invalidates cached language variants on import
func WithVariantCache(c *VariantCache) ImporterOption {
	return func(i *CardImporter) { i.variants = c }
}

// WithRateLimit throttles batch imports to the limiter's rate
func WithRateLimit(l *rate.Limiter) ImporterOption {
	return func(i *CardImporter) { i.limiter = l }
}

func NewCardImporter(db *gorm.DB, mapper *EnumMapper, logger *zap.Logger, opts ...ImporterOption) *CardImporter {
	i := &CardImporter{
		db:          db,
		mapper:      mapper,
		expansions:  NewExpansionResolver(),
		logger:      logger.Named("importer"),
		maxAttempts: defaultImportAttempts,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// NormalizedCard is a CardImport after enum mapping and field derivation
type NormalizedCard struct {
	Card          models.Card
	ExpansionCode string
	Region        models.Region
	Signature     string
	CardNumber    *string
	Warnings      []string
}

// Normalize maps a scraped card without touching the database. Unmapped enum
// values come back as warnings and are stored as null.
func (i *CardImporter) Normalize(in CardImport) (*NormalizedCard, error) {
	webCardID := strings.TrimSpace(in.WebCardID)
	name := strings.TrimSpace(in.Name)
	if webCardID == "" {
		return nil, validationErrorf("webCardId is required")
	}
	if name == "" {
		return nil, validationErrorf("card %s has no name", webCardID)
	}
	if name == placeholderCardName {
		return nil, validationErrorf("card %s is a search placeholder, not a card", webCardID)
	}
	if strings.TrimSpace(in.ExpansionCode) == "" {
		return nil, validationErrorf("card %s has no expansion code", webCardID)
	}

	m := &NormalizedCard{ExpansionCode: in.ExpansionCode}
	warn := func(field, value string) {
		metrics.UnmappedEnumValuesTotal.WithLabelValues(field).Inc()
		m.Warnings = append(m.Warnings, fmt.Sprintf("%s: unmapped %s %q", webCardID, field, value))
	}

	language := models.LanguageJapanese
	if in.Language != nil && strings.TrimSpace(*in.Language) != "" {
		if v, ok := i.mapper.Language(*in.Language); ok {
			language = v
		} else {
			warn("language", *in.Language)
		}
	}

	m.Region = models.RegionForLanguage(language)
	if in.Region != nil && strings.TrimSpace(*in.Region) != "" {
		if v, ok := i.mapper.Region(*in.Region); ok {
			m.Region = v
		} else {
			warn("region", *in.Region)
		}
	}

	variant := models.VariantNormal
	if in.VariantType != nil && strings.TrimSpace(*in.VariantType) != "" {
		if v, ok := i.mapper.Variant(*in.VariantType); ok {
			variant = v
		} else {
			warn("variantType", *in.VariantType)
		}
	}

	var supertype *models.Supertype
	if in.Supertype != nil && strings.TrimSpace(*in.Supertype) != "" {
		if v, ok := i.mapper.Supertype(*in.Supertype); ok {
			supertype = &v
		} else {
			warn("supertype", *in.Supertype)
		}
	}
	isPokemon := supertype != nil && *supertype == models.SupertypePokemon

	subtypes := models.StringList{}
	for _, raw := range in.Subtypes {
		if v, ok := i.mapper.Subtype(raw); ok {
			if !subtypes.Contains(string(v)) {
				subtypes = append(subtypes, string(v))
			}
		} else if strings.TrimSpace(raw) != "" {
			warn("subtype", raw)
		}
	}

	var stage *models.EvolutionStage
	if isPokemon && in.EvolutionStage != nil && strings.TrimSpace(*in.EvolutionStage) != "" {
		if v, ok := i.mapper.EvolutionStage(*in.EvolutionStage); ok {
			stage = &v
		} else {
			warn("evolutionStage", *in.EvolutionStage)
		}
	}

	var ruleBox *models.RuleBox
	if in.RuleBox != nil && strings.TrimSpace(*in.RuleBox) != "" {
		if v, ok := i.mapper.RuleBox(*in.RuleBox); ok {
			ruleBox = &v
		} else {
			warn("ruleBox", *in.RuleBox)
		}
	}

	sourceTypes := in.PokemonTypes
	if len(sourceTypes) == 0 {
		sourceTypes = in.Types
	}
	types := models.StringList{}
	for _, raw := range sourceTypes {
		if v, ok := i.mapper.PokemonType(raw); ok {
			if !types.Contains(string(v)) {
				types = append(types, string(v))
			}
		} else if strings.TrimSpace(raw) != "" {
			warn("type", raw)
		}
	}
	if isPokemon && len(types) == 0 {
		return nil, validationErrorf("Pokemon card %s (%s) must have a type. Received pokemonTypes: %s, types: %s",
			webCardID, name, jsonList(in.PokemonTypes), jsonList(in.Types))
	}

	var rarity *models.Rarity
	if in.Rarity != nil && strings.TrimSpace(*in.Rarity) != "" {
		if v, ok := i.mapper.Rarity(*in.Rarity); ok {
			rarity = &v
		} else {
			warn("rarity", *in.Rarity)
		}
	}

	abilities, err := jsonArrayColumn("abilities", in.Abilities)
	if err != nil {
		return nil, validationErrorf("card %s: %v", webCardID, err)
	}
	attacks, err := jsonArrayColumn("attacks", in.Attacks)
	if err != nil {
		return nil, validationErrorf("card %s: %v", webCardID, err)
	}
	m.Signature, err = SkillsSignature(in.Abilities, in.Attacks)
	if err != nil {
		return nil, fmt.Errorf("card %s: failed to compute signature: %w", webCardID, err)
	}

	var weakness datatypes.JSON
	if w := bytes.TrimSpace(in.Weakness); len(w) > 0 && !bytes.Equal(w, []byte("null")) {
		if !json.Valid(w) {
			return nil, validationErrorf("card %s: weakness is not valid JSON", webCardID)
		}
		weakness = datatypes.JSON(w)
	}

	var scrapedAt *time.Time
	if in.ScrapedAt != nil {
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(*in.ScrapedAt)); err == nil {
			scrapedAt = &t
		}
	}

	m.CardNumber = cardNumberFrom(in.CollectorNumber, in.CardNumber)

	var evolvesFrom *string
	if in.EvolvesFrom != nil {
		if s := strings.TrimSpace(*in.EvolvesFrom); s != "" {
			evolvesFrom = &s
		}
	}

	m.Card = models.Card{
		WebCardID:      webCardID,
		Language:       language,
		VariantType:    variant,
		Name:           name,
		Supertype:      supertype,
		Subtypes:       subtypes,
		EvolutionStage: stage,
		EvolvesFrom:    evolvesFrom,
		EvolvesTo:      in.EvolvesTo.Joined(),
		RuleBox:        ruleBox,
		HP:             parseHP(in.HP),
		Types:          types,
		Abilities:      abilities,
		Attacks:        attacks,
		Rules:          models.StringList(cleanNames(in.Rules)),
		Text:           in.Text,
		FlavorText:     in.FlavorText,
		Artist:         in.Artist,
		Rarity:         rarity,
		RegulationMark: in.RegulationMark,
		ImageURL:       in.ImageURL,
		ImageURLHiRes:  in.ImageURLHiRes,
		SourceURL:      in.SourceURL,
		PokedexNumber:  in.PokedexNumber,
		RetreatCost:    in.RetreatCost,
		Weakness:       weakness,
		ScrapedAt:      scrapedAt,
	}
	if m.Card.Rules == nil {
		m.Card.Rules = models.StringList{}
	}
	return m, nil
}

// ImportCard writes one card and its parents in a single transaction, retrying
// from the start when a concurrent import wins a unique constraint race
func (i *CardImporter) ImportCard(ctx context.Context, in CardImport) (*models.Card, []string, error) {
	start := time.Now()
	defer func() { metrics.CardImportDuration.Observe(time.Since(start).Seconds()) }()

	m, err := i.Normalize(in)
	if err != nil {
		return nil, nil, err
	}

	var (
		card        *models.Card
		previousPID string
	)
	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		err = i.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var txErr error
			card, previousPID, txErr = i.write(tx, m)
			return txErr
		})
		if err == nil || !isUniqueViolation(err) {
			break
		}
		if attempt < i.maxAttempts {
			metrics.CardImportRetriesTotal.Inc()
			i.logger.Debug("retrying import after unique violation",
				zap.String("webCardId", m.Card.WebCardID), zap.Int("attempt", attempt), zap.Error(err))
		}
	}
	if err != nil {
		return nil, m.Warnings, err
	}

	i.variants.Invalidate(card.PrimaryCardID, previousPID)
	return card, m.Warnings, nil
}

// write performs expansion -> primary card -> card inside tx. It returns the
// card's previous primary card id when the card moved to a new identity.
func (i *CardImporter) write(tx *gorm.DB, m *NormalizedCard) (*models.Card, string, error) {
	regional, err := i.expansions.Resolve(tx, m.ExpansionCode, m.Region)
	if err != nil {
		return nil, "", err
	}

	primary, err := upsertPrimaryCard(tx, m.Card.Name, m.Signature, regional.PrimaryExpansionID, m.CardNumber)
	if err != nil {
		return nil, "", err
	}

	card := m.Card
	card.PrimaryCardID = primary.ID
	card.RegionalExpansionID = regional.ID

	var existing models.Card
	err = tx.Where("web_card_id = ?", card.WebCardID).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := tx.Create(&card).Error; err != nil {
			return nil, "", fmt.Errorf("failed to create card %s: %w", card.WebCardID, err)
		}
		return &card, "", nil
	case err != nil:
		return nil, "", fmt.Errorf("failed to look up card %s: %w", card.WebCardID, err)
	}

	card.ID = existing.ID
	card.CreatedAt = existing.CreatedAt
	// evolution links may have been curated by hand; keep them unless the source has some
	if card.EvolvesFrom == nil {
		card.EvolvesFrom = existing.EvolvesFrom
	}
	if card.EvolvesTo == nil {
		card.EvolvesTo = existing.EvolvesTo
	}
	if err := tx.Save(&card).Error; err != nil {
		return nil, "", fmt.Errorf("failed to update card %s: %w", card.WebCardID, err)
	}
	return &card, existing.PrimaryCardID, nil
}

func upsertPrimaryCard(tx *gorm.DB, name, signature, expansionID string, cardNumber *string) (*models.PrimaryCard, error) {
	var primary models.PrimaryCard
	err := tx.Where("name = ? AND skills_signature = ?", name, signature).Take(&primary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		primary = models.PrimaryCard{
			Name:               name,
			SkillsSignature:    signature,
			PrimaryExpansionID: &expansionID,
			CardNumber:         cardNumber,
		}
		if err := tx.Create(&primary).Error; err != nil {
			return nil, fmt.Errorf("failed to create primary card %s: %w", name, err)
		}
		return &primary, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up primary card %s: %w", name, err)
	}

	err = tx.Model(&primary).Updates(map[string]any{
		"primary_expansion_id": expansionID,
		"card_number":          cardNumber,
	}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to update primary card %s: %w", name, err)
	}
	return &primary, nil
}

// ImportBatch imports cards one at a time in order. A failing card is recorded
// in the result and the batch continues.
func (i *CardImporter) ImportBatch(ctx context.Context, cards []CardImport) ImportResult {
	result := ImportResult{Errors: []string{}, Warnings: []string{}}

	for idx, in := range cards {
		if i.limiter != nil {
			if err := i.limiter.Wait(ctx); err != nil {
				i.failRemaining(&result, cards[idx:], err)
				break
			}
		}
		if err := ctx.Err(); err != nil {
			i.failRemaining(&result, cards[idx:], err)
			break
		}

		_, warnings, err := i.ImportCard(ctx, in)
		result.Warnings = append(result.Warnings, warnings...)
		for _, w := range warnings {
			i.logger.Warn("unmapped enum value", zap.String("detail", w))
		}
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("Failed to import %s: %v", in.WebCardID, err))
			metrics.CardsImportedTotal.WithLabelValues("failed").Inc()
			i.logger.Warn("card import failed", zap.String("webCardId", in.WebCardID), zap.Error(err))
			continue
		}
		result.Success++
		metrics.CardsImportedTotal.WithLabelValues("success").Inc()
	}

	i.logger.Info("batch import finished",
		zap.Int("success", result.Success), zap.Int("failed", result.Failed), zap.Int("warnings", len(result.Warnings)))
	return result
}

func (i *CardImporter) failRemaining(result *ImportResult, rest []CardImport, err error) {
	for _, in := range rest {
		result.Failed++
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to import %s: %v", in.WebCardID, err))
	}
	metrics.CardsImportedTotal.WithLabelValues("failed").Add(float64(len(rest)))
}

// ParseImportFile decodes an uploaded JSON file, which must hold an array of cards
func ParseImportFile(r io.Reader) ([]CardImport, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read import file: %w", err)
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
	if !json.Valid(data) {
		return nil, validationErrorf("Invalid JSON file")
	}
	if len(data) == 0 || data[0] != '[' {
		return nil, validationErrorf("File must contain an array of cards")
	}

	var cards []CardImport
	if err := json.Unmarshal(data, &cards); err != nil {
		return nil, validationErrorf("Invalid card data: %v", err)
	}
	return cards, nil
}

// jsonArrayColumn validates an abilities/attacks payload; absent or null is stored as SQL NULL
func jsonArrayColumn(field string, raw json.RawMessage) (datatypes.JSON, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	if trimmed[0] != '[' || !json.Valid(trimmed) {
		return nil, fmt.Errorf("%s must be a JSON array", field)
	}
	return datatypes.JSON(trimmed), nil
}

func jsonList(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}
