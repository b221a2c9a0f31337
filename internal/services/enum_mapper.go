package services

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/codyseavey/ptcg-carddb/internal/models"
)

// EnumTables holds the source-vocabulary lookup tables. Keys are Japanese terms,
// legacy short codes or English spellings; canonical values need not be listed.
type EnumTables struct {
	Supertypes      map[string]models.Supertype
	Subtypes        map[string]models.Subtype
	EvolutionStages map[string]models.EvolutionStage
	RuleBoxes       map[string]models.RuleBox
	Types           map[string]models.PokemonType
	Rarities        map[string]models.Rarity
	Variants        map[string]models.VariantType
	Languages       map[string]models.LanguageCode
	Regions         map[string]models.Region
}

// DefaultEnumTables returns the vocabulary used by the official Japanese, Hong Kong
// and English card databases
func DefaultEnumTables() EnumTables {
	return EnumTables{
		Supertypes: map[string]models.Supertype{
			"ポケモン":   models.SupertypePokemon,
			"トレーナーズ": models.SupertypeTrainer,
			"トレーナー":  models.SupertypeTrainer,
			"エネルギー":  models.SupertypeEnergy,
			"寶可夢":    models.SupertypePokemon,
			"訓練家":    models.SupertypeTrainer,
			"能量":     models.SupertypeEnergy,
		},
		Subtypes: map[string]models.Subtype{
			"グッズ":      models.SubtypeItem,
			"サポート":     models.SubtypeSupporter,
			"スタジアム":    models.SubtypeStadium,
			"ポケモンのどうぐ": models.SubtypeTool,
			"基本エネルギー":  models.SubtypeBasicEnergy,
			"特殊エネルギー":  models.SubtypeSpecialEnergy,
			"テラスタル":    models.SubtypeTera,
			"エーススペック":  models.SubtypeAceSpec,
			"ACE SPEC": models.SubtypeAceSpec,
			"POKEMON TOOL": models.SubtypeTool,
		},
		EvolutionStages: map[string]models.EvolutionStage{
			"たね":     models.EvolutionBasic,
			"たねポケモン": models.EvolutionBasic,
			"1進化":    models.EvolutionStage1,
			"1 進化":   models.EvolutionStage1,
			"2進化":    models.EvolutionStage2,
			"2 進化":   models.EvolutionStage2,
			"STAGE 1": models.EvolutionStage1,
			"STAGE 2": models.EvolutionStage2,
		},
		RuleBoxes: map[string]models.RuleBox{
			"かがやく":  models.RuleBoxRadiant,
			"メガ":    models.RuleBoxMega,
			"M":     models.RuleBoxMega,
		},
		Types: map[string]models.PokemonType{
			"無色":   models.TypeColorless,
			"悪":    models.TypeDarkness,
			"ドラゴン": models.TypeDragon,
			"フェアリー": models.TypeFairy,
			"闘":    models.TypeFighting,
			"炎":    models.TypeFire,
			"草":    models.TypeGrass,
			"雷":    models.TypeLightning,
			"鋼":    models.TypeMetal,
			"超":    models.TypePsychic,
			"水":    models.TypeWater,
		},
		Rarities: map[string]models.Rarity{
			"C":     models.RarityCommon,
			"U":     models.RarityUncommon,
			"R":     models.RarityRare,
			"RR":    models.RarityDoubleRare,
			"RRR":   models.RarityUltraRare,
			"AR":    models.RarityIllustrationRare,
			"SAR":   models.RaritySpecialIllustrationRare,
			"UR":    models.RarityHyperRare,
			"HR":    models.RarityHyperRare,
			"SR":    models.RarityShinyRare,
			"ACE":   models.RarityAceSpec,
			"PR":    models.RarityPromo,
			"プロモ":   models.RarityPromo,
		},
		Variants: map[string]models.VariantType{
			"ノーマル":         models.VariantNormal,
			"ミラー":          models.VariantReverseHolo,
			"REVERSE HOLO": models.VariantReverseHolo,
			"REVERSE":      models.VariantReverseHolo,
			"ホロ":           models.VariantHolo,
			"COSMOS HOLO":  models.VariantCosmosHolo,
		},
		Languages: map[string]models.LanguageCode{
			"JA":    models.LanguageJapanese,
			"JP":    models.LanguageJapanese,
			"JA-JP": models.LanguageJapanese,
			"日本語":   models.LanguageJapanese,
			"ZH-TW": models.LanguageTraditionalChinese,
			"TW":    models.LanguageTraditionalChinese,
			"繁體中文":  models.LanguageTraditionalChinese,
			"ZH-HK": models.LanguageHongKongChinese,
			"HK":    models.LanguageHongKongChinese,
			"EN":    models.LanguageEnglish,
			"EN-US": models.LanguageEnglish,
			"英語":    models.LanguageEnglish,
		},
		Regions: map[string]models.Region{
			"香港":  models.RegionHongKong,
			"日本":  models.RegionJapan,
			"JA":  models.RegionJapan,
			"US":  models.RegionEnglish,
			"INT": models.RegionEnglish,
		},
	}
}

type enumTable[T ~string] struct {
	literal   map[string]T
	canonical map[string]T
}

func newEnumTable[T ~string](literal map[string]T, canonical []T) enumTable[T] {
	t := enumTable[T]{
		literal:   make(map[string]T, len(literal)),
		canonical: make(map[string]T, len(canonical)),
	}
	for k, v := range literal {
		t.literal[foldEnumInput(k)] = v
	}
	for _, v := range canonical {
		t.canonical[string(v)] = v
	}
	return t
}

// lookup tries the literal table, then the literal table upper-cased, then the
// canonical values themselves
func (t enumTable[T]) lookup(raw string) (T, bool) {
	key := foldEnumInput(raw)
	if key == "" {
		return "", false
	}
	if v, ok := t.literal[key]; ok {
		return v, true
	}
	upper := strings.ToUpper(key)
	if v, ok := t.literal[upper]; ok {
		return v, true
	}
	if v, ok := t.canonical[upper]; ok {
		return v, true
	}
	// canonical values use underscores; accept "stage-1" / "reverse holo" style input
	if v, ok := t.canonical[strings.NewReplacer("-", "_", " ", "_").Replace(upper)]; ok {
		return v, true
	}
	return "", false
}

// foldEnumInput applies NFKC so full-width letters and digits match the tables
func foldEnumInput(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// EnumMapper translates source vocabulary to canonical enum values. Its tables
// are copied at construction and never modified afterwards, so a single mapper
// is safe for concurrent use.
type EnumMapper struct {
	supertypes      enumTable[models.Supertype]
	subtypes        enumTable[models.Subtype]
	evolutionStages enumTable[models.EvolutionStage]
	ruleBoxes       enumTable[models.RuleBox]
	types           enumTable[models.PokemonType]
	rarities        enumTable[models.Rarity]
	variants        enumTable[models.VariantType]
	languages       enumTable[models.LanguageCode]
	regions         enumTable[models.Region]
}

func NewEnumMapper(tables EnumTables) *EnumMapper {
	return &EnumMapper{
		supertypes:      newEnumTable(tables.Supertypes, models.AllSupertypes()),
		subtypes:        newEnumTable(tables.Subtypes, models.AllSubtypes()),
		evolutionStages: newEnumTable(tables.EvolutionStages, models.AllEvolutionStages()),
		ruleBoxes:       newEnumTable(tables.RuleBoxes, models.AllRuleBoxes()),
		types:           newEnumTable(tables.Types, models.AllPokemonTypes()),
		rarities:        newEnumTable(tables.Rarities, models.AllRarities()),
		variants:        newEnumTable(tables.Variants, models.AllVariantTypes()),
		languages:       newEnumTable(tables.Languages, models.AllLanguageCodes()),
		regions:         newEnumTable(tables.Regions, models.AllRegions()),
	}
}

func (m *EnumMapper) Supertype(raw string) (models.Supertype, bool) {
	return m.supertypes.lookup(raw)
}

func (m *EnumMapper) Subtype(raw string) (models.Subtype, bool) {
	return m.subtypes.lookup(raw)
}

func (m *EnumMapper) EvolutionStage(raw string) (models.EvolutionStage, bool) {
	return m.evolutionStages.lookup(raw)
}

func (m *EnumMapper) RuleBox(raw string) (models.RuleBox, bool) {
	return m.ruleBoxes.lookup(raw)
}

func (m *EnumMapper) PokemonType(raw string) (models.PokemonType, bool) {
	return m.types.lookup(raw)
}

func (m *EnumMapper) Rarity(raw string) (models.Rarity, bool) {
	return m.rarities.lookup(raw)
}

func (m *EnumMapper) Variant(raw string) (models.VariantType, bool) {
	return m.variants.lookup(raw)
}

func (m *EnumMapper) Language(raw string) (models.LanguageCode, bool) {
	return m.languages.lookup(raw)
}

func (m *EnumMapper) Region(raw string) (models.Region, bool) {
	return m.regions.lookup(raw)
}
