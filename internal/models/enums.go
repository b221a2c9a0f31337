package models

// Supertype is the top-level card category
type Supertype string

const (
	SupertypePokemon Supertype = "POKEMON"
	SupertypeTrainer Supertype = "TRAINER"
	SupertypeEnergy  Supertype = "ENERGY"
)

// AllSupertypes returns all valid supertypes
func AllSupertypes() []Supertype {
	return []Supertype{SupertypePokemon, SupertypeTrainer, SupertypeEnergy}
}

// Subtype further classifies trainer and energy cards
type Subtype string

const (
	SubtypeItem          Subtype = "ITEM"
	SubtypeSupporter     Subtype = "SUPPORTER"
	SubtypeStadium       Subtype = "STADIUM"
	SubtypeTool          Subtype = "TOOL"
	SubtypeBasicEnergy   Subtype = "BASIC_ENERGY"
	SubtypeSpecialEnergy Subtype = "SPECIAL_ENERGY"
	SubtypeTera          Subtype = "TERA"
	SubtypeAceSpec       Subtype = "ACE_SPEC"
)

// AllSubtypes returns all valid subtypes
func AllSubtypes() []Subtype {
	return []Subtype{
		SubtypeItem,
		SubtypeSupporter,
		SubtypeStadium,
		SubtypeTool,
		SubtypeBasicEnergy,
		SubtypeSpecialEnergy,
		SubtypeTera,
		SubtypeAceSpec,
	}
}

// EvolutionStage is only meaningful for Pokemon cards
type EvolutionStage string

const (
	EvolutionBasic  EvolutionStage = "BASIC"
	EvolutionStage1 EvolutionStage = "STAGE_1"
	EvolutionStage2 EvolutionStage = "STAGE_2"
)

// AllEvolutionStages returns all valid evolution stages
func AllEvolutionStages() []EvolutionStage {
	return []EvolutionStage{EvolutionBasic, EvolutionStage1, EvolutionStage2}
}

// RuleBox marks Pokemon carrying a special rule (ex, V, VSTAR...)
type RuleBox string

const (
	RuleBoxEX      RuleBox = "EX"
	RuleBoxGX      RuleBox = "GX"
	RuleBoxV       RuleBox = "V"
	RuleBoxVMAX    RuleBox = "VMAX"
	RuleBoxVSTAR   RuleBox = "VSTAR"
	RuleBoxRadiant RuleBox = "RADIANT"
	RuleBoxMega    RuleBox = "MEGA"
)

// AllRuleBoxes returns all valid rule boxes
func AllRuleBoxes() []RuleBox {
	return []RuleBox{
		RuleBoxEX,
		RuleBoxGX,
		RuleBoxV,
		RuleBoxVMAX,
		RuleBoxVSTAR,
		RuleBoxRadiant,
		RuleBoxMega,
	}
}

// PokemonType is an elemental type
type PokemonType string

const (
	TypeColorless PokemonType = "COLORLESS"
	TypeDarkness  PokemonType = "DARKNESS"
	TypeDragon    PokemonType = "DRAGON"
	TypeFairy     PokemonType = "FAIRY"
	TypeFighting  PokemonType = "FIGHTING"
	TypeFire      PokemonType = "FIRE"
	TypeGrass     PokemonType = "GRASS"
	TypeLightning PokemonType = "LIGHTNING"
	TypeMetal     PokemonType = "METAL"
	TypePsychic   PokemonType = "PSYCHIC"
	TypeWater     PokemonType = "WATER"
)

// AllPokemonTypes returns all valid elemental types
func AllPokemonTypes() []PokemonType {
	return []PokemonType{
		TypeColorless,
		TypeDarkness,
		TypeDragon,
		TypeFairy,
		TypeFighting,
		TypeFire,
		TypeGrass,
		TypeLightning,
		TypeMetal,
		TypePsychic,
		TypeWater,
	}
}

type Rarity string

const (
	RarityCommon                  Rarity = "COMMON"
	RarityUncommon                Rarity = "UNCOMMON"
	RarityRare                    Rarity = "RARE"
	RarityDoubleRare              Rarity = "DOUBLE_RARE"
	RarityUltraRare               Rarity = "ULTRA_RARE"
	RarityIllustrationRare        Rarity = "ILLUSTRATION_RARE"
	RaritySpecialIllustrationRare Rarity = "SPECIAL_ILLUSTRATION_RARE"
	RarityHyperRare               Rarity = "HYPER_RARE"
	RarityShinyRare               Rarity = "SHINY_RARE"
	RaritySecretRare              Rarity = "SECRET_RARE"
	RarityAceSpec                 Rarity = "ACE_SPEC"
	RarityPromo                   Rarity = "PROMO"
)

// AllRarities returns all valid rarities
func AllRarities() []Rarity {
	return []Rarity{
		RarityCommon,
		RarityUncommon,
		RarityRare,
		RarityDoubleRare,
		RarityUltraRare,
		RarityIllustrationRare,
		RaritySpecialIllustrationRare,
		RarityHyperRare,
		RarityShinyRare,
		RaritySecretRare,
		RarityAceSpec,
		RarityPromo,
	}
}

// VariantType distinguishes printings of the same card in one language
type VariantType string

const (
	VariantNormal      VariantType = "NORMAL"
	VariantReverseHolo VariantType = "REVERSE_HOLO"
	VariantHolo        VariantType = "HOLO"
	VariantCosmosHolo  VariantType = "COSMOS_HOLO"
	VariantAR          VariantType = "AR"
	VariantSAR         VariantType = "SAR"
	VariantSSR         VariantType = "SSR"
	VariantSR          VariantType = "SR"
	VariantUR          VariantType = "UR"
	VariantMUR         VariantType = "MUR"
	VariantMA          VariantType = "MA"
)

// AllVariantTypes returns all valid variant types
func AllVariantTypes() []VariantType {
	return []VariantType{
		VariantNormal,
		VariantReverseHolo,
		VariantHolo,
		VariantCosmosHolo,
		VariantAR,
		VariantSAR,
		VariantSSR,
		VariantSR,
		VariantUR,
		VariantMUR,
		VariantMA,
	}
}

// LanguageCode is the print language of a card
type LanguageCode string

const (
	LanguageJapanese           LanguageCode = "JA_JP"
	LanguageTraditionalChinese LanguageCode = "ZH_TW"
	LanguageHongKongChinese    LanguageCode = "ZH_HK"
	LanguageEnglish            LanguageCode = "EN_US"
)

// AllLanguageCodes returns all supported print languages
func AllLanguageCodes() []LanguageCode {
	return []LanguageCode{
		LanguageJapanese,
		LanguageTraditionalChinese,
		LanguageHongKongChinese,
		LanguageEnglish,
	}
}

// Region is the market a regional expansion was released in
type Region string

const (
	RegionHongKong Region = "HK"
	RegionJapan    Region = "JP"
	RegionEnglish  Region = "EN"
)

// AllRegions returns all supported regions
func AllRegions() []Region {
	return []Region{RegionHongKong, RegionJapan, RegionEnglish}
}

// RegionForLanguage returns the market a language is printed for.
// Unknown languages fall back to Japan.
func RegionForLanguage(lang LanguageCode) Region {
	switch lang {
	case LanguageTraditionalChinese, LanguageHongKongChinese:
		return RegionHongKong
	case LanguageEnglish:
		return RegionEnglish
	default:
		return RegionJapan
	}
}

// StorageDir returns the lowercase directory name used for this region in the data tree
func (r Region) StorageDir() string {
	switch r {
	case RegionHongKong:
		return "hk"
	case RegionEnglish:
		return "en"
	default:
		return "jp"
	}
}
