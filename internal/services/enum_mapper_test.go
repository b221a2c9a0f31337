package services

import (
	"testing"

	"github.com/codyseavey/ptcg-carddb/internal/models"
)

func TestEnumMapperSupertype(t *testing.T) {
	m := NewEnumMapper(DefaultEnumTables())

	tests := []struct {
		input string
		want  models.Supertype
	}{
		{"ポケモン", models.SupertypePokemon},
		{"寶可夢", models.SupertypePokemon},
		{"POKEMON", models.SupertypePokemon},
		{"pokemon", models.SupertypePokemon},
		{" トレーナーズ ", models.SupertypeTrainer},
		{"エネルギー", models.SupertypeEnergy},
	}
	for _, tt := range tests {
		got, ok := m.Supertype(tt.input)
		if !ok || got != tt.want {
			t.Errorf("Supertype(%q) = %q, %v, want %q", tt.input, got, ok, tt.want)
		}
	}
}

func TestEnumMapperCanonicalSpellings(t *testing.T) {
	m := NewEnumMapper(DefaultEnumTables())

	if got, ok := m.EvolutionStage("1進化"); !ok || got != models.EvolutionStage1 {
		t.Errorf("EvolutionStage(%q) = %q, want %q", "1進化", got, models.EvolutionStage1)
	}
	if got, ok := m.EvolutionStage("stage-1"); !ok || got != models.EvolutionStage1 {
		t.Errorf("EvolutionStage(%q) = %q, want %q", "stage-1", got, models.EvolutionStage1)
	}
	if got, ok := m.EvolutionStage("STAGE_2"); !ok || got != models.EvolutionStage2 {
		t.Errorf("EvolutionStage(%q) = %q, want %q", "STAGE_2", got, models.EvolutionStage2)
	}
	if got, ok := m.Variant("reverse holo"); !ok || got != models.VariantReverseHolo {
		t.Errorf("Variant(%q) = %q, want %q", "reverse holo", got, models.VariantReverseHolo)
	}
	if got, ok := m.Language("ja-JP"); !ok || got != models.LanguageJapanese {
		t.Errorf("Language(%q) = %q, want %q", "ja-JP", got, models.LanguageJapanese)
	}
	if got, ok := m.Region("hk"); !ok || got != models.RegionHongKong {
		t.Errorf("Region(%q) = %q, want %q", "hk", got, models.RegionHongKong)
	}
}

func TestEnumMapperFullWidthInput(t *testing.T) {
	m := NewEnumMapper(DefaultEnumTables())

	// full-width "ＲＲ" folds to "RR"
	if got, ok := m.Rarity("ＲＲ"); !ok || got != models.RarityDoubleRare {
		t.Errorf("Rarity(%q) = %q, want %q", "ＲＲ", got, models.RarityDoubleRare)
	}
	if got, ok := m.EvolutionStage("２進化"); !ok || got != models.EvolutionStage2 {
		t.Errorf("EvolutionStage(%q) = %q, want %q", "２進化", got, models.EvolutionStage2)
	}
}

func TestEnumMapperTypes(t *testing.T) {
	m := NewEnumMapper(DefaultEnumTables())

	tests := map[string]models.PokemonType{
		"雷":         models.TypeLightning,
		"LIGHTNING": models.TypeLightning,
		"lightning": models.TypeLightning,
		"炎":         models.TypeFire,
		"無色":        models.TypeColorless,
	}
	for input, want := range tests {
		got, ok := m.PokemonType(input)
		if !ok || got != want {
			t.Errorf("PokemonType(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestEnumMapperUnmapped(t *testing.T) {
	m := NewEnumMapper(DefaultEnumTables())

	for _, input := range []string{"", "   ", "unknown", "ほのお?"} {
		if got, ok := m.PokemonType(input); ok {
			t.Errorf("PokemonType(%q) = %q, want no match", input, got)
		}
	}
	if got, ok := m.Rarity("SUPER DUPER"); ok {
		t.Errorf("Rarity(%q) = %q, want no match", "SUPER DUPER", got)
	}
}

func TestEnumMapperTablesAreCopied(t *testing.T) {
	tables := DefaultEnumTables()
	m := NewEnumMapper(tables)

	tables.Types["雷"] = models.TypeFire
	if got, _ := m.PokemonType("雷"); got != models.TypeLightning {
		t.Errorf("PokemonType(%q) = %q after caller mutated its tables, want %q", "雷", got, models.TypeLightning)
	}
}
