package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codyseavey/ptcg-carddb/internal/models"
)

func TestImportPikachuCreatesExpansions(t *testing.T) {
	env := newTestEnv(t)

	card, warnings, err := env.importer.ImportCard(context.Background(), CardImport{
		WebCardID:     "jp00001",
		Name:          "ピカチュウ",
		ExpansionCode: "sv1",
		Supertype:     strp("ポケモン"),
		PokemonTypes:  []string{"雷"},
		HP:            "60",
	})
	require.NoError(t, err)
	assert.Empty(t, warnings)

	require.NotNil(t, card.Supertype)
	assert.Equal(t, models.SupertypePokemon, *card.Supertype)
	assert.Equal(t, models.StringList{"LIGHTNING"}, card.Types)
	require.NotNil(t, card.HP)
	assert.Equal(t, 60, *card.HP)
	assert.Equal(t, models.LanguageJapanese, card.Language)
	assert.Equal(t, models.VariantNormal, card.VariantType)

	var primary models.PrimaryExpansion
	require.NoError(t, env.db.Where("code = ?", "SV1").Take(&primary).Error)
	assert.Equal(t, "Japanese Set SV1", primary.NameEn)

	var regional models.RegionalExpansion
	require.NoError(t, env.db.Where("code = ? AND region = ?", "sv1", models.RegionJapan).Take(&regional).Error)
	assert.Equal(t, primary.ID, regional.PrimaryExpansionID)
	assert.Equal(t, regional.ID, card.RegionalExpansionID)
}

func TestImportSamePayloadTwiceUpdatesSameRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	in := pokemon("jp00002", "ライチュウ", "sv1", "雷", "120")

	first, _, err := env.importer.ImportCard(ctx, in)
	require.NoError(t, err)

	in.Artist = strp("Ken Sugimori")
	second, _, err := env.importer.ImportCard(ctx, in)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.PrimaryCardID, second.PrimaryCardID)

	var count int64
	require.NoError(t, env.db.Model(&models.Card{}).Where("web_card_id = ?", "jp00002").Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, env.db.Model(&models.PrimaryCard{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	require.NoError(t, env.db.Model(&models.RegionalExpansion{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var stored models.Card
	require.NoError(t, env.db.Where("id = ?", first.ID).Take(&stored).Error)
	require.NotNil(t, stored.Artist)
	assert.Equal(t, "Ken Sugimori", *stored.Artist)
}

func TestImportPrimaryCardIdentity(t *testing.T) {
	env := newTestEnv(t)

	a := pokemon("jp00010", "ピカチュウ", "sv1", "雷", "60")
	b := pokemon("hk00010", "ピカチュウ", "sv1", "雷", "60")
	b.Language = strp("ZH_HK")
	c := pokemon("jp00011", "ピカチュウ", "sv2", "雷", "70")
	c.Attacks = json.RawMessage(`[{"name":"10まんボルト","damage":"90"}]`)
	env.mustImport(t, a, b, c)

	var cards []models.Card
	require.NoError(t, env.db.Order("web_card_id").Find(&cards).Error)
	require.Len(t, cards, 3)
	byID := map[string]models.Card{}
	for _, card := range cards {
		byID[card.WebCardID] = card
	}

	// same name and mechanics share one identity across languages
	assert.Equal(t, byID["jp00010"].PrimaryCardID, byID["hk00010"].PrimaryCardID)
	// different attacks make a different card
	assert.NotEqual(t, byID["jp00010"].PrimaryCardID, byID["jp00011"].PrimaryCardID)

	var regional models.RegionalExpansion
	require.NoError(t, env.db.Where("id = ?", byID["hk00010"].RegionalExpansionID).Take(&regional).Error)
	assert.Equal(t, models.RegionHongKong, regional.Region)
	assert.Equal(t, "HK sv1", regional.Name)
}

func TestImportPokemonRequiresType(t *testing.T) {
	env := newTestEnv(t)

	in := pokemon("jp00020", "イーブイ", "sv1", "雷", "60")
	in.PokemonTypes = nil
	_, _, err := env.importer.ImportCard(context.Background(), in)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "must have a type")

	// legacy types field is used when pokemonTypes is empty
	in.Types = []string{"無色"}
	card, _, err := env.importer.ImportCard(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, models.StringList{"COLORLESS"}, card.Types)
}

func TestImportTrainerAndEnergyWithoutTypes(t *testing.T) {
	env := newTestEnv(t)

	energy := CardImport{WebCardID: "jp00030", Name: "基本雷エネルギー", ExpansionCode: "sve", Supertype: strp("エネルギー"), Subtypes: []string{"基本エネルギー"}}
	env.mustImport(t, trainer("jp00031", "博士の研究", "sv1"), energy)

	var stored models.Card
	require.NoError(t, env.db.Where("web_card_id = ?", "jp00031").Take(&stored).Error)
	assert.Equal(t, models.StringList{"SUPPORTER"}, stored.Subtypes)
	assert.Nil(t, stored.EvolutionStage)
	assert.Equal(t, models.StringList{}, stored.Types)
}

func TestImportUnmappedValuesWarn(t *testing.T) {
	env := newTestEnv(t)

	in := pokemon("jp00040", "ミュウ", "sv1", "超", "70")
	in.Rarity = strp("???")
	in.PokemonTypes = []string{"超", "宇宙"}
	card, warnings, err := env.importer.ImportCard(context.Background(), in)
	require.NoError(t, err)

	assert.Nil(t, card.Rarity)
	assert.Equal(t, models.StringList{"PSYCHIC"}, card.Types)
	require.Len(t, warnings, 2)
	assert.Contains(t, strings.Join(warnings, "\n"), `unmapped rarity "???"`)
	assert.Contains(t, strings.Join(warnings, "\n"), `unmapped type "宇宙"`)
}

func TestImportKeepsCuratedEvolution(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	in := pokemon("jp00050", "ピカチュウ", "sv1", "雷", "60")
	env.mustImport(t, in)
	_, err := env.cards.UpdateEvolution(ctx, "jp00050", EvolutionUpdate{EvolvesTo: &NameList{"ライチュウ"}})
	require.NoError(t, err)

	// a rescrape without evolution data leaves the curated link alone
	env.mustImport(t, in)
	var stored models.Card
	require.NoError(t, env.db.Where("web_card_id = ?", "jp00050").Take(&stored).Error)
	require.NotNil(t, stored.EvolvesTo)
	assert.Equal(t, "ライチュウ", *stored.EvolvesTo)
}

func TestImportRejectsPlaceholderAndMissingFields(t *testing.T) {
	env := newTestEnv(t)

	tests := []CardImport{
		{Name: "ピカチュウ", ExpansionCode: "sv1"},
		{WebCardID: "jp1", ExpansionCode: "sv1"},
		{WebCardID: "jp2", Name: "カード検索", ExpansionCode: "sv1"},
		{WebCardID: "jp3", Name: "ピカチュウ"},
		{WebCardID: "jp4", Name: "ピカチュウ", ExpansionCode: "sv1", Attacks: json.RawMessage(`{"name":"x"}`)},
	}
	for _, in := range tests {
		_, _, err := env.importer.ImportCard(context.Background(), in)
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr, "import %+v", in)
	}
}

func TestImportBatchContinuesPastFailures(t *testing.T) {
	env := newTestEnv(t)

	bad := pokemon("jp00061", "ピチュー", "sv1", "雷", "30")
	bad.PokemonTypes = nil
	res := env.importer.ImportBatch(context.Background(), []CardImport{
		pokemon("jp00060", "ピカチュウ", "sv1", "雷", "60"),
		bad,
		trainer("jp00062", "ナンジャモ", "sv1"),
	})

	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.True(t, strings.HasPrefix(res.Errors[0], "Failed to import jp00061:"), res.Errors[0])
}

func TestImportBatchStopsOnCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := env.importer.ImportBatch(ctx, []CardImport{
		pokemon("jp00070", "ピカチュウ", "sv1", "雷", "60"),
		pokemon("jp00071", "ライチュウ", "sv1", "雷", "120"),
	})
	assert.Equal(t, 0, res.Success)
	assert.Equal(t, 2, res.Failed)
}

func TestImportInvalidatesVariantCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.mustImport(t, pokemon("jp00080", "ピカチュウ", "sv1", "雷", "60"))
	detail, err := env.cards.GetCardByWebCardID(ctx, "jp00080")
	require.NoError(t, err)
	assert.Empty(t, detail.LanguageVariants)

	hk := pokemon("hk00080", "ピカチュウ", "sv1", "雷", "60")
	hk.Language = strp("ZH_HK")
	env.mustImport(t, hk)

	detail, err = env.cards.GetCardByWebCardID(ctx, "jp00080")
	require.NoError(t, err)
	require.Len(t, detail.LanguageVariants, 1)
	assert.Equal(t, "hk00080", detail.LanguageVariants[0].WebCardID)
}

func TestParseImportFile(t *testing.T) {
	cards, err := ParseImportFile(strings.NewReader("\xef\xbb\xbf[{\"webCardId\":\"jp1\",\"name\":\"ピカチュウ\",\"hp\":60}]"))
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, FlexString("60"), cards[0].HP)

	_, err = ParseImportFile(strings.NewReader(`{"cards":[]}`))
	require.Error(t, err)
	assert.Equal(t, "File must contain an array of cards", err.Error())

	_, err = ParseImportFile(strings.NewReader(`[{`))
	require.Error(t, err)
	assert.Equal(t, "Invalid JSON file", err.Error())
}

func TestNormalizeWithoutDatabase(t *testing.T) {
	importer := NewCardImporter(nil, NewEnumMapper(DefaultEnumTables()), zap.NewNop())

	in := pokemon("hk01000", "皮卡丘", "SV1a", "雷", "HP60")
	in.Language = strp("ZH_HK")
	in.CollectorNumber = strp("025/078")
	in.Subtypes = []string{"テラスタル", "テラスタル"}
	m, err := importer.Normalize(in)
	require.NoError(t, err)

	assert.Equal(t, models.RegionHongKong, m.Region)
	assert.Equal(t, "SV1a", m.ExpansionCode)
	require.NotNil(t, m.CardNumber)
	assert.Equal(t, "025", *m.CardNumber)
	assert.Equal(t, models.StringList{"TERA"}, m.Card.Subtypes)
	assert.Len(t, m.Signature, SignatureLength)
}
