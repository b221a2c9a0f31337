package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/ptcg-carddb/internal/config"
	"github.com/codyseavey/ptcg-carddb/internal/database"
)

// newTestDB returns a migrated in-memory SQLite database. One connection keeps
// every query on the same in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db, zap.NewNop()))
	return db
}

type testEnv struct {
	db       *gorm.DB
	importer *CardImporter
	cards    *CardService
	products *ProductService
	variants *VariantCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	mapper := NewEnumMapper(DefaultEnumTables())
	variants := NewVariantCache(64, 0)
	logger := zap.NewNop()
	cards := NewCardService(db, mapper, variants, logger)
	return &testEnv{
		db:       db,
		importer: NewCardImporter(db, mapper, logger, WithVariantCache(variants)),
		cards:    cards,
		products: NewProductService(db, cards, logger),
		variants: variants,
	}
}

func (e *testEnv) mustImport(t *testing.T, cards ...CardImport) {
	t.Helper()
	for _, c := range cards {
		_, _, err := e.importer.ImportCard(context.Background(), c)
		require.NoError(t, err, "import %s", c.WebCardID)
	}
}

func strp(s string) *string { return &s }

// pokemon builds a minimal Pokemon import
func pokemon(webCardID, name, expansion, typ, hp string) CardImport {
	return CardImport{
		WebCardID:     webCardID,
		Name:          name,
		ExpansionCode: expansion,
		Supertype:     strp("ポケモン"),
		PokemonTypes:  []string{typ},
		HP:            FlexString(hp),
		Attacks:       json.RawMessage(`[{"name":"たいあたり","damage":"10"}]`),
	}
}

func trainer(webCardID, name, expansion string) CardImport {
	return CardImport{
		WebCardID:     webCardID,
		Name:          name,
		ExpansionCode: expansion,
		Supertype:     strp("トレーナーズ"),
		Subtypes:      []string{"サポート"},
	}
}
