package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codyseavey/ptcg-carddb/internal/blob"
	"github.com/codyseavey/ptcg-carddb/internal/config"
	"github.com/codyseavey/ptcg-carddb/internal/database"
	"github.com/codyseavey/ptcg-carddb/internal/models"
	"github.com/codyseavey/ptcg-carddb/internal/services"
)

type testServer struct {
	router  *gin.Engine
	storage *services.StorageService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	logger := zap.NewNop()
	require.NoError(t, database.Migrate(db, logger))

	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)

	mapper := services.NewEnumMapper(services.DefaultEnumTables())
	variants := services.NewVariantCache(64, 0)
	importer := services.NewCardImporter(db, mapper, logger, services.WithVariantCache(variants))
	cards := services.NewCardService(db, mapper, variants, logger)
	products := services.NewProductService(db, cards, logger)
	storage := services.NewStorageService(store, logger)

	return &testServer{
		router:  SetupRouter(config.ServerConfig{}, cards, importer, products, storage, logger),
		storage: storage,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

var pikachu = map[string]any{
	"webCardId":     "jp40001",
	"name":          "ピカチュウ",
	"expansionCode": "sv1",
	"supertype":     "ポケモン",
	"pokemonTypes":  []string{"雷"},
	"hp":            60,
	"attacks":       []map[string]string{{"name": "でんき", "damage": "20"}},
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not found", decode[map[string]string](t, w)["error"])
}

func TestImportAndReadCards(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/v1/cards/import/batch", map[string]any{
		"cards": []any{pikachu, map[string]any{"webCardId": "jp40002"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[services.ImportResult](t, w)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 1, res.Failed)

	w = s.do(t, http.MethodGet, "/api/v1/cards/web/jp40001", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	detail := decode[services.CardDetail](t, w)
	assert.Equal(t, "ピカチュウ", detail.Name)
	assert.Equal(t, "sv1", detail.Expansion.Code)
	assert.NotNil(t, detail.LanguageVariants)

	w = s.do(t, http.MethodGet, "/api/v1/cards/"+detail.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/cards/web/jp99999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Card with webCardId jp99999 not found", decode[map[string]string](t, w)["error"])

	w = s.do(t, http.MethodGet, "/api/v1/cards?types=LIGHTNING&sortBy=hp&sortOrder=desc", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page := decode[services.CardPage](t, w)
	require.Len(t, page.Data, 1)
	assert.EqualValues(t, 1, page.Pagination.Total)

	w = s.do(t, http.MethodGet, "/api/v1/cards?skip=-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Oversized pages are capped rather than rejected
	w = s.do(t, http.MethodGet, "/api/v1/cards?take=500", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	page = decode[services.CardPage](t, w)
	assert.Equal(t, 100, page.Pagination.Take)
	assert.Len(t, page.Data, 1)

	w = s.do(t, http.MethodGet, "/api/v1/cards?take=500&hasAttacks=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 100, decode[services.CardPage](t, w).Pagination.Take)
}

func TestImportBatchRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cards/import/batch", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportFile(t *testing.T) {
	s := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "cards.json")
	require.NoError(t, err)
	require.NoError(t, json.NewEncoder(fw).Encode([]any{pikachu}))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cards/import/file", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, 1, decode[services.ImportResult](t, w).Success)

	// No file part
	var empty bytes.Buffer
	mw = multipart.NewWriter(&empty)
	require.NoError(t, mw.WriteField("other", "x"))
	require.NoError(t, mw.Close())
	req = httptest.NewRequest(http.MethodPost, "/api/v1/cards/import/file", &empty)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", decode[map[string]string](t, w)["error"])
}

func TestEditCard(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodPost, "/api/v1/cards/import/batch", map[string]any{"cards": []any{pikachu}})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/cards/web/jp40001/evolution", map[string]any{"evolvesTo": []string{"ライチュウ"}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	card := decode[services.CardDetail](t, w)
	require.NotNil(t, card.EvolvesTo)
	assert.Equal(t, "ライチュウ", *card.EvolvesTo)

	w = s.do(t, http.MethodPatch, "/api/v1/cards/web/jp40001", map[string]any{"artist": "Mitsuhiro Arita"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	card = decode[services.CardDetail](t, w)
	require.NotNil(t, card.Artist)
	assert.Equal(t, "Mitsuhiro Arita", *card.Artist)

	w = s.do(t, http.MethodPatch, "/api/v1/cards/web/jp40001", map[string]any{"webCardId": "jp1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPatch, "/api/v1/cards/web/jp99999", map[string]any{"artist": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/v1/product-types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	types := decode[[]models.ProductType](t, w)
	assert.Len(t, types, len(models.DefaultProductTypes()))

	w = s.do(t, http.MethodGet, "/api/v1/products?productType=bogus", nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[services.ProductPage](t, w)
	assert.Empty(t, page.Data)

	w = s.do(t, http.MethodGet, "/api/v1/products/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Product with ID missing not found", decode[map[string]string](t, w)["error"])

	w = s.do(t, http.MethodGet, "/api/v1/products/missing/cards", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	for _, query := range []string{"take=abc", "skip=abc", "skip=-1"} {
		w = s.do(t, http.MethodGet, "/api/v1/products/missing/cards?"+query, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}

	w = s.do(t, http.MethodGet, "/api/v1/products?take=500", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, decode[services.ProductPage](t, w).Pagination.Take)

	w = s.do(t, http.MethodPut, "/api/v1/products/missing", map[string]any{"country": "JP"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStorageRoutes(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	_, err := s.storage.StoreCardImage(ctx, models.RegionJapan, services.ImageFull, "sv1", "jp40001", strings.NewReader("PNGDATA"))
	require.NoError(t, err)
	_, err = s.storage.StoreEventData(ctx, json.RawMessage(`{"eventId":"ev1"}`), true)
	require.NoError(t, err)

	w := s.do(t, http.MethodGet, "/api/v1/storage/cards/jp40001/image?region=jp", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, "public, max-age=86400", w.Header().Get("Cache-Control"))
	assert.Equal(t, "PNGDATA", w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/storage/cards/jp40001/image", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/storage/cards/jp40001/thumbnail?region=jp", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/storage/cards/jp40001/image?region=kr", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/storage/events/ev1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"eventId":"ev1"}`, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/storage/events/ev1?processed=false", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/storage/events/ev1?processed=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/storage/decks/d1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/storage/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[services.StorageStats](t, w)
	assert.Equal(t, 1, stats.TotalImages)
	assert.Equal(t, 1, stats.TotalEvents)
}
