package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codyseavey/ptcg-carddb/internal/services"
)

// maxImportFileSize bounds uploads to POST /cards/import/file
const maxImportFileSize = 50 << 20

type CardHandler struct {
	cards    *services.CardService
	importer *services.CardImporter
	logger   *zap.Logger
}

func NewCardHandler(cards *services.CardService, importer *services.CardImporter, logger *zap.Logger) *CardHandler {
	return &CardHandler{
		cards:    cards,
		importer: importer,
		logger:   logger.Named("cards_handler"),
	}
}

// ImportBatch imports a JSON batch of scraped cards. Per-card failures are
// reported in the result, so the status is 200 unless the body is malformed.
func (h *CardHandler) ImportBatch(c *gin.Context) {
	var req services.ImportBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, h.importer.ImportBatch(c.Request.Context(), req.Cards))
}

// ImportFile imports a multipart upload ("file") holding a JSON array of cards
func (h *CardHandler) ImportFile(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if fh.Size > maxImportFileSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer f.Close()

	cards, err := services.ParseImportFile(f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.importer.ImportBatch(c.Request.Context(), cards))
}

func (h *CardHandler) ListCards(c *gin.Context) {
	var q services.CardQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}
	page, err := h.cards.ListCards(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.cards.GetCard(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) GetCardByWebCardID(c *gin.Context) {
	card, err := h.cards.GetCardByWebCardID(c.Request.Context(), c.Param("webCardId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) UpdateEvolution(c *gin.Context) {
	var req services.EvolutionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	card, err := h.cards.UpdateEvolution(c.Request.Context(), c.Param("webCardId"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, card)
}

func (h *CardHandler) PatchCard(c *gin.Context) {
	var patch map[string]json.RawMessage
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	card, err := h.cards.PatchCard(c.Request.Context(), c.Param("webCardId"), patch)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, card)
}
