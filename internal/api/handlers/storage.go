package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/codyseavey/ptcg-carddb/internal/services"
)

type StorageHandler struct {
	storage *services.StorageService
	logger  *zap.Logger
}

func NewStorageHandler(storage *services.StorageService, logger *zap.Logger) *StorageHandler {
	return &StorageHandler{storage: storage, logger: logger.Named("storage_handler")}
}

// GetCardImage serves GET /storage/cards/:webCardId/image?region=hk&type=full
func (h *StorageHandler) GetCardImage(c *gin.Context) {
	typ, err := services.ParseImageType(c.Query("type"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.serveImage(c, typ)
}

func (h *StorageHandler) GetCardThumbnail(c *gin.Context) {
	h.serveImage(c, services.ImageThumbnail)
}

func (h *StorageHandler) serveImage(c *gin.Context, typ services.ImageType) {
	region, err := services.ParseStorageRegion(c.Query("region"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	info, rc, err := h.storage.OpenCardImage(c.Request.Context(), region, typ, c.Param("webCardId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer rc.Close()

	c.Header("Cache-Control", "public, max-age=86400")
	c.DataFromReader(http.StatusOK, info.Size, "image/png", rc, nil)
}

func (h *StorageHandler) GetStats(c *gin.Context) {
	stats, err := h.storage.Stats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetEventData returns processed event data unless processed=false
func (h *StorageHandler) GetEventData(c *gin.Context) {
	processed := true
	if v := c.Query("processed"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "processed must be true or false"})
			return
		}
		processed = parsed
	}
	data, err := h.storage.GetEventData(c.Request.Context(), c.Param("eventId"), processed)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *StorageHandler) GetDeckData(c *gin.Context) {
	category := services.DeckCategory(c.DefaultQuery("category", string(services.DeckTournament)))
	data, err := h.storage.GetDeckData(c.Request.Context(), c.Param("deckId"), category, c.Query("userId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}
