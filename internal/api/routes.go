package api

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/codyseavey/ptcg-carddb/internal/api/handlers"
	"github.com/codyseavey/ptcg-carddb/internal/config"
	"github.com/codyseavey/ptcg-carddb/internal/services"
)

func SetupRouter(cfg config.ServerConfig, cardService *services.CardService, importer *services.CardImporter, productService *services.ProductService, storageService *services.StorageService, logger *zap.Logger) *gin.Engine {
	router := gin.Default()
	router.Use(metricsMiddleware())

	// CORS configuration - allow origins from config, which has local dev defaults
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false
	router.Use(cors.New(corsConfig))

	cardHandler := handlers.NewCardHandler(cardService, importer, logger)
	productHandler := handlers.NewProductHandler(productService, logger)
	storageHandler := handlers.NewStorageHandler(storageService, logger)

	v1 := router.Group("/api/v1")
	{
		cards := v1.Group("/cards")
		{
			cards.POST("/import/batch", cardHandler.ImportBatch)
			cards.POST("/import/file", cardHandler.ImportFile)
			cards.GET("", cardHandler.ListCards)
			cards.GET("/web/:webCardId", cardHandler.GetCardByWebCardID)
			cards.PATCH("/web/:webCardId/evolution", cardHandler.UpdateEvolution)
			cards.PATCH("/web/:webCardId", cardHandler.PatchCard)
			cards.GET("/:id", cardHandler.GetCard)
		}

		products := v1.Group("/products")
		{
			products.GET("", productHandler.ListProducts)
			products.GET("/:id", productHandler.GetProduct)
			products.PUT("/:id", productHandler.UpdateProduct)
			products.GET("/:id/cards", productHandler.GetProductCards)
		}
		v1.GET("/product-types", productHandler.ListProductTypes)

		storage := v1.Group("/storage")
		{
			storage.GET("/cards/:webCardId/image", storageHandler.GetCardImage)
			storage.GET("/cards/:webCardId/thumbnail", storageHandler.GetCardThumbnail)
			storage.GET("/stats", storageHandler.GetStats)
			storage.GET("/events/:eventId", storageHandler.GetEventData)
			storage.GET("/decks/:deckId", storageHandler.GetDeckData)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	return router
}
