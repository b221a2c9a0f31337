package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codyseavey/ptcg-carddb/internal/api"
	"github.com/codyseavey/ptcg-carddb/internal/blob"
	"github.com/codyseavey/ptcg-carddb/internal/config"
	"github.com/codyseavey/ptcg-carddb/internal/database"
	"github.com/codyseavey/ptcg-carddb/internal/logging"
	"github.com/codyseavey/ptcg-carddb/internal/services"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML or TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := database.Initialize(cfg.Database, logger); err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	db := database.GetDB()

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := blob.Open(ctx, cfg.Storage.Blob, cfg.Storage.DataRoot)
	if err != nil {
		logger.Fatal("Failed to open blob store", zap.Error(err))
	}

	mapper := services.NewEnumMapper(services.DefaultEnumTables())
	variants := services.NewVariantCache(1024, 10*time.Minute)
	importer := services.NewCardImporter(db, mapper, logger,
		services.WithMaxAttempts(cfg.Import.MaxAttempts),
		services.WithVariantCache(variants))
	cardService := services.NewCardService(db, mapper, variants, logger)
	productService := services.NewProductService(db, cardService, logger)
	storageService := services.NewStorageService(store, logger)

	// Schedule HTML archive cleanup
	scheduler, err := services.NewCleanupScheduler(ctx, storageService, cfg.Storage.CleanupSchedule)
	if err != nil {
		logger.Fatal("Failed to schedule html cleanup", zap.Error(err))
	}
	if scheduler != nil {
		scheduler.Start()
		logger.Info("HTML archive cleanup scheduled", zap.String("schedule", cfg.Storage.CleanupSchedule))
	}

	router := api.SetupRouter(cfg.Server, cardService, importer, productService, storageService, logger)

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("port", cfg.Server.Port),
			zap.String("db_driver", cfg.Database.Driver),
			zap.String("blob_driver", string(store.Driver())))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	cancel()
	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}
