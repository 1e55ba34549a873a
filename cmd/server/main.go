package main

import (
	"context"
	"fmt"
	"log"

	"invoflow/internal/config"
	"invoflow/internal/handler"
	"invoflow/internal/modelclient/gemini"
	"invoflow/internal/repository/postgres"
	"invoflow/internal/router"
	"invoflow/internal/service"
	s3storage "invoflow/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	cacheRepo := postgres.NewPromptCacheRepo(db)
	invoiceRepo := postgres.NewInvoiceRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Initialize model client
	modelClient := gemini.NewClient(&cfg.Model)

	// Initialize services
	extractionSvc := service.NewExtractionService(cacheRepo, modelClient, invoiceRepo, s3Client, &cfg.S3)
	invoiceSvc := service.NewInvoiceService(invoiceRepo, s3Client, &cfg.S3)
	statsSvc := service.NewStatsService(invoiceRepo, cacheRepo)

	// Background cache cleanup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	janitor := service.NewCacheJanitor(cacheRepo, service.CacheJanitorConfig{
		Interval: cfg.Cache.CleanupInterval,
		MaxAge:   cfg.Cache.MaxAge(),
	})
	go janitor.Start(ctx)

	// Initialize handlers
	invoiceH := handler.NewInvoiceHandler(extractionSvc, invoiceSvc)
	statsH := handler.NewStatsHandler(statsSvc)
	cacheH := handler.NewCacheHandler(cacheRepo, cfg.Cache.MaxAge())
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(&cfg.CORS, invoiceH, statsH, cacheH, healthH)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
