package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xelth-com/fabricplan/internal/buildinfo"
	"github.com/xelth-com/fabricplan/internal/config"
	"github.com/xelth-com/fabricplan/internal/database"
	"github.com/xelth-com/fabricplan/internal/handlers"
	"github.com/xelth-com/fabricplan/internal/metrics"
	"github.com/xelth-com/fabricplan/internal/packing"
	"github.com/xelth-com/fabricplan/internal/services/catalog"
	"github.com/xelth-com/fabricplan/internal/services/layouts"
	"github.com/xelth-com/fabricplan/internal/services/planner"
	"github.com/xelth-com/fabricplan/internal/websocket"
)

func main() {
	// Metres and percentages go over the wire as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 2. Initialize database (Detects Embedded vs External automatically)
	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Note: db.Close() is called manually in shutdown handler below

	// 3. Auto-Migrate Schema
	log.Println("🚀 Synchronizing database schema...")
	if err := db.Migrate(); err != nil {
		log.Fatalf("❌ Migration failed: %v", err)
	}
	log.Println("✅ Schema synchronized successfully")

	// 4. Services
	collector := metrics.NewPrometheus(nil, "")
	selector := packing.NewSelector(collector.ObservePacking)

	hub := websocket.NewHub()
	go hub.Run()

	catalogSvc := catalog.NewService(db.DB)
	planSvc := planner.NewService(planner.NewGormStore(db.DB), catalogSvc, selector, cfg.Layout)
	planSvc.SetPublisher(hub)
	planSvc.SetRecorder(collector)

	layoutSvc := layouts.NewService(db.DB, catalogSvc, planSvc.Store(), selector, cfg.Layout)
	layoutSvc.SetPublisher(hub)

	// 5. Set up HTTP router
	router := handlers.NewRouter(cfg, handlers.Services{
		Catalog: catalogSvc,
		Plans:   planSvc,
		Layouts: layoutSvc,
		Hub:     hub,
		Metrics: collector.Handler(),
	})

	if !cfg.AuthEnabled() {
		log.Println("⚠️ JWT_SECRET not set: mutating endpoints are open")
	}

	// 6. Start server with graceful shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for shutdown signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Fabric planner %s starting on port %s (outer %s m, inner %s m)\n",
			buildinfo.Version, cfg.Port, cfg.Layout.OuterSpacing, cfg.Layout.InnerSpacing)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sig := <-shutdown
	log.Printf("\n⚠️  Received signal: %v. Shutting down gracefully...\n", sig)

	// Create context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	hub.Stop()

	// Close database (this also stops embedded PostgreSQL)
	log.Println("🛑 Closing database connection...")
	if err := db.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("✅ Shutdown complete")
}
