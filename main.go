package main

import (
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yeremiapane/pos-terminal/config"
	"github.com/yeremiapane/pos-terminal/database"
	"github.com/yeremiapane/pos-terminal/events"
	"github.com/yeremiapane/pos-terminal/router"
	"github.com/yeremiapane/pos-terminal/services"
	"github.com/yeremiapane/pos-terminal/utils"
)

func main() {
	// Load .env sebelum membaca konfigurasi apa pun
	if err := godotenv.Load(); err != nil {
		utils.InfoLogger.Println("Warning: .env file not found")
	}
	cfg := config.Load()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Store lokal terminal (sqlite; mysql untuk rig integrasi)
	db, err := database.Open(cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to open local store: %v", err)
	}
	utils.InitDB(db)
	if err := database.AutoMigrate(db); err != nil {
		utils.ErrorLogger.Fatalf("Failed to AutoMigrate: %v", err)
	}

	hub := events.NewHub()
	// Gate mulai offline sampai probe konektivitas pertama melapor
	gate := services.NewManualGate(false)

	queue := services.NewMutationQueue(db, cfg.DeviceID)
	orders, err := services.NewOrderService(db, queue, hub, cfg)
	if err != nil {
		utils.ErrorLogger.Fatalf("Failed to load active orders: %v", err)
	}

	remote := services.NewRemoteClient(cfg.RemoteBaseURL, cfg.DeviceID, cfg.SyncSubmitTimeout)
	catalog := services.NewCatalogService(db, remote)

	engine := services.NewSyncEngine(queue, orders, remote, gate, hub, cfg)
	engine.Start()
	defer engine.Stop()

	r := router.SetupRouter(router.Deps{
		Orders:   orders,
		Queue:    queue,
		Catalog:  catalog,
		Gate:     gate,
		Engine:   engine,
		Hub:      hub,
		DeviceID: cfg.DeviceID,
	})

	utils.InfoLogger.Printf("POS terminal %s listening on port %s", cfg.DeviceID, cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		utils.ErrorLogger.Fatal(err)
	}
}
