package main

import (
	"log"
	"log/slog"

	"encantia/internal/config"
	"encantia/internal/database"
	"encantia/internal/logging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)

	slog.Info("Starting database migration...", "driver", cfg.Database.Driver)

	// Connect to database
	db, err := database.Connect(cfg.Database.Driver, cfg.Database.URI)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("Failed to get database instance:", err)
	}
	defer sqlDB.Close()

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		log.Fatal("Failed to ping database:", err)
	}
	slog.Info("Database connection established")

	slog.Info("Running GORM auto-migration...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("Migration failed:", err)
	}

	if err := database.SeedSettings(db); err != nil {
		log.Fatal("Failed to create settings row:", err)
	}

	slog.Info("Database migration completed successfully!")
}
