package main

import (
	"context"
	"log"

	"support-chat-be/internal/config"
	"support-chat-be/internal/model"
	"support-chat-be/internal/repository/unitofwork"
	"support-chat-be/pkg/chat/intent"
	"support-chat-be/pkg/database"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()

	// 2. Connect to Database using existing GORM helpers
	db, err := database.Open(cfg.Database.Driver, cfg.Database.Connection)
	if err != nil {
		log.Fatal("Error: Failed to connect to database:", err)
	}

	// 3. AutoMigrate chat tables
	log.Println("Step 1: Running AutoMigrate for chat tables...")
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	// 4. Seed the default chip intents (skipped once any intent exists)
	log.Println("Step 2: Seeding default chip intents...")
	inserted, err := intent.SeedDefaults(context.Background(), unitofwork.NewRepositoryFactory(db))
	if err != nil {
		log.Fatalf("Error: Seeding chip intents failed: %v", err)
	}
	log.Printf("Seeded %d chip intents", inserted)

	log.Println("✅ Success: Database migration completed successfully via GORM.")
}
