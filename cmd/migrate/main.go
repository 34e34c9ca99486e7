package main

import (
	"log"

	"realtime-chat-be/internal/config"
	"realtime-chat-be/internal/model"
	"realtime-chat-be/pkg/database"
)

func main() {
	cfg := config.Load()
	if cfg.Database.Connection == "" {
		log.Fatal("DB_CONNECTION_STRING is required for migration")
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Unable to connect to GORM DB: %v", err)
	}

	if err := db.AutoMigrate(&model.Room{}, &model.Message{}); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	log.Println("✅ Migration complete")
}
