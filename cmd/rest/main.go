package main

import (
	"context"
	"log"

	"realtime-chat-be/internal/bootstrap"
	"realtime-chat-be/internal/config"
	"realtime-chat-be/internal/server"
	"realtime-chat-be/internal/tracer"
	"realtime-chat-be/pkg/database"

	"gorm.io/gorm"
)

func main() {
	// 0. Initialize Tracer
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	// 1. Load Configuration
	cfg := config.Load()

	// 2. Initialize Database (empty DSN selects the in-memory directory)
	var gormDB *gorm.DB
	if cfg.Database.Connection != "" {
		db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
		if err != nil {
			log.Panicf("Unable to connect to GORM DB: %v", err)
		}
		gormDB = db
	}

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(gormDB, cfg)

	// 4. Start Background Services
	ctx := context.Background()
	container.Hub.Run(ctx)
	if err := container.PresenceService.Consume(ctx); err != nil {
		log.Printf("Background Presence Consumer Error: %v", err)
	}

	// 5. Initialize Server
	srv := server.New(cfg, container)

	// 6. Run Server
	log.Fatal(srv.Run())
}
