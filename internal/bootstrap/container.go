package bootstrap

import (
	"log"

	"realtime-chat-be/internal/config"
	"realtime-chat-be/internal/controller"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/internal/repository/contract"
	"realtime-chat-be/internal/repository/implementation"
	"realtime-chat-be/internal/repository/memory"
	"realtime-chat-be/internal/service"
	"realtime-chat-be/internal/websocket"

	pktNats "realtime-chat-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RoomController controller.IRoomController

	// WebSockets
	ChatHandler *websocket.ChatHandler
	Hub         *websocket.Hub

	// Background services (exposed for main.go to run)
	PresenceService service.IPresenceService

	Logger logger.ILogger
}

// NewContainer wires the dependency graph. A nil db selects the
// in-memory room directory.
func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus (in-process)
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Infrastructure
	// NATS (optional: external consumers of persisted messages)
	var natsPub *pktNats.Publisher
	if cfg.App.NatsURL != "" {
		pub, err := pktNats.NewPublisher(cfg.App.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		} else {
			natsPub = pub
		}
	}

	// Redis (optional: cross-instance fan-out bridge)
	var rdb *redis.Client
	if cfg.App.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Invalid REDIS_URL: %v", err)
		} else {
			rdb = redis.NewClient(opts)
		}
	}

	// 4. Room Directory storage
	var roomRepo contract.RoomRepository
	var messageRepo contract.MessageRepository
	if db != nil {
		roomRepo = implementation.NewRoomRepository(db)
		messageRepo = implementation.NewMessageRepository(db)
	} else {
		log.Println("[INFO] Using in-memory room directory")
		store := memory.NewStore()
		roomRepo = store.RoomRepository()
		messageRepo = store.MessageRepository()
	}

	// 5. Services
	roomService := service.NewRoomService(roomRepo, messageRepo, pubSub, natsPub, sysLogger)

	// 6. Broker and handlers
	hub := websocket.NewHub(roomService, pubSub, rdb, sysLogger)
	chatHandler := websocket.NewChatHandler(hub, sysLogger)

	presenceService := service.NewPresenceService(pubSub, hub, sysLogger)

	roomController := controller.NewRoomController(roomService)

	return &Container{
		RoomController:  roomController,
		ChatHandler:     chatHandler,
		Hub:             hub,
		PresenceService: presenceService,
		Logger:          sysLogger,
	}
}
