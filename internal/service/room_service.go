package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/internal/repository/contract"
	"realtime-chat-be/pkg/events"
	pktNats "realtime-chat-be/pkg/nats"
	"realtime-chat-be/pkg/protocol"

	"github.com/ThreeDotsLabs/watermill"
	wmMessage "github.com/ThreeDotsLabs/watermill/message"
)

// IRoomService is the Room Directory surface: the single owner of rooms
// and of message history, and the single ordering authority per room.
type IRoomService interface {
	Create(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error)
	Lookup(ctx context.Context, roomId string) (*dto.RoomResponse, error)
	Exists(ctx context.Context, roomId string) error
	ListMessages(ctx context.Context, roomId string, limit, offset int) (*dto.ListMessagesResponse, error)
	AppendMessage(ctx context.Context, roomId, sender, content string) (*protocol.Message, error)
}

type roomService struct {
	roomRepo    contract.RoomRepository
	messageRepo contract.MessageRepository
	bus         wmMessage.Publisher
	natsPub     *pktNats.Publisher
	logger      logger.ILogger
}

func NewRoomService(
	roomRepo contract.RoomRepository,
	messageRepo contract.MessageRepository,
	bus wmMessage.Publisher,
	natsPub *pktNats.Publisher,
	log logger.ILogger,
) IRoomService {
	return &roomService{
		roomRepo:    roomRepo,
		messageRepo: messageRepo,
		bus:         bus,
		natsPub:     natsPub,
		logger:      log,
	}
}

func (s *roomService) Create(ctx context.Context, req *dto.CreateRoomRequest) (*dto.RoomResponse, error) {
	room := entity.Room{RoomId: req.RoomId}
	if err := s.roomRepo.Create(ctx, &room); err != nil {
		if errors.Is(err, contract.ErrDuplicateRoom) {
			return nil, ErrRoomExists
		}
		return nil, err
	}

	s.logger.Info("RoomService", "Room created", map[string]interface{}{"room_id": room.RoomId})
	s.publishActivity(dto.RoomActivityMessage{
		RoomId:     room.RoomId,
		Event:      dto.RoomActivityCreated,
		OccurredAt: room.CreatedAt,
	})

	return &dto.RoomResponse{RoomId: room.RoomId, CreatedAt: room.CreatedAt}, nil
}

func (s *roomService) Lookup(ctx context.Context, roomId string) (*dto.RoomResponse, error) {
	room, err := s.roomRepo.FindByRoomId(ctx, roomId)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, ErrRoomNotFound
	}
	return &dto.RoomResponse{RoomId: room.RoomId, CreatedAt: room.CreatedAt}, nil
}

// Exists reports whether the room identifier is known. Lookups are
// idempotent; a created identifier stays stable for process lifetime.
func (s *roomService) Exists(ctx context.Context, roomId string) error {
	_, err := s.Lookup(ctx, roomId)
	return err
}

func (s *roomService) ListMessages(ctx context.Context, roomId string, limit, offset int) (*dto.ListMessagesResponse, error) {
	if _, err := s.Lookup(ctx, roomId); err != nil {
		return nil, err
	}

	if limit < 0 {
		limit = 0
	}
	if offset < 0 {
		offset = 0
	}
	messages, err := s.messageRepo.FindAllByRoomId(ctx, roomId, limit, offset)
	if err != nil {
		return nil, err
	}
	total, err := s.messageRepo.CountByRoomId(ctx, roomId)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.MessageResponse, len(messages))
	for i, m := range messages {
		result[i] = &dto.MessageResponse{
			Id:        m.Id,
			Sender:    m.Sender,
			Content:   m.Content,
			RoomId:    m.RoomId,
			Timestamp: m.CreatedAt,
		}
	}
	return &dto.ListMessagesResponse{Messages: result, Total: total}, nil
}

func (s *roomService) AppendMessage(ctx context.Context, roomId, sender, content string) (*protocol.Message, error) {
	message := entity.Message{
		Sender:  sender,
		Content: content,
		RoomId:  roomId,
	}
	if err := s.messageRepo.Create(ctx, &message); err != nil {
		return nil, err
	}

	// Best-effort: external integrations consume persisted messages from
	// JetStream; a bus outage never fails the append.
	if s.natsPub != nil {
		evtCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		evt := events.BaseEvent{
			Type: "CHAT_MESSAGE_PERSISTED",
			Data: map[string]interface{}{
				"message_id": message.Id.String(),
				"room_id":    message.RoomId,
				"sender":     message.Sender,
			},
			OccurredAt: message.CreatedAt,
		}
		if err := s.natsPub.Publish(evtCtx, evt); err != nil {
			s.logger.Warn("RoomService", "Failed to publish persisted-message event", map[string]interface{}{"error": err.Error()})
		}
	}

	return &protocol.Message{
		Id:        message.Id,
		Sender:    message.Sender,
		Content:   message.Content,
		RoomId:    message.RoomId,
		Timestamp: message.CreatedAt,
	}, nil
}

func (s *roomService) publishActivity(activity dto.RoomActivityMessage) {
	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(activity)
	if err != nil {
		return
	}
	if err := s.bus.Publish(dto.RoomActivityTopic, wmMessage.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.Warn("RoomService", "Failed to publish room activity", map[string]interface{}{"error": err.Error()})
	}
}
