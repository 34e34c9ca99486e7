package contract

import (
	"context"

	"realtime-chat-be/internal/entity"
)

type MessageRepository interface {
	// Create appends a message to its room's history. The implementation
	// assigns the sequence number and creation timestamp; concurrent
	// appends to the same room are serialized by the storage layer, which
	// is the single ordering authority for a room.
	Create(ctx context.Context, message *entity.Message) error
	// FindAllByRoomId returns messages in persistence order. A limit of 0
	// means no limit.
	FindAllByRoomId(ctx context.Context, roomId string, limit, offset int) ([]*entity.Message, error)
	CountByRoomId(ctx context.Context, roomId string) (int64, error)
}
