package contract

import (
	"context"
	"errors"

	"realtime-chat-be/internal/entity"
)

// ErrDuplicateRoom is returned by Create when the room identifier is
// already taken, regardless of the backing store.
var ErrDuplicateRoom = errors.New("room identifier already exists")

type RoomRepository interface {
	// Create persists a new room. Returns ErrDuplicateRoom from the
	// implementation when the identifier is already taken.
	Create(ctx context.Context, room *entity.Room) error
	// FindByRoomId returns nil, nil when the room does not exist.
	FindByRoomId(ctx context.Context, roomId string) (*entity.Room, error)
	Count(ctx context.Context) (int64, error)
}
