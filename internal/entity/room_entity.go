package entity

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	Id        uuid.UUID
	RoomId    string
	CreatedAt time.Time
}
