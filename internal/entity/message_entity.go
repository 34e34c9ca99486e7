package entity

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id        uuid.UUID
	Sender    string
	Content   string
	RoomId    string
	Seq       int64
	CreatedAt time.Time
}
