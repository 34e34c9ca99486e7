package model

import (
	"time"

	"github.com/google/uuid"
)

type Room struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RoomId    string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Room) TableName() string {
	return "rooms"
}
