package model

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	Id      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Sender  string    `gorm:"type:varchar(255);not null"`
	Content string    `gorm:"type:text;not null"`
	RoomId  string    `gorm:"type:varchar(64);not null;index"`
	// Seq is the per-table append sequence. Listing orders by it so the
	// persisted order is total even when timestamps collide.
	Seq       int64     `gorm:"autoIncrement;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (Message) TableName() string {
	return "messages"
}
