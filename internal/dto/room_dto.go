package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateRoomRequest struct {
	RoomId string `json:"roomId" validate:"required,min=1,max=64"`
}

type RoomResponse struct {
	RoomId    string    `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	RoomId    string    `json:"roomId"`
	Timestamp time.Time `json:"timestamp"`
}

type ListMessagesResponse struct {
	Messages []*MessageResponse `json:"messages"`
	Total    int64              `json:"total"`
}

// RoomActivityTopic is the in-process bus topic room lifecycle events
// ride between the room service / broker and the presence consumer.
const RoomActivityTopic = "room.activity"

// RoomActivityMessage is the payload published on RoomActivityTopic.
type RoomActivityMessage struct {
	RoomId     string    `json:"roomId"`
	Event      string    `json:"event"`
	Sender     string    `json:"sender,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

const (
	RoomActivityCreated = "created"
	RoomActivityJoined  = "joined"
	RoomActivityLeft    = "left"
)
