package mapper

import (
	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) RoomToModel(e *entity.Room) *model.Room {
	return &model.Room{
		Id:        e.Id,
		RoomId:    e.RoomId,
		CreatedAt: e.CreatedAt,
	}
}

func (m *ChatMapper) RoomToEntity(mo *model.Room) *entity.Room {
	return &entity.Room{
		Id:        mo.Id,
		RoomId:    mo.RoomId,
		CreatedAt: mo.CreatedAt,
	}
}

func (m *ChatMapper) MessageToModel(e *entity.Message) *model.Message {
	return &model.Message{
		Id:        e.Id,
		Sender:    e.Sender,
		Content:   e.Content,
		RoomId:    e.RoomId,
		Seq:       e.Seq,
		CreatedAt: e.CreatedAt,
	}
}

func (m *ChatMapper) MessageToEntity(mo *model.Message) *entity.Message {
	return &entity.Message{
		Id:        mo.Id,
		Sender:    mo.Sender,
		Content:   mo.Content,
		RoomId:    mo.RoomId,
		Seq:       mo.Seq,
		CreatedAt: mo.CreatedAt,
	}
}
