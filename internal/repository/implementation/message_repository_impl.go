package implementation

import (
	"context"

	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/mapper"
	"realtime-chat-be/internal/model"
	"realtime-chat-be/internal/repository/contract"
	"realtime-chat-be/internal/repository/specification"

	"gorm.io/gorm"
)

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *MessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *MessageRepositoryImpl) Create(ctx context.Context, message *entity.Message) error {
	m := r.mapper.MessageToModel(message)
	// Seq and CreatedAt are database-assigned; the insert is the ordering
	// point for the room.
	m.Seq = 0
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *MessageRepositoryImpl) FindAllByRoomId(ctx context.Context, roomId string, limit, offset int) ([]*entity.Message, error) {
	var models []*model.Message
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByRoomId{RoomId: roomId},
		specification.OrderBySeq{},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Message, len(models))
	for i, m := range models {
		entities[i] = r.mapper.MessageToEntity(m)
	}
	return entities, nil
}

func (r *MessageRepositoryImpl) CountByRoomId(ctx context.Context, roomId string) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Message{}),
		specification.ByRoomId{RoomId: roomId},
	)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
