package implementation

import (
	"context"
	"errors"

	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/mapper"
	"realtime-chat-be/internal/model"
	"realtime-chat-be/internal/repository/contract"
	"realtime-chat-be/internal/repository/specification"

	"gorm.io/gorm"
)

type RoomRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewRoomRepository(db *gorm.DB) contract.RoomRepository {
	return &RoomRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *RoomRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *RoomRepositoryImpl) Create(ctx context.Context, room *entity.Room) error {
	m := r.mapper.RoomToModel(room)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		// Requires TranslateError on the gorm config (see pkg/database).
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return contract.ErrDuplicateRoom
		}
		return err
	}
	*room = *r.mapper.RoomToEntity(m)
	return nil
}

func (r *RoomRepositoryImpl) FindByRoomId(ctx context.Context, roomId string) (*entity.Room, error) {
	var m model.Room
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByRoomId{RoomId: roomId})
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.RoomToEntity(&m), nil
}

func (r *RoomRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.Room{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
