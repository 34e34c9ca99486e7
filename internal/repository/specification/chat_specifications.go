package specification

import "gorm.io/gorm"

// ByRoomId filters by the caller-supplied room identifier
type ByRoomId struct {
	RoomId string
}

func (s ByRoomId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("room_id = ?", s.RoomId)
}

// OrderBySeq orders messages by their append sequence (persistence order)
type OrderBySeq struct{}

func (s OrderBySeq) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// Pagination
type Pagination struct {
	Limit  int
	Offset int
}

func (s Pagination) Apply(db *gorm.DB) *gorm.DB {
	if s.Limit > 0 {
		db = db.Limit(s.Limit)
	}
	return db.Offset(s.Offset)
}
