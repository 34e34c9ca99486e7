package memory

import (
	"context"
	"sync"
	"time"

	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Store is an in-memory Room Directory used for development and tests.
// Rooms never expire; the store lives for process uptime.
type Store struct {
	cache *cache.Cache

	// Guards room creation so duplicate identifiers lose the race.
	mu  sync.Mutex
	seq int64
}

type roomRecord struct {
	mu       sync.Mutex
	room     entity.Room
	messages []*entity.Message
	lastTs   time.Time
}

func NewStore() *Store {
	return &Store{
		cache: cache.New(cache.NoExpiration, cache.NoExpiration),
	}
}

func (s *Store) RoomRepository() contract.RoomRepository {
	return &roomRepository{store: s}
}

func (s *Store) MessageRepository() contract.MessageRepository {
	return &messageRepository{store: s}
}

func (s *Store) record(roomId string) (*roomRecord, bool) {
	if x, found := s.cache.Get(roomId); found {
		return x.(*roomRecord), true
	}
	return nil, false
}

type roomRepository struct {
	store *Store
}

func (r *roomRepository) Create(ctx context.Context, room *entity.Room) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, found := r.store.record(room.RoomId); found {
		return contract.ErrDuplicateRoom
	}
	if room.Id == uuid.Nil {
		room.Id = uuid.New()
	}
	room.CreatedAt = time.Now().UTC()
	r.store.cache.Set(room.RoomId, &roomRecord{room: *room}, cache.NoExpiration)
	return nil
}

func (r *roomRepository) FindByRoomId(ctx context.Context, roomId string) (*entity.Room, error) {
	rec, found := r.store.record(roomId)
	if !found {
		return nil, nil
	}
	room := rec.room
	return &room, nil
}

func (r *roomRepository) Count(ctx context.Context) (int64, error) {
	return int64(r.store.cache.ItemCount()), nil
}

type messageRepository struct {
	store *Store
}

func (r *messageRepository) Create(ctx context.Context, message *entity.Message) error {
	r.store.mu.Lock()
	rec, found := r.store.record(message.RoomId)
	if !found {
		// Appends to an unknown room materialize the record so history
		// reads stay consistent with what was accepted.
		rec = &roomRecord{room: entity.Room{Id: uuid.New(), RoomId: message.RoomId, CreatedAt: time.Now().UTC()}}
		r.store.cache.Set(message.RoomId, rec, cache.NoExpiration)
	}
	r.store.seq++
	seq := r.store.seq
	r.store.mu.Unlock()

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	// Server clock, clamped so timestamps never regress within a room.
	ts := time.Now().UTC()
	if ts.Before(rec.lastTs) {
		ts = rec.lastTs
	}
	rec.lastTs = ts
	message.CreatedAt = ts
	message.Seq = seq

	stored := *message
	rec.messages = append(rec.messages, &stored)
	return nil
}

func (r *messageRepository) FindAllByRoomId(ctx context.Context, roomId string, limit, offset int) ([]*entity.Message, error) {
	rec, found := r.store.record(roomId)
	if !found {
		return []*entity.Message{}, nil
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if offset >= len(rec.messages) {
		return []*entity.Message{}, nil
	}
	end := len(rec.messages)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	out := make([]*entity.Message, 0, end-offset)
	for _, m := range rec.messages[offset:end] {
		copied := *m
		out = append(out, &copied)
	}
	return out, nil
}

func (r *messageRepository) CountByRoomId(ctx context.Context, roomId string) (int64, error) {
	rec, found := r.store.record(roomId)
	if !found {
		return 0, nil
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return int64(len(rec.messages)), nil
}
