package memory

import (
	"context"
	"fmt"
	"testing"

	"realtime-chat-be/internal/entity"
	"realtime-chat-be/internal/repository/contract"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoomCreateAndLookup(t *testing.T) {
	store := NewStore()
	repo := store.RoomRepository()
	ctx := context.Background()

	room := &entity.Room{RoomId: "R1"}
	require.NoError(t, repo.Create(ctx, room))
	assert.NotZero(t, room.Id)
	assert.False(t, room.CreatedAt.IsZero())

	// Lookups are idempotent
	for i := 0; i < 2; i++ {
		found, err := repo.FindByRoomId(ctx, "R1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "R1", found.RoomId)
	}

	missing, err := repo.FindByRoomId(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRoomCreateDuplicate(t *testing.T) {
	store := NewStore()
	repo := store.RoomRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &entity.Room{RoomId: "R1"}))
	err := repo.Create(ctx, &entity.Room{RoomId: "R1"})
	assert.ErrorIs(t, err, contract.ErrDuplicateRoom)
}

func TestMessageAppendOrderAndTimestamps(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	require.NoError(t, store.RoomRepository().Create(ctx, &entity.Room{RoomId: "R1"}))

	repo := store.MessageRepository()
	for i := 0; i < 5; i++ {
		msg := &entity.Message{Sender: "alice", Content: fmt.Sprintf("m%d", i), RoomId: "R1"}
		require.NoError(t, repo.Create(ctx, msg))
		assert.NotZero(t, msg.Id)
		assert.NotZero(t, msg.Seq)
	}

	messages, err := repo.FindAllByRoomId(ctx, "R1", 0, 0)
	require.NoError(t, err)
	require.Len(t, messages, 5)

	for i, msg := range messages {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Content, "messages never reorder after persistence")
		if i > 0 {
			assert.GreaterOrEqual(t, msg.CreatedAt.UnixNano(), messages[i-1].CreatedAt.UnixNano())
			assert.Greater(t, msg.Seq, messages[i-1].Seq)
		}
	}

	count, err := repo.CountByRoomId(ctx, "R1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, count)
}

func TestMessagePagination(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	repo := store.MessageRepository()
	for i := 0; i < 4; i++ {
		require.NoError(t, repo.Create(ctx, &entity.Message{Sender: "a", Content: fmt.Sprintf("m%d", i), RoomId: "R1"}))
	}

	page, err := repo.FindAllByRoomId(ctx, "R1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "m1", page[0].Content)
	assert.Equal(t, "m2", page[1].Content)

	empty, err := repo.FindAllByRoomId(ctx, "R1", 10, 99)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
