package service

import (
	"context"
	"testing"

	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRoomService() IRoomService {
	store := memory.NewStore()
	return NewRoomService(store.RoomRepository(), store.MessageRepository(), nil, nil, logger.NewNopLogger())
}

func TestCreateAndLookup(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	res, err := svc.Create(ctx, &dto.CreateRoomRequest{RoomId: "R1"})
	require.NoError(t, err)
	assert.Equal(t, "R1", res.RoomId)

	found, err := svc.Lookup(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, "R1", found.RoomId)
}

func TestCreateExistingRoomLeavesHistoryUntouched(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	_, err := svc.Create(ctx, &dto.CreateRoomRequest{RoomId: "R1"})
	require.NoError(t, err)
	_, err = svc.AppendMessage(ctx, "R1", "alice", "hi")
	require.NoError(t, err)

	_, err = svc.Create(ctx, &dto.CreateRoomRequest{RoomId: "R1"})
	assert.ErrorIs(t, err, ErrRoomExists)

	history, err := svc.ListMessages(ctx, "R1", 0, 0)
	require.NoError(t, err)
	require.Len(t, history.Messages, 1)
	assert.Equal(t, "hi", history.Messages[0].Content)
}

func TestLookupUnknownRoom(t *testing.T) {
	svc := newTestRoomService()

	_, err := svc.Lookup(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = svc.ListMessages(context.Background(), "ghost", 0, 0)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestAppendMessageRoundTrip(t *testing.T) {
	svc := newTestRoomService()
	ctx := context.Background()

	_, err := svc.Create(ctx, &dto.CreateRoomRequest{RoomId: "R1"})
	require.NoError(t, err)

	_, err = svc.AppendMessage(ctx, "R1", "bob", "first")
	require.NoError(t, err)
	msg, err := svc.AppendMessage(ctx, "R1", "alice", "hi")
	require.NoError(t, err)
	assert.Equal(t, "alice", msg.Sender)
	assert.NotZero(t, msg.Id)
	assert.False(t, msg.Timestamp.IsZero(), "timestamp is server-assigned")

	history, err := svc.ListMessages(ctx, "R1", 0, 0)
	require.NoError(t, err)
	require.Len(t, history.Messages, 2)

	last := history.Messages[len(history.Messages)-1]
	assert.Equal(t, "alice", last.Sender)
	assert.Equal(t, "hi", last.Content)
	for _, prior := range history.Messages[:len(history.Messages)-1] {
		assert.False(t, last.Timestamp.Before(prior.Timestamp))
	}
}
