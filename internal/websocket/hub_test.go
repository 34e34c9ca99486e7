package websocket

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/internal/repository/memory"
	"realtime-chat-be/internal/service"
	"realtime-chat-be/pkg/protocol"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(t *testing.T, rooms ...string) *Hub {
	t.Helper()
	store := memory.NewStore()
	directory := service.NewRoomService(store.RoomRepository(), store.MessageRepository(), nil, nil, logger.NewNopLogger())
	for _, roomId := range rooms {
		_, err := directory.Create(context.Background(), &dto.CreateRoomRequest{RoomId: roomId})
		require.NoError(t, err)
	}
	return NewHub(directory, nil, nil, logger.NewNopLogger())
}

func newTestSession(buffer int) *Session {
	return &Session{
		id:     uuid.New(),
		send:   make(chan []byte, buffer),
		logger: logger.NewNopLogger(),
	}
}

func drainMessages(t *testing.T, s *Session) []protocol.Message {
	t.Helper()
	var out []protocol.Message
	for {
		select {
		case data := <-s.send:
			frame, err := protocol.Decode(data)
			require.NoError(t, err)
			if frame.Type != protocol.FrameMessage {
				continue
			}
			var msg protocol.Message
			require.NoError(t, frame.DecodeBody(&msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestSubscribeIsIdempotent(t *testing.T) {
	hub := newTestHub(t, "R1")
	s := newTestSession(16)

	require.NoError(t, hub.Subscribe(context.Background(), "R1", s))
	require.NoError(t, hub.Subscribe(context.Background(), "R1", s))
	assert.Equal(t, 1, hub.SubscriberCount("R1"))
}

func TestSubscribeUnknownRoomAddsNothing(t *testing.T) {
	hub := newTestHub(t)
	s := newTestSession(16)

	err := hub.Subscribe(context.Background(), "ghost", s)
	assert.ErrorIs(t, err, service.ErrRoomNotFound)
	assert.Equal(t, 0, hub.SubscriberCount("ghost"))
}

func TestPublishFansOutInPersistenceOrder(t *testing.T) {
	hub := newTestHub(t, "R1")
	ctx := context.Background()
	alice := newTestSession(16)
	bob := newTestSession(16)
	require.NoError(t, hub.Subscribe(ctx, "R1", alice))
	require.NoError(t, hub.Subscribe(ctx, "R1", bob))

	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(ctx, "R1", "alice", fmt.Sprintf("m%d", i)))
	}

	got := drainMessages(t, alice)
	require.Len(t, got, 5)
	assert.Equal(t, got, drainMessages(t, bob), "every subscriber observes the same order")
	for i, msg := range got {
		assert.Equal(t, fmt.Sprintf("m%d", i), msg.Content)
		assert.Equal(t, "alice", msg.Sender)
		assert.Equal(t, "R1", msg.RoomId)
		if i > 0 {
			assert.False(t, msg.Timestamp.Before(got[i-1].Timestamp))
		}
	}
}

func TestNoRetroactiveDelivery(t *testing.T) {
	hub := newTestHub(t, "R1")
	ctx := context.Background()

	require.NoError(t, hub.Publish(ctx, "R1", "alice", "before"))

	late := newTestSession(16)
	require.NoError(t, hub.Subscribe(ctx, "R1", late))
	assert.Empty(t, drainMessages(t, late), "a late subscriber never receives earlier messages via fan-out")

	require.NoError(t, hub.Publish(ctx, "R1", "alice", "after"))
	got := drainMessages(t, late)
	require.Len(t, got, 1)
	assert.Equal(t, "after", got[0].Content)
}

func TestUnsubscribeAbsentSessionIsNoOp(t *testing.T) {
	hub := newTestHub(t, "R1")
	hub.Unsubscribe("R1", newTestSession(1))
	hub.Unsubscribe("nowhere", newTestSession(1))
}

func TestRemoveSessionStopsDelivery(t *testing.T) {
	hub := newTestHub(t, "R1")
	ctx := context.Background()
	s := newTestSession(16)
	require.NoError(t, hub.Subscribe(ctx, "R1", s))
	s.setSubscription("R1", "alice")

	hub.RemoveSession(s)
	assert.Equal(t, 0, hub.SubscriberCount("R1"))

	// Publishing to the room still succeeds and persists
	require.NoError(t, hub.Publish(ctx, "R1", "bob", "hi"))
	assert.Empty(t, drainMessages(t, s))
}

// failingDirectory always rejects appends; rooms exist.
type failingDirectory struct {
	err error
}

func (d failingDirectory) Exists(context.Context, string) error {
	return nil
}

func (d failingDirectory) AppendMessage(context.Context, string, string, string) (*protocol.Message, error) {
	return nil, d.err
}

func (h *Hub) hasTopic(roomId string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.rooms[roomId]
	return ok
}

func TestSubscribeSurvivesRacingCleanup(t *testing.T) {
	hub := newTestHub(t, "R1")
	ctx := context.Background()

	// The last unsubscriber drops the topic from the room map; a
	// subscriber racing into the same window must end up on the live
	// topic, never on the orphaned one.
	for i := 0; i < 500; i++ {
		a := newTestSession(4)
		require.NoError(t, hub.Subscribe(ctx, "R1", a))

		done := make(chan struct{})
		go func() {
			hub.Unsubscribe("R1", a)
			close(done)
		}()

		b := newTestSession(4)
		require.NoError(t, hub.Subscribe(ctx, "R1", b))
		<-done

		require.Equal(t, 1, hub.SubscriberCount("R1"), "iteration %d", i)
		hub.Unsubscribe("R1", b)
	}
}

func TestFailedAppendLeavesNoTopic(t *testing.T) {
	hub := NewHub(failingDirectory{err: errors.New("append rejected")}, nil, nil, logger.NewNopLogger())

	err := hub.Publish(context.Background(), "R1", "alice", "hi")
	require.Error(t, err)
	assert.False(t, hub.hasTopic("R1"))
}

func TestPublishWithoutSubscribersLeavesNoTopic(t *testing.T) {
	hub := newTestHub(t, "R1")

	require.NoError(t, hub.Publish(context.Background(), "R1", "alice", "hi"))
	assert.False(t, hub.hasTopic("R1"))
}

func TestSlowSubscriberIsEvicted(t *testing.T) {
	hub := newTestHub(t, "R1")
	ctx := context.Background()
	slow := newTestSession(1)
	require.NoError(t, hub.Subscribe(ctx, "R1", slow))

	require.NoError(t, hub.Publish(ctx, "R1", "alice", "fills the queue"))
	require.NoError(t, hub.Publish(ctx, "R1", "alice", "overflows it"))

	assert.Equal(t, 0, hub.SubscriberCount("R1"))
}
