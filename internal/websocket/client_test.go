package websocket

import (
	"context"
	"testing"

	"realtime-chat-be/pkg/protocol"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustFrame(t *testing.T, typ protocol.FrameType, destination string, body interface{}) protocol.Frame {
	t.Helper()
	f, err := protocol.NewFrame(typ, destination, body)
	require.NoError(t, err)
	return f
}

func popFrame(t *testing.T, s *Session) protocol.Frame {
	t.Helper()
	select {
	case data := <-s.send:
		f, err := protocol.Decode(data)
		require.NoError(t, err)
		return f
	default:
		t.Fatal("expected a queued frame")
		return protocol.Frame{}
	}
}

func popError(t *testing.T, s *Session) protocol.ErrorBody {
	t.Helper()
	f := popFrame(t, s)
	require.Equal(t, protocol.FrameError, f.Type)
	var body protocol.ErrorBody
	require.NoError(t, f.DecodeBody(&body))
	return body
}

func assertNoFrame(t *testing.T, s *Session) {
	t.Helper()
	select {
	case data := <-s.send:
		t.Fatalf("unexpected queued frame: %s", data)
	default:
	}
}

func TestSendWithoutSubscriptionIsRejected(t *testing.T) {
	hub := newTestHub(t, "R1")
	s := newTestSession(16)
	s.hub = hub

	s.handleFrame(mustFrame(t, protocol.FrameSend, protocol.SendDestination("R1"),
		protocol.SendBody{Sender: "alice", Content: "hi", RoomId: "R1"}))

	body := popError(t, s)
	assert.Equal(t, "not_subscribed", body.Code)
	assert.Equal(t, 0, hub.SubscriberCount("R1"))
}

func TestSubscribeReplacesPriorRoom(t *testing.T) {
	hub := newTestHub(t, "R1", "R2")
	s := newTestSession(16)
	s.hub = hub

	s.handleFrame(mustFrame(t, protocol.FrameSubscribe, protocol.RoomTopic("R1"),
		protocol.SubscribeBody{Sender: "alice"}))
	require.Equal(t, "R1", s.room())
	require.Equal(t, 1, hub.SubscriberCount("R1"))

	s.handleFrame(mustFrame(t, protocol.FrameSubscribe, protocol.RoomTopic("R2"),
		protocol.SubscribeBody{Sender: "alice"}))
	assert.Equal(t, "R2", s.room())
	assert.Equal(t, 0, hub.SubscriberCount("R1"))
	assert.Equal(t, 1, hub.SubscriberCount("R2"))
	assertNoFrame(t, s)
}

func TestResubscribeSameRoomIsNoop(t *testing.T) {
	hub := newTestHub(t, "R1")
	s := newTestSession(16)
	s.hub = hub

	sub := mustFrame(t, protocol.FrameSubscribe, protocol.RoomTopic("R1"),
		protocol.SubscribeBody{Sender: "alice"})
	s.handleFrame(sub)
	s.handleFrame(sub)

	assert.Equal(t, 1, hub.SubscriberCount("R1"))
	assertNoFrame(t, s)
}

func TestSubscribeUnknownRoomSendsErrorFrame(t *testing.T) {
	hub := newTestHub(t)
	s := newTestSession(16)
	s.hub = hub

	s.handleFrame(mustFrame(t, protocol.FrameSubscribe, protocol.RoomTopic("ghost"),
		protocol.SubscribeBody{Sender: "alice"}))

	body := popError(t, s)
	assert.Equal(t, "subscribe_failed", body.Code)
	assert.Equal(t, "", s.room())
}

func TestBadDestinationsAreRejected(t *testing.T) {
	hub := newTestHub(t, "R1")
	s := newTestSession(16)
	s.hub = hub

	// Subscribe on the ingress destination
	s.handleFrame(mustFrame(t, protocol.FrameSubscribe, protocol.SendDestination("R1"), nil))
	assert.Equal(t, "bad_destination", popError(t, s).Code)

	// Send on the broadcast destination
	s.handleFrame(mustFrame(t, protocol.FrameSend, protocol.RoomTopic("R1"),
		protocol.SendBody{Sender: "alice", Content: "hi", RoomId: "R1"}))
	assert.Equal(t, "bad_destination", popError(t, s).Code)
}

func TestSendEchoesThroughRoom(t *testing.T) {
	hub := newTestHub(t, "R1")
	s := newTestSession(16)
	s.hub = hub

	s.handleFrame(mustFrame(t, protocol.FrameSubscribe, protocol.RoomTopic("R1"),
		protocol.SubscribeBody{Sender: "alice"}))
	// Empty body sender falls back to the subscribe identity
	s.handleFrame(mustFrame(t, protocol.FrameSend, protocol.SendDestination("R1"),
		protocol.SendBody{Content: "hi", RoomId: "R1"}))

	f := popFrame(t, s)
	require.Equal(t, protocol.FrameMessage, f.Type)
	var msg protocol.Message
	require.NoError(t, f.DecodeBody(&msg))
	assert.Equal(t, "alice", msg.Sender)
	assert.Equal(t, "hi", msg.Content)
	assert.Equal(t, "R1", msg.RoomId)
}

func TestUnsupportedFrameTypeIsRejected(t *testing.T) {
	hub := newTestHub(t)
	s := newTestSession(16)
	s.hub = hub

	s.handleFrame(protocol.Frame{Type: "bogus"})
	assert.Equal(t, "unsupported_frame", popError(t, s).Code)
}

func TestEnqueueAfterEvictionDoesNotPanic(t *testing.T) {
	hub := newTestHub(t, "R1")
	ctx := context.Background()
	s := newTestSession(1)
	s.hub = hub
	require.NoError(t, hub.Subscribe(ctx, "R1", s))

	require.NoError(t, hub.Publish(ctx, "R1", "alice", "fills the queue"))
	require.NoError(t, hub.Publish(ctx, "R1", "alice", "forces eviction"))
	require.Equal(t, 0, hub.SubscriberCount("R1"))

	// The read pump is still alive after an eviction and answers the
	// client's next frame; the reply must be dropped, not panic.
	s.enqueueFrame(protocol.NewErrorFrame("not_subscribed", "send requires an active subscription to the room"))
	assert.False(t, s.trySend([]byte("late")))
}
