package protocol

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestinations(t *testing.T) {
	assert.Equal(t, "room/R1", RoomTopic("R1"))
	assert.Equal(t, "sendMessage/R1", SendDestination("R1"))

	roomId, ok := ParseRoomTopic("room/R1")
	require.True(t, ok)
	assert.Equal(t, "R1", roomId)

	roomId, ok = ParseSendDestination("sendMessage/R1")
	require.True(t, ok)
	assert.Equal(t, "R1", roomId)

	_, ok = ParseRoomTopic("sendMessage/R1")
	assert.False(t, ok)

	_, ok = ParseRoomTopic("room/")
	assert.False(t, ok, "empty room id is not a destination")

	_, ok = ParseSendDestination("room/R1")
	assert.False(t, ok)
}

func TestDecodeRejectsMalformedFrames(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)

	_, err = Decode([]byte(`{"destination":"room/R1"}`))
	assert.Error(t, err, "a frame without a type is invalid")
}

func TestMessageFrameRoundTrip(t *testing.T) {
	msg := Message{
		Id:        uuid.New(),
		Sender:    "alice",
		Content:   "hi",
		RoomId:    "R1",
		Timestamp: time.Now().UTC().Truncate(time.Millisecond),
	}

	data, err := NewMessageFrame(msg).Encode()
	require.NoError(t, err)

	frame, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, FrameMessage, frame.Type)
	assert.Equal(t, "room/R1", frame.Destination)

	var got Message
	require.NoError(t, frame.DecodeBody(&got))
	assert.Equal(t, msg, got)
}
