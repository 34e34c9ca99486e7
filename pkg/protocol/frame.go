package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FrameType identifies the purpose of a frame on the wire.
type FrameType string

const (
	// Client -> server
	FrameConnect     FrameType = "connect"
	FrameSubscribe   FrameType = "subscribe"
	FrameUnsubscribe FrameType = "unsubscribe"
	FrameSend        FrameType = "send"

	// Server -> client
	FrameConnected FrameType = "connected"
	FrameMessage   FrameType = "message"
	FrameNotice    FrameType = "notice"
	FrameError     FrameType = "error"
)

const (
	roomTopicPrefix = "room/"
	sendDestPrefix  = "sendMessage/"
)

// Frame is the envelope every websocket payload is wrapped in.
// Multiple topic subscriptions can multiplex over one connection by
// carrying their destination in each frame.
type Frame struct {
	Type        FrameType       `json:"type"`
	Destination string          `json:"destination,omitempty"`
	Body        json.RawMessage `json:"body,omitempty"`
}

// Message is the boundary contract between client and broker.
type Message struct {
	Id        uuid.UUID `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	RoomId    string    `json:"roomId"`
	Timestamp time.Time `json:"timestamp"`
}

// SendBody is the client-supplied part of a message. The server assigns
// id and timestamp at persistence time.
type SendBody struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
	RoomId  string `json:"roomId"`
}

// SubscribeBody carries the display name the subscriber joined with.
type SubscribeBody struct {
	Sender string `json:"sender,omitempty"`
}

// Notice is a transient room event (joined/left/created). Notices are
// fanned out live but never persisted to history.
type Notice struct {
	RoomId     string    `json:"roomId"`
	Event      string    `json:"event"`
	Sender     string    `json:"sender,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// ErrorBody is sent when the server rejects a frame.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomTopic builds the broadcast destination for a room.
func RoomTopic(roomId string) string {
	return roomTopicPrefix + roomId
}

// SendDestination builds the ingress destination the broker receives on.
func SendDestination(roomId string) string {
	return sendDestPrefix + roomId
}

// ParseRoomTopic extracts the room id from a broadcast destination.
func ParseRoomTopic(destination string) (string, bool) {
	roomId, ok := strings.CutPrefix(destination, roomTopicPrefix)
	if !ok || roomId == "" {
		return "", false
	}
	return roomId, true
}

// ParseSendDestination extracts the room id from an ingress destination.
func ParseSendDestination(destination string) (string, bool) {
	roomId, ok := strings.CutPrefix(destination, sendDestPrefix)
	if !ok || roomId == "" {
		return "", false
	}
	return roomId, true
}

// Decode parses a single frame off the wire.
func Decode(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("malformed frame: %w", err)
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("frame missing type")
	}
	return f, nil
}

// NewFrame builds a frame with a JSON-encoded body.
func NewFrame(t FrameType, destination string, body interface{}) (Frame, error) {
	f := Frame{Type: t, Destination: destination}
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return Frame{}, fmt.Errorf("encode frame body: %w", err)
		}
		f.Body = data
	}
	return f, nil
}

// NewMessageFrame wraps a persisted message for fan-out on its room topic.
func NewMessageFrame(msg Message) Frame {
	f, _ := NewFrame(FrameMessage, RoomTopic(msg.RoomId), msg)
	return f
}

// NewNoticeFrame wraps a transient room notice.
func NewNoticeFrame(n Notice) Frame {
	f, _ := NewFrame(FrameNotice, RoomTopic(n.RoomId), n)
	return f
}

// NewErrorFrame builds an error frame for a rejected operation.
func NewErrorFrame(code, message string) Frame {
	f, _ := NewFrame(FrameError, "", ErrorBody{Code: code, Message: message})
	return f
}

// Encode serializes a frame for the wire.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// DecodeBody unmarshals the frame body into out.
func (f Frame) DecodeBody(out interface{}) error {
	if len(f.Body) == 0 {
		return fmt.Errorf("frame %q has no body", f.Type)
	}
	return json.Unmarshal(f.Body, out)
}
