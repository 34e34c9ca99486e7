package chatclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"realtime-chat-be/pkg/protocol"

	"github.com/gorilla/websocket"
)

const (
	defaultHandshakeTimeout = 5 * time.Second
	writeWait               = 10 * time.Second
)

// Transport is one full-duplex connection to the chat server. Inbound
// frames arrive on a channel that closes when the connection drops;
// that closure is the only disconnect signal consumers need.
type Transport struct {
	conn   *websocket.Conn
	frames chan protocol.Frame

	done     chan struct{}
	doneOnce sync.Once

	// Serializes writes; gorilla allows one concurrent writer.
	writeMu sync.Mutex
}

// Connect dials the endpoint and waits for the server's connected frame.
// The transport layer has no handshake timeout of its own, so a bounded
// wait is applied here.
func Connect(ctx context.Context, endpoint string, handshakeTimeout time.Duration) (*Transport, error) {
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	frame, err := protocol.Decode(data)
	if err != nil || frame.Type != protocol.FrameConnected {
		conn.Close()
		return nil, fmt.Errorf("%w: expected connected frame", ErrConnectionFailed)
	}
	conn.SetReadDeadline(time.Time{})

	t := &Transport{
		conn:   conn,
		frames: make(chan protocol.Frame, 64),
		done:   make(chan struct{}),
	}
	go t.readLoop()
	return t, nil
}

// Frames returns the inbound frame stream. It is lazy, unbounded in
// duration and non-restartable; it closes when the transport drops.
func (t *Transport) Frames() <-chan protocol.Frame {
	return t.frames
}

// Closed reports transport death without consuming frames.
func (t *Transport) Closed() <-chan struct{} {
	return t.done
}

// Subscribe joins the room's broadcast topic.
func (t *Transport) Subscribe(roomId, sender string) error {
	frame, err := protocol.NewFrame(protocol.FrameSubscribe, protocol.RoomTopic(roomId), protocol.SubscribeBody{Sender: sender})
	if err != nil {
		return err
	}
	return t.write(frame)
}

// Unsubscribe leaves the room's broadcast topic.
func (t *Transport) Unsubscribe(roomId string) error {
	frame, err := protocol.NewFrame(protocol.FrameUnsubscribe, protocol.RoomTopic(roomId), nil)
	if err != nil {
		return err
	}
	return t.write(frame)
}

// Publish sends a message to the room's ingress destination. Best-effort,
// at-most-once: there is no acknowledgement.
func (t *Transport) Publish(roomId string, body protocol.SendBody) error {
	frame, err := protocol.NewFrame(protocol.FrameSend, protocol.SendDestination(roomId), body)
	if err != nil {
		return err
	}
	return t.write(frame)
}

// Close drops the connection. Idempotent.
func (t *Transport) Close() error {
	t.doneOnce.Do(func() {
		close(t.done)
		// WriteControl is documented safe concurrently with WriteMessage.
		t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		t.conn.Close()
	})
	return nil
}

func (t *Transport) write(f protocol.Frame) error {
	// Fail fast rather than queue on a dead transport.
	select {
	case <-t.done:
		return ErrDisconnected
	default:
	}

	data, err := f.Encode()
	if err != nil {
		return err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Close()
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	return nil
}

func (t *Transport) readLoop() {
	defer func() {
		t.Close()
		close(t.frames)
	}()

	for {
		_, data, err := t.conn.ReadMessage()
		if err != nil {
			return
		}
		frame, err := protocol.Decode(data)
		if err != nil {
			continue
		}
		select {
		case t.frames <- frame:
		case <-t.done:
			return
		}
	}
}
