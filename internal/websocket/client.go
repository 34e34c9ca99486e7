package websocket

import (
	"context"
	"sync"
	"time"

	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/pkg/protocol"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Session is one client's live connection: the middleman between the
// websocket and the hub. It holds at most one room subscription at a
// time and is destroyed on disconnect; a reconnecting client gets a
// fresh Session.
type Session struct {
	hub  *Hub
	conn *websocket.Conn
	id   uuid.UUID

	// Guards sender and roomId; written only by the read pump, read by
	// the hub during removal.
	mu     sync.Mutex
	sender string
	roomId string

	// Buffered channel of outbound frames. sendMu guards sendClosed so
	// no writer can hit the channel after the hub's eviction path or the
	// read pump's shutdown has closed it.
	send       chan []byte
	sendMu     sync.Mutex
	sendClosed bool

	logger logger.ILogger
}

func NewSession(hub *Hub, conn *websocket.Conn, log logger.ILogger) *Session {
	return &Session{
		hub:    hub,
		conn:   conn,
		id:     uuid.New(),
		send:   make(chan []byte, 256),
		logger: log,
	}
}

// Run completes the handshake, then pumps frames until the transport
// drops. The write pump gets its own goroutine; reads run here so the
// handler's goroutine owns the session lifetime.
func (s *Session) Run() {
	s.enqueueFrame(protocol.Frame{Type: protocol.FrameConnected})
	go s.writePump()
	s.readPump()
}

func (s *Session) room() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomId
}

func (s *Session) setSubscription(roomId, sender string) {
	s.mu.Lock()
	s.roomId = roomId
	if sender != "" {
		s.sender = sender
	}
	s.mu.Unlock()
}

func (s *Session) closeSend() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return
	}
	s.sendClosed = true
	close(s.send)
}

// trySend queues one encoded frame for the write pump. Returns false
// when the queue is full or already closed.
func (s *Session) trySend(data []byte) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return false
	}
	select {
	case s.send <- data:
		return true
	default:
		return false
	}
}

func (s *Session) enqueueFrame(f protocol.Frame) {
	data, err := f.Encode()
	if err != nil {
		return
	}
	// Best effort: a full queue means the hub evicts this session on its
	// next fan-out, and a closed one means it already has.
	s.trySend(data)
}

// readPump pumps frames from the websocket connection to the hub.
func (s *Session) readPump() {
	defer func() {
		s.hub.RemoveSession(s)
		s.closeSend()
		s.conn.Close()
		s.logger.Info("Session", "Read pump exited", map[string]interface{}{"session_id": s.id})
	}()
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("Session", "Unexpected close", map[string]interface{}{"session_id": s.id, "error": err.Error()})
			}
			break
		}

		frame, err := protocol.Decode(data)
		if err != nil {
			s.enqueueFrame(protocol.NewErrorFrame("malformed_frame", err.Error()))
			continue
		}
		s.handleFrame(frame)
	}
}

func (s *Session) handleFrame(f protocol.Frame) {
	switch f.Type {
	case protocol.FrameConnect:
		// Handshake already completed on upgrade; re-ack for clients that
		// send an explicit connect.
		s.enqueueFrame(protocol.Frame{Type: protocol.FrameConnected})

	case protocol.FrameSubscribe:
		roomId, ok := protocol.ParseRoomTopic(f.Destination)
		if !ok {
			s.enqueueFrame(protocol.NewErrorFrame("bad_destination", "expected room/{roomId}"))
			return
		}
		var body protocol.SubscribeBody
		if len(f.Body) > 0 {
			_ = f.DecodeBody(&body)
		}

		current := s.room()
		if current == roomId {
			// Idempotent re-subscribe; membership is a set.
			return
		}
		// One room at a time: a new subscription replaces the old one.
		if current != "" {
			s.hub.Unsubscribe(current, s)
			s.setSubscription("", "")
		}
		s.setSubscription("", body.Sender)
		if err := s.hub.Subscribe(context.Background(), roomId, s); err != nil {
			s.enqueueFrame(protocol.NewErrorFrame("subscribe_failed", err.Error()))
			return
		}
		s.setSubscription(roomId, body.Sender)

	case protocol.FrameUnsubscribe:
		roomId, ok := protocol.ParseRoomTopic(f.Destination)
		if !ok {
			s.enqueueFrame(protocol.NewErrorFrame("bad_destination", "expected room/{roomId}"))
			return
		}
		s.hub.Unsubscribe(roomId, s)
		if s.room() == roomId {
			s.setSubscription("", "")
		}

	case protocol.FrameSend:
		roomId, ok := protocol.ParseSendDestination(f.Destination)
		if !ok {
			s.enqueueFrame(protocol.NewErrorFrame("bad_destination", "expected sendMessage/{roomId}"))
			return
		}
		if s.room() != roomId {
			s.enqueueFrame(protocol.NewErrorFrame("not_subscribed", "send requires an active subscription to the room"))
			return
		}
		var body protocol.SendBody
		if err := f.DecodeBody(&body); err != nil {
			s.enqueueFrame(protocol.NewErrorFrame("malformed_frame", err.Error()))
			return
		}
		sender := body.Sender
		if sender == "" {
			s.mu.Lock()
			sender = s.sender
			s.mu.Unlock()
		}
		if err := s.hub.Publish(context.Background(), roomId, sender, body.Content); err != nil {
			s.enqueueFrame(protocol.NewErrorFrame("publish_failed", err.Error()))
		}

	default:
		s.enqueueFrame(protocol.NewErrorFrame("unsupported_frame", string(f.Type)))
	}
}

// writePump pumps frames from the hub to the websocket connection.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub evicted us or the read pump exited.
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := s.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)
			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
