package chatclient

import (
	"context"
	"sync"
	"time"

	"realtime-chat-be/pkg/protocol"

	"github.com/google/uuid"
)

// State is the session lifecycle position.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

// Session owns one transport, the active room and identity, the local
// ordered message log and the room subscription. It is single-use: after
// any transition to Disconnected the surrounding application creates a
// new Session to re-join. The local log is mutated only by the inbound
// frame stream and the seeding step, one event at a time.
type Session struct {
	directory        *DirectoryClient
	wsEndpoint       string
	handshakeTimeout time.Duration
	onNotice         func(protocol.Notice)
	onError          func(protocol.ErrorBody)

	mu        sync.Mutex
	state     State
	roomId    string
	userName  string
	transport *Transport
	log       []protocol.Message
	seen      map[uuid.UUID]struct{}
	pending   []protocol.Message
	seeded    bool
	used      bool

	done     chan struct{}
	doneOnce sync.Once
}

// Option configures a Session.
type Option func(*Session)

// WithHandshakeTimeout bounds the wait for the server's connected frame.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Session) { s.handshakeTimeout = d }
}

// WithNoticeHandler receives transient room notices (joined/left/created).
// Notices never enter the message log.
func WithNoticeHandler(fn func(protocol.Notice)) Option {
	return func(s *Session) { s.onNotice = fn }
}

// WithErrorHandler receives server-side rejections (subscribe_failed,
// not_subscribed, malformed_frame). Without one they are dropped.
func WithErrorHandler(fn func(protocol.ErrorBody)) Option {
	return func(s *Session) { s.onError = fn }
}

func NewSession(directory *DirectoryClient, wsEndpoint string, opts ...Option) *Session {
	s := &Session{
		directory:  directory,
		wsEndpoint: wsEndpoint,
		seen:       make(map[uuid.UUID]struct{}),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers the room with the directory, then joins it.
func (s *Session) Create(ctx context.Context, roomId, userName string) error {
	room, err := s.directory.CreateRoom(ctx, roomId)
	if err != nil {
		return err
	}
	return s.start(ctx, room.RoomId, userName)
}

// Join looks the room up, then connects and subscribes. A NotFound
// lookup returns before any transport or broker state exists, so a
// failed join leaves nothing behind.
func (s *Session) Join(ctx context.Context, roomId, userName string) error {
	room, err := s.directory.JoinRoom(ctx, roomId)
	if err != nil {
		return err
	}
	return s.start(ctx, room.RoomId, userName)
}

func (s *Session) start(ctx context.Context, roomId, userName string) error {
	s.mu.Lock()
	if s.used {
		s.mu.Unlock()
		return ErrSessionUsed
	}
	s.used = true
	s.state = StateConnecting
	s.roomId = roomId
	s.userName = userName
	s.mu.Unlock()

	t, err := Connect(ctx, s.wsEndpoint, s.handshakeTimeout)
	if err != nil {
		s.fail()
		return err
	}

	// Subscribe before fetching history so no live message can fall in
	// the gap; anything that arrives early is buffered and deduplicated
	// against the history seed by message id.
	if err := t.Subscribe(roomId, userName); err != nil {
		t.Close()
		s.fail()
		return err
	}

	s.mu.Lock()
	s.transport = t
	s.mu.Unlock()
	go s.consume(t)

	history, err := s.directory.ListMessages(ctx, roomId)
	if err != nil {
		t.Close()
		s.fail()
		return err
	}
	s.seed(history)
	return s.enterSubscribed(t)
}

// enterSubscribed completes the handshake. The transport-death check and
// the state store happen under one lock so a concurrent consume that has
// already taken the session to Disconnected can never be overwritten.
func (s *Session) enterSubscribed(t *Transport) error {
	s.mu.Lock()
	select {
	case <-t.Closed():
		s.mu.Unlock()
		s.fail()
		return ErrDisconnected
	default:
	}
	s.state = StateSubscribed
	s.mu.Unlock()
	return nil
}

// Send publishes a message on the room topic. No optimistic append: the
// log grows only when the broker fans the message back.
func (s *Session) Send(content string) error {
	s.mu.Lock()
	if s.state != StateSubscribed || s.transport == nil {
		s.mu.Unlock()
		return ErrDisconnected
	}
	t := s.transport
	roomId := s.roomId
	sender := s.userName
	s.mu.Unlock()

	return t.Publish(roomId, protocol.SendBody{
		Sender:  sender,
		Content: content,
		RoomId:  roomId,
	})
}

// Leave drops the transport unconditionally, regardless of in-flight
// operations, and clears room and identity state.
func (s *Session) Leave() {
	s.mu.Lock()
	t := s.transport
	s.transport = nil
	s.state = StateDisconnected
	s.roomId = ""
	s.userName = ""
	s.mu.Unlock()

	if t != nil {
		t.Close()
	}
	s.doneOnce.Do(func() { close(s.done) })
}

// Messages returns a snapshot of the local ordered log.
func (s *Session) Messages() []protocol.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]protocol.Message, len(s.log))
	copy(out, s.log)
	return out
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done closes when the session reaches its terminal Disconnected state.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// consume is the single mutation path for the local log: inbound frames
// are processed one at a time until the transport drops.
func (s *Session) consume(t *Transport) {
	for frame := range t.Frames() {
		s.handleInbound(frame)
	}

	// Transport lost (or closed by Leave): terminal either way.
	s.mu.Lock()
	s.state = StateDisconnected
	s.transport = nil
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *Session) handleInbound(frame protocol.Frame) {
	switch frame.Type {
	case protocol.FrameMessage:
		var msg protocol.Message
		if err := frame.DecodeBody(&msg); err != nil {
			return
		}
		s.deliver(msg)
	case protocol.FrameNotice:
		var notice protocol.Notice
		if err := frame.DecodeBody(&notice); err != nil {
			return
		}
		if s.onNotice != nil {
			s.onNotice(notice)
		}
	case protocol.FrameError:
		var body protocol.ErrorBody
		if err := frame.DecodeBody(&body); err != nil {
			return
		}
		if s.onError != nil {
			s.onError(body)
		}
	}
}

func (s *Session) deliver(msg protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.seeded {
		s.pending = append(s.pending, msg)
		return
	}
	s.appendLocked(msg)
}

// seed installs the history fetch as the log prefix, then replays frames
// that arrived while the fetch was in flight. Duplicates between the two
// sources collapse on message id.
func (s *Session) seed(history []protocol.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range history {
		s.appendLocked(msg)
	}
	for _, msg := range s.pending {
		s.appendLocked(msg)
	}
	s.pending = nil
	s.seeded = true
}

func (s *Session) appendLocked(msg protocol.Message) {
	if _, dup := s.seen[msg.Id]; dup {
		return
	}
	s.seen[msg.Id] = struct{}{}
	s.log = append(s.log, msg)
}

func (s *Session) fail() {
	s.mu.Lock()
	s.state = StateDisconnected
	s.transport = nil
	s.roomId = ""
	s.userName = ""
	s.mu.Unlock()
	s.doneOnce.Do(func() { close(s.done) })
}
