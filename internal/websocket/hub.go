package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/pkg/protocol"

	"github.com/ThreeDotsLabs/watermill"
	wmMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Directory is the slice of the Room Directory the broker consumes.
// Persistence happens before fan-out, so its append order defines the
// total order every subscriber observes.
type Directory interface {
	Exists(ctx context.Context, roomId string) error
	AppendMessage(ctx context.Context, roomId, sender, content string) (*protocol.Message, error)
}

// Hub is the Room Broker. It owns the map from room id to the set of live
// subscriber sessions and fans every published message out to the exact
// set present at publish time. Membership is ephemeral: a session that
// subscribes after a publish never sees that message via fan-out.
type Hub struct {
	// Subscriber sets by room id
	rooms map[string]*roomTopic

	// Lock for safe map access
	mu sync.RWMutex

	directory Directory

	// In-process bus for room activity (presence consumer)
	bus wmMessage.Publisher

	// Redis connection for cross-instance fan-out
	rdb *redis.Client

	// Distinguishes our own cluster fan-outs from remote ones
	instanceId string

	logger logger.ILogger
}

type roomTopic struct {
	// Held across append + fan-out so every subscriber's queue observes
	// persistence-commit order.
	mu          sync.Mutex
	subscribers map[*Session]bool
}

const clusterChannel = "cluster_room_events"

type clusterEvent struct {
	RoomId string          `json:"room_id"`
	Origin string          `json:"origin"`
	Frame  json.RawMessage `json:"frame"`
}

func NewHub(directory Directory, bus wmMessage.Publisher, rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		rooms:      make(map[string]*roomTopic),
		directory:  directory,
		bus:        bus,
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

// Run starts the cross-instance bridge when Redis is configured. The hub
// itself needs no run loop; subscribe and publish are direct calls.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToCluster(ctx)
	}
}

// Subscribe adds the session to the room's subscriber set. Idempotent:
// re-subscribing is a no-op for set membership and replays nothing.
// Fails without side effects when the room does not exist.
func (h *Hub) Subscribe(ctx context.Context, roomId string, s *Session) error {
	if err := h.directory.Exists(ctx, roomId); err != nil {
		return err
	}

	var already bool
	for {
		rt := h.topic(roomId)
		rt.mu.Lock()
		already = rt.subscribers[s]
		rt.subscribers[s] = true
		rt.mu.Unlock()

		// The last unsubscriber may have dropped this topic from the map
		// between the lookup and the insert. Membership in an orphaned
		// topic would never see another fan-out, so re-validate and retry
		// on a fresh topic if we lost that race.
		h.mu.RLock()
		current := h.rooms[roomId] == rt
		h.mu.RUnlock()
		if current {
			break
		}
	}

	if already {
		return nil
	}

	h.logger.Info("Hub", "Session subscribed", map[string]interface{}{"room_id": roomId, "session_id": s.id})
	h.publishActivity(dto.RoomActivityMessage{
		RoomId:     roomId,
		Event:      dto.RoomActivityJoined,
		Sender:     s.sender,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// Unsubscribe removes the session from the room's set. Removing an absent
// session is a no-op.
func (h *Hub) Unsubscribe(roomId string, s *Session) {
	h.mu.RLock()
	rt, ok := h.rooms[roomId]
	h.mu.RUnlock()
	if !ok {
		return
	}

	rt.mu.Lock()
	present := rt.subscribers[s]
	delete(rt.subscribers, s)
	empty := len(rt.subscribers) == 0
	rt.mu.Unlock()

	if empty {
		h.dropTopicIfEmpty(roomId, rt)
	}

	if present {
		h.logger.Info("Hub", "Session unsubscribed", map[string]interface{}{"room_id": roomId, "session_id": s.id})
		h.publishActivity(dto.RoomActivityMessage{
			RoomId:     roomId,
			Event:      dto.RoomActivityLeft,
			Sender:     s.sender,
			OccurredAt: time.Now().UTC(),
		})
	}
}

// Publish appends the message to the room's history, then delivers it to
// every session in the subscriber set at that moment, in a single pass.
// The per-room lock makes append-then-deliver atomic with respect to
// other publishes to the same room.
func (h *Hub) Publish(ctx context.Context, roomId, sender, content string) error {
	rt := h.topic(roomId)

	rt.mu.Lock()
	msg, err := h.directory.AppendMessage(ctx, roomId, sender, content)
	if err != nil {
		rt.mu.Unlock()
		h.dropTopicIfEmpty(roomId, rt)
		return err
	}

	data, err := protocol.NewMessageFrame(*msg).Encode()
	if err != nil {
		rt.mu.Unlock()
		h.dropTopicIfEmpty(roomId, rt)
		return err
	}

	h.fanOutLocked(rt, roomId, data)
	empty := len(rt.subscribers) == 0
	rt.mu.Unlock()

	// A publish to a room nobody here is watching must not leave a topic
	// entry behind.
	if empty {
		h.dropTopicIfEmpty(roomId, rt)
	}
	h.publishToCluster(roomId, data)
	return nil
}

// Notice fans a transient frame out to the room without persisting it.
func (h *Hub) Notice(roomId string, notice protocol.Notice) {
	h.mu.RLock()
	rt, ok := h.rooms[roomId]
	h.mu.RUnlock()
	if !ok {
		return
	}

	data, err := protocol.NewNoticeFrame(notice).Encode()
	if err != nil {
		return
	}

	rt.mu.Lock()
	h.fanOutLocked(rt, roomId, data)
	rt.mu.Unlock()
	h.publishToCluster(roomId, data)
}

// RemoveSession drops the session's subscription, if any. Called on
// transport disconnect; errors are swallowed.
func (h *Hub) RemoveSession(s *Session) {
	if roomId := s.room(); roomId != "" {
		h.Unsubscribe(roomId, s)
	}
}

// SubscriberCount reports the live set size for a room.
func (h *Hub) SubscriberCount(roomId string) int {
	h.mu.RLock()
	rt, ok := h.rooms[roomId]
	h.mu.RUnlock()
	if !ok {
		return 0
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.subscribers)
}

// dropTopicIfEmpty removes the topic from the room map when it still
// holds no subscribers. Re-checks identity and emptiness under the write
// lock; a subscriber that raced in keeps the topic alive.
func (h *Hub) dropTopicIfEmpty(roomId string, rt *roomTopic) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[roomId] != rt {
		return
	}
	rt.mu.Lock()
	if len(rt.subscribers) == 0 {
		delete(h.rooms, roomId)
	}
	rt.mu.Unlock()
}

func (h *Hub) topic(roomId string) *roomTopic {
	h.mu.Lock()
	defer h.mu.Unlock()
	rt, ok := h.rooms[roomId]
	if !ok {
		rt = &roomTopic{subscribers: make(map[*Session]bool)}
		h.rooms[roomId] = rt
	}
	return rt
}

// fanOutLocked delivers one encoded frame to every current subscriber.
// Callers hold rt.mu. A subscriber whose queue is full is evicted; it
// reconnects rather than stalling the room.
func (h *Hub) fanOutLocked(rt *roomTopic, roomId string, data []byte) {
	for s := range rt.subscribers {
		if !s.trySend(data) {
			h.logger.Warn("Hub", "Session send buffer full, evicting", map[string]interface{}{"room_id": roomId, "session_id": s.id})
			delete(rt.subscribers, s)
			s.closeSend()
		}
	}
}

func (h *Hub) publishActivity(activity dto.RoomActivityMessage) {
	if h.bus == nil {
		return
	}
	payload, err := json.Marshal(activity)
	if err != nil {
		return
	}
	if err := h.bus.Publish(dto.RoomActivityTopic, wmMessage.NewMessage(watermill.NewUUID(), payload)); err != nil {
		h.logger.Warn("Hub", "Failed to publish room activity", map[string]interface{}{"error": err.Error()})
	}
}

// publishToCluster mirrors the fan-out to other instances via Redis.
func (h *Hub) publishToCluster(roomId string, data []byte) {
	if h.rdb == nil {
		return
	}
	payload, err := json.Marshal(clusterEvent{
		RoomId: roomId,
		Origin: h.instanceId,
		Frame:  data,
	})
	if err != nil {
		return
	}
	h.rdb.Publish(context.Background(), clusterChannel, payload)
}

func (h *Hub) subscribeToCluster(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var evt clusterEvent
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			h.logger.Warn("Hub", "Malformed cluster event", map[string]interface{}{"error": err.Error()})
			continue
		}
		// Local subscribers already got this one at publish time.
		if evt.Origin == h.instanceId {
			continue
		}

		h.mu.RLock()
		rt, ok := h.rooms[evt.RoomId]
		h.mu.RUnlock()
		if !ok {
			continue
		}

		rt.mu.Lock()
		h.fanOutLocked(rt, evt.RoomId, evt.Frame)
		rt.mu.Unlock()
	}
}
