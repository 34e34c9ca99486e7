package service

import (
	"context"
	"encoding/json"

	"realtime-chat-be/internal/dto"
	"realtime-chat-be/internal/pkg/logger"
	"realtime-chat-be/pkg/protocol"

	wmMessage "github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// RoomNotifier fans a transient notice out to a room's live subscribers.
// The websocket hub implements it.
type RoomNotifier interface {
	Notice(roomId string, notice protocol.Notice)
}

type IPresenceService interface {
	Consume(ctx context.Context) error
}

// presenceService turns room activity events into live notices. Notices
// bypass the directory: they are never persisted and never appear in
// history fetches.
type presenceService struct {
	pubSub   *gochannel.GoChannel
	notifier RoomNotifier
	logger   logger.ILogger
}

func NewPresenceService(pubSub *gochannel.GoChannel, notifier RoomNotifier, log logger.ILogger) IPresenceService {
	return &presenceService{
		pubSub:   pubSub,
		notifier: notifier,
		logger:   log,
	}
}

func (ps *presenceService) Consume(ctx context.Context) error {
	messages, err := ps.pubSub.Subscribe(ctx, dto.RoomActivityTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			ps.processMessage(msg)
		}
	}()

	return nil
}

func (ps *presenceService) processMessage(msg *wmMessage.Message) {
	var activity dto.RoomActivityMessage
	if err := json.Unmarshal(msg.Payload, &activity); err != nil {
		ps.logger.Warn("PresenceService", "Failed to unmarshal room activity", map[string]interface{}{"error": err.Error()})
		msg.Ack() // invalid payloads are not retriable
		return
	}

	ps.notifier.Notice(activity.RoomId, protocol.Notice{
		RoomId:     activity.RoomId,
		Event:      activity.Event,
		Sender:     activity.Sender,
		OccurredAt: activity.OccurredAt,
	})
	ps.logger.Info("PresenceService", "Room activity fanned out", map[string]interface{}{
		"room_id": activity.RoomId,
		"event":   activity.Event,
	})
	msg.Ack()
}
