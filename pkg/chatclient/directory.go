package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"realtime-chat-be/pkg/protocol"
)

// Room is the directory's view of a room.
type Room struct {
	RoomId    string    `json:"roomId"`
	CreatedAt time.Time `json:"createdAt"`
}

// DirectoryClient talks to the Room Directory's REST surface: create,
// lookup and history fetch. Directory failures stay at the call site;
// they never affect an established session.
type DirectoryClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewDirectoryClient(baseURL string) *DirectoryClient {
	return &DirectoryClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type listMessagesData struct {
	Messages []protocol.Message `json:"messages"`
	Total    int64              `json:"total"`
}

// CreateRoom registers a new room identifier.
func (c *DirectoryClient) CreateRoom(ctx context.Context, roomId string) (*Room, error) {
	payload, err := json.Marshal(map[string]string{"roomId": roomId})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/rooms/v1", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var room Room
	if err := c.do(req, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// JoinRoom looks the room up; idempotent.
func (c *DirectoryClient) JoinRoom(ctx context.Context, roomId string) (*Room, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rooms/v1/"+roomId, nil)
	if err != nil {
		return nil, err
	}

	var room Room
	if err := c.do(req, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListMessages fetches the room's persisted history in order.
func (c *DirectoryClient) ListMessages(ctx context.Context, roomId string) ([]protocol.Message, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/rooms/v1/"+roomId+"/messages", nil)
	if err != nil {
		return nil, err
	}

	var data listMessagesData
	if err := c.do(req, &data); err != nil {
		return nil, err
	}
	return data.Messages, nil
}

func (c *DirectoryClient) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return ErrRoomNotFound
	case http.StatusBadRequest, http.StatusConflict:
		return ErrRoomExists
	default:
		return fmt.Errorf("chatclient: directory returned status %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("chatclient: decode directory response: %w", err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("chatclient: decode directory payload: %w", err)
		}
	}
	return nil
}
