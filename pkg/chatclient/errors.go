package chatclient

import "errors"

var (
	// ErrConnectionFailed means the websocket handshake did not complete.
	// Fatal to the session; re-join manually.
	ErrConnectionFailed = errors.New("chatclient: connection handshake failed")

	// ErrDisconnected means an operation was attempted on a transport that
	// is no longer live. Fail-fast: nothing is queued or retried.
	ErrDisconnected = errors.New("chatclient: transport disconnected")

	// ErrRoomNotFound means the room identifier is unknown to the directory.
	ErrRoomNotFound = errors.New("chatclient: room not found")

	// ErrRoomExists means the room identifier is already taken.
	ErrRoomExists = errors.New("chatclient: room already exists")

	// ErrSessionUsed is returned because a Session instance is single-use;
	// create a new one to re-join after a disconnect.
	ErrSessionUsed = errors.New("chatclient: session already used")
)
