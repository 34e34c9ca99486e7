package service

import "errors"

var (
	// ErrRoomNotFound means the room identifier is unknown. Recoverable:
	// the caller re-prompts, no session state is touched.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomExists means the identifier is already taken on create.
	// Existing history is left untouched.
	ErrRoomExists = errors.New("room already exists")
)
