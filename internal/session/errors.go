package session

import "errors"

// Failures are scoped to one connection or one message; nothing here is
// fatal to a room or the process.
var (
	// ErrValidation covers malformed joins and operations: missing room or
	// user id, unknown surface, absent content. The room is never mutated.
	ErrValidation = errors.New("validation_error")

	// ErrUnknownRoom is returned for an operation received before a join,
	// or for a room that was emptied and reclaimed. The caller must rejoin.
	ErrUnknownRoom = errors.New("unknown_room")

	// ErrAlreadyJoined is returned for a second join on a joined connection.
	ErrAlreadyJoined = errors.New("already_joined")

	// ErrConnectionClosed is returned when a join arrives on a connection
	// that has already been torn down.
	ErrConnectionClosed = errors.New("connection_closed")
)
