package hass

import "errors"

var (
	// ErrAuthFailed indicates the access token was rejected during the
	// WebSocket authentication handshake.
	ErrAuthFailed = errors.New("hass: authentication failed")

	// ErrNotConnected indicates a command was attempted before Connect
	// or after the connection dropped.
	ErrNotConnected = errors.New("hass: not connected")

	// ErrCallFailed indicates the server answered a command with
	// success=false.
	ErrCallFailed = errors.New("hass: command failed")

	// ErrUnexpectedMessage indicates the server broke the expected
	// request/response sequence.
	ErrUnexpectedMessage = errors.New("hass: unexpected message")
)
