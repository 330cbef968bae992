package conn

import "errors"

// Sentinel errors for connection tracking and the command codec.
// Callers match with errors.Is.
var (
	// ErrDeviceOffline indicates the device has no live control channel.
	ErrDeviceOffline = errors.New("conn: device offline")

	// ErrChannelNotFound indicates the device has no channel of the
	// requested kind.
	ErrChannelNotFound = errors.New("conn: channel not found")

	// ErrInvalidKind indicates an unrecognised channel kind.
	ErrInvalidKind = errors.New("conn: invalid channel kind")

	// ErrUnknownCommand indicates an inbound frame named a command this
	// server does not understand.
	ErrUnknownCommand = errors.New("conn: unknown command")

	// ErrMalformedFrame indicates an inbound frame that could not be
	// decoded as {"command": ..., "data": ...}.
	ErrMalformedFrame = errors.New("conn: malformed frame")
)
