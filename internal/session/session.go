// Package session defines the transport boundary the feed client consumes.
// The client does not care how the group channel is reached; it needs a
// connect/disconnect lifecycle, a channel join, and raw message delivery.
package session

import "context"

// RawMessage is one unparsed message delivered from the group channel.
type RawMessage struct {
	// Channel names the group channel the message arrived on. The client
	// discards messages from channels other than the configured one.
	Channel string

	// ID is the transport-assigned message identifier, which may be empty.
	ID string

	// Envelope is the raw XML envelope wrapping the bulletin.
	Envelope []byte
}

// Handlers carries the callbacks a session invokes. Both are optional; nil
// handlers are skipped.
type Handlers struct {
	// OnMessage is called for every raw message received on the session.
	OnMessage func(RawMessage)

	// OnEstablished is called once the session is fully established and
	// ready for a channel join.
	OnEstablished func()
}

// Session is the opaque transport the client drives. Implementations own
// authentication, framing, and transport security.
type Session interface {
	// SetHandlers registers the delivery callbacks. Must be called before
	// Connect.
	SetHandlers(h Handlers)

	// Connect establishes the session. It returns (false, nil) when the
	// transport declines the connection without an error, and a non-nil
	// error when establishing it failed outright.
	Connect(ctx context.Context) (bool, error)

	// Disconnect tears the session down. The reason is advisory and may be
	// empty.
	Disconnect(reason string)

	// Reconnect forces a disconnect-and-reconnect cycle, used by the
	// staleness monitor when the feed goes quiet.
	Reconnect(ctx context.Context) error

	// IsConnected reports whether the session is currently established.
	IsConnected() bool

	// JoinChannel joins the bulletin group channel and starts delivery.
	JoinChannel(ctx context.Context) error

	// LeaveChannel stops delivery and leaves the group channel.
	LeaveChannel() error
}
