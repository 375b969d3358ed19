// Package session implements the live-session layer: connection
// authentication, presence tracking, channel-room membership, and
// message/typing fan-out over WebSocket connections.
package session

// Identity is the verified user reference bound to a connection. It is
// derived once from the handshake credential and never changes afterwards.
type Identity struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// PresenceEntry records that an identity currently has a live connection.
type PresenceEntry struct {
	Identity
	ConnID string `json:"connId"`
}

// Verifier validates an opaque bearer credential and returns the identity it
// proves. It is called exactly once per connection attempt, before any state
// mutation.
type Verifier interface {
	Verify(credential string) (Identity, error)
}
