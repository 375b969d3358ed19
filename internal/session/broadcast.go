package session

import (
	"log/slog"
)

// Broadcaster fans out message and typing events to the connections currently
// in a room. Delivery is fire-and-forget: no acknowledgment, no retry, and no
// ordering guarantee relative to the durable write path.
type Broadcaster struct {
	rooms  *RoomMultiplexer
	logger *slog.Logger
}

// NewBroadcaster creates a broadcaster over the given room multiplexer.
func NewBroadcaster(log *slog.Logger, rooms *RoomMultiplexer) *Broadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &Broadcaster{
		rooms:  rooms,
		logger: log.With(slog.String("component", "broadcast")),
	}
}

// BroadcastMessage delivers a new-message event to every room member,
// including the sender: all participants render from the same event stream.
// The sent payload is echoed back whole, sender fields stamped in, so
// client-supplied extras survive the round trip. Nothing is persisted here.
func (b *Broadcaster) BroadcastMessage(payload SendMessagePayload, sender Identity) {
	frame := encodeEvent(EventNewMessage, newMessageFields(payload, sender))
	members := b.rooms.Members(payload.ChannelID)
	for _, member := range members {
		member.queue(frame)
	}
	b.logger.Debug("message fan-out",
		slog.String("channel_id", payload.ChannelID),
		slog.Int("recipients", len(members)),
	)
}

// BroadcastTyping delivers a transient typing indicator to the other room
// members. Excluded from history; rate limiting is the caller's concern.
func (b *Broadcaster) BroadcastTyping(payload TypingPayload, sender *Client) {
	frame := encodeEvent(EventUserTyping, UserTypingEvent{
		Identity: sender.identity,
		IsTyping: payload.IsTyping,
	})
	for _, member := range b.rooms.Members(payload.ChannelID) {
		if member == sender {
			continue
		}
		member.queue(frame)
	}
}
