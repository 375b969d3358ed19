package session

import (
	"encoding/json"
	"errors"
	"strings"
)

// Client-to-server event types.
const (
	EventJoinChannel  = "join-channel"
	EventLeaveChannel = "leave-channel"
	EventSendMessage  = "send-message"
	EventTyping       = "typing"
)

// Server-to-client event types.
const (
	EventOnlineUsers = "online-users"
	EventUserJoined  = "user-joined"
	EventUserLeft    = "user-left"
	EventNewMessage  = "new-message"
	EventUserTyping  = "user-typing"
	EventError       = "error"
)

// ErrMalformedEvent reports an inbound event that failed boundary validation.
// Such events are dropped; the connection survives.
var ErrMalformedEvent = errors.New("malformed event")

// Envelope is the tagged wire frame for every event in either direction.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ChannelPayload carries the channel reference for join/leave events.
type ChannelPayload struct {
	ChannelID string `json:"channelId"`
}

// SendMessagePayload is the body of a send-message event. Only channelId and
// content are validated; raw keeps the payload as sent so client-supplied
// extras (timestamps, client keys) survive the echo back to the room.
type SendMessagePayload struct {
	ChannelID string `json:"channelId"`
	Content   string `json:"content"`

	raw json.RawMessage
}

// TypingPayload is the body of a typing event.
type TypingPayload struct {
	ChannelID string `json:"channelId"`
	IsTyping  bool   `json:"isTyping"`
}

// NewMessageEvent is the decoded shape of a new-message fan-out payload.
// These fields are always present; any extra fields of the sent payload ride
// along unchanged.
type NewMessageEvent struct {
	ChannelID         string `json:"channelId"`
	Content           string `json:"content"`
	SenderID          string `json:"senderId"`
	SenderDisplayName string `json:"senderDisplayName"`
}

// UserTypingEvent is the user-typing fan-out payload.
type UserTypingEvent struct {
	Identity
	IsTyping bool `json:"isTyping"`
}

// ErrorEvent is the generic failure payload sent before closing a refused
// connection.
type ErrorEvent struct {
	Message string `json:"message"`
}

func decodeChannelPayload(raw json.RawMessage) (ChannelPayload, error) {
	var p ChannelPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ChannelPayload{}, ErrMalformedEvent
	}
	if strings.TrimSpace(p.ChannelID) == "" {
		return ChannelPayload{}, ErrMalformedEvent
	}
	return p, nil
}

func decodeSendMessagePayload(raw json.RawMessage) (SendMessagePayload, error) {
	var p SendMessagePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return SendMessagePayload{}, ErrMalformedEvent
	}
	if strings.TrimSpace(p.ChannelID) == "" || strings.TrimSpace(p.Content) == "" {
		return SendMessagePayload{}, ErrMalformedEvent
	}
	p.raw = raw
	return p, nil
}

func decodeTypingPayload(raw json.RawMessage) (TypingPayload, error) {
	var p TypingPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return TypingPayload{}, ErrMalformedEvent
	}
	if strings.TrimSpace(p.ChannelID) == "" {
		return TypingPayload{}, ErrMalformedEvent
	}
	return p, nil
}

// newMessageFields builds the new-message payload: the sent payload echoed
// back field-for-field with the sender stamped in.
func newMessageFields(p SendMessagePayload, sender Identity) map[string]json.RawMessage {
	fields := map[string]json.RawMessage{}
	if len(p.raw) == 0 || json.Unmarshal(p.raw, &fields) != nil {
		fields["channelId"] = rawString(p.ChannelID)
		fields["content"] = rawString(p.Content)
	}
	fields["senderId"] = rawString(sender.ID)
	fields["senderDisplayName"] = rawString(sender.DisplayName)
	return fields
}

func rawString(s string) json.RawMessage {
	b, _ := json.Marshal(s)
	return b
}

// encodeEvent marshals an outbound envelope. Payloads are plain structs owned
// by this package, so a marshal failure is a programming error; it yields nil
// and the frame is simply not sent.
func encodeEvent(eventType string, payload any) []byte {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	frame, err := json.Marshal(Envelope{Type: eventType, Payload: body})
	if err != nil {
		return nil
	}
	return frame
}
