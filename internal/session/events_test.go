package session

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeChannelPayload(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		want    string
	}{
		{"valid", `{"channelId":"ch1"}`, false, "ch1"},
		{"missing channel", `{}`, true, ""},
		{"blank channel", `{"channelId":"  "}`, true, ""},
		{"not json", `nope`, true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeChannelPayload([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrMalformedEvent) {
				t.Errorf("error = %v, want ErrMalformedEvent", err)
			}
			if got.ChannelID != tt.want {
				t.Errorf("channel = %q, want %q", got.ChannelID, tt.want)
			}
		})
	}
}

func TestDecodeSendMessagePayload(t *testing.T) {
	t.Parallel()
	if _, err := decodeSendMessagePayload([]byte(`{"channelId":"ch1","content":"hi"}`)); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}
	for _, raw := range []string{
		`{"channelId":"ch1"}`,
		`{"content":"hi"}`,
		`{"channelId":"ch1","content":"   "}`,
		`[]`,
	} {
		if _, err := decodeSendMessagePayload([]byte(raw)); !errors.Is(err, ErrMalformedEvent) {
			t.Errorf("payload %s: error = %v, want ErrMalformedEvent", raw, err)
		}
	}
}

func TestDispatchDropsMalformedEvents(t *testing.T) {
	t.Parallel()
	rooms := NewRoomMultiplexer(nil)
	sup := NewSupervisor(nil, NewJWTVerifier("secret"), NewPresenceRegistry(nil), rooms, NewBroadcaster(nil, rooms), sessionTestConfig())

	c := newTestClient("u1", "alice")
	for _, frame := range []string{
		`not json`,
		`{"type":"unknown-event"}`,
		`{"type":"join-channel","payload":{}}`,
		`{"type":"send-message","payload":{"channelId":"ch1"}}`,
		`{"type":"typing","payload":{"isTyping":true}}`,
	} {
		sup.dispatch(c, []byte(frame))
	}

	if got := len(rooms.Joined(c)); got != 0 {
		t.Errorf("malformed events mutated room state: joined %d rooms", got)
	}
	if got := len(drainEvents(t, c)); got != 0 {
		t.Errorf("malformed events produced %d outbound events", got)
	}
}

func TestDispatchRoutesEvents(t *testing.T) {
	t.Parallel()
	rooms := NewRoomMultiplexer(nil)
	sup := NewSupervisor(nil, NewJWTVerifier("secret"), NewPresenceRegistry(nil), rooms, NewBroadcaster(nil, rooms), sessionTestConfig())

	alice := newTestClient("u1", "alice")
	bob := newTestClient("u2", "bob")
	sup.dispatch(alice, []byte(`{"type":"join-channel","payload":{"channelId":"ch1"}}`))
	sup.dispatch(bob, []byte(`{"type":"join-channel","payload":{"channelId":"ch1"}}`))
	sup.dispatch(alice, []byte(`{"type":"send-message","payload":{"channelId":"ch1","content":"hi"}}`))
	sup.dispatch(alice, []byte(`{"type":"typing","payload":{"channelId":"ch1","isTyping":true}}`))
	sup.dispatch(alice, []byte(`{"type":"leave-channel","payload":{"channelId":"ch1"}}`))

	var bobTypes []string
	for _, env := range drainEvents(t, bob) {
		bobTypes = append(bobTypes, env.Type)
	}
	want := []string{EventNewMessage, EventUserTyping, EventUserLeft}
	if len(bobTypes) != len(want) {
		t.Fatalf("bob events = %v, want %v", bobTypes, want)
	}
	for i := range want {
		if bobTypes[i] != want[i] {
			t.Fatalf("bob events = %v, want %v", bobTypes, want)
		}
	}
	if got := len(rooms.Joined(alice)); got != 0 {
		t.Errorf("alice still in %d rooms after leave-channel", got)
	}
	if got := len(rooms.Members("ch1")); got != 1 {
		t.Errorf("room has %d members, want 1 (bob)", got)
	}
}

func TestDispatchEchoesClientFieldsOnNewMessage(t *testing.T) {
	t.Parallel()
	rooms := NewRoomMultiplexer(nil)
	sup := NewSupervisor(nil, NewJWTVerifier("secret"), NewPresenceRegistry(nil), rooms, NewBroadcaster(nil, rooms), sessionTestConfig())

	alice := newTestClient("u1", "alice")
	bob := newTestClient("u2", "bob")
	sup.dispatch(alice, []byte(`{"type":"join-channel","payload":{"channelId":"ch1"}}`))
	sup.dispatch(bob, []byte(`{"type":"join-channel","payload":{"channelId":"ch1"}}`))
	drainEvents(t, alice)
	drainEvents(t, bob)

	sup.dispatch(alice, []byte(`{"type":"send-message","payload":{"channelId":"ch1","content":"hi","timestamp":"2026-01-01T00:00:00Z"}}`))

	events := drainEvents(t, bob)
	if len(events) != 1 || events[0].Type != EventNewMessage {
		t.Fatalf("bob events = %v, want one new-message", events)
	}
	var fields map[string]string
	if err := json.Unmarshal(events[0].Payload, &fields); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	want := map[string]string{
		"channelId":         "ch1",
		"content":           "hi",
		"timestamp":         "2026-01-01T00:00:00Z",
		"senderId":          "u1",
		"senderDisplayName": "alice",
	}
	for key, value := range want {
		if fields[key] != value {
			t.Errorf("payload[%s] = %q, want %q", key, fields[key], value)
		}
	}
}
