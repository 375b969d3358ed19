package session

import (
	"testing"
)

func countEvents(t *testing.T, c *Client, eventType string) int {
	t.Helper()
	count := 0
	for _, env := range drainEvents(t, c) {
		if env.Type == eventType {
			count++
		}
	}
	return count
}

func TestJoinNotifiesOthersOnly(t *testing.T) {
	t.Parallel()
	rooms := NewRoomMultiplexer(nil)

	alice := newTestClient("u1", "alice")
	bob := newTestClient("u2", "bob")
	rooms.Join(alice, "ch1")
	rooms.Join(bob, "ch1")

	if got := countEvents(t, alice, EventUserJoined); got != 1 {
		t.Errorf("alice saw %d user-joined, want 1 (bob's)", got)
	}
	if got := countEvents(t, bob, EventUserJoined); got != 0 {
		t.Errorf("bob saw %d user-joined, want 0 (joiners are not self-notified)", got)
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	t.Parallel()
	rooms := NewRoomMultiplexer(nil)

	alice := newTestClient("u1", "alice")
	bob := newTestClient("u2", "bob")
	rooms.Join(alice, "ch1")
	drainEvents(t, alice)

	rooms.Join(bob, "ch1")
	rooms.Join(bob, "ch1")

	if got := countEvents(t, alice, EventUserJoined); got != 1 {
		t.Errorf("alice saw %d user-joined notifications, want exactly 1", got)
	}
	if got := len(rooms.Members("ch1")); got != 2 {
		t.Errorf("room has %d members, want 2", got)
	}
}

func TestLeaveNotifiesRemaining(t *testing.T) {
	t.Parallel()
	rooms := NewRoomMultiplexer(nil)

	alice := newTestClient("u1", "alice")
	bob := newTestClient("u2", "bob")
	rooms.Join(alice, "ch1")
	rooms.Join(bob, "ch1")
	drainEvents(t, alice)
	drainEvents(t, bob)

	rooms.Leave(bob, "ch1")
	if got := countEvents(t, alice, EventUserLeft); got != 1 {
		t.Errorf("alice saw %d user-left, want 1", got)
	}

	// Leaving a room not joined is a no-op.
	rooms.Leave(bob, "ch1")
	rooms.Leave(bob, "never-joined")
	if got := countEvents(t, alice, EventUserLeft); got != 0 {
		t.Errorf("no-op leaves produced %d user-left events", got)
	}
}

func TestLeaveAllCoversEveryJoinedRoom(t *testing.T) {
	t.Parallel()
	rooms := NewRoomMultiplexer(nil)
	broadcast := NewBroadcaster(nil, rooms)

	alice := newTestClient("u1", "alice")
	witness := newTestClient("u2", "bob")
	rooms.Join(alice, "x")
	rooms.Join(alice, "y")
	rooms.Join(witness, "x")
	rooms.Join(witness, "y")
	drainEvents(t, alice)
	drainEvents(t, witness)

	rooms.LeaveAll(alice)
	if got := len(rooms.Joined(alice)); got != 0 {
		t.Fatalf("alice still joined to %d rooms after LeaveAll", got)
	}
	if got := countEvents(t, witness, EventUserLeft); got != 2 {
		t.Errorf("witness saw %d user-left events, want 2 (rooms x and y)", got)
	}

	// Subsequent broadcasts to either room no longer reach the connection.
	broadcast.BroadcastMessage(SendMessagePayload{ChannelID: "x", Content: "hi"}, witness.identity)
	broadcast.BroadcastMessage(SendMessagePayload{ChannelID: "y", Content: "hi"}, witness.identity)
	if got := len(drainEvents(t, alice)); got != 0 {
		t.Errorf("disconnected client still received %d events", got)
	}
}

func TestRoomsAreGarbageCollectedWhenEmpty(t *testing.T) {
	t.Parallel()
	rooms := NewRoomMultiplexer(nil)

	alice := newTestClient("u1", "alice")
	rooms.Join(alice, "ch1")
	rooms.Leave(alice, "ch1")

	rooms.mu.Lock()
	defer rooms.mu.Unlock()
	if _, ok := rooms.rooms["ch1"]; ok {
		t.Error("empty room was not removed")
	}
	if _, ok := rooms.joined[alice]; ok {
		t.Error("empty joined set was not removed")
	}
}
