package session

import (
	"log/slog"
	"sync"
)

// RoomMultiplexer tracks which connections are in which channel-room and
// notifies room members of arrivals and departures. Rooms exist only while
// occupied: created on first join, removed when the last member leaves.
//
// Joining a live room performs no check against durable channel membership;
// the recorded and live member sets can diverge.
type RoomMultiplexer struct {
	mu     sync.Mutex
	rooms  map[string]map[*Client]struct{} // channel ID -> members
	joined map[*Client]map[string]struct{} // connection -> joined channel IDs
	logger *slog.Logger
}

// NewRoomMultiplexer creates an empty multiplexer.
func NewRoomMultiplexer(log *slog.Logger) *RoomMultiplexer {
	if log == nil {
		log = slog.Default()
	}
	return &RoomMultiplexer{
		rooms:  make(map[string]map[*Client]struct{}),
		joined: make(map[*Client]map[string]struct{}),
		logger: log.With(slog.String("component", "rooms")),
	}
}

// Join adds the connection to a room and notifies the other current members
// with user-joined. Idempotent: rejoining a room already joined neither
// mutates state nor re-notifies.
func (m *RoomMultiplexer) Join(c *Client, channelID string) {
	m.mu.Lock()
	if _, already := m.joined[c][channelID]; already {
		m.mu.Unlock()
		return
	}
	others := m.membersLocked(channelID, c)
	room := m.rooms[channelID]
	if room == nil {
		room = make(map[*Client]struct{})
		m.rooms[channelID] = room
	}
	room[c] = struct{}{}
	set := m.joined[c]
	if set == nil {
		set = make(map[string]struct{})
		m.joined[c] = set
	}
	set[channelID] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug("room joined", slog.String("channel_id", channelID), slog.String("conn_id", c.id))
	frame := encodeEvent(EventUserJoined, c.identity)
	for _, member := range others {
		member.queue(frame)
	}
}

// Leave removes the connection from a room and notifies the remaining members
// with user-left. Leaving a room not joined is a no-op.
func (m *RoomMultiplexer) Leave(c *Client, channelID string) {
	m.mu.Lock()
	if _, member := m.joined[c][channelID]; !member {
		m.mu.Unlock()
		return
	}
	m.removeLocked(c, channelID)
	remaining := m.membersLocked(channelID, nil)
	m.mu.Unlock()

	m.logger.Debug("room left", slog.String("channel_id", channelID), slog.String("conn_id", c.id))
	frame := encodeEvent(EventUserLeft, c.identity)
	for _, member := range remaining {
		member.queue(frame)
	}
}

// LeaveAll leaves every room the connection joined. Called on disconnect so
// no stale membership survives teardown.
func (m *RoomMultiplexer) LeaveAll(c *Client) {
	m.mu.Lock()
	channels := make([]string, 0, len(m.joined[c]))
	for channelID := range m.joined[c] {
		channels = append(channels, channelID)
	}
	m.mu.Unlock()

	for _, channelID := range channels {
		m.Leave(c, channelID)
	}
}

// Members returns the connections currently in a room.
func (m *RoomMultiplexer) Members(channelID string) []*Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.membersLocked(channelID, nil)
}

// Joined returns the channel IDs the connection is currently in.
func (m *RoomMultiplexer) Joined(c *Client) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	channels := make([]string, 0, len(m.joined[c]))
	for channelID := range m.joined[c] {
		channels = append(channels, channelID)
	}
	return channels
}

// membersLocked lists room members, excluding skip when non-nil.
func (m *RoomMultiplexer) membersLocked(channelID string, skip *Client) []*Client {
	room := m.rooms[channelID]
	members := make([]*Client, 0, len(room))
	for member := range room {
		if member == skip {
			continue
		}
		members = append(members, member)
	}
	return members
}

func (m *RoomMultiplexer) removeLocked(c *Client, channelID string) {
	if room := m.rooms[channelID]; room != nil {
		delete(room, c)
		if len(room) == 0 {
			delete(m.rooms, channelID)
		}
	}
	if set := m.joined[c]; set != nil {
		delete(set, channelID)
		if len(set) == 0 {
			delete(m.joined, c)
		}
	}
}
