package session

import (
	"log/slog"
	"sync"
)

// PresenceRegistry is the process-wide record of who is online: at most one
// entry per identity, last successful connect wins. Every effective change
// broadcasts the full online set to all registered connections.
type PresenceRegistry struct {
	mu     sync.Mutex
	online map[string]*Client // identity ID -> live connection
	logger *slog.Logger
}

// NewPresenceRegistry creates an empty registry.
func NewPresenceRegistry(log *slog.Logger) *PresenceRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &PresenceRegistry{
		online: make(map[string]*Client),
		logger: log.With(slog.String("component", "presence")),
	}
}

// Register inserts or overwrites the entry for the client's identity. A later
// connection for the same identity supersedes the earlier one; the superseded
// connection stays open but is no longer the presence entry, and its eventual
// Unregister is a no-op.
func (r *PresenceRegistry) Register(c *Client) {
	r.mu.Lock()
	if prev, ok := r.online[c.identity.ID]; ok && prev != c {
		r.logger.Debug("presence superseded",
			slog.String("user_id", c.identity.ID),
			slog.String("old_conn", prev.id),
			slog.String("new_conn", c.id),
		)
	}
	r.online[c.identity.ID] = c
	r.mu.Unlock()

	r.logger.Info("user online", slog.String("user_id", c.identity.ID), slog.String("conn_id", c.id))
	r.broadcastSnapshot()
}

// Unregister removes the entry only when it still points at this exact
// connection, so a stale disconnect cannot clobber a newer session for the
// same identity. Broadcasts only on actual removal.
func (r *PresenceRegistry) Unregister(c *Client) {
	r.mu.Lock()
	current, ok := r.online[c.identity.ID]
	if !ok || current != c {
		r.mu.Unlock()
		return
	}
	delete(r.online, c.identity.ID)
	r.mu.Unlock()

	r.logger.Info("user offline", slog.String("user_id", c.identity.ID), slog.String("conn_id", c.id))
	r.broadcastSnapshot()
}

// Snapshot returns the current online set. Order is map-derived and not
// guaranteed stable.
func (r *PresenceRegistry) Snapshot() []PresenceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	entries := make([]PresenceEntry, 0, len(r.online))
	for _, c := range r.online {
		entries = append(entries, PresenceEntry{
			Identity: c.identity,
			ConnID:   c.id,
		})
	}
	return entries
}

// broadcastSnapshot sends the online set to every registered connection.
// A superseded connection is no longer registered and stops receiving
// snapshots even while its socket stays open.
func (r *PresenceRegistry) broadcastSnapshot() {
	r.mu.Lock()
	clients := make([]*Client, 0, len(r.online))
	entries := make([]PresenceEntry, 0, len(r.online))
	for _, c := range r.online {
		clients = append(clients, c)
		entries = append(entries, PresenceEntry{
			Identity: c.identity,
			ConnID:   c.id,
		})
	}
	r.mu.Unlock()

	frame := encodeEvent(EventOnlineUsers, entries)
	for _, c := range clients {
		c.queue(frame)
	}
}
