package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/huddlehq/huddle/internal/config"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Supervisor drives one connection through its lifecycle:
// Connecting (handshake verification) -> Active (event dispatch) -> Closed
// (teardown). It owns the Connection; registry and room state it touches is
// shared process-wide.
type Supervisor struct {
	verifier  Verifier
	presence  *PresenceRegistry
	rooms     *RoomMultiplexer
	broadcast *Broadcaster
	cfg       config.SessionConfig
	logger    *slog.Logger
}

// NewSupervisor wires the live-session components together.
func NewSupervisor(log *slog.Logger, verifier Verifier, presence *PresenceRegistry, rooms *RoomMultiplexer, broadcast *Broadcaster, cfg config.SessionConfig) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		verifier:  verifier,
		presence:  presence,
		rooms:     rooms,
		broadcast: broadcast,
		cfg:       cfg,
		logger:    log.With(slog.String("component", "session")),
	}
}

// HandleConn authenticates the credential and, on success, runs the
// connection until the transport closes. It blocks for the connection's whole
// lifetime and always closes conn before returning.
//
// A failed verification refuses the connection with a generic error event and
// leaves no presence or room state behind.
func (s *Supervisor) HandleConn(conn *websocket.Conn, credential string) error {
	identity, err := s.verifier.Verify(credential)
	if err != nil {
		s.logger.Info("handshake refused")
		refusal := encodeEvent(EventError, ErrorEvent{Message: "authentication error"})
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.TextMessage, refusal)
		_ = conn.Close()
		return err
	}

	client := NewClient(identity, conn, s.cfg.SendQueueSize)
	s.logger.Info("session active",
		slog.String("user_id", identity.ID),
		slog.String("conn_id", client.id),
	)

	s.presence.Register(client)
	go s.writePump(client)
	s.readPump(client)

	// Teardown is total: every joined room first, then presence. After this
	// no partial cleanup state is observable.
	s.rooms.LeaveAll(client)
	s.presence.Unregister(client)
	client.finish()
	s.logger.Info("session closed",
		slog.String("user_id", identity.ID),
		slog.String("conn_id", client.id),
	)
	return nil
}

// readPump consumes inbound events until the transport fails or closes.
// Events for one connection are handled strictly in order.
func (s *Supervisor) readPump(c *Client) {
	defer c.conn.Close()

	if s.cfg.MaxEventBytes > 0 {
		c.conn.SetReadLimit(s.cfg.MaxEventBytes)
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("read error", slog.String("conn_id", c.id), slog.String("error", err.Error()))
			}
			return
		}
		s.dispatch(c, frame)
	}
}

// dispatch validates one inbound frame and routes it. Malformed events are
// dropped without killing the connection.
func (s *Supervisor) dispatch(c *Client, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		s.logEventDropped(c, "", ErrMalformedEvent)
		return
	}

	switch env.Type {
	case EventJoinChannel:
		p, err := decodeChannelPayload(env.Payload)
		if err != nil {
			s.logEventDropped(c, env.Type, err)
			return
		}
		s.rooms.Join(c, p.ChannelID)

	case EventLeaveChannel:
		p, err := decodeChannelPayload(env.Payload)
		if err != nil {
			s.logEventDropped(c, env.Type, err)
			return
		}
		s.rooms.Leave(c, p.ChannelID)

	case EventSendMessage:
		p, err := decodeSendMessagePayload(env.Payload)
		if err != nil {
			s.logEventDropped(c, env.Type, err)
			return
		}
		s.broadcast.BroadcastMessage(p, c.identity)

	case EventTyping:
		p, err := decodeTypingPayload(env.Payload)
		if err != nil {
			s.logEventDropped(c, env.Type, err)
			return
		}
		s.broadcast.BroadcastTyping(p, c)

	default:
		s.logEventDropped(c, env.Type, errors.New("unknown event type"))
	}
}

func (s *Supervisor) logEventDropped(c *Client, eventType string, err error) {
	s.logger.Debug("event dropped",
		slog.String("conn_id", c.id),
		slog.String("event", eventType),
		slog.String("error", err.Error()),
	)
}

// writePump drains the client's outbound queue onto the socket and keeps the
// connection alive with pings. It exits when the connection finishes or a
// write fails, closing the socket either way.
func (s *Supervisor) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
