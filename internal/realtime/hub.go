package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stanstork/tipboard-api/internal/config"
	"github.com/stanstork/tipboard-api/internal/notification"
)

var ErrSlowConsumer = errors.New("client send buffer full")

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

type client struct {
	userID string
	conn   *websocket.Conn
	send   chan notification.Message
}

// Hub keeps the open websocket connections per user and publishes
// notifications to them. It satisfies notification.Publisher.
type Hub struct {
	mu           sync.RWMutex
	clients      map[string]map[*client]struct{}
	sendBuffer   int
	writeTimeout time.Duration
	logger       zerolog.Logger
}

func NewHub(cfg config.RealtimeConfig, logger zerolog.Logger) *Hub {
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 16
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Hub{
		clients:      make(map[string]map[*client]struct{}),
		sendBuffer:   sendBuffer,
		writeTimeout: writeTimeout,
		logger:       logger.With().Str("component", "realtime_hub").Logger(),
	}
}

// Publish queues msg on every connection of userID. Users without a
// connection are skipped silently. A full buffer drops the message for that
// connection only.
func (h *Hub) Publish(_ context.Context, userID string, msg notification.Message) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var dropped int
	for c := range h.clients[userID] {
		select {
		case c.send <- msg:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		return fmt.Errorf("%w: %d connection(s) of %s", ErrSlowConsumer, dropped, userID)
	}
	return nil
}

// Connections reports the number of open connections for userID.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) String() string {
	return "RealtimeHub"
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug().Str("user_id", c.userID).Int("connections", len(set)).Msg("websocket client registered")
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	h.logger.Debug().Str("user_id", c.userID).Msg("websocket client unregistered")
}

// Attach registers conn for userID and blocks until the connection closes.
func (h *Hub) Attach(userID string, conn *websocket.Conn) {
	c := &client{
		userID: userID,
		conn:   conn,
		send:   make(chan notification.Message, h.sendBuffer),
	}
	h.register(c)

	done := make(chan struct{})
	go func() {
		h.writePump(c)
		close(done)
	}()
	h.readPump(c)
	h.unregister(c)
	<-done
}

// readPump discards inbound frames; it exists to process control messages
// and notice the peer going away.
func (h *Hub) readPump(c *client) {
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Str("user_id", c.userID).Msg("websocket closed unexpectedly")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				h.logger.Warn().Err(err).Str("user_id", c.userID).Str("notification_id", msg.ID).Msg("websocket write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
