// Package live implements the Live-Query Multiplexer (spec.md §4.4): a
// WebSocket hub fanning out document and collection change feeds to
// authenticated channels, with presence and heartbeat.
package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mesbahtanvir/docuchan/backend/internal/apperr"
	"github.com/mesbahtanvir/docuchan/backend/internal/auth"
	"github.com/mesbahtanvir/docuchan/backend/internal/store"
)

// Hub owns the channel table, admission control, and presence fan-out.
// The JWT secret lives inside authCore; the revocation blocklist lives
// inside authCore too — both process-wide singletons owned here rather
// than scattered as package-level state (spec.md §9, "Global state").
type Hub struct {
	mu       sync.RWMutex
	channels map[string]*Channel

	authCore *auth.Core
	store    store.Adapter
	logger   *zap.Logger

	maxChannels       int
	heartbeatInterval time.Duration
	pingTimeout       time.Duration
	outboundQueueSize int

	upgrader websocket.Upgrader
}

// Config carries the admission/liveness knobs from config.LiveConfig.
type Config struct {
	MaxChannels       int
	HeartbeatInterval time.Duration
	PingTimeout       time.Duration
	OutboundQueueSize int
}

// NewHub builds a Hub. Defaults mirror spec.md §4.4's stated defaults
// when a zero value is passed.
func NewHub(authCore *auth.Core, adapter store.Adapter, cfg Config, logger *zap.Logger) *Hub {
	if cfg.MaxChannels <= 0 {
		cfg.MaxChannels = 10000
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	if cfg.OutboundQueueSize <= 0 {
		cfg.OutboundQueueSize = 256
	}

	return &Hub{
		channels:          make(map[string]*Channel),
		authCore:          authCore,
		store:             adapter,
		logger:            logger,
		maxChannels:       cfg.MaxChannels,
		heartbeatInterval: cfg.HeartbeatInterval,
		pingTimeout:       cfg.PingTimeout,
		outboundQueueSize: cfg.OutboundQueueSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request to a WebSocket and runs the channel's
// lifecycle until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	channel := newChannel(conn, h)

	if !h.admit(channel) {
		_ = conn.WriteJSON(Message{Type: TypeError, Code: string(apperr.MaxClientsReached), Message: "too many live channels"})
		_ = conn.Close()
		return
	}

	channel.send(Message{Type: TypeConnected})
	channel.run()
}

// admit registers channel if capacity allows, returning false at
// MAX_CLIENTS_REACHED (spec.md §4.4, "Admission").
func (h *Hub) admit(c *Channel) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.channels) >= h.maxChannels {
		return false
	}
	h.channels[c.id] = c
	return true
}

func (h *Hub) remove(c *Channel) {
	h.mu.Lock()
	delete(h.channels, c.id)
	h.mu.Unlock()
}

// broadcastPresence sends msg to every READY channel other than except
// (spec.md §4.4, "Presence").
func (h *Hub) broadcastPresence(except *Channel, msg Message) {
	h.mu.RLock()
	targets := make([]*Channel, 0, len(h.channels))
	for _, c := range h.channels {
		if c != except && c.isReady() {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.send(msg)
	}
}

// ChannelCount reports the number of currently registered channels.
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels)
}
