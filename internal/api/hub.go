package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"prepaid-usage-lab/internal/collector"
	"prepaid-usage-lab/internal/domain"
	"prepaid-usage-lab/internal/observability"
)

// HubConfig configures the record feed.
type HubConfig struct {
	// Backlog is the number of records buffered per client before it is dropped.
	Backlog int
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
	// AllowedOrigins limits which browser origins may connect. Empty allows same-host only.
	AllowedOrigins []string
}

// DefaultHubConfig returns default record feed configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		Backlog:      16,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// Hub pushes every newly stored record to connected WebSocket clients.
type Hub struct {
	config   HubConfig
	upgrader websocket.Upgrader
	metrics  *observability.Metrics
	logger   *log.Logger

	mu      sync.Mutex
	clients map[uuid.UUID]*feedClient
	closed  bool
}

type feedClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

// NewHub creates a record feed hub.
func NewHub(config HubConfig, metrics *observability.Metrics, logger *log.Logger) *Hub {
	defaults := DefaultHubConfig()
	if config.Backlog <= 0 {
		config.Backlog = defaults.Backlog
	}
	if config.PingInterval <= 0 {
		config.PingInterval = defaults.PingInterval
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}
	if logger == nil {
		logger = log.Default()
	}

	h := &Hub{
		config:  config,
		metrics: metrics,
		logger:  logger,
		clients: make(map[uuid.UUID]*feedClient),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if len(h.config.AllowedOrigins) == 0 {
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
	for _, allowed := range h.config.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Compile-time interface checks.
var (
	_ RecordListener     = (*Hub)(nil)
	_ collector.Listener = (*Hub)(nil)
)

// ServeHTTP upgrades the connection and streams records until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		return
	}

	c := &feedClient{
		id:   uuid.New(),
		conn: conn,
		send: make(chan []byte, h.config.Backlog),
	}
	if !h.register(c) {
		conn.Close()
		return
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

// RecordAdded broadcasts a record. Clients whose buffer is full are dropped.
func (h *Hub) RecordAdded(sample domain.Sample) {
	msg, err := json.Marshal(sample)
	if err != nil {
		h.logger.Printf("Failed to encode record: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Printf("Dropping slow feed client %s", id)
			h.removeLocked(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) register(c *feedClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.metrics.WSClients.Set(float64(len(h.clients)))
	return true
}

func (h *Hub) remove(c *feedClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// removeLocked must be called with h.mu held.
func (h *Hub) removeLocked(c *feedClient) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	delete(h.clients, c.id)
	c.once.Do(func() { close(c.send) })
	h.metrics.WSClients.Set(float64(len(h.clients)))
}

// readLoop discards client messages and detects disconnects.
func (h *Hub) readLoop(c *feedClient) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(2 * h.config.PingInterval))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(2 * h.config.PingInterval))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop is the only writer on the connection.
func (h *Hub) writeLoop(c *feedClient) {
	ticker := time.NewTicker(h.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
