// Package live streams simulation ticks to browsers over websockets.
package live

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Fouad1806/self-driving-car/sim"
)

const (
	frameBuffer  = 4
	writeTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// ConfigMessage is the first message every client receives.
type ConfigMessage struct {
	Type   string `json:"type"`
	Width  int    `json:"w"`
	Height int    `json:"h"`
}

// TickMessage carries one snapshot.
type TickMessage struct {
	Type string `json:"type"`
	sim.Snapshot
}

type client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	frames chan sim.Snapshot
	done   chan struct{}
	once   sync.Once
}

func (c *client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(v)
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub fans snapshots out to every connected client. Clients that fall
// behind miss frames instead of slowing the simulation.
type Hub struct {
	width, height int
	log           zerolog.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewHub returns a hub announcing a width x height track.
func NewHub(width, height int, log zerolog.Logger) *Hub {
	return &Hub{
		width:   width,
		height:  height,
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// ObserveTick queues s for every client without blocking.
func (h *Hub) ObserveTick(s sim.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.frames <- s:
		default:
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Handler upgrades requests to websockets and streams ticks until the
// client disconnects or the hub is closed.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn().Err(err).Msg("Websocket upgrade failed")
			return
		}
		c := &client{
			conn:   conn,
			frames: make(chan sim.Snapshot, frameBuffer),
			done:   make(chan struct{}),
		}
		if err := c.send(ConfigMessage{Type: "config", Width: h.width, Height: h.height}); err != nil {
			c.close()
			return
		}

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			c.close()
			return
		}
		h.clients[c] = struct{}{}
		h.mu.Unlock()
		h.log.Debug().Str("remote", r.RemoteAddr).Msg("Live client connected")

		go h.writeLoop(c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.remove(c)
		h.log.Debug().Str("remote", r.RemoteAddr).Msg("Live client disconnected")
	})
}

func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case s := <-c.frames:
			if err := c.send(TickMessage{Type: "tick", Snapshot: s}); err != nil {
				h.log.Debug().Err(err).Msg("Live client send failed")
				h.remove(c)
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.close()
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
