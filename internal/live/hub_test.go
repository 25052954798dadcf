package live

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fouad1806/self-driving-car/sim"
)

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(h.Handler())
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestHubSendsConfigThenTicks(t *testing.T) {
	h := NewHub(1280, 720, zerolog.Nop())
	defer h.Close()
	conn := dial(t, h)

	var cfg ConfigMessage
	require.NoError(t, conn.ReadJSON(&cfg))
	assert.Equal(t, ConfigMessage{Type: "config", Width: 1280, Height: 720}, cfg)

	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.ObserveTick(sim.Snapshot{
		Tick:  3,
		Alive: 1,
		Vehicles: []sim.VehicleState{
			{ID: 0, X: 10, Y: 20, Heading: 90, Speed: 2, Alive: true, Fitness: 1.5},
		},
	})

	var tick TickMessage
	require.NoError(t, conn.ReadJSON(&tick))
	assert.Equal(t, "tick", tick.Type)
	assert.Equal(t, 3, tick.Tick)
	require.Len(t, tick.Vehicles, 1)
	assert.Equal(t, 20.0, tick.Vehicles[0].Y)
}

func TestHubDropsFramesForSlowClients(t *testing.T) {
	h := NewHub(10, 10, zerolog.Nop())
	defer h.Close()
	conn := dial(t, h)

	var cfg ConfigMessage
	require.NoError(t, conn.ReadJSON(&cfg))
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			h.ObserveTick(sim.Snapshot{Tick: i})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ObserveTick blocked on a slow client")
	}
}

func TestHubCloseDisconnects(t *testing.T) {
	h := NewHub(10, 10, zerolog.Nop())
	conn := dial(t, h)

	var cfg ConfigMessage
	require.NoError(t, conn.ReadJSON(&cfg))
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Close()
	assert.Zero(t, h.Clients())

	for {
		var msg TickMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
	}
}

func TestHubClientLeaves(t *testing.T) {
	h := NewHub(10, 10, zerolog.Nop())
	defer h.Close()
	conn := dial(t, h)

	var cfg ConfigMessage
	require.NoError(t, conn.ReadJSON(&cfg))
	require.Eventually(t, func() bool { return h.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestClientSendFailsOnClosedConn(t *testing.T) {
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- conn
	}))
	defer srv.Close()

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer peer.Close()

	conn := <-conns
	c := &client{conn: conn, done: make(chan struct{})}
	require.NoError(t, c.send(ConfigMessage{Type: "config"}))

	c.close()
	assert.Error(t, c.send(TickMessage{Type: "tick"}))
}
