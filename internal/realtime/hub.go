// Package realtime pushes live game changes to subscribed clients over
// websockets.
package realtime

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/AdamBeresnev/floorball-scorekeeper/internal/access"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/httputil"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/livegame"
	"github.com/AdamBeresnev/floorball-scorekeeper/internal/metrics"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	clientSendBuf = 256
	writeDeadline = 5 * time.Second
	pongWait      = 30 * time.Second
	pingInterval  = 20 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

type subscriber struct {
	leagueID uuid.UUID
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
}

// Hub fans live game events out to the subscribers of each league.
type Hub struct {
	mu      sync.Mutex
	clients map[*subscriber]struct{}
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients: make(map[*subscriber]struct{}),
		metrics: m,
		now:     time.Now,
	}
}

func (h *Hub) PublishState(leagueID uuid.UUID, state livegame.State) {
	h.forward(Event{Type: EventStateUpdated, LeagueID: leagueID, Timestamp: h.now(), State: &state})
}

func (h *Hub) PublishDeleted(leagueID uuid.UUID) {
	h.forward(Event{Type: EventStateDeleted, LeagueID: leagueID, Timestamp: h.now()})
}

// Subscribers counts the open connections of a league.
func (h *Hub) Subscribers(leagueID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for c := range h.clients {
		if c.leagueID == leagueID {
			n++
		}
	}
	return n
}

// forward enqueues the event to the league's subscribers without blocking.
// A subscriber whose buffer is full misses the event and catches up on its
// next refresh.
func (h *Hub) forward(evt Event) {
	data, err := MarshalEvent(evt)
	if err != nil {
		slog.Warn("realtime: marshal error", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		if c.leagueID != evt.LeagueID {
			continue
		}
		select {
		case c.send <- data:
		default:
			slog.Warn("realtime: dropping message for slow client", "league_id", c.leagueID)
		}
	}
}

// HandleWS upgrades a request whose league was already resolved by the
// access middleware.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	ac, ok := access.FromContext(r.Context())
	if !ok {
		httputil.BadRequest(w, "Missing league identifier", nil)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("realtime: upgrade failed", "error", err)
		return
	}

	c := &subscriber{
		leagueID: ac.LeagueID,
		conn:     conn,
		send:     make(chan []byte, clientSendBuf),
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.SubscriberAdded()

	slog.Info("realtime: client connected", "league_id", ac.LeagueID, "mode", ac.Mode)

	go h.writePump(c)
	go h.readPump(c)
}

// writePump owns the subscriber: on exit it unregisters it and closes the
// connection.
func (h *Hub) writePump(c *subscriber) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		h.removeClient(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("realtime: write error", "league_id", c.leagueID, "error", err)
				return
			}
		case <-c.done:
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only consumes pongs and close frames. Subscribers never send
// data.
func (h *Hub) readPump(c *subscriber) {
	defer close(c.done)

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) removeClient(c *subscriber) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.metrics.SubscriberRemoved()
	slog.Info("realtime: client disconnected", "league_id", c.leagueID)
}
