package web

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/sonar-sensor/internal/ranging"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 8
	readLimit  = 512
)

// LiveJSON is the websocket message sent after every cycle.
type LiveJSON struct {
	Timestamp     string         `json:"timestamp,omitempty"`
	Cycle         uint64         `json:"cycle"`
	DistanceTicks int            `json:"distance_ticks"`
	DistanceCM    int64          `json:"distance_cm"`
	Left          LiveSensorJSON `json:"left"`
	Right         LiveSensorJSON `json:"right"`
}

// LiveSensorJSON is one sensor in a LiveJSON message.
type LiveSensorJSON struct {
	State      string `json:"state"`
	DistanceCM int64  `json:"distance_cm"`
}

func formatLive(r ranging.Reading, conv ranging.Converter) []byte {
	lj := LiveJSON{
		Cycle:         r.Cycle,
		DistanceTicks: r.Distance,
		DistanceCM:    conv.Centimeters(r.Distance),
		Left:          LiveSensorJSON{State: r.Left.State.String(), DistanceCM: conv.Centimeters(r.Left.Distance)},
		Right:         LiveSensorJSON{State: r.Right.State.String(), DistanceCM: conv.Centimeters(r.Right.Distance)},
	}
	if !r.Time.IsZero() {
		lj.Timestamp = r.Time.UTC().Format(time.RFC3339Nano)
	}
	data, _ := json.Marshal(lj)
	return data
}

// client is one websocket connection. writeLoop owns writes to conn.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// readLoop discards incoming messages and returns when the peer goes away.
func (c *client) readLoop() {
	c.conn.SetReadLimit(readLimit)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop sends queued messages until send is closed.
func (c *client) writeLoop() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
}

// hub tracks websocket clients.
type hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	dropped int
}

func newHub() *hub {
	return &hub{clients: make(map[*client]struct{})}
}

// add registers conn and queues first as its first message.
func (h *hub) add(conn *websocket.Conn, first []byte) *client {
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	c.send <- first

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// remove unregisters c and stops its writeLoop. Safe to call twice.
func (h *hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			if h.dropped == 0 {
				log.Printf("websocket: client too slow, dropping messages")
			}
			h.dropped++
		}
	}
}

// closeAll disconnects every client. Their readLoops then unregister them.
func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
	}
}

func (h *hub) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
