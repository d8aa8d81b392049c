// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Watchers only send control frames.
	maxMessageSize = 4 * 1024

	clientSendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return u.Host == r.Host
	},
}

// Event types streamed to watchers.
const (
	EventRunStarted       = "RUN_STARTED"
	EventScenarioStarted  = "SCENARIO_STARTED"
	EventStep             = "STEP"
	EventScenarioFinished = "SCENARIO_FINISHED"
	EventRunFinished      = "RUN_FINISHED"
)

// Event is one progress notification of a verification run.
type Event struct {
	Type     string `json:"type"`
	RunID    string `json:"runId,omitempty"`
	Scenario string `json:"scenario,omitempty"`
	Step     string `json:"step,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
	Time     int64  `json:"time"`
}

// Hub fans out events to websocket watchers.
type Hub struct {
	backlogSize int
	backlog     []Event

	clients    map[*wsClient]bool
	broadcast  chan Event
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
}

// NewHub creates a hub that replays the last backlog events to new watchers.
func NewHub(backlog int) *Hub {
	return &Hub{
		backlogSize: backlog,
		clients:     make(map[*wsClient]bool),
		broadcast:   make(chan Event, 256),
		register:    make(chan *wsClient),
		unregister:  make(chan *wsClient),
		done:        make(chan struct{}),
	}
}

// Run is the hub's event loop. It returns when ctx is done.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = true
			for _, ev := range h.backlog {
				if !h.deliver(c, ev) {
					break
				}
			}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case ev := <-h.broadcast:
			if h.backlogSize > 0 {
				h.backlog = append(h.backlog, ev)
				if len(h.backlog) > h.backlogSize {
					h.backlog = h.backlog[len(h.backlog)-h.backlogSize:]
				}
			}
			for c := range h.clients {
				h.deliver(c, ev)
			}
		}
	}
}

// deliver queues ev for c. A watcher whose buffer is full is disconnected,
// and deliver reports false.
func (h *Hub) deliver(c *wsClient, ev Event) bool {
	select {
	case c.send <- ev:
		return true
	default:
		log.Printf("Hub: watcher %s too slow, disconnecting", c.addr)
		delete(h.clients, c)
		close(c.send)
		return false
	}
}

// Publish queues ev for every watcher. It never blocks.
func (h *Hub) Publish(ev Event) {
	if ev.Time == 0 {
		ev.Time = time.Now().UnixNano()
	}
	select {
	case h.broadcast <- ev:
	default:
		log.Printf("Warning: Hub channel full, dropping %s event", ev.Type)
	}
}

// ServeWS upgrades the request and registers the connection as a watcher.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Hub: upgrade: %v", err)
		return
	}
	// The buffer holds the whole backlog so the replay never overflows it.
	c := &wsClient{
		hub:  h,
		conn: conn,
		addr: conn.RemoteAddr().String(),
		send: make(chan Event, max(clientSendBuffer, h.backlogSize)),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	case <-r.Context().Done():
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// wsClient is a middleman between the websocket connection and the hub.
type wsClient struct {
	hub *Hub

	// The websocket connection.
	conn *websocket.Conn
	addr string

	// Buffered channel of outbound events.
	send chan Event
}

// readPump discards inbound messages and notices when the peer goes away.
func (c *wsClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			return
		}
	}
}

// writePump pumps events from the hub to the websocket connection.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
