package isingd

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/GoSim-25-26J-441/ising-core/pkg/logger"
	"github.com/GoSim-25-26J-441/ising-core/pkg/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 512
	// Buffered events per subscriber before it is dropped.
	sendBuffer = 256
)

// Stream event types
const (
	EventSample = "sample"
	EventStatus = "status"
)

// StreamEvent is one message on a run's live stream
type StreamEvent struct {
	Type        string           `json:"type"`
	RunID       string           `json:"run_id"`
	Temperature float64          `json:"temperature,omitempty"`
	Attempts    uint64           `json:"attempts,omitempty"`
	Energy      int64            `json:"energy"`
	Status      models.RunStatus `json:"status,omitempty"`
	Completed   int              `json:"completed,omitempty"`
	Error       string           `json:"error,omitempty"`
}

type subscriber struct {
	send chan []byte
}

// Hub fans live run events out to websocket subscribers. Slow subscribers
// are dropped instead of blocking the simulation.
type Hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	closed map[string]bool
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		closed: make(map[string]bool),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

func (h *Hub) subscribe(runID string) *subscriber {
	sub := &subscriber{send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed[runID] {
		close(sub.send)
		return sub
	}
	if h.subs[runID] == nil {
		h.subs[runID] = make(map[*subscriber]struct{})
	}
	h.subs[runID][sub] = struct{}{}
	return sub
}

func (h *Hub) unsubscribe(runID string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[runID]; ok {
		if _, ok := set[sub]; ok {
			delete(set, sub)
			close(sub.send)
		}
		if len(set) == 0 {
			delete(h.subs, runID)
		}
	}
}

// Subscribers returns how many clients follow runID
func (h *Hub) Subscribers(runID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[runID])
}

// Publish sends ev to every subscriber of its run
func (h *Hub) Publish(ev StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[ev.RunID]
	if len(set) == 0 {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		logger.Error("failed to encode stream event", "run_id", ev.RunID, "error", err)
		return
	}
	for sub := range set {
		select {
		case sub.send <- payload:
		default:
			close(sub.send)
			delete(set, sub)
			logger.Warn("dropping slow stream subscriber", "run_id", ev.RunID)
		}
	}
}

// CloseRun ends every stream of runID; later subscribers are closed at once
func (h *Hub) CloseRun(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[runID] {
		close(sub.send)
	}
	delete(h.subs, runID)
	h.closed[runID] = true
}

// ServeWS upgrades the request and streams runID's events, starting with
// initial. The call returns when the stream ends.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, runID string, initial StreamEvent) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("failed to upgrade websocket connection", "run_id", runID, "error", err)
		return
	}
	sub := h.subscribe(runID)

	first, err := json.Marshal(initial)
	if err == nil {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		err = conn.WriteMessage(websocket.TextMessage, first)
	}
	if err != nil {
		h.unsubscribe(runID, sub)
		_ = conn.Close()
		return
	}

	go h.readPump(runID, sub, conn)
	h.writePump(sub, conn)
}

// readPump discards client messages and unsubscribes on disconnect.
func (h *Hub) readPump(runID string, sub *subscriber, conn *websocket.Conn) {
	defer func() {
		h.unsubscribe(runID, sub)
		_ = conn.Close()
	}()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("stream client read error", "run_id", runID, "error", err)
			}
			return
		}
	}
}

func (h *Hub) writePump(sub *subscriber, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case message, ok := <-sub.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
