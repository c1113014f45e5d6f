package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"fruit-rush/internal/game"
	"fruit-rush/internal/input"

	"github.com/gorilla/websocket"
)

const (
	// MaxWSConnectionsTotal caps WebSocket connections across all clients
	MaxWSConnectionsTotal = 256

	// MaxWSConnectionsPerIP caps WebSocket connections per IP. The overlay,
	// the agent, and dev tooling usually share one machine, so this stays
	// above a strict one-per-client.
	MaxWSConnectionsPerIP = 8

	// stateBroadcastInterval is how often the full snapshot goes out
	stateBroadcastInterval = 100 * time.Millisecond
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}

		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// CommandSink receives commands parsed from the HTTP basket endpoint and
// inbound WebSocket messages. *input.CommandQueue satisfies it; tests
// substitute a recorder.
type CommandSink interface {
	Enqueue(cmd input.Command) bool
	Stats() input.QueueStats
}

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn *websocket.Conn
	ip   string
}

// Hub fans engine notifications and state snapshots out to every connected
// renderer, and relays inbound command messages to the command queue.
type Hub struct {
	clients    map[*websocket.Conn]*wsClient
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *websocket.Conn
	mu         sync.RWMutex

	// Connection limiting per IP
	wsLimiter *WebSocketRateLimiter

	// Optional inbound command path; nil means inbound messages are ignored
	commands CommandSink
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(commands CommandSink) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]*wsClient),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *websocket.Conn),
		wsLimiter:  NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
		commands:   commands,
	}
}

// Run owns the client set. Start it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.conn] = client
			count := len(h.clients)
			h.mu.Unlock()

			log.Printf("📱 Renderer connected from %s (%d total)", client.ip, count)
			UpdateWSConnections(count)

		case conn := <-h.unregister:
			h.dropClient(conn)

		case message := <-h.broadcast:
			var dead []*websocket.Conn

			h.mu.RLock()
			for conn := range h.clients {
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					dead = append(dead, conn)
				}
			}
			h.mu.RUnlock()

			for _, conn := range dead {
				h.dropClient(conn)
			}
			IncrementWSMessages()
		}
	}
}

// dropClient removes a connection, releases its per-IP slot and closes it.
func (h *Hub) dropClient(conn *websocket.Conn) {
	h.mu.Lock()
	client, ok := h.clients[conn]
	if ok {
		h.wsLimiter.Release(client.ip)
		delete(h.clients, conn)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if ok {
		conn.Close()
		log.Printf("📱 Renderer disconnected (%d remaining)", count)
		UpdateWSConnections(count)
	}
}

// Broadcast sends an {"event", "data"} envelope to all connected clients.
// Never blocks: if the hub is saturated the message is dropped.
func (h *Hub) Broadcast(event string, data interface{}) {
	msg := map[string]interface{}{
		"event": event,
		"data":  data,
	}

	jsonBytes, err := json.Marshal(msg)
	if err != nil {
		return
	}

	select {
	case h.broadcast <- jsonBytes:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartStateLoop broadcasts the full render snapshot at a fixed cadence so
// renderers can join mid-run and still draw the board. Runs for the life of
// the process.
func (h *Hub) StartStateLoop(engine *game.Engine) {
	ticker := time.NewTicker(stateBroadcastInterval)

	go func() {
		for range ticker.C {
			snap := engine.Snapshot()
			UpdateGameGauges(snap)

			if h.ClientCount() == 0 {
				continue
			}
			h.Broadcast("game:state", snap)
		}
	}()
}

// StartEventLoop forwards every engine notification to connected clients as
// its own envelope, updating metrics along the way. Returns a cancel func
// that detaches from the engine feed.
func (h *Hub) StartEventLoop(engine *game.Engine) func() {
	events, cancel := engine.Subscribe(256)

	go func() {
		for ev := range events {
			ObserveEvent(ev)
			h.Broadcast(string(ev.Type), ev.Payload)
		}
	}()

	return cancel
}

// HandleWebSocket upgrades a connection and runs its read pump.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	// Check total connection limit
	h.mu.RLock()
	totalConnections := len(h.clients)
	h.mu.RUnlock()

	if totalConnections >= MaxWSConnectionsTotal {
		log.Printf("⚠️ WebSocket connection rejected: total limit reached (%d)", totalConnections)
		RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	}

	// Check per-IP connection limit
	if !h.wsLimiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.wsLimiter.Release(ip) // Release the slot we reserved
		return
	}

	client := &wsClient{conn: conn, ip: ip}
	h.register <- client

	go h.readPump(conn, ip)
}

// wsInbound is the accepted inbound message shape. Anything else is ignored.
type wsInbound struct {
	Command string `json:"command"`
	Source  string `json:"source"`
}

// readPump drains inbound messages until the peer goes away. Messages that
// parse as commands go to the queue; the rest are dropped without ceremony,
// matching the input vocabulary's silent-ignore rule.
func (h *Hub) readPump(conn *websocket.Conn, ip string) {
	defer func() {
		h.unregister <- conn
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		if h.commands == nil {
			continue
		}

		var msg wsInbound
		if err := json.Unmarshal(message, &msg); err != nil || msg.Command == "" {
			continue
		}

		source := msg.Source
		if source == "" {
			source = "ws:" + ip
		}

		cmd := input.Parse(source, msg.Command)
		if cmd.Action == input.ActionUnknown {
			continue
		}
		h.commands.Enqueue(cmd)
	}
}
