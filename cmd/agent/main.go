// =============================================================================
// FRUIT RUSH - AGENT
// =============================================================================
// This standalone process is a headless stand-in for the pose bridge:
// - Connects to the game server over WebSocket
// - Watches game:state snapshots
// - Leans the basket under the most urgent fruit while dodging bombs
//
// It exists so the server and rule engine can be soak-tested end to end
// without a camera or a human in frame.
//
// USAGE:
//   1. Start the game server first: go run ./cmd/server
//   2. Then start this agent:       go run ./cmd/agent
// =============================================================================
package main

import (
	"encoding/json"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"fruit-rush/internal/game"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment
	if err := godotenv.Load("../.env"); err != nil {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	}

	log.Println("🤖 ================================")
	log.Println("🤖  FRUIT RUSH - AGENT")
	log.Println("🤖  headless pose-bridge stand-in")
	log.Println("🤖 ================================")

	serverURL := getEnvWithDefault("AGENT_SERVER_URL", "ws://localhost:3000/ws")
	reaction := time.Duration(getEnvInt("AGENT_REACTION_MS", 150)) * time.Millisecond
	autostart := os.Getenv("AGENT_AUTOSTART") != "false"

	log.Printf("🔌 Server: %s", serverURL)
	log.Printf("⏱️ Reaction time: %v, autostart: %v", reaction, autostart)

	a := &agent{
		url:       serverURL,
		reaction:  reaction,
		autostart: autostart,
		quit:      make(chan struct{}),
	}

	go a.run()
	go a.think()
	go a.logStats()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("✅ Agent ready! Press Ctrl+C to stop.")
	<-quit

	log.Println("🛑 Shutting down agent...")
	a.shutdown()
	log.Println("👋 Goodbye!")
}

// envelope is the hub's broadcast frame.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type agent struct {
	url       string
	reaction  time.Duration
	autostart bool
	quit      chan struct{}

	mu   sync.Mutex
	conn *websocket.Conn
	snap *game.Snapshot

	// owned by think(), no lock needed
	lastSent   game.Zone
	lastSentAt time.Time

	snapshots uint64 // atomic
	moves     uint64 // atomic
	starts    uint64 // atomic
}

// run dials the server and keeps the connection alive, reconnecting with a
// fixed backoff until shutdown.
func (a *agent) run() {
	for {
		if a.stopping() {
			return
		}
		if err := a.session(); err != nil && !a.stopping() {
			log.Printf("⚠️ Connection lost: %v (retrying in 2s)", err)
		}
		select {
		case <-a.quit:
			return
		case <-time.After(2 * time.Second):
		}
	}
}

// session runs one connection: dial, then read envelopes until the
// connection dies.
func (a *agent) session() error {
	header := http.Header{"Origin": []string{"http://localhost"}}
	conn, _, err := websocket.DefaultDialer.Dial(a.url, header)
	if err != nil {
		return err
	}
	log.Println("🔌 Connected to game server")

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.conn = nil
		a.mu.Unlock()
		conn.Close()
	}()

	for {
		var env envelope
		if err := conn.ReadJSON(&env); err != nil {
			return err
		}

		switch env.Event {
		case "game:state":
			var snap game.Snapshot
			if err := json.Unmarshal(env.Data, &snap); err != nil {
				continue
			}
			atomic.AddUint64(&a.snapshots, 1)
			a.mu.Lock()
			a.snap = &snap
			a.mu.Unlock()

		case string(game.EventGameEnded):
			var p game.GameEndedPayload
			if err := json.Unmarshal(env.Data, &p); err == nil {
				log.Printf("🏁 Run over: %d points, level %d (%s)", p.Score, p.Level, p.Reason)
			}

		case string(game.EventLevelChanged):
			var p game.LevelChangedPayload
			if err := json.Unmarshal(env.Data, &p); err == nil {
				log.Printf("⬆️ Level %d", p.Level)
			}
		}
	}
}

// think is the decision loop. It is the only goroutine that writes to the
// connection, which keeps us inside gorilla's one-writer rule.
func (a *agent) think() {
	ticker := time.NewTicker(a.reaction)
	defer ticker.Stop()

	var lastStart time.Time

	for {
		select {
		case <-a.quit:
			return
		case <-ticker.C:
		}

		a.mu.Lock()
		conn := a.conn
		snap := a.snap
		a.mu.Unlock()
		if conn == nil || snap == nil {
			continue
		}

		if !snap.Active {
			if a.autostart && time.Since(lastStart) > 2*time.Second {
				a.send(conn, "start")
				lastStart = time.Now()
				atomic.AddUint64(&a.starts, 1)
			}
			continue
		}
		if snap.Phase == game.PhaseLevelUp {
			continue // nothing falls during the pause
		}

		target, ok := chooseZone(snap)
		if !ok || target == snap.BasketZone {
			continue
		}
		// Snapshots arrive slower than we think; don't resend a move the
		// server hasn't reflected back yet.
		if target == a.lastSent && time.Since(a.lastSentAt) < 300*time.Millisecond {
			continue
		}

		a.send(conn, string(target))
		a.lastSent = target
		a.lastSentAt = time.Now()
		atomic.AddUint64(&a.moves, 1)
	}
}

func (a *agent) send(conn *websocket.Conn, command string) {
	msg := map[string]string{"command": command, "source": "agent"}
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("⚠️ Send failed: %v", err)
	}
}

// chooseZone picks the lane to stand in. The fruit closest to the catch
// line wins; a lane whose next arrival is a bomb is off the table entirely.
// With no fruit in the air it only moves to step out of a bomb's path.
func chooseZone(snap *game.Snapshot) (game.Zone, bool) {
	type arrival struct {
		eta  float64 // seconds until it crosses the catch line
		kind game.Kind
	}
	next := make(map[game.Zone]*arrival, 3)

	for i := range snap.Items {
		it := &snap.Items[i]
		if it.Caught || it.Progress >= game.CatchLine {
			continue // already resolved or past the basket row
		}
		eta := (game.CatchLine - it.Progress) * it.FallDuration
		if cur := next[it.Zone]; cur == nil || eta < cur.eta {
			next[it.Zone] = &arrival{eta: eta, kind: it.Kind}
		}
	}

	var best game.Zone
	bestETA := math.MaxFloat64
	for zone, arr := range next {
		if arr.kind.Hazard() {
			continue // standing under a bomb ends the run
		}
		if arr.eta < bestETA {
			best, bestETA = zone, arr.eta
		}
	}
	if best != "" {
		return best, true
	}

	// Nothing catchable. If a bomb is bearing down on the current lane,
	// step into a lane without one.
	if arr := next[snap.BasketZone]; arr != nil && arr.kind.Hazard() {
		for _, zone := range []game.Zone{game.ZoneCenter, game.ZoneLeft, game.ZoneRight} {
			if zone == snap.BasketZone {
				continue
			}
			if n := next[zone]; n == nil || !n.kind.Hazard() {
				return zone, true
			}
		}
	}
	return "", false
}

func (a *agent) logStats() {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-a.quit:
			return
		case <-ticker.C:
		}

		a.mu.Lock()
		snap := a.snap
		a.mu.Unlock()

		score, level := 0, 0
		if snap != nil {
			score, level = snap.Score, snap.Level
		}
		log.Printf("📊 Agent: snapshots=%d, moves=%d, starts=%d, score=%d, level=%d",
			atomic.LoadUint64(&a.snapshots),
			atomic.LoadUint64(&a.moves),
			atomic.LoadUint64(&a.starts),
			score, level)
	}
}

func (a *agent) stopping() bool {
	select {
	case <-a.quit:
		return true
	default:
		return false
	}
}

func (a *agent) shutdown() {
	close(a.quit)
	a.mu.Lock()
	if a.conn != nil {
		a.conn.Close()
	}
	a.mu.Unlock()
}

func getEnvWithDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
