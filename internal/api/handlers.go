package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"fruit-rush/internal/game"
	"fruit-rush/internal/input"
	"fruit-rush/internal/scores"
)

// Handler methods for routerHandlers.
// These back both the standalone router (for tests) and the full Server.

func (h *routerHandlers) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.engine.Snapshot())
}

func (h *routerHandlers) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]interface{}{
		"state":    h.engine.State(),
		"engine":   h.engine.Stats(),
		"eventLog": h.engine.EventLogStats(),
	}

	if h.commands != nil {
		stats["queue"] = h.commands.Stats()
	}
	if h.wsClientCount != nil {
		stats["wsClients"] = h.wsClientCount()
	}
	if h.scores != nil {
		if summary, err := h.scores.GetSummary(); err == nil {
			stats["scores"] = summary
		}
	}

	writeJSON(w, stats)
}

func (h *routerHandlers) handleGetScores(w http.ResponseWriter, r *http.Request) {
	if h.scores == nil {
		writeError(w, "Score history not configured", http.StatusServiceUnavailable)
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	if limit > 100 {
		limit = 100 // Cap
	}

	runs, err := h.scores.TopRuns(limit)
	if err != nil {
		log.Printf("⚠️ Score query failed: %v", err)
		writeError(w, "Score query failed", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []scores.Run{}
	}

	writeJSON(w, runs)
}

func (h *routerHandlers) handleGetKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, game.AllKinds())
}

func (h *routerHandlers) handleStartGame(w http.ResponseWriter, r *http.Request) {
	started := h.engine.Start()
	if started {
		log.Println("🎮 Run started via API")
	}
	writeJSON(w, map[string]interface{}{
		"started": started,
		"state":   h.engine.State(),
	})
}

func (h *routerHandlers) handleStopGame(w http.ResponseWriter, r *http.Request) {
	stopped := h.engine.Stop()
	if stopped {
		log.Println("🛑 Run stopped via API")
	}
	writeJSON(w, map[string]interface{}{
		"stopped": stopped,
		"state":   h.engine.State(),
	})
}

func (h *routerHandlers) handleMoveBasket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Direction string `json:"direction"`
		Source    string `json:"source"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	if req.Direction == "" {
		writeError(w, "Direction is required", http.StatusBadRequest)
		return
	}

	source := req.Source
	if source == "" {
		source = "api:" + GetClientIP(r)
	}

	// Run the word through the shared vocabulary so the HTTP surface and the
	// WebSocket surface accept exactly the same directions.
	cmd := input.Parse(source, req.Direction)
	if cmd.Action != input.ActionMove {
		writeError(w, "Unknown direction", http.StatusBadRequest)
		return
	}

	if h.commands == nil || !h.commands.Enqueue(cmd) {
		writeError(w, "Command queue full", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]interface{}{
		"accepted": true,
		"zone":     cmd.Zone,
	})
}

// Helper functions (package-level for reuse)

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
