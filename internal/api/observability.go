package api

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"strconv"
	"time"

	"fruit-rush/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality: labels are enum values (kind, reason,
// route pattern), never per-client data.
var (
	// Engine metrics
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "game_tick_duration_seconds",
		Help:    "Time spent in one physics step",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025},
	})

	scoreGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_score",
		Help: "Score of the current run",
	})

	levelGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_level",
		Help: "Level of the current run",
	})

	itemsAirborne = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_items_airborne",
		Help: "Uncaught items currently falling",
	})

	runActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_run_active",
		Help: "1 while a run is in progress",
	})

	itemsSpawned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_items_spawned_total",
		Help: "Items spawned",
	}, []string{"kind"}) // Bounded: bomb, apple, pear, orange

	catchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_catches_total",
		Help: "Fruit caught by the basket",
	}, []string{"kind"})

	missesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_misses_total",
		Help: "Fruit that reached the ground unclaimed",
	})

	basketMoves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_basket_moves_total",
		Help: "Basket zone changes",
	})

	runsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_runs_finished_total",
		Help: "Finished runs",
	}, []string{"reason"}) // Bounded: stopped, hazard, miss_limit

	// DoS detection: use ONLY bounded label values
	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected by rate limiter or origin check",
	}, []string{"reason"}) // Bounded: rate_limit, origin, ws_total_limit, ws_ip_limit

	// HTTP metrics; endpoint is the chi route pattern, not the raw URL
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages sent",
	})
)

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled       bool
	ListenAddr    string // MUST be "127.0.0.1:6060" in production
	BasicAuthUser string // Optional basic auth
	BasicAuthPass string
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060", // Localhost only - NEVER expose externally
	}
}

// StartDebugServer starts the internal observability server.
// CRITICAL: this MUST bind to localhost only to keep pprof off the network.
func StartDebugServer(cfg ObservabilityConfig) error {
	if !cfg.Enabled {
		log.Println("📊 Debug server disabled")
		return nil
	}

	// SECURITY: validate address is localhost
	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		// Only allow external binding if explicitly enabled via env
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ Debug server forced to localhost for security")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()

	// pprof endpoints for profiling
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	// Prometheus metrics endpoint
	mux.Handle("/metrics", promhttp.Handler())

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Optional basic auth wrapper
	var handler http.Handler = mux
	if cfg.BasicAuthUser != "" {
		handler = basicAuthMiddleware(cfg.BasicAuthUser, cfg.BasicAuthPass, mux)
	}

	go func() {
		log.Printf("📊 Debug server starting on %s", cfg.ListenAddr)
		log.Printf("   - pprof:   http://%s/debug/pprof/", cfg.ListenAddr)
		log.Printf("   - metrics: http://%s/metrics", cfg.ListenAddr)

		if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
			log.Printf("⚠️ Debug server error: %v", err)
		}
	}()

	return nil
}

// basicAuthMiddleware adds basic authentication to the handler.
func basicAuthMiddleware(user, pass string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || u != user || p != pass {
			w.Header().Set("WWW-Authenticate", `Basic realm="debug"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RecordTick records physics step timing. Wire via game.Config.TickObserver.
func RecordTick(duration time.Duration) {
	tickDuration.Observe(duration.Seconds())
}

// RecordSpawn counts a spawned item. Wire via game.Config.SpawnObserver.
func RecordSpawn(kind game.Kind) {
	itemsSpawned.WithLabelValues(string(kind)).Inc()
}

// ObserveEvent updates metrics from one engine notification. The hub's
// event pump calls this for every event it forwards.
func ObserveEvent(ev game.Event) {
	switch ev.Type {
	case game.EventScoreChanged:
		var p game.ScoreChangedPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			catchesTotal.WithLabelValues(string(p.Kind)).Inc()
			scoreGauge.Set(float64(p.Score))
		}
	case game.EventMissChanged:
		missesTotal.Inc()
	case game.EventBasketMoved:
		basketMoves.Inc()
	case game.EventGameEnded:
		var p game.GameEndedPayload
		if json.Unmarshal(ev.Payload, &p) == nil {
			runsFinished.WithLabelValues(string(p.Reason)).Inc()
		}
	}
}

// UpdateGameGauges refreshes the snapshot-derived gauges. Called from the
// periodic state broadcast.
func UpdateGameGauges(snap game.Snapshot) {
	scoreGauge.Set(float64(snap.Score))
	levelGauge.Set(float64(snap.Level))
	itemsAirborne.Set(float64(snap.AirborneItemCount))
	if snap.Active {
		runActive.Set(1)
	} else {
		runActive.Set(0)
	}
}

// RecordConnectionRejected increments the rejection counter.
// reason must be one of: "rate_limit", "origin", "ws_total_limit", "ws_ip_limit"
func RecordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// RecordRequest records HTTP request metrics.
func RecordRequest(method, endpoint string, status int, duration time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(duration.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// UpdateWSConnections updates the WebSocket connection gauge.
func UpdateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

// IncrementWSMessages increments the WebSocket message counter.
func IncrementWSMessages() {
	wsMessagesTotal.Inc()
}

// MetricsMiddleware records latency and counts per route pattern. Must sit
// inside the chi router so the pattern is resolved by the time it reads it.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		endpoint := chi.RouteContext(r.Context()).RoutePattern()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		RecordRequest(r.Method, endpoint, ww.Status(), time.Since(start))
	})
}
