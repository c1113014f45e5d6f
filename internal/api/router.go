package api

import (
	"net/http"

	"fruit-rush/internal/game"
	"fruit-rush/internal/input"
	"fruit-rush/internal/scores"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineAPI defines the engine methods the HTTP layer calls.
// This interface enables mocking for tests without spinning up the full
// game loop. Keep it minimal - only what handlers actually use.
type EngineAPI interface {
	// State returns the light polling projection
	State() game.State
	// Snapshot returns the full render snapshot (items included)
	Snapshot() game.Snapshot
	// Stats returns lifetime process counters
	Stats() game.Stats
	// EventLogStats reports event log totals and drops
	EventLogStats() map[string]interface{}
	// Start begins a run; false when one is already active
	Start() bool
	// Stop ends the run; false when already idle
	Stop() bool
}

// ScoreReader defines the run-history methods the HTTP layer calls.
type ScoreReader interface {
	// TopRuns returns the best finished runs, score descending
	TopRuns(limit int) ([]scores.Run, error)
	// GetSummary aggregates the run history for the stats endpoint
	GetSummary() (*scores.Summary, error)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine:   engine,
//	    Commands: sink,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the rule engine (required)
	Engine EngineAPI

	// Commands receives basket commands; nil disables the basket endpoint
	Commands CommandSink

	// Scores serves run history; nil disables the scores endpoint
	Scores ScoreReader

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one is created from RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, local development origins are allowed.
	CORSOrigins []string

	// WSClientCount, if set, is surfaced by the stats endpoint
	WSClientCount func() int

	// DisableLogging disables the request logger middleware (useful for benchmarks)
	DisableLogging bool
}

// routerHandlers holds the dependencies handler methods need.
type routerHandlers struct {
	engine        EngineAPI
	commands      CommandSink
	scores        ScoreReader
	wsClientCount func() int
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE - it has no side effects beyond the rate
// limiter's cleanup goroutine when one has to be created here:
//   - No network listeners are opened
//   - No background workers are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - order matters
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	// CORS configuration
	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Use(MetricsMiddleware)

	h := &routerHandlers{
		engine:        cfg.Engine,
		commands:      cfg.Commands,
		scores:        cfg.Scores,
		wsClientCount: cfg.WSClientCount,
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Read side: renderer polling and dashboards
		r.Get("/state", h.handleGetState)
		r.Get("/stats", h.handleGetStats)
		r.Get("/scores", h.handleGetScores)
		r.Get("/kinds", h.handleGetKinds)

		// Command side: the pose bridge
		r.Route("/game", func(r chi.Router) {
			r.Post("/start", h.handleStartGame)
			r.Post("/stop", h.handleStopGame)
			r.Post("/basket", h.handleMoveBasket)
		})
	})

	// Service banner so a bare curl tells you what is listening
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{
			"service": "fruit-rush",
			"api":     "/api",
			"ws":      "/ws",
		})
	})

	return r
}

// Compile-time checks that the real implementations satisfy the router's
// narrow views of them.
var (
	_ EngineAPI   = (*game.Engine)(nil)
	_ ScoreReader = (*scores.Store)(nil)
	_ CommandSink = (*input.CommandQueue)(nil)
)
