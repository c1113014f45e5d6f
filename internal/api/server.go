package api

import (
	"log"
	"net/http"

	"fruit-rush/internal/game"

	"github.com/go-chi/chi/v5"
)

// ServerConfig wires the server's collaborators together.
type ServerConfig struct {
	// Engine is the rule engine (required)
	Engine *game.Engine

	// Commands is the queue basket commands flow through (required for the
	// basket endpoint and inbound WebSocket commands)
	Commands CommandSink

	// Scores serves run history; nil disables the scores endpoint
	Scores ScoreReader

	// CORSOrigins overrides the allowed origins for both CORS and the
	// WebSocket origin check
	CORSOrigins []string

	// RateLimit overrides DefaultRateLimitConfig
	RateLimit *RateLimitConfig
}

// Server is the HTTP API server with WebSocket support. It combines the
// router with the hub that pushes engine notifications to renderers.
type Server struct {
	engine      *game.Engine
	router      *chi.Mux
	hub         *Hub
	rateLimiter *IPRateLimiter

	cancelFeed func()
}

// NewServer creates the API server.
//
// IMPORTANT: Background workers do NOT start until Start() is called.
// This enables testing by allowing the server to be constructed without
// starting goroutines or opening network listeners.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter directly.
func NewServer(cfg ServerConfig) *Server {
	SetAllowedOrigins(cfg.CORSOrigins)

	s := &Server{
		engine: cfg.Engine,
		hub:    NewHub(cfg.Commands),
	}

	// Create rate limiter here so Stop can shut its cleanup loop down
	rateLimitCfg := DefaultRateLimitConfig
	if cfg.RateLimit != nil {
		rateLimitCfg = *cfg.RateLimit
	}
	s.rateLimiter = NewIPRateLimiter(rateLimitCfg)

	s.router = NewRouter(RouterConfig{
		Engine:        cfg.Engine,
		Commands:      cfg.Commands,
		Scores:        cfg.Scores,
		RateLimiter:   s.rateLimiter,
		CORSOrigins:   cfg.CORSOrigins,
		WSClientCount: s.hub.ClientCount,
	})

	// WebSocket routes need the hub instance, so they can't live in the
	// pure NewRouter factory
	s.router.Get("/ws", s.hub.HandleWebSocket)

	return s
}

// Start begins the HTTP server AND starts background workers.
// This is the ONLY method that starts goroutines or opens network listeners.
//
// Call this method only once. To stop the server, signal the process.
func (s *Server) Start(addr string) error {
	go s.hub.Run()
	s.hub.StartStateLoop(s.engine)
	s.cancelFeed = s.hub.StartEventLoop(s.engine)

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("   - commands: POST http://localhost%s/api/game/basket", addr)
	log.Printf("   - renderer: ws://localhost%s/ws", addr)

	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
//
// Example:
//
//	server := api.NewServer(cfg)
//	ts := httptest.NewServer(server.Router())
//	defer ts.Close()
//	resp, _ := http.Get(ts.URL + "/api/state")
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub exposes the WebSocket hub, mainly so callers can broadcast
// out-of-band announcements.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Stop performs graceful shutdown of background workers.
// Call this before process exit to ensure clean cleanup.
func (s *Server) Stop() {
	if s.cancelFeed != nil {
		s.cancelFeed()
	}
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}
