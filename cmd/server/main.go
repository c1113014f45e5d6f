package main

import (
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fruit-rush/internal/api"
	"fruit-rush/internal/config"
	"fruit-rush/internal/game"
	"fruit-rush/internal/input"
	"fruit-rush/internal/scores"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env file from parent directory
	if err := godotenv.Load("../.env"); err != nil {
		// Try current directory as fallback
		if err := godotenv.Load(".env"); err != nil {
			log.Println("💡 No .env file found, using environment variables only")
		}
	} else {
		log.Println("✅ Loaded environment from ../.env")
	}

	log.Println("🍉 ================================")
	log.Println("🍉  FRUIT RUSH - RULE ENGINE")
	log.Println("🍉  pose-controlled catch game")
	log.Println("🍉 ================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	cfg := config.Load()

	log.Printf("🎮 Config: %d Hz tick rate, port %d", cfg.Game.TickRate, cfg.Server.Port)
	if cfg.Game.Seed != 0 {
		log.Printf("🎲 Seeded RNG: %d (reproducible run)", cfg.Game.Seed)
	}

	// Create the rule engine with metrics observers wired in
	engine := game.NewEngine(game.Config{
		TickRate:      cfg.Game.TickRate,
		Seed:          cfg.Game.Seed,
		TickObserver:  api.RecordTick,
		SpawnObserver: api.RecordSpawn,
	})

	// Start event log
	if cfg.Storage.EventLogPath != "" {
		if err := engine.StartEventLog(cfg.Storage.EventLogPath); err != nil {
			log.Printf("⚠️ Event log disabled: %v", err)
		} else {
			log.Printf("📝 Event log: %s", cfg.Storage.EventLogPath)
		}
	}

	// Start debug server (pprof + prometheus, localhost only)
	if err := api.StartDebugServer(api.ObservabilityConfig{
		Enabled:       cfg.Observability.Enabled,
		ListenAddr:    cfg.Observability.DebugAddr,
		BasicAuthUser: cfg.Observability.BasicAuthUser,
		BasicAuthPass: cfg.Observability.BasicAuthPass,
	}); err != nil {
		log.Printf("⚠️ Debug server disabled: %v", err)
	}

	// Open the run-history store. Persistence failure is never fatal: the
	// game runs, it just forgets.
	var store *scores.Store
	if cfg.Storage.DBPath != "" {
		var err error
		store, err = scores.Open(cfg.Storage.DBPath)
		if err != nil {
			log.Printf("⚠️ Run history disabled: %v", err)
			store = nil
		} else {
			log.Printf("💾 Run history: %s", cfg.Storage.DBPath)
			if best, err := store.BestScore(); err == nil && best > 0 {
				log.Printf("🏆 Score to beat: %d", best)
			}
		}
	}

	// Input pipeline: vocabulary handler behind a non-blocking queue
	handler := input.NewHandler(engine)
	queue := input.NewCommandQueue(handler, input.DefaultQueueConfig())
	queue.Start()

	// Record finished runs
	var cancelRecorder func()
	if store != nil {
		cancelRecorder = startRunRecorder(engine, store)
	}

	// API server: router + WebSocket hub + engine feed pump
	serverCfg := api.ServerConfig{
		Engine:      engine,
		Commands:    queue,
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if store != nil {
		serverCfg.Scores = store
	}
	server := api.NewServer(serverCfg)

	go func() {
		addr := ":" + strconv.Itoa(cfg.Server.Port)
		if err := server.Start(addr); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// The run does not start by itself: the pose bridge (or anyone with
	// curl) sends the start command when the player is in frame.
	log.Println("🕹️ Engine idle - waiting for a start command")
	log.Println("✅ Server ready! Press Ctrl+C to stop.")

	// Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down...")
	engine.Stop() // emits the final game_ended before anything closes
	queue.Stop()
	server.Stop()

	if cancelRecorder != nil {
		// Give the recorder a beat to flush the final game_ended
		time.Sleep(200 * time.Millisecond)
		cancelRecorder()
	}

	engine.StopEventLog()
	if store != nil {
		store.Close()
	}
	log.Println("👋 Goodbye!")
}

// startRunRecorder persists every finished run. Returns a cancel func that
// detaches from the engine feed.
func startRunRecorder(engine *game.Engine, store *scores.Store) func() {
	events, cancel := engine.Subscribe(64)

	go func() {
		for ev := range events {
			if ev.Type != game.EventGameEnded {
				continue
			}

			var p game.GameEndedPayload
			if err := json.Unmarshal(ev.Payload, &p); err != nil {
				continue
			}

			if _, err := store.SaveRun(p.Score, p.Level, string(p.Reason)); err != nil {
				log.Printf("⚠️ Failed to record run: %v", err)
				continue
			}
			log.Printf("💾 Recorded run: %d points, level %d (%s)", p.Score, p.Level, p.Reason)
		}
	}()

	return cancel
}
