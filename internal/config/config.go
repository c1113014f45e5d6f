// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all service settings.
//
// Rule constants (miss limits, catch line, drop-time curve) are invariants
// of the game, not configuration - those live in internal/game.
package config

import (
	"os"
	"strconv"
	"strings"
)

// =============================================================================
// GAME ENGINE CONFIGURATION
// =============================================================================

// GameConfig holds engine construction settings.
type GameConfig struct {
	TickRate int   // Physics steps per second
	Seed     int64 // RNG seed; 0 seeds from the clock
}

// DefaultGame returns the default engine configuration.
func DefaultGame() GameConfig {
	return GameConfig{
		TickRate: 60,
		Seed:     0,
	}
}

// GameFromEnv returns engine configuration with environment variable
// overrides. Environment variables take precedence over defaults.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if tr := getEnvInt("TICK_RATE", 0); tr > 0 {
		cfg.TickRate = tr
	}
	if seed := getEnvInt64("GAME_SEED", 0); seed != 0 {
		cfg.Seed = seed
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string // nil means local development origins
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port: 3000,
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := getEnvList("CORS_ORIGINS"); len(origins) > 0 {
		cfg.CORSOrigins = origins
	}

	return cfg
}

// =============================================================================
// OBSERVABILITY CONFIGURATION
// =============================================================================

// ObservabilityConfig holds debug server settings.
type ObservabilityConfig struct {
	Enabled       bool
	DebugAddr     string // Keep on localhost; pprof must never face the network
	BasicAuthUser string
	BasicAuthPass string
}

// DefaultObservability returns the default observability configuration.
func DefaultObservability() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:   true,
		DebugAddr: "127.0.0.1:6060",
	}
}

// ObservabilityFromEnv returns observability configuration with environment
// variable overrides.
func ObservabilityFromEnv() ObservabilityConfig {
	cfg := DefaultObservability()

	if os.Getenv("DEBUG_ENABLED") == "false" {
		cfg.Enabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}
	cfg.BasicAuthUser = os.Getenv("DEBUG_BASIC_AUTH_USER")
	cfg.BasicAuthPass = os.Getenv("DEBUG_BASIC_AUTH_PASS")

	return cfg
}

// =============================================================================
// STORAGE CONFIGURATION
// =============================================================================

// StorageConfig holds persistence paths.
type StorageConfig struct {
	DBPath       string // SQLite run history; empty disables persistence
	EventLogPath string // JSONL notification log; empty disables it
}

// DefaultStorage returns the default storage configuration.
func DefaultStorage() StorageConfig {
	return StorageConfig{
		DBPath:       "data/fruit-rush.db",
		EventLogPath: "data/events.jsonl",
	}
}

// StorageFromEnv returns storage configuration with environment variable
// overrides. Set a path to "off" to disable that store.
func StorageFromEnv() StorageConfig {
	cfg := DefaultStorage()

	if p := os.Getenv("DB_PATH"); p != "" {
		cfg.DBPath = p
	}
	if p := os.Getenv("EVENT_LOG_PATH"); p != "" {
		cfg.EventLogPath = p
	}
	if strings.EqualFold(cfg.DBPath, "off") {
		cfg.DBPath = ""
	}
	if strings.EqualFold(cfg.EventLogPath, "off") {
		cfg.EventLogPath = ""
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game          GameConfig
	Server        ServerConfig
	Observability ObservabilityConfig
	Storage       StorageConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:          GameFromEnv(),
		Server:        ServerFromEnv(),
		Observability: ObservabilityFromEnv(),
		Storage:       StorageFromEnv(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvInt64(key string, defaultVal int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvList splits a comma-separated environment variable, trimming blanks.
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
