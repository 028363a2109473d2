package api

import (
	"time"

	"dqengine/internal/config"
)

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string        `json:"addr"`
	GinMode      string        `json:"gin_mode"`
	CheckTimeout time.Duration `json:"check_timeout"` // per check request; 0 disables
	MaxBodyBytes int64         `json:"max_body_bytes"`
	HistoryLimit int           `json:"history_limit"`
}

// DefaultServerConfig returns sensible defaults for the API server
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":8080",
		GinMode:      "release",
		CheckTimeout: 30 * time.Second,
		MaxBodyBytes: 64 << 20,
		HistoryLimit: 20,
	}
}

// ServerConfigFrom maps the application config
func ServerConfigFrom(cfg *config.Config) ServerConfig {
	sc := DefaultServerConfig()
	sc.Addr = ":" + cfg.Server.Port
	sc.GinMode = cfg.Server.GinMode
	sc.CheckTimeout = cfg.Engine.Timeout
	return sc
}
