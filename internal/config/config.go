package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the server.
type Config struct {
	Port     string `env:"PORT" envDefault:"8000"`
	DBPath   string `env:"COLLAB_DB_PATH" envDefault:"./data/rooms.db"`
	LogLevel string `env:"COLLAB_LOG_LEVEL" envDefault:"info"`

	// CORSOrigins is a comma separated allowlist; "*" allows everything.
	CORSOrigins []string `env:"COLLAB_CORS_ORIGINS" envSeparator:"," envDefault:"*"`

	// RoomSecret unlocks locked rooms and guards the interview notes.
	RoomSecret string `env:"COLLAB_ROOM_SECRET" envDefault:"letmein"`

	// Rooms older than AutoLockDays get locked by the sweep.
	AutoLockDays      int           `env:"COLLAB_AUTO_LOCK_DAYS" envDefault:"7"`
	AutoLockInterval  time.Duration `env:"COLLAB_AUTO_LOCK_INTERVAL" envDefault:"1h"`
	AutoLockOnStartup bool          `env:"COLLAB_AUTO_LOCK_ON_STARTUP" envDefault:"true"`
}

// Load parses environment variables into Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.RoomSecret = strings.TrimSpace(cfg.RoomSecret)
	if cfg.AutoLockDays <= 0 {
		cfg.AutoLockDays = 7
	}

	return cfg, nil
}
