package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds application configuration loaded from environment variables.
type Config struct {
	BotToken string `envconfig:"BOT_TOKEN" required:"true"`
	DBPath   string `envconfig:"DB_PATH" default:"./data/todoprompt.db"`
	RunMode  string `envconfig:"RUN_MODE" default:"polling"` // polling only for now
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`   // debug|info|warn|error
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`  // /healthz and /metrics

	TZCacheSize  int           `envconfig:"TZ_CACHE_SIZE" default:"128"`
	MisfireGrace time.Duration `envconfig:"MISFIRE_GRACE" default:"60s"` // late fire window after a restart
	FireTimeout  time.Duration `envconfig:"FIRE_TIMEOUT" default:"15s"`  // per notification
}

// Load reads environment variables into Config.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
