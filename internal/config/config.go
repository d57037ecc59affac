package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment of the sync service. The registry is
// constructed from it at process start rather than from module-level
// globals, so tests can build isolated instances.
type Config struct {
	Port              string        `envconfig:"PORT" default:"8080"`
	RedisAddr         string        `envconfig:"REDIS_ADDR"`
	ProjectServiceURL string        `envconfig:"PROJECT_SERVICE_URL"`
	JWTSecret         string        `envconfig:"JWT_SECRET"`
	RoomGracePeriod   time.Duration `envconfig:"ROOM_GRACE_PERIOD" default:"30s"`
	AllowedOrigins    []string      `envconfig:"ALLOWED_ORIGINS" default:"*"`
}

func Load() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
