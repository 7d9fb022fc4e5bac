// Package cfg loads process configuration from the environment. Only the
// variables listed here are interpreted; everything else the environment
// carries (libpq settings, NATS credentials files, ...) is passed through to
// the backing clients untouched.
package cfg

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	NatsURL     string `env:"NATS_URL" envDefault:"nats://127.0.0.1:4222"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://127.0.0.1:6379/0"`

	// Consumed by the init command only. Provisioning runs when both
	// username and email are present; the password may stay empty.
	AdminUsername string `env:"ADMIN_USERNAME"`
	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// How long task-monitor entries stay readable after their last update.
	TaskStatusTTL time.Duration `env:"TASK_STATUS_TTL" envDefault:"48h"`
}

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return c, nil
}
