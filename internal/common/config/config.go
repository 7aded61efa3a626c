package config

import (
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port   int    `env:"PORT" envDefault:"8080"`
		Origin string `env:"ORIGIN" envDefault:"http://localhost:3000"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Store struct {
		// OpTimeout bounds every store round-trip; expired calls surface as
		// STORE_UNAVAILABLE to the requester.
		OpTimeout time.Duration `env:"STORE_OP_TIMEOUT" envDefault:"3s"`
	}

	Draw struct {
		// MaxAttempts bounds the conditional-decrement retry loop before a
		// draw fails with CONTENTION.
		MaxAttempts int `env:"DRAW_MAX_ATTEMPTS" envDefault:"3"`
	}

	WS struct {
		WriteTimeout   time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"10s"`
		ReadTimeout    time.Duration `env:"WS_READ_TIMEOUT" envDefault:"60s"`
		PingInterval   time.Duration `env:"WS_PING_INTERVAL" envDefault:"30s"`
		MaxMessageSize int64         `env:"WS_MAX_MESSAGE_SIZE" envDefault:"4096"`
		SendBuffer     int           `env:"WS_SEND_BUFFER" envDefault:"256"`
	}
}

func Load() *Config {
	// Missing .env is fine; production sets variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}
