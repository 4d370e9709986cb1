// Package config loads server settings from the environment, an optional
// .env file and the positional command line.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	MinPlayers = 1
	MaxPlayers = 5
)

var ErrUsage = errors.New("usage: server <port> <numPlayers>")

type Config struct {
	TCPHost string `env:"SPOCK_TCP_HOST"`
	TCPPort int    `env:"SPOCK_TCP_PORT" envDefault:"5131"`
	// HTTPAddr serves /healthz, /sessions, /history and /ws. Empty disables it.
	HTTPAddr string `env:"SPOCK_HTTP_ADDR" envDefault:":8080"`

	Players     int `env:"SPOCK_PLAYERS" envDefault:"2"`
	MaxSessions int `env:"SPOCK_MAX_SESSIONS" envDefault:"1"`
	// LocalPlayer seats the server console as player 1.
	LocalPlayer bool `env:"SPOCK_LOCAL_PLAYER"`
	Welcome     bool `env:"SPOCK_WELCOME" envDefault:"true"`

	RoundTimeout time.Duration `env:"SPOCK_ROUND_TIMEOUT"`
	WriteTimeout time.Duration `env:"SPOCK_WRITE_TIMEOUT" envDefault:"5s"`
	OutboxSize   int           `env:"SPOCK_OUTBOX_SIZE" envDefault:"32"`

	DatabaseURL  string `env:"DATABASE_URL"`
	HistoryLimit int    `env:"SPOCK_HISTORY_LIMIT" envDefault:"100"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	Dev      bool   `env:"DEV"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads envFile when it exists, then the environment, then applies
// args as "<port> <numPlayers>".
func Load(envFile string, args []string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.applyArgs(args); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyArgs(args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 2:
	default:
		return ErrUsage
	}
	port, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("port %q: %w", args[0], ErrUsage)
	}
	players, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("numPlayers %q: %w", args[1], ErrUsage)
	}
	c.TCPPort = port
	c.Players = players
	return nil
}

func (c Config) Validate() error {
	if c.TCPPort < 1 || c.TCPPort > 65535 {
		return fmt.Errorf("tcp port %d out of range", c.TCPPort)
	}
	if c.Players < MinPlayers || c.Players > MaxPlayers {
		return fmt.Errorf("players must be between %d and %d, got %d", MinPlayers, MaxPlayers, c.Players)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("max sessions must not be negative, got %d", c.MaxSessions)
	}
	if c.RoundTimeout < 0 {
		return fmt.Errorf("round timeout must not be negative, got %s", c.RoundTimeout)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive, got %s", c.WriteTimeout)
	}
	if c.OutboxSize < 8 {
		return fmt.Errorf("outbox size must be at least 8, got %d", c.OutboxSize)
	}
	return nil
}

func (c Config) TCPAddr() string {
	return c.TCPHost + ":" + strconv.Itoa(c.TCPPort)
}
