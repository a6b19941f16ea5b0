package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Store and auth backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type AppConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	WSPath           string        `env:"WS_PATH"            envDefault:"/ws"`
	WSAllowedOrigins []string      `env:"WS_ALLOWED_ORIGINS" envSeparator:","`
	WSWriteTimeout   time.Duration `env:"WS_WRITE_TIMEOUT"   envDefault:"5s"`
	WSPingInterval   time.Duration `env:"WS_PING_INTERVAL"   envDefault:"30s"`
	WSSendQueue      int           `env:"WS_SEND_QUEUE"      envDefault:"64"`
	WSReadLimit      int64         `env:"WS_READ_LIMIT"      envDefault:"8192"`

	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" envDefault:"5s"`

	StoreBackend string `env:"STORE_BACKEND" envDefault:"memory"`
	AuthBackend  string `env:"AUTH_BACKEND"  envDefault:"memory"`
	RedisURL     string `env:"REDIS_URL"`
	DatabaseURL  string `env:"DATABASE_URL"`

	GameTTL      time.Duration `env:"GAME_TTL"       envDefault:"168h"`
	AuthTokenTTL time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"24h"`

	// AuthStaticTokens is "token:user,token:user".
	AuthStaticTokens map[string]string `env:"AUTH_STATIC_TOKENS" envSeparator:"," envKeyValSeparator:":"`
	// SeedGames is "name:white:black,..."; either seat may be empty.
	SeedGames []string `env:"SEED_GAMES" envSeparator:","`

	// ArchiveResults writes finished games to game_results when DATABASE_URL is
	// set and keeps them in memory otherwise.
	ArchiveResults bool   `env:"ARCHIVE_RESULTS"`
	MessagesDir    string `env:"MESSAGES_DIR"`

	Log LogConfig `envPrefix:"LOG_"`
}

type LogConfig struct {
	Level     string `env:"LEVEL"      envDefault:"info"`
	Format    string `env:"FORMAT"     envDefault:"legacy"`
	ToConsole bool   `env:"TO_CONSOLE" envDefault:"true"`
	ToFile    bool   `env:"TO_FILE"    envDefault:"true"`
	File      string `env:"FILE"       envDefault:"logs/chess-server.log"`
	Caller    bool   `env:"CALLER"`
}

// SeedGame is one parsed SEED_GAMES entry.
type SeedGame struct {
	Name  string
	White string
	Black string
}

func Load() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) normalize() {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.AuthBackend = strings.ToLower(strings.TrimSpace(c.AuthBackend))
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.MessagesDir = strings.TrimSpace(c.MessagesDir)

	origins := c.WSAllowedOrigins[:0]
	for _, o := range c.WSAllowedOrigins {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	c.WSAllowedOrigins = origins

	if len(c.AuthStaticTokens) > 0 {
		tokens := make(map[string]string, len(c.AuthStaticTokens))
		for k, v := range c.AuthStaticTokens {
			if tk, user := strings.TrimSpace(k), strings.TrimSpace(v); tk != "" && user != "" {
				tokens[tk] = user
			}
		}
		c.AuthStaticTokens = tokens
	}
	if !strings.HasPrefix(c.WSPath, "/") {
		c.WSPath = "/" + c.WSPath
	}
}

func (c *AppConfig) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for STORE_BACKEND=redis")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.AuthBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for AUTH_BACKEND=redis")
		}
	default:
		return fmt.Errorf("unknown AUTH_BACKEND %q", c.AuthBackend)
	}
	if c.CommandTimeout <= 0 {
		return errors.New("COMMAND_TIMEOUT must be positive")
	}
	if c.WSSendQueue <= 0 {
		return errors.New("WS_SEND_QUEUE must be positive")
	}
	if c.WSReadLimit <= 0 {
		return errors.New("WS_READ_LIMIT must be positive")
	}
	if _, err := c.Seeds(); err != nil {
		return err
	}
	return nil
}

// Seeds parses SeedGames.
func (c *AppConfig) Seeds() ([]SeedGame, error) {
	var out []SeedGame
	for _, raw := range c.SeedGames {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.Split(raw, ":")
		if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
			return nil, fmt.Errorf("SEED_GAMES entry %q: want name:white:black", raw)
		}
		out = append(out, SeedGame{
			Name:  strings.TrimSpace(parts[0]),
			White: strings.TrimSpace(parts[1]),
			Black: strings.TrimSpace(parts[2]),
		})
	}
	return out, nil
}
