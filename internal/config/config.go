// Package config loads process configuration from the environment.
package config

import (
	stderrors "errors"
	"io/fs"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/auras/internal/errors"
)

// Config holds all configuration for the application
type Config struct {
	// UserID is the host user this process acts for. Only mutations made by
	// this user trigger aura passes here.
	UserID     string `env:"AURAS_USER_ID" envDefault:"gm"`
	GameSystem string `env:"AURAS_GAME_SYSTEM" envDefault:"dnd5e"`
	// SettleTimeout bounds the wait for a movement segment; zero waits forever
	SettleTimeout time.Duration `env:"AURAS_SETTLE_TIMEOUT" envDefault:"0s"`
	// ScenarioFile is the simulator scenario loaded when no path is given
	ScenarioFile string `env:"AURAS_SCENARIO"`

	Redis       RedisConfig
	Coordinator CoordinatorConfig
	Migration   MigrationConfig
	Discord     DiscordConfig
}

// RedisConfig holds Redis-specific configuration. Leaving both URL and Addr
// empty keeps settings and election in process.
type RedisConfig struct {
	URL          string `env:"REDIS_URL"`
	Addr         string `env:"REDIS_ADDR"`
	Password     string `env:"REDIS_PASSWORD"`
	DB           int    `env:"REDIS_DB" envDefault:"0"`
	SettingsHash string `env:"AURAS_SETTINGS_HASH" envDefault:"auras:settings"`
}

// CoordinatorConfig controls coordinator election
type CoordinatorConfig struct {
	// ID names this process in the election; generated when empty
	ID       string        `env:"AURAS_COORDINATOR_ID"`
	LeaseKey string        `env:"AURAS_LEASE_KEY" envDefault:"auras:coordinator"`
	LeaseTTL time.Duration `env:"AURAS_LEASE_TTL" envDefault:"10s"`
}

// MigrationConfig controls the startup migration run
type MigrationConfig struct {
	// Target caps the applied versions; empty applies all
	Target string `env:"AURAS_MIGRATION_TARGET"`
	Skip   bool   `env:"AURAS_SKIP_MIGRATIONS" envDefault:"false"`
}

// DiscordConfig holds the optional GM notice channel
type DiscordConfig struct {
	Token     string `env:"DISCORD_TOKEN"`
	ChannelID string `env:"DISCORD_NOTICE_CHANNEL_ID"`
}

// Enabled reports whether notices should be posted to Discord
func (d DiscordConfig) Enabled() bool {
	return d.Token != ""
}

// Enabled reports whether a Redis server is configured
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Addr != ""
}

// Options builds client options. URL takes precedence over Addr.
func (r RedisConfig) Options() (*redis.Options, error) {
	if r.URL != "" {
		opts, err := redis.ParseURL(r.URL)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "invalid REDIS_URL")
		}
		return opts, nil
	}
	if r.Addr == "" {
		return nil, errors.InvalidArgumentf("redis is not configured")
	}
	return &redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	}, nil
}

// Load reads envFiles (".env" when none are given) into the environment and
// parses the configuration. Missing env files are not an error. Variables
// already set win over file values.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrap(err, "failed to read env file")
		}
		log.Println("Config: no .env file found")
	}
	return Parse()
}

// Parse reads the configuration from the current environment
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse environment")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field combinations the tags cannot express
func (c *Config) Validate() error {
	if c.UserID == "" {
		return errors.Validationf("AURAS_USER_ID must not be empty")
	}
	if c.Coordinator.LeaseTTL <= 0 {
		return errors.Validationf("AURAS_LEASE_TTL must be positive, got %s", c.Coordinator.LeaseTTL)
	}
	if c.SettleTimeout < 0 {
		return errors.Validationf("AURAS_SETTLE_TIMEOUT must not be negative")
	}
	if c.Discord.Enabled() && c.Discord.ChannelID == "" {
		return errors.Validationf("DISCORD_NOTICE_CHANNEL_ID is required when DISCORD_TOKEN is set")
	}
	return nil
}
