package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the server settings. Values come from defaults, then the YAML
// file, then environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	JWT      JWTConfig      `yaml:"jwt"`
	OAuth    OAuthConfig    `yaml:"oauth"`
}

type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	LogLevel        string  `yaml:"log_level"`
	PublicRateLimit float64 `yaml:"public_rate_limit"`
	PublicRateBurst int     `yaml:"public_rate_burst"`
}

type DatabaseConfig struct {
	Path          string `yaml:"path"`
	MigrationsDir string `yaml:"migrations_dir"`
}

type SessionConfig struct {
	Lifetime time.Duration `yaml:"lifetime"`
}

type JWTConfig struct {
	Secret string        `yaml:"secret"`
	TTL    time.Duration `yaml:"ttl"`
}

type ProviderConfig struct {
	Key         string `yaml:"key"`
	Secret      string `yaml:"secret"`
	CallbackURL string `yaml:"callback_url"`
}

func (p ProviderConfig) Enabled() bool {
	return p.Key != "" && p.Secret != ""
}

type OAuthConfig struct {
	Discord ProviderConfig `yaml:"discord"`
	Google  ProviderConfig `yaml:"google"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			LogLevel:        "info",
			PublicRateLimit: 5,
			PublicRateBurst: 20,
		},
		Database: DatabaseConfig{
			Path:          "scorekeeper.db",
			MigrationsDir: "migrations",
		},
		Session: SessionConfig{Lifetime: 24 * time.Hour},
		JWT:     JWTConfig{TTL: 30 * 24 * time.Hour},
	}
}

// Load reads .env, then the YAML file at filename if it exists, then the
// environment. A missing JWT secret is replaced by a random one, which
// invalidates issued tokens on every restart.
func Load(filename string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := Default()
	data, err := os.ReadFile(filename)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("no config file found, using defaults", "path", filename)
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.JWT.Secret == "" {
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.JWT.Secret = secret
		slog.Warn("JWT_SECRET not set, generated a random secret; bearer tokens will not survive a restart")
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	texts := map[string]*string{
		"ADDR":                 &cfg.Server.Addr,
		"LOG_LEVEL":            &cfg.Server.LogLevel,
		"DB_PATH":              &cfg.Database.Path,
		"MIGRATIONS_DIR":       &cfg.Database.MigrationsDir,
		"JWT_SECRET":           &cfg.JWT.Secret,
		"DISCORD_KEY":          &cfg.OAuth.Discord.Key,
		"DISCORD_SECRET":       &cfg.OAuth.Discord.Secret,
		"DISCORD_CALLBACK_URL": &cfg.OAuth.Discord.CallbackURL,
		"GOOGLE_KEY":           &cfg.OAuth.Google.Key,
		"GOOGLE_SECRET":        &cfg.OAuth.Google.Secret,
		"GOOGLE_CALLBACK_URL":  &cfg.OAuth.Google.CallbackURL,
	}
	for key, dst := range texts {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"SESSION_LIFETIME": &cfg.Session.Lifetime,
		"JWT_TTL":          &cfg.JWT.TTL,
	}
	for key, dst := range durations {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s value: %w", key, err)
			}
			*dst = d
		}
	}

	if v := os.Getenv("PUBLIC_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid PUBLIC_RATE_LIMIT value: %w", err)
		}
		cfg.Server.PublicRateLimit = f
	}
	if v := os.Getenv("PUBLIC_RATE_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PUBLIC_RATE_BURST value: %w", err)
		}
		cfg.Server.PublicRateBurst = n
	}
	return nil
}

// SlogLevel parses the configured log level, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Server.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate JWT secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
