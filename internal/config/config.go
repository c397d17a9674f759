// Package config loads server settings from defaults, an optional TOML file
// and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/HankJediAssistant/hank-board/internal/consts"
)

// DefaultFile is read from the working directory when HANK_CONFIG is unset.
const DefaultFile = "hank-board.toml"

// DefaultBoardTable holds the board when table storage is configured.
const DefaultBoardTable = "HankBoard"

type Config struct {
	Port       string `toml:"port"`
	TodoPath   string `toml:"todo_path"`
	CronPath   string `toml:"cron_path"`
	FamilyPath string `toml:"family_path"`
	PublicDir  string `toml:"public_dir"`

	Debug     bool   `toml:"debug"`
	LogFormat string `toml:"log_format"`

	SubscriberBuffer int           `toml:"subscriber_buffer"`
	ShutdownTimeout  time.Duration `toml:"shutdown_timeout"`

	Storage StorageConfig `toml:"storage"`
	Redis   RedisConfig   `toml:"redis"`
	Auth    AuthConfig    `toml:"auth"`
}

// StorageConfig moves the board document into Azure Table storage. When
// ConnectionString is empty the document lives at TodoPath.
type StorageConfig struct {
	ConnectionString string `toml:"connection_string"`
	Table            string `toml:"table"`
}

type RedisConfig struct {
	URL     string `toml:"url"`
	Channel string `toml:"channel"`
}

// AuthConfig protects write routes. With neither Secret nor JWKSURL set the
// routes are open, which is the normal setup on a home network.
type AuthConfig struct {
	Secret   string `toml:"secret"`
	JWKSURL  string `toml:"jwks_url"`
	Audience string `toml:"audience"`
	Issuer   string `toml:"issuer"`
}

// Enabled reports whether write routes require a bearer token.
func (a AuthConfig) Enabled() bool {
	return a.Secret != "" || a.JWKSURL != ""
}

// Load builds the configuration. The file named by HANK_CONFIG must exist;
// the default file is optional.
func Load() (*Config, error) {
	cfg := defaults()

	path, explicit := os.LookupEnv("HANK_CONFIG")
	if !explicit {
		path = DefaultFile
	}
	if err := loadFile(cfg, path, explicit); err != nil {
		return nil, err
	}
	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		Port:             "3456",
		TodoPath:         filepath.Join(home, ".openclaw", "workspace", "TODO.md"),
		CronPath:         filepath.Join(home, ".openclaw", "cron", "jobs.json"),
		FamilyPath:       filepath.Join("config", "family.json"),
		PublicDir:        "public",
		LogFormat:        "text",
		SubscriberBuffer: 8,
		ShutdownTimeout:  5 * time.Second,
		Storage:          StorageConfig{Table: DefaultBoardTable},
		Redis:            RedisConfig{Channel: consts.DefaultEventsChannel},
	}
}

func loadFile(cfg *Config, path string, required bool) error {
	_, err := toml.DecodeFile(path, cfg)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	return fmt.Errorf("loading config file %s: %w", path, err)
}

func loadFromEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.TodoPath, "TODO_PATH")
	setString(&cfg.CronPath, "CRON_PATH")
	setString(&cfg.FamilyPath, "FAMILY_PATH")
	setString(&cfg.PublicDir, "PUBLIC_DIR")
	setString(&cfg.LogFormat, "LOG_FORMAT")
	setString(&cfg.Storage.ConnectionString, "STORAGE_CONNECTION_STRING")
	setString(&cfg.Storage.Table, "BOARD_TABLE")
	setString(&cfg.Redis.URL, "REDIS_URL")
	setString(&cfg.Redis.Channel, "REDIS_CHANNEL")
	setString(&cfg.Auth.Secret, "AUTH_SECRET")
	setString(&cfg.Auth.JWKSURL, "AUTH_JWKS_URL")
	setString(&cfg.Auth.Audience, "AUTH_AUDIENCE")
	setString(&cfg.Auth.Issuer, "AUTH_ISSUER")

	if v := os.Getenv("DEBUG"); v != "" {
		dbg, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid DEBUG: %w", err)
		}
		cfg.Debug = dbg
	}
	if v := os.Getenv("SUBSCRIBER_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SUBSCRIBER_BUFFER: %w", err)
		}
		cfg.SubscriberBuffer = n
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.TodoPath == "" {
		return errors.New("todo_path must not be empty")
	}
	if c.SubscriberBuffer <= 0 {
		return errors.New("subscriber_buffer must be greater than zero")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("shutdown_timeout must be greater than zero")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log_format %q", c.LogFormat)
	}
	if c.Storage.ConnectionString != "" && c.Storage.Table == "" {
		return errors.New("storage table must not be empty")
	}
	if c.Redis.URL != "" && c.Redis.Channel == "" {
		return errors.New("redis channel must not be empty")
	}
	return nil
}

// ListenAddr is the address echo binds to.
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}
