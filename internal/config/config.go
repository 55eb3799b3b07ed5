// Package config loads the bugjar configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/bugjar/internal/logging"
	"github.com/aretw0/bugjar/pkg/adapters/process"
	"gopkg.in/yaml.v3"
)

// DefaultPath is looked up when no --config flag is given.
const DefaultPath = "bugjar.yaml"

// Transport kinds.
const (
	TransportSocket = "socket"
	TransportRedis  = "redis"
)

// Store kinds.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

type Config struct {
	Session   string          `yaml:"session"`
	LogLevel  string          `yaml:"log_level"`
	Transport TransportConfig `yaml:"transport"`
	Store     StoreConfig     `yaml:"store"`
	Lock      LockConfig      `yaml:"lock"`
	HTTP      HTTPConfig      `yaml:"http"`

	// Debuggee, when set, is launched before dialing.
	Debuggee process.Spec `yaml:"debuggee"`
}

type TransportConfig struct {
	Kind             string        `yaml:"kind"`
	Address          string        `yaml:"address"`
	BootstrapTimeout time.Duration `yaml:"bootstrap_timeout"`
	Redis            RedisConfig   `yaml:"redis"`
}

// RedisConfig is shared by the Pub/Sub transport, the Redis store and the lock.
type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

type StoreConfig struct {
	Kind   string        `yaml:"kind"`
	Path   string        `yaml:"path"`
	Format string        `yaml:"format"`
	TTL    time.Duration `yaml:"ttl"`

	// Root, when set, saves files under it as relative paths.
	Root string `yaml:"root"`
}

type LockConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Session:  "default",
		LogLevel: "info",
		Transport: TransportConfig{
			Kind:             TransportSocket,
			Address:          "127.0.0.1:3742",
			BootstrapTimeout: 5 * time.Second,
			Redis: RedisConfig{
				Address: "127.0.0.1:6379",
				Prefix:  "bugjar:",
			},
		},
		Store: StoreConfig{
			Kind:   StoreFile,
			Path:   ".bugjar/breakpoints",
			Format: "json",
		},
		Lock: LockConfig{
			TTL: 30 * time.Minute,
		},
		HTTP: HTTPConfig{
			Port: 8080,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// JSON files are accepted since YAML is a superset.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Session == "" {
		return errors.New("session must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}

	switch c.Transport.Kind {
	case TransportSocket:
		if c.Transport.Address == "" {
			return errors.New("transport.address is required for the socket transport")
		}
	case TransportRedis:
		if c.Transport.Redis.Address == "" {
			return errors.New("transport.redis.address is required for the redis transport")
		}
	default:
		return fmt.Errorf("unknown transport kind %q", c.Transport.Kind)
	}
	if c.Transport.BootstrapTimeout <= 0 {
		return fmt.Errorf("transport.bootstrap_timeout must be positive, got %s", c.Transport.BootstrapTimeout)
	}

	switch c.Store.Kind {
	case StoreMemory, StoreRedis:
	case StoreFile, StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s store", c.Store.Kind)
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	if c.Store.Kind == StoreFile && c.Store.Format != "json" && c.Store.Format != "yaml" {
		return fmt.Errorf("store.format must be json or yaml, got %q", c.Store.Format)
	}
	if c.Store.TTL < 0 {
		return errors.New("store.ttl must not be negative")
	}

	if c.Lock.Enabled && c.Lock.TTL <= 0 {
		return errors.New("lock.ttl must be positive when the lock is enabled")
	}
	if !c.Debuggee.Enabled() && (len(c.Debuggee.Args) > 0 || len(c.Debuggee.Env) > 0) {
		return errors.New("debuggee.command is required when debuggee args or env are set")
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	return nil
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.Transport.Kind == TransportRedis || c.Store.Kind == StoreRedis || c.Lock.Enabled
}
