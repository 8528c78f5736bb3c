package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/mcdev12/fieldboss/go/internal/dbconfig"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreRemote   = "remote"
	StoreMemory   = "memory"
)

// Feed drivers.
const (
	FeedPostgres = "postgres"
	FeedNATS     = "nats"
	FeedWS       = "ws"
	FeedMemory   = "memory"
)

type Config struct {
	Store struct {
		Driver string `yaml:"driver"`
	} `yaml:"store"`

	Feed struct {
		Driver string `yaml:"driver"`
	} `yaml:"feed"`

	Gateway struct {
		URL  string `yaml:"url"` // base URL remote viewers dial
		Port string `yaml:"port"`
	} `yaml:"gateway"`

	NATS struct {
		URL           string `yaml:"url"`
		Stream        string `yaml:"stream"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Prefs struct {
		Path string `yaml:"path"`
	} `yaml:"prefs"`

	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"log"`

	Alert struct {
		BellInterval time.Duration `yaml:"bell_interval"`
	} `yaml:"alert"`

	Database dbconfig.Config `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	var c Config
	c.Store.Driver = StorePostgres
	c.Feed.Driver = FeedPostgres
	c.Gateway.URL = "http://localhost:8080"
	c.Gateway.Port = "8080"
	c.NATS.URL = "nats://localhost:4222"
	c.NATS.Stream = "TIMER_EVENTS"
	c.NATS.SubjectPrefix = "timers.events"
	c.Prefs.Path = "fieldboss.db"
	c.Log.Level = "info"
	c.Log.File = "fieldboss.log"
	c.Alert.BellInterval = time.Second
	return &c
}

// Load reads defaults, then the YAML file at path if it exists, then
// environment overrides.
func Load(path string) (*Config, error) {
	c := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, c); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	c.applyEnv()
	c.Database = dbconfig.NewConfigFromEnv()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() {
	c.Store.Driver = getEnv("FIELDBOSS_STORE", c.Store.Driver)
	c.Feed.Driver = getEnv("FIELDBOSS_FEED", c.Feed.Driver)
	c.Gateway.URL = getEnv("FIELDBOSS_GATEWAY_URL", c.Gateway.URL)
	c.Gateway.Port = getEnv("GATEWAY_PORT", c.Gateway.Port)
	c.NATS.URL = getEnv("NATS_URL", c.NATS.URL)
	c.Prefs.Path = getEnv("FIELDBOSS_PREFS", c.Prefs.Path)
	c.Log.Level = getEnv("FIELDBOSS_LOG_LEVEL", c.Log.Level)
	c.Log.File = getEnv("FIELDBOSS_LOG_FILE", c.Log.File)
	c.Alert.BellInterval = getEnvAsDuration("FIELDBOSS_BELL_INTERVAL", c.Alert.BellInterval)
}

// Validate rejects unknown drivers.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StorePostgres, StoreRemote, StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Feed.Driver {
	case FeedPostgres, FeedNATS, FeedWS, FeedMemory:
	default:
		return fmt.Errorf("unknown feed driver %q", c.Feed.Driver)
	}
	if c.Store.Driver == StoreMemory && c.Feed.Driver != FeedMemory {
		return fmt.Errorf("memory store requires the memory feed")
	}
	if c.Feed.Driver == FeedMemory && c.Store.Driver != StoreMemory {
		return fmt.Errorf("memory feed requires the memory store")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
