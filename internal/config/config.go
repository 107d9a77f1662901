package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Cache   CacheConfig   `yaml:"cache"`
	Push    PushConfig    `yaml:"push"`
	Logging LoggingConfig `yaml:"logging"`
}

type ServerConfig struct {
	BaseURL string `yaml:"base_url"` // REST API, e.g. "https://chat.example.com/api"
	WSURL   string `yaml:"ws_url"`   // event stream, e.g. "wss://chat.example.com/ws"
}

type AuthConfig struct {
	Username string `yaml:"username"`
	Token    string `yaml:"token"`
}

type CacheConfig struct {
	Path string `yaml:"path"` // sqlite file; empty = alongside the config file
}

type PushConfig struct {
	Topic  string `yaml:"topic"`  // ntfy topic or full URL; empty disables push
	Token  string `yaml:"token"`  // optional bearer token for reserved topics
	Events string `yaml:"events"` // comma-separated: "message,task,objective"
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "companychat.yaml"
	}
	return filepath.Join(home, ".companychat", "config.yaml")
}

// Load reads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	if token := os.Getenv("COMPANYCHAT_TOKEN"); token != "" {
		cfg.Auth.Token = token
	}
	if user := os.Getenv("COMPANYCHAT_USERNAME"); user != "" {
		cfg.Auth.Username = user
	}
	if base := os.Getenv("COMPANYCHAT_BASE_URL"); base != "" {
		cfg.Server.BaseURL = base
	}
	if wsURL := os.Getenv("COMPANYCHAT_WS_URL"); wsURL != "" {
		cfg.Server.WSURL = wsURL
	}

	cfg.applyDefaults(path)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults(path string) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Cache.Path == "" {
		c.Cache.Path = filepath.Join(filepath.Dir(path), "cache.db")
	}
	if c.Server.WSURL == "" && c.Server.BaseURL != "" {
		// Derive the event-stream URL from the API URL.
		ws := strings.Replace(c.Server.BaseURL, "https://", "wss://", 1)
		ws = strings.Replace(ws, "http://", "ws://", 1)
		c.Server.WSURL = strings.TrimSuffix(ws, "/api") + "/ws"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if c.Server.WSURL == "" {
		return fmt.Errorf("server.ws_url is required")
	}
	if c.Auth.Username == "" {
		return fmt.Errorf("auth.username is required")
	}
	if c.Auth.Token == "" {
		return fmt.Errorf("auth.token is required")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	return nil
}
