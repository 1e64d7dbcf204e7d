package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `koanf:"server" yaml:"server"`
	Cache   CacheConfig   `koanf:"cache" yaml:"cache"`
	Content ContentConfig `koanf:"content" yaml:"content"`
	Rules   RulesConfig   `koanf:"rules" yaml:"rules"`
	Log     LogConfig     `koanf:"log" yaml:"log"`
}

// ServerConfig contains launcher service configuration
type ServerConfig struct {
	Port int `koanf:"port" yaml:"port"`
}

// CacheConfig contains cache-related configuration
type CacheConfig struct {
	Folder string `koanf:"folder" yaml:"folder"`
}

// ContentConfig configures access to the content delivery API
type ContentConfig struct {
	Timeout  string `koanf:"timeout" yaml:"timeout"`
	ProxyURL string `koanf:"proxy_url" yaml:"proxy_url"`
	Scheme   string `koanf:"scheme" yaml:"scheme"`
}

// RulesConfig restricts which content servers a deep link may target
type RulesConfig struct {
	Mode  string       `koanf:"mode" yaml:"mode"` // "whitelist" or "blacklist"
	Rules []ServerRule `koanf:"rules" yaml:"rules"`
}

// ServerRule matches content servers by base URI
type ServerRule struct {
	BaseURI string `koanf:"base_uri" yaml:"base_uri"`
}

// LogConfig controls logger output
type LogConfig struct {
	Level      string `koanf:"level" yaml:"level"`
	Format     string `koanf:"format" yaml:"format"` // "text" or "json"
	File       string `koanf:"file" yaml:"file"`
	MaxSize    int    `koanf:"max_size" yaml:"max_size"`
	MaxBackups int    `koanf:"max_backups" yaml:"max_backups"`
	Compress   bool   `koanf:"compress" yaml:"compress"`
}

// Default returns the configuration used when a key is absent from the file
func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080},
		Cache:  CacheConfig{Folder: "./data"},
		Content: ContentConfig{
			Timeout: "30s",
			Scheme:  "com.oracle.ios.ardemo",
		},
		Rules: RulesConfig{Mode: "blacklist"},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

// Load loads configuration from a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := k.UnmarshalWithConf("", &config, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	return &config, nil
}

// WriteDefault writes a starter configuration file to path
func WriteDefault(path string) error {
	data, err := yamlv3.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding default config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// GetContentTimeout parses and returns the content request timeout
func (c *Config) GetContentTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Content.Timeout)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Cache.Folder == "" {
		return fmt.Errorf("cache folder is required")
	}

	if c.Content.Timeout == "" {
		return fmt.Errorf("content timeout is required")
	}

	if _, err := c.GetContentTimeout(); err != nil {
		return fmt.Errorf("invalid content timeout format: %w", err)
	}

	if c.Content.ProxyURL != "" {
		if _, err := url.Parse(c.Content.ProxyURL); err != nil {
			return fmt.Errorf("invalid content proxy URL: %w", err)
		}
	}

	if c.Content.Scheme == "" {
		return fmt.Errorf("deep link scheme is required")
	}

	if c.Rules.Mode != "whitelist" && c.Rules.Mode != "blacklist" {
		return fmt.Errorf("rules mode must be 'whitelist' or 'blacklist', got: %s", c.Rules.Mode)
	}

	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", c.Log.Format)
	}

	return nil
}
