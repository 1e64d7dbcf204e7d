package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// Create a temporary config file
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test_config.yaml")

	configContent := `
server:
  port: 9999
cache:
  folder: "./test_cache"
content:
  timeout: "10s"
rules:
  mode: "whitelist"
  rules:
    - base_uri: "https://example.com"
log:
  level: debug
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	if err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configFile)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if config.Server.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", config.Server.Port)
	}

	if config.Cache.Folder != "./test_cache" {
		t.Errorf("Expected folder './test_cache', got '%s'", config.Cache.Folder)
	}

	if config.Rules.Mode != "whitelist" {
		t.Errorf("Expected mode 'whitelist', got '%s'", config.Rules.Mode)
	}

	if len(config.Rules.Rules) != 1 {
		t.Errorf("Expected 1 rule, got %d", len(config.Rules.Rules))
	}

	// Keys absent from the file keep their defaults
	assert.Equal(t, "com.oracle.ios.ardemo", config.Content.Scheme)
	assert.Equal(t, "text", config.Log.Format)
	assert.Equal(t, "debug", config.Log.Level)
	assert.True(t, config.Log.Compress)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "configs", "config.yaml")

	require.NoError(t, WriteDefault(path))

	config, err := Load(path)
	require.NoError(t, err)
	defaults := Default()
	assert.Equal(t, defaults.Server, config.Server)
	assert.Equal(t, defaults.Cache, config.Cache)
	assert.Equal(t, defaults.Content, config.Content)
	assert.Equal(t, defaults.Log, config.Log)
	assert.Equal(t, defaults.Rules.Mode, config.Rules.Mode)
	assert.Empty(t, config.Rules.Rules)
	assert.NoError(t, config.Validate())
}

func TestValidate(t *testing.T) {
	valid := func() Config { return Default() }

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid port",
			mutate:  func(c *Config) { c.Server.Port = -1 },
			wantErr: true,
		},
		{
			name:    "missing folder",
			mutate:  func(c *Config) { c.Cache.Folder = "" },
			wantErr: true,
		},
		{
			name:    "invalid timeout",
			mutate:  func(c *Config) { c.Content.Timeout = "invalid" },
			wantErr: true,
		},
		{
			name:    "missing scheme",
			mutate:  func(c *Config) { c.Content.Scheme = "" },
			wantErr: true,
		},
		{
			name:    "invalid mode",
			mutate:  func(c *Config) { c.Rules.Mode = "invalid" },
			wantErr: true,
		},
		{
			name:    "invalid log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := valid()
			tt.mutate(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetContentTimeout(t *testing.T) {
	config := Config{
		Content: ContentConfig{Timeout: "1m30s"},
	}

	timeout, err := config.GetContentTimeout()
	if err != nil {
		t.Fatalf("GetContentTimeout() error = %v", err)
	}

	expected := time.Minute + 30*time.Second
	if timeout != expected {
		t.Errorf("GetContentTimeout() = %v, want %v", timeout, expected)
	}
}
