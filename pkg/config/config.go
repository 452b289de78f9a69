/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the pcapbend configuration
type Config struct {
	Server    Server    `yaml:"server"`
	Transport Transport `yaml:"transport"`
	Limits    Limits    `yaml:"limits"`
	Logging   Logging   `yaml:"logging"`
}

// Server contains HTTP API configuration
type Server struct {
	Bind   string `yaml:"bind"`
	Port   int    `yaml:"port"`
	APIKey string `yaml:"api_key"` // Empty disables the X-API-Key check
}

// Transport contains the default downstream consumer
type Transport struct {
	Kind     string `yaml:"kind"` // "pipe" or "tcp"
	PipePath string `yaml:"pipe_path"`
	TCPAddr  string `yaml:"tcp_addr"`
}

// Limits bounds what a single server holds in memory
type Limits struct {
	MaxCaptureBytes int64 `yaml:"max_capture_bytes"`
	MaxSessions     int   `yaml:"max_sessions"`
}

// Logging contains logging configuration
type Logging struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			Bind: "127.0.0.1",
			Port: 8080,
		},
		Transport: Transport{
			Kind:     "pipe",
			PipePath: filepath.Join(os.TempDir(), "pcapbend.fifo"),
			TCPAddr:  "127.0.0.1:19000",
		},
		Limits: Limits{
			MaxCaptureBytes: 256 << 20,
			MaxSessions:     16,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Address returns the host:port the API listens on
func (s Server) Address() string {
	return net.JoinHostPort(s.Bind, strconv.Itoa(s.Port))
}

// Target returns the pipe path or TCP address for the configured kind
func (t Transport) Target() string {
	if t.Kind == "tcp" {
		return t.TCPAddr
	}
	return t.PipePath
}

// Validate checks if the configuration is usable
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	switch c.Transport.Kind {
	case "pipe", "tcp":
	default:
		return fmt.Errorf("invalid transport kind: %q", c.Transport.Kind)
	}
	if c.Transport.Target() == "" {
		return fmt.Errorf("transport %s has no target", c.Transport.Kind)
	}
	if c.Limits.MaxCaptureBytes <= 0 {
		return fmt.Errorf("max_capture_bytes must be positive, got %d", c.Limits.MaxCaptureBytes)
	}
	if c.Limits.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive, got %d", c.Limits.MaxSessions)
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}

// LoadConfig loads configuration from the specified path. Fields missing
// from the file keep their defaults.
func LoadConfig(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	// Validate path to prevent directory traversal
	if !filepath.IsAbs(configPath) {
		absPath, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("invalid config path: %w", err)
		}
		configPath = absPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to the specified path with secure permissions
func SaveConfig(config *Config, configPath string) error {
	// Ensure config directory exists
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with secure permissions (0600)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GenerateSecureKey generates a cryptographically secure random key
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// BootstrapConfig writes a default configuration with a generated API key
func BootstrapConfig(configPath string, pipePath string) (*Config, error) {
	config := DefaultConfig()
	if pipePath != "" {
		config.Transport.PipePath = pipePath
	}

	apiKey, err := GenerateSecureKey(32) // 256 bits
	if err != nil {
		return nil, fmt.Errorf("failed to generate API key: %w", err)
	}
	config.Server.APIKey = apiKey

	// Save the configuration
	if err := SaveConfig(config, configPath); err != nil {
		return nil, fmt.Errorf("failed to save bootstrap config: %w", err)
	}

	return config, nil
}

// GetDefaultConfigPath returns the default configuration path for the current platform
func GetDefaultConfigPath() string {
	// Use OS-specific default locations
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./pcapbend.yaml"
	}

	// For Linux/macOS, use ~/.config/pcapbend/config.yaml
	configDir := filepath.Join(homeDir, ".config", "pcapbend")
	return filepath.Join(configDir, "config.yaml")
}

// ConfigExists checks if a configuration file exists
func ConfigExists(configPath string) bool {
	_, err := os.Stat(configPath)
	return !os.IsNotExist(err)
}
