package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the server config file
type TOMLConfig struct {
	Server  ServerSection  `toml:"server"`
	Redis   RedisSection   `toml:"redis"`
	History HistorySection `toml:"history"`
}

type ServerSection struct {
	ListenAddress  string `toml:"listen_address"`
	Endpoint       string `toml:"endpoint"`
	MetricsEnabled bool   `toml:"metrics_enabled"`
	LogLevel       string `toml:"log_level"`
}

type RedisSection struct {
	Address string `toml:"address"`
}

type HistorySection struct {
	Size int `toml:"size"`
}

// DefaultTOMLConfig returns the default TOML configuration
func DefaultTOMLConfig() TOMLConfig {
	return TOMLConfig{
		Server: ServerSection{
			ListenAddress:  ":7070",
			Endpoint:       "/chat",
			MetricsEnabled: true,
			LogLevel:       "info",
		},
		Redis: RedisSection{
			Address: "localhost:6379",
		},
		History: HistorySection{
			Size: 100,
		},
	}
}

// LoadConfig loads configuration from a TOML file, creates default if not found
func LoadConfig(path string) (TOMLConfig, error) {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return TOMLConfig{}, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := DefaultTOMLConfig()
		if err := writeDefaultConfig(path, config); err != nil {
			// If we can't write, just return defaults without error
			// (might be a permissions issue, but we can still run)
			return config, nil
		}
		return config, nil
	}

	var config TOMLConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return TOMLConfig{}, err
	}

	return config, nil
}

func validateConfig(config *TOMLConfig) error {
	defaults := DefaultTOMLConfig()

	if strings.TrimSpace(config.Server.ListenAddress) == "" {
		config.Server.ListenAddress = defaults.Server.ListenAddress
	}
	if !strings.HasPrefix(config.Server.Endpoint, "/") {
		if config.Server.Endpoint == "" {
			config.Server.Endpoint = defaults.Server.Endpoint
		} else {
			return fmt.Errorf("endpoint must start with '/': %q", config.Server.Endpoint)
		}
	}
	if strings.TrimSpace(config.Redis.Address) == "" {
		config.Redis.Address = defaults.Redis.Address
	}
	if config.History.Size <= 0 {
		config.History.Size = defaults.History.Size
	}

	return nil
}

// writeDefaultConfig writes the default config to a file
func writeDefaultConfig(path string, config TOMLConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	header := `# Parley Server Configuration
# This file was auto-generated with default values
# Edit as needed and restart the server for changes to take effect

`
	if _, err := f.WriteString(header); err != nil {
		return err
	}

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
