package client

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// TOMLConfig represents the structure of the client config file
type TOMLConfig struct {
	Connection ConnectionSection `toml:"connection"`
	Local      LocalSection      `toml:"local"`
	UI         UISection         `toml:"ui"`
}

type ConnectionSection struct {
	DefaultServer            string `toml:"default_server"`
	AutoReconnect            bool   `toml:"auto_reconnect"`
	ReconnectMaxDelaySeconds int    `toml:"reconnect_max_delay_seconds"`
}

type LocalSection struct {
	StateDB string `toml:"state_db"`
}

type UISection struct {
	NotifySeconds        int  `toml:"notify_seconds"`
	DesktopNotifications bool `toml:"desktop_notifications"`
}

// getXDGConfigHome returns the XDG config directory
func getXDGConfigHome() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return xdg
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// getXDGDataHome returns the XDG data directory
func getXDGDataHome() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return xdg
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".local", "share")
}

// DefaultConfigPath returns where the client config lives by default
func DefaultConfigPath() string {
	return filepath.Join(getXDGConfigHome(), "parley", "client.toml")
}

// DefaultTOMLConfig returns the default client configuration
func DefaultTOMLConfig() TOMLConfig {
	stateDB := filepath.Join(getXDGDataHome(), "parley", "state.db")

	return TOMLConfig{
		Connection: ConnectionSection{
			DefaultServer:            "localhost:7070",
			AutoReconnect:            true,
			ReconnectMaxDelaySeconds: 30,
		},
		Local: LocalSection{
			StateDB: stateDB,
		},
		UI: UISection{
			NotifySeconds:        4,
			DesktopNotifications: true,
		},
	}
}

// LoadClientConfig loads configuration from a TOML file, creating the
// default file if none exists yet.
func LoadClientConfig(path string) (TOMLConfig, error) {
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
			// Can't write (permissions?); run with defaults anyway
			return config, nil
		}
		return config, nil
	}

	var config TOMLConfig
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return TOMLConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := validateConfig(&config); err != nil {
		return TOMLConfig{}, fmt.Errorf("%s: %w", path, err)
	}

	return config, nil
}

func writeDefaultConfig(path string, config TOMLConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(config)
}

// validateConfig validates configuration values
func validateConfig(config *TOMLConfig) error {
	var problems []string

	if strings.TrimSpace(config.Connection.DefaultServer) == "" {
		problems = append(problems, "default_server cannot be empty")
	}

	if config.Connection.ReconnectMaxDelaySeconds < 0 {
		problems = append(problems, "reconnect_max_delay_seconds cannot be negative")
	}

	if config.UI.NotifySeconds <= 0 {
		problems = append(problems, "notify_seconds must be positive")
	}

	if strings.TrimSpace(config.Local.StateDB) == "" {
		problems = append(problems, "state_db cannot be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}

	return nil
}
