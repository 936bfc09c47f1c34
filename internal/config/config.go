// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Seat configuration
	Seat SeatConfig `mapstructure:"seat"`

	// Shell configuration
	Shell ShellConfig `mapstructure:"shell"`

	// Socket server configuration
	Server ServerConfig `mapstructure:"server"`

	// Event trace configuration
	Trace TraceConfig `mapstructure:"trace"`

	// SSH event monitor configuration
	Monitor MonitorConfig `mapstructure:"monitor"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// SeatConfig contains the seat advertised to clients
type SeatConfig struct {
	Name         string `mapstructure:"name"`
	TouchVersion uint32 `mapstructure:"touch_version"` // wl_touch version bound by scenario clients
}

// ShellConfig contains xdg-shell settings
type ShellConfig struct {
	XdgVersion       uint32 `mapstructure:"xdg_version"`
	PopupGrabLogging bool   `mapstructure:"popup_grab_logging"` // Log every popup grab request at info level
}

// ServerConfig contains the display socket settings used by `waycore serve`
type ServerConfig struct {
	SocketName string `mapstructure:"socket_name"` // Created in $XDG_RUNTIME_DIR
	MaxClients int    `mapstructure:"max_clients"` // 0 means unlimited
}

// SocketPath returns the absolute socket path. An absolute socket name is
// used as is.
func (s ServerConfig) SocketPath() string {
	if filepath.IsAbs(s.SocketName) {
		return s.SocketName
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, s.SocketName)
}

// TraceConfig contains event trace file settings
type TraceConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Path            string `mapstructure:"path"`
	FlushIntervalMs int    `mapstructure:"flush_interval_ms"`
	BufferSize      int    `mapstructure:"buffer_size"`
}

// FlushInterval returns the trace flush interval as a duration
func (t TraceConfig) FlushInterval() time.Duration {
	return time.Duration(t.FlushIntervalMs) * time.Millisecond
}

// MonitorConfig contains the SSH event monitor settings
type MonitorConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Address            string `mapstructure:"address"`
	HostKeyPath        string `mapstructure:"host_key_path"`        // Generated on first start if missing
	AuthorizedKeysPath string `mapstructure:"authorized_keys_path"` // Empty accepts any key
	MaxSessions        int    `mapstructure:"max_sessions"`         // 0 means unlimited
}

// GetHostKeyPath returns the expanded host key path
func (m MonitorConfig) GetHostKeyPath() string {
	return ExpandPath(m.HostKeyPath)
}

// GetAuthorizedKeysPath returns the expanded authorized keys path
func (m MonitorConfig) GetAuthorizedKeysPath() string {
	return ExpandPath(m.AuthorizedKeysPath)
}

// ExpandPath expands ~ to the home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		// When running with sudo, use the actual user's home directory
		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			u, err := user.Lookup(sudoUser)
			if err == nil {
				return filepath.Join(u.HomeDir, path[2:])
			}
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

const (
	maxTouchVersion = 9
	maxXdgVersion   = 6
)

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Seat: SeatConfig{
			Name:         "seat0",
			TouchVersion: maxTouchVersion,
		},
		Shell: ShellConfig{
			XdgVersion:       maxXdgVersion,
			PopupGrabLogging: false,
		},
		Server: ServerConfig{
			SocketName: "waycore-0",
			MaxClients: 32,
		},
		Trace: TraceConfig{
			Enabled:         false,
			Path:            "waycore.trace",
			FlushIntervalMs: 50,
			BufferSize:      64 * 1024,
		},
		Monitor: MonitorConfig{
			Enabled:            false,
			Address:            "127.0.0.1:2222",
			HostKeyPath:        "~/.config/waycore/monitor_host_key",
			AuthorizedKeysPath: "",
			MaxSessions:        4,
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("waycore")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		// Add config paths in order of precedence
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "waycore"))
		}
		viper.AddConfigPath("/etc/waycore")
	}

	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	return nil
}

// Set individual fields so a partial file merges with the defaults
func setDefaults() {
	viper.SetDefault("seat.name", DefaultConfig.Seat.Name)
	viper.SetDefault("seat.touch_version", DefaultConfig.Seat.TouchVersion)

	viper.SetDefault("shell.xdg_version", DefaultConfig.Shell.XdgVersion)
	viper.SetDefault("shell.popup_grab_logging", DefaultConfig.Shell.PopupGrabLogging)

	viper.SetDefault("server.socket_name", DefaultConfig.Server.SocketName)
	viper.SetDefault("server.max_clients", DefaultConfig.Server.MaxClients)

	viper.SetDefault("trace.enabled", DefaultConfig.Trace.Enabled)
	viper.SetDefault("trace.path", DefaultConfig.Trace.Path)
	viper.SetDefault("trace.flush_interval_ms", DefaultConfig.Trace.FlushIntervalMs)
	viper.SetDefault("trace.buffer_size", DefaultConfig.Trace.BufferSize)

	viper.SetDefault("monitor.enabled", DefaultConfig.Monitor.Enabled)
	viper.SetDefault("monitor.address", DefaultConfig.Monitor.Address)
	viper.SetDefault("monitor.host_key_path", DefaultConfig.Monitor.HostKeyPath)
	viper.SetDefault("monitor.authorized_keys_path", DefaultConfig.Monitor.AuthorizedKeysPath)
	viper.SetDefault("monitor.max_sessions", DefaultConfig.Monitor.MaxSessions)

	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)
}

// Validate checks that protocol versions and trace settings are usable
func (c *Config) Validate() error {
	if c.Seat.Name == "" {
		return fmt.Errorf("seat.name must not be empty")
	}
	if c.Seat.TouchVersion < 1 || c.Seat.TouchVersion > maxTouchVersion {
		return fmt.Errorf("seat.touch_version must be between 1 and %d, got %d", maxTouchVersion, c.Seat.TouchVersion)
	}
	if c.Shell.XdgVersion < 1 || c.Shell.XdgVersion > maxXdgVersion {
		return fmt.Errorf("shell.xdg_version must be between 1 and %d, got %d", maxXdgVersion, c.Shell.XdgVersion)
	}
	if c.Server.SocketName == "" {
		return fmt.Errorf("server.socket_name must not be empty")
	}
	if c.Server.MaxClients < 0 {
		return fmt.Errorf("server.max_clients must not be negative, got %d", c.Server.MaxClients)
	}
	if c.Trace.Enabled {
		if c.Trace.Path == "" {
			return fmt.Errorf("trace.path must be set when tracing is enabled")
		}
		if c.Trace.FlushIntervalMs <= 0 || c.Trace.BufferSize <= 0 {
			return fmt.Errorf("trace.flush_interval_ms and trace.buffer_size must be positive")
		}
	}
	if c.Monitor.Enabled {
		if c.Monitor.Address == "" || c.Monitor.HostKeyPath == "" {
			return fmt.Errorf("monitor.address and monitor.host_key_path must be set when the monitor is enabled")
		}
		if c.Monitor.MaxSessions < 0 {
			return fmt.Errorf("monitor.max_sessions must not be negative, got %d", c.Monitor.MaxSessions)
		}
	}
	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		c := DefaultConfig
		return &c
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if len(viper.AllKeys()) == 0 {
		setDefaults()
	}
	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	// Check if config file is already loaded
	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "/etc/waycore/waycore.toml"
	}

	return filepath.Join(home, ".config", "waycore", "waycore.toml")
}
