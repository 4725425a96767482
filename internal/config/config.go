// Package config provides configuration management for the systemctl-manager application.
// It uses Viper for configuration file handling and supports YAML format.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	apperrors "github.com/dtg01100/systemctl-manager/internal/errors"
	"github.com/dtg01100/systemctl-manager/internal/logger"
	"github.com/dtg01100/systemctl-manager/pkg/utils"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Scope values for Settings.Scope.
const (
	ScopeSystem = "system"
	ScopeUser   = "user"
)

// Config represents the application configuration.
type Config struct {
	Version   string        `mapstructure:"version" yaml:"version"`
	Settings  Settings      `mapstructure:"settings" yaml:"settings"`
	Logging   LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Watch     WatchConfig   `mapstructure:"watch" yaml:"watch"`
	StateFile string        `mapstructure:"state_file" yaml:"state_file"`
}

// Settings holds application-wide settings.
type Settings struct {
	Scope             string        `mapstructure:"scope" yaml:"scope"`
	UseSudo           bool          `mapstructure:"use_sudo" yaml:"use_sudo"`
	Editor            string        `mapstructure:"editor" yaml:"editor"`
	StatusConcurrency int           `mapstructure:"status_concurrency" yaml:"status_concurrency"`
	CommandTimeout    time.Duration `mapstructure:"command_timeout" yaml:"command_timeout"`
	LogLines          int           `mapstructure:"log_lines" yaml:"log_lines"`
}

// LoggingConfig controls the application's own log output.
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Debug      bool   `mapstructure:"debug" yaml:"debug"`
	Console    bool   `mapstructure:"console" yaml:"console"`
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// WatchConfig controls the unit directory watcher.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled" yaml:"enabled"`
	Paths    []string      `mapstructure:"paths" yaml:"paths"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

const (
	appName   = "systemctl-manager"
	envPrefix = "SYSTEMCTL_MANAGER"
)

// Load reads the configuration from the default config file location.
// Missing files are not an error: defaults and environment overrides apply.
func Load() (*Config, error) {
	v := viper.New()

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the values Load cannot type-check on its own.
func (c *Config) Validate() error {
	switch c.Settings.Scope {
	case ScopeSystem, ScopeUser:
	default:
		return apperrors.NewConfigInvalidError(
			fmt.Sprintf("settings.scope must be %q or %q, got %q", ScopeSystem, ScopeUser, c.Settings.Scope), nil)
	}
	if c.Settings.StatusConcurrency < 1 {
		return apperrors.NewConfigInvalidError("settings.status_concurrency must be at least 1", nil)
	}
	if c.Settings.CommandTimeout <= 0 {
		return apperrors.NewConfigInvalidError("settings.command_timeout must be positive", nil)
	}
	if c.Settings.LogLines < 1 {
		return apperrors.NewConfigInvalidError("settings.log_lines must be at least 1", nil)
	}
	if !logger.ValidLevel(c.Logging.Level) {
		return apperrors.NewConfigInvalidError(
			fmt.Sprintf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level), nil)
	}
	return nil
}

// IsUserScope reports whether services are managed with `systemctl --user`.
func (c *Config) IsUserScope() bool {
	return c.Settings.Scope == ScopeUser
}

// Save writes the configuration to the default config file location.
// It uses an atomic write pattern: writes to a temp file first, then renames.
// A backup of the existing config is created before overwriting.
func (c *Config) Save() error {
	configDir, err := getConfigDir()
	if err != nil {
		return fmt.Errorf("failed to get config directory: %w", err)
	}

	if err := utils.EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configPath := filepath.Join(configDir, "config.yaml")
	backupPath := configPath + ".bak"

	if _, err := os.Stat(configPath); err == nil {
		if err := createBackup(configPath, backupPath); err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(configPath)

	for key, val := range c.values() {
		v.Set(key, val)
	}

	tempPath := configPath + ".tmp.yaml"

	if err := v.WriteConfigAs(tempPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	if err := os.Rename(tempPath, configPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// values flattens the configuration into viper keys. Durations are
// rendered as strings so the file stays readable.
func (c *Config) values() map[string]interface{} {
	return map[string]interface{}{
		"version":                     c.Version,
		"settings.scope":              c.Settings.Scope,
		"settings.use_sudo":           c.Settings.UseSudo,
		"settings.editor":             c.Settings.Editor,
		"settings.status_concurrency": c.Settings.StatusConcurrency,
		"settings.command_timeout":    c.Settings.CommandTimeout.String(),
		"settings.log_lines":          c.Settings.LogLines,
		"logging.level":               c.Logging.Level,
		"logging.debug":               c.Logging.Debug,
		"logging.console":             c.Logging.Console,
		"logging.file":                c.Logging.File,
		"logging.max_size_mb":         c.Logging.MaxSizeMB,
		"logging.max_backups":         c.Logging.MaxBackups,
		"logging.max_age_days":        c.Logging.MaxAgeDays,
		"watch.enabled":               c.Watch.Enabled,
		"watch.paths":                 c.Watch.Paths,
		"watch.debounce":              c.Watch.Debounce.String(),
		"state_file":                  c.StateFile,
	}
}

// YAML renders the configuration the way Save writes it.
func (c *Config) YAML() ([]byte, error) {
	tree := make(map[string]interface{})
	for key, val := range c.values() {
		section, leaf, nested := strings.Cut(key, ".")
		if !nested {
			tree[key] = val
			continue
		}
		sub, ok := tree[section].(map[string]interface{})
		if !ok {
			sub = make(map[string]interface{})
			tree[section] = sub
		}
		sub[leaf] = val
	}
	return yaml.Marshal(tree)
}

// Path returns the config file location Load reads from.
func Path() (string, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// createBackup creates a backup of the existing config file.
// It overwrites any existing backup to keep only the most recent one.
func createBackup(configPath, backupPath string) error {
	srcFile, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer srcFile.Close()

	srcInfo, err := srcFile.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat config file: %w", err)
	}

	dstFile, err := os.OpenFile(backupPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, srcInfo.Mode())
	if err != nil {
		return fmt.Errorf("failed to create backup file: %w", err)
	}
	defer dstFile.Close()

	if _, err := dstFile.ReadFrom(srcFile); err != nil {
		return fmt.Errorf("failed to copy config to backup: %w", err)
	}

	if err := dstFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync backup file: %w", err)
	}

	return nil
}

// StateFilePath returns where favorites are persisted.
func (c *Config) StateFilePath() (string, error) {
	if c.StateFile != "" {
		return utils.ExpandHome(c.StateFile), nil
	}
	dir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "state.yaml"), nil
}

// LogFilePath returns where the rotating log file lives.
func (c *Config) LogFilePath() (string, error) {
	if c.Logging.File != "" {
		return utils.ExpandHome(c.Logging.File), nil
	}
	dir, err := getStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName+".log"), nil
}

// LoggerOptions translates the logging section for logger.New.
func (c *Config) LoggerOptions() (logger.Options, error) {
	file, err := c.LogFilePath()
	if err != nil {
		return logger.Options{}, err
	}
	return logger.Options{
		Level:      c.Logging.Level,
		Debug:      c.Logging.Debug,
		Console:    c.Logging.Console,
		File:       file,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	}, nil
}

// WatchPaths returns the unit directories to watch for the configured scope.
func (c *Config) WatchPaths() []string {
	if len(c.Watch.Paths) > 0 {
		paths := make([]string, len(c.Watch.Paths))
		for i, p := range c.Watch.Paths {
			paths[i] = utils.ExpandHome(p)
		}
		return paths
	}
	if c.IsUserScope() {
		return []string{utils.ExpandHome("~/.config/systemd/user")}
	}
	return []string{"/etc/systemd/system", "/run/systemd/system", "/usr/lib/systemd/system"}
}

// getConfigDir returns the configuration directory path.
var getConfigDir = func() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// getStateDir returns $XDG_STATE_HOME/systemctl-manager, falling back to ~/.local/state.
var getStateDir = func() (string, error) {
	if stateDir := os.Getenv("XDG_STATE_HOME"); stateDir != "" {
		return filepath.Join(stateDir, appName), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", appName), nil
}

// setDefaults sets default values in viper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "1.0")
	v.SetDefault("settings.scope", ScopeSystem)
	v.SetDefault("settings.use_sudo", true)
	v.SetDefault("settings.editor", "")
	v.SetDefault("settings.status_concurrency", 8)
	v.SetDefault("settings.command_timeout", "10s")
	v.SetDefault("settings.log_lines", 50)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.debug", false)
	v.SetDefault("logging.console", false)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", logger.DefaultMaxSizeMB)
	v.SetDefault("logging.max_backups", logger.DefaultMaxBackups)
	v.SetDefault("logging.max_age_days", logger.DefaultMaxAgeDays)
	v.SetDefault("watch.enabled", true)
	v.SetDefault("watch.paths", []string{})
	v.SetDefault("watch.debounce", "500ms")
	v.SetDefault("state_file", "")
}

// NewConfigWithDefaults creates a new Config with default values.
func NewConfigWithDefaults() *Config {
	return &Config{
		Version: "1.0",
		Settings: Settings{
			Scope:             ScopeSystem,
			UseSudo:           true,
			StatusConcurrency: 8,
			CommandTimeout:    10 * time.Second,
			LogLines:          50,
		},
		Logging: LoggingConfig{
			Level:      "info",
			MaxSizeMB:  logger.DefaultMaxSizeMB,
			MaxBackups: logger.DefaultMaxBackups,
			MaxAgeDays: logger.DefaultMaxAgeDays,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Paths:    []string{},
			Debounce: 500 * time.Millisecond,
		},
	}
}
