// Package config loads focusassist's file and environment configuration.
// Timer lengths are not part of it: they live in the database settings table
// so the TUI can edit them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/sadopc/focusassist/internal/store"
)

// AppName names the config directory, env prefix and default files.
const AppName = "focusassist"

// Config is the full configuration tree.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Timer   TimerConfig   `mapstructure:"timer"`
	Focus   FocusConfig   `mapstructure:"focus"`
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig controls the JSON log file.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	// Dir holds focusassist.log. Empty logs to stderr.
	Dir string `mapstructure:"dir"`
}

// TimerConfig holds driver settings that are not stored per user.
type TimerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	SkipDisplay  time.Duration `mapstructure:"skip_display"`
	// Demo swaps the stored lengths for second-scale intervals.
	Demo bool `mapstructure:"demo"`
}

// FocusConfig configures the check-in analysis pipeline.
type FocusConfig struct {
	Workers   int           `mapstructure:"workers"`
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	// Command is run on every check-in and must print a JSON verdict.
	Command       string        `mapstructure:"command"`
	IdleEnabled   bool          `mapstructure:"idle_enabled"`
	IdleAwayAfter time.Duration `mapstructure:"idle_away_after"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	dbPath, err := store.DefaultDBPath()
	if err != nil {
		dbPath = filepath.Join(ConfigDir(), AppName+".db")
	}
	return &Config{
		Store: StoreConfig{
			Path: dbPath,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(ConfigDir(), "logs"),
		},
		Timer: TimerConfig{
			PollInterval: 100 * time.Millisecond,
			SkipDisplay:  500 * time.Millisecond,
		},
		Focus: FocusConfig{
			Workers:       2,
			QueueSize:     4,
			Timeout:       30 * time.Second,
			IdleEnabled:   true,
			IdleAwayAfter: 2 * time.Minute,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("store.path", defaults.Store.Path)

	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)

	viper.SetDefault("timer.poll_interval", defaults.Timer.PollInterval)
	viper.SetDefault("timer.skip_display", defaults.Timer.SkipDisplay)
	viper.SetDefault("timer.demo", defaults.Timer.Demo)

	viper.SetDefault("focus.workers", defaults.Focus.Workers)
	viper.SetDefault("focus.queue_size", defaults.Focus.QueueSize)
	viper.SetDefault("focus.timeout", defaults.Focus.Timeout)
	viper.SetDefault("focus.command", defaults.Focus.Command)
	viper.SetDefault("focus.idle_enabled", defaults.Focus.IdleEnabled)
	viper.SetDefault("focus.idle_away_after", defaults.Focus.IdleAwayAfter)
}

// Init wires viper to the config file and environment. An empty cfgFile
// searches the config directory and the working directory for config.yaml.
func Init(cfgFile string) error {
	SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.SetEnvPrefix(strings.ToUpper(AppName))
	// FOCUSASSIST_FOCUS_COMMAND sets focus.command
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigFile returns the default config file path.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
