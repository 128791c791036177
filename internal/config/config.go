package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete storageprobe configuration
type Config struct {
	Pool    PoolConfig    `mapstructure:"pool"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PoolConfig controls how many probes run at once
type PoolConfig struct {
	// Concurrency is the maximum number of probes in flight (default: 8)
	Concurrency int `mapstructure:"concurrency"`
	// FailurePolicy decides what a failed probe does to the rest of the run
	// Options: "first-error", "cancel", "collect"
	FailurePolicy string `mapstructure:"failure_policy"`
	// RateLimit caps probe starts per second, 0 = unlimited
	RateLimit float64 `mapstructure:"rate_limit"`
	// Burst is the number of probes that may start back to back under RateLimit
	Burst int `mapstructure:"burst"`
}

// ProbeConfig controls a single account probe
type ProbeConfig struct {
	// Timeout bounds one attempt, 0 = no timeout
	Timeout time.Duration `mapstructure:"timeout"`
	// RetryAttempts is the total number of attempts per account (default: 3)
	RetryAttempts int `mapstructure:"retry_attempts"`
	// RetryDelay is the delay before the first retry
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// EmulatorTimeout bounds each emulator endpoint check
	EmulatorTimeout time.Duration `mapstructure:"emulator_timeout"`
}

// StoreConfig controls where attached accounts are kept
type StoreConfig struct {
	// Path is the JSON file holding attached accounts
	Path string `mapstructure:"path"`
}

// LoggingConfig controls diagnostic output
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error" (default: "warn")
	Level string `mapstructure:"level"`
	// Format is "text" or "json" (default: "text")
	Format string `mapstructure:"format"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Pool: PoolConfig{
			Concurrency:   8,
			FailurePolicy: "collect",
			RateLimit:     0,
			Burst:         1,
		},
		Probe: ProbeConfig{
			Timeout:         10 * time.Second,
			RetryAttempts:   3,
			RetryDelay:      200 * time.Millisecond,
			EmulatorTimeout: time.Second,
		},
		Store: StoreConfig{
			Path: filepath.Join(ConfigDir(), "accounts.json"),
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("pool.concurrency", defaults.Pool.Concurrency)
	v.SetDefault("pool.failure_policy", defaults.Pool.FailurePolicy)
	v.SetDefault("pool.rate_limit", defaults.Pool.RateLimit)
	v.SetDefault("pool.burst", defaults.Pool.Burst)

	v.SetDefault("probe.timeout", defaults.Probe.Timeout)
	v.SetDefault("probe.retry_attempts", defaults.Probe.RetryAttempts)
	v.SetDefault("probe.retry_delay", defaults.Probe.RetryDelay)
	v.SetDefault("probe.emulator_timeout", defaults.Probe.EmulatorTimeout)

	v.SetDefault("store.path", defaults.Store.Path)

	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.format", defaults.Logging.Format)
}

// Bind prepares v to read configuration from cfgFile (or config.yaml in the
// usual places when empty) and from STORAGEPROBE_* environment variables.
// A missing default config file is not an error.
func Bind(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("STORAGEPROBE")
	// e.g., STORAGEPROBE_POOL_CONCURRENCY for pool.concurrency
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile == "" && errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// Load decodes and validates the configuration held by v
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "storageprobe")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storageprobe"
	}
	return filepath.Join(home, ".config", "storageprobe")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
