// Package config loads signedqr settings with layered precedence:
//  1. Environment variables (SIGNEDQR_* prefix, dots become underscores)
//  2. Config file (--config, or ~/.signedqr/config.yaml when present)
//  3. Built-in defaults
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/VeraLlugiqi/information-security-gr7/pkg/symbol"
)

// HomeDirName is the per-user directory holding config, keys and the ledger.
const HomeDirName = ".signedqr"

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the root configuration.
type Config struct {
	Symbol SymbolConfig `yaml:"symbol" mapstructure:"symbol"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
	Ledger LedgerConfig `yaml:"ledger" mapstructure:"ledger"`
	Keys   KeysConfig   `yaml:"keys" mapstructure:"keys"`
}

// SymbolConfig controls QR rendering.
type SymbolConfig struct {
	// Level is the error correction level: L, M, Q or H.
	Level  string `yaml:"level" mapstructure:"level"`
	Width  int    `yaml:"width" mapstructure:"width"`
	Height int    `yaml:"height" mapstructure:"height"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level   string `yaml:"level" mapstructure:"level"`
	File    string `yaml:"file" mapstructure:"file"`
	Console bool   `yaml:"console" mapstructure:"console"`
}

// LedgerConfig controls the issued-record ledger.
type LedgerConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// KeysConfig locates key files.
type KeysConfig struct {
	// Dir is where `key gen` writes and `sign` looks for the default key.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// SymbolLevel returns the parsed error correction level.
func (c *Config) SymbolLevel() symbol.Level {
	level, err := symbol.ParseLevel(c.Symbol.Level)
	if err != nil {
		return symbol.DefaultLevel
	}
	return level
}

// HomeDir returns ~/.signedqr.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, HomeDirName), nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SIGNEDQR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	home, err := HomeDir()
	if err != nil {
		home = HomeDirName
	}

	v.SetDefault("symbol.level", symbol.DefaultLevel.String())
	v.SetDefault("symbol.width", symbol.DefaultWidth)
	v.SetDefault("symbol.height", symbol.DefaultHeight)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.console", true)

	v.SetDefault("ledger.enabled", true)
	v.SetDefault("ledger.path", filepath.Join(home, "ledger.json"))

	v.SetDefault("keys.dir", filepath.Join(home, "keys"))
}

// Load reads configuration. An explicit path must exist; with an empty path
// the global file is read only if present.
func Load(path string) (*Config, error) {
	v := newViper()

	if path == "" {
		if home, err := HomeDir(); err == nil {
			global := filepath.Join(home, "config.yaml")
			if _, err := os.Stat(global); err == nil {
				path = global
			}
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for out-of-range values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	if _, err := symbol.ParseLevel(cfg.Symbol.Level); err != nil {
		return fmt.Errorf("%w: symbol.level: %v", ErrInvalidConfig, err)
	}
	if cfg.Symbol.Width <= 0 || cfg.Symbol.Height <= 0 {
		return fmt.Errorf("%w: symbol dimensions must be positive, got %dx%d",
			ErrInvalidConfig, cfg.Symbol.Width, cfg.Symbol.Height)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Log.Level)); err != nil {
		return fmt.Errorf("%w: log.level %q", ErrInvalidConfig, cfg.Log.Level)
	}
	if cfg.Ledger.Enabled && strings.TrimSpace(cfg.Ledger.Path) == "" {
		return fmt.Errorf("%w: ledger.path is required when the ledger is enabled", ErrInvalidConfig)
	}
	return nil
}
