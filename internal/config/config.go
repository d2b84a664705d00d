// Package config implements TOML configuration loading and
// platform-specific path resolution for diarysync. Precedence is
// defaults -> config file -> environment -> CLI flags.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration parsed from config.toml.
type Config struct {
	Diary   DiaryConfig   `toml:"diary"`
	Sync    SyncConfig    `toml:"sync"`
	Logging LoggingConfig `toml:"logging"`
}

// DiaryConfig locates the diary on disk.
type DiaryConfig struct {
	// Dir is the diary root: flat .txt entries, tags.json, and an
	// images/ subdirectory.
	Dir string `toml:"dir"`
	// DataDir holds credentials and sync metadata. Defaults to the
	// platform data directory.
	DataDir string `toml:"data_dir"`
}

// SyncConfig controls daemon behavior.
type SyncConfig struct {
	IntervalMinutes int  `toml:"interval_minutes"`
	Watch           bool `toml:"watch"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // auto, text, json
}

// Load reads and parses a TOML config file and validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise
// returns defaults so first runs work without any config file.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve applies the override chain and returns a validated Config.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Config, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	if env.DiaryDir != "" {
		cfg.Diary.Dir = env.DiaryDir
	}

	if cli.DiaryDir != nil {
		cfg.Diary.Dir = *cli.DiaryDir
	}

	if cfg.Diary.DataDir == "" {
		cfg.Diary.DataDir = DefaultDataDir()
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not specified" from an explicit zero value.
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	DiaryDir   *string // --diary-dir flag
}
