package config

import "fmt"

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"auto": true,
	"text": true,
	"json": true,
}

// Validate checks a Config for values that would misbehave at runtime.
func Validate(cfg *Config) error {
	if cfg.Sync.IntervalMinutes < 1 {
		return fmt.Errorf("sync.interval_minutes must be at least 1, got %d", cfg.Sync.IntervalMinutes)
	}

	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", cfg.Logging.Level)
	}

	if !validLogFormats[cfg.Logging.Format] {
		return fmt.Errorf("logging.format must be one of auto, text, json; got %q", cfg.Logging.Format)
	}

	return nil
}
