package config

// Default values, the bottom layer of the override chain.
const (
	defaultIntervalMinutes = 15
	defaultLogLevel        = "info"
	defaultLogFormat       = "auto"
)

// DefaultConfig returns a Config populated with all default values.
// Used both as the starting point for TOML decoding (unset fields keep
// defaults) and as the fallback when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Sync: SyncConfig{
			IntervalMinutes: defaultIntervalMinutes,
		},
		Logging: LoggingConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
