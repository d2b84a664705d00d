package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "DIARYSYNC_CONFIG"
	EnvDiaryDir = "DIARYSYNC_DIARY_DIR"
)

// EnvOverrides holds values derived from environment variables.
type EnvOverrides struct {
	ConfigPath string // DIARYSYNC_CONFIG: override config file path
	DiaryDir   string // DIARYSYNC_DIARY_DIR: diary directory override
}

// ReadEnvOverrides reads environment variables and returns any
// overrides found.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		DiaryDir:   os.Getenv(EnvDiaryDir),
	}
}
