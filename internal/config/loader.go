package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// UserConfigDir is the directory of the user-level config file.
	UserConfigDir = ".config/trialscout"
	// UserConfigFile is the name of the user-level config file.
	UserConfigFile = "config.yaml"
)

// Environment variables read by Load.
const (
	EnvConfig   = "TRIALSCOUT_CONFIG"
	EnvAPIURL   = "TRIALSCOUT_API_URL"
	EnvDB       = "TRIALSCOUT_DB"
	EnvAddr     = "TRIALSCOUT_ADDR"
	EnvCatalog  = "TRIALSCOUT_CATALOG"
	EnvLogLevel = "TRIALSCOUT_LOG_LEVEL"
)

// Loader builds a Config with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load returns the configuration, in order of increasing precedence:
//  1. defaults
//  2. config file (path, or $TRIALSCOUT_CONFIG, or ~/.config/trialscout/config.yaml)
//  3. environment variables
//
// Flags are applied by the caller with Merge. A missing default config file
// is not an error; a missing explicit one is.
func (l *Loader) Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		if env := os.Getenv(EnvConfig); env != "" {
			path, explicit = env, true
		} else {
			path = l.userConfigPath()
		}
	}

	if path != "" {
		fileCfg, err := LoadFromFile(path)
		switch {
		case err == nil:
			l.logger.Debug("loaded config file", slog.String("path", path))
			cfg.Merge(fileCfg)
		case explicit || !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}

	cfg.Merge(fromEnv())
	return cfg, nil
}

func fromEnv() *Config {
	return &Config{
		API: APIConfig{BaseURL: os.Getenv(EnvAPIURL)},
		Server: ServerConfig{
			Addr:        os.Getenv(EnvAddr),
			DBPath:      os.Getenv(EnvDB),
			CatalogPath: os.Getenv(EnvCatalog),
		},
		Log: LogConfig{Level: os.Getenv(EnvLogLevel)},
	}
}

func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}
