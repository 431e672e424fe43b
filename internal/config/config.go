// Package config provides configuration management for the key-value store.
// It loads settings from a YAML file and optionally a .env overlay, with
// thread-safe singleton access via LoadConfig/GetConfig.
package config

import (
	"log/slog"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// Config holds all engine, server, and client configuration values.
type Config struct {
	DATA_DIR              string `yaml:"DATA_DIR"`              // directory holding <gen>.log files, the hint file, and the engine sentinel
	MAX_FILE_SIZE         int64  `yaml:"MAX_FILE_SIZE"`         // size cap (bytes) before the Writer rotates to a new generation
	COMPACTION_THRESHOLD  int64  `yaml:"COMPACTION_THRESHOLD"`  // dead-byte threshold (bytes) that triggers compaction of a sealed generation
	COMPACTION_QUEUE_SIZE int    `yaml:"COMPACTION_QUEUE_SIZE"` // bound on the Compactor's work queue
	ENGINE                string `yaml:"ENGINE"`                // engine tag written to/checked against the sentinel file
	ADDR                  string `yaml:"ADDR"`                  // server listen / client dial address
	LOG_LEVEL             string `yaml:"LOG_LEVEL"`             // slog level: debug, info, warn, error
}

// Defaults mirror the reference constants from spec: a 1 MiB generation cap
// and a 60% dead-byte compaction threshold.
const (
	DefaultMaxFileSize        = 1 << 20
	DefaultCompactionDivisor  = 0.6
	DefaultCompactionQueue    = 16
	DefaultEngine             = "kvs"
	DefaultAddr               = "127.0.0.1:4000"
	DefaultLogLevel           = "info"
	defaultConfigFileBasename = "aethercask.yml"
)

// Default returns a Config populated with the reference defaults and the
// given data directory. Safe to use standalone (no file on disk required).
func Default(dataDir string) *Config {
	return &Config{
		DATA_DIR:              dataDir,
		MAX_FILE_SIZE:         DefaultMaxFileSize,
		COMPACTION_THRESHOLD:  int64(float64(DefaultMaxFileSize) * DefaultCompactionDivisor),
		COMPACTION_QUEUE_SIZE: DefaultCompactionQueue,
		ENGINE:                DefaultEngine,
		ADDR:                  DefaultAddr,
		LOG_LEVEL:             DefaultLogLevel,
	}
}

var (
	appConfig *Config
	once      sync.Once
	initErr   error
)

// LoadConfig reads configuration from the given YAML path. A .env file in
// the working directory, if present, is loaded into the process
// environment first, and ${VAR} references in the YAML are expanded from
// that environment before parsing. A missing config file is not an error:
// defaults are used instead (so aethercask-server works with zero setup;
// aethercask-client does not load a config file). A malformed config file is an
// error. Safe for concurrent callers; the file is loaded at most once.
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		if path == "" {
			path = defaultConfigFileBasename
		}

		if err := godotenv.Load(); err != nil {
			slog.Debug("config: no .env file found or error loading it", "error", err)
		} else {
			slog.Debug("config: .env file loaded successfully")
		}

		cfg := Default(".")
		raw, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				initErr = err
				return
			}
			slog.Debug("config: no config file found, using defaults", "path", path)
			appConfig = cfg
			return
		}

		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
			initErr = err
			return
		}
		appConfig = cfg
	})
	if initErr != nil {
		return nil, initErr
	}
	return appConfig, nil
}

// GetConfig returns the singleton configuration instance.
// Panics if LoadConfig has not yet completed successfully.
func GetConfig() *Config {
	if appConfig == nil {
		panic("config not loaded - call LoadConfig() first")
	}
	return appConfig
}
