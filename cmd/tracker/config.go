package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	backendCSV    = "csv"
	backendSQLite = "sqlite"

	defaultDir        = ".tracker"
	defaultConfigPath = ".tracker/config.json"
	defaultDataPath   = ".tracker/tasks.csv"
	defaultDBPath     = ".tracker/tasks.db"
	defaultPort       = "8000"
)

// Config holds the settings read from the config file and TRACKER_* env vars.
type Config struct {
	Backend      string `mapstructure:"backend" json:"backend"`
	DataPath     string `mapstructure:"data_path" json:"data_path"`
	DBPath       string `mapstructure:"db_path" json:"db_path"`
	HistoryLimit int    `mapstructure:"history_limit" json:"history_limit"`
	Port         string `mapstructure:"port" json:"port"`
	LogLevel     string `mapstructure:"log_level" json:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Backend:  backendCSV,
		DataPath: defaultDataPath,
		DBPath:   defaultDBPath,
		Port:     defaultPort,
		LogLevel: "info",
	}
}

// loadConfig reads path when it exists and applies env overrides on top of
// the defaults.
func loadConfig(path string) (*Config, error) {
	def := defaultConfig()

	v := viper.New()
	v.SetDefault("backend", def.Backend)
	v.SetDefault("data_path", def.DataPath)
	v.SetDefault("db_path", def.DBPath)
	v.SetDefault("history_limit", def.HistoryLimit)
	v.SetDefault("port", def.Port)
	v.SetDefault("log_level", def.LogLevel)

	v.SetEnvPrefix("TRACKER")
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to stat config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	if cfg.Backend != backendCSV && cfg.Backend != backendSQLite {
		return nil, fmt.Errorf("unknown backend %q (want %s or %s)", cfg.Backend, backendCSV, backendSQLite)
	}
	if cfg.HistoryLimit < 0 {
		return nil, fmt.Errorf("history_limit must not be negative: %d", cfg.HistoryLimit)
	}
	return &cfg, nil
}

// storagePath is where the configured backend keeps its data.
func (c *Config) storagePath() string {
	if c.Backend == backendSQLite {
		return c.DBPath
	}
	return c.DataPath
}

func (c *Config) logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// relocate moves default paths under dir, leaving custom ones untouched.
func (c *Config) relocate(dir string) {
	if c.DataPath == defaultDataPath {
		c.DataPath = filepath.Join(dir, defaultDir, filepath.Base(defaultDataPath))
	}
	if c.DBPath == defaultDBPath {
		c.DBPath = filepath.Join(dir, defaultDir, filepath.Base(defaultDBPath))
	}
}
