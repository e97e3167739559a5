package main

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every config key when read from the environment,
// e.g. DAGEDIT_LISTEN_ADDR.
const EnvPrefix = "DAGEDIT"

// Config holds the server settings.
type Config struct {
	ListenAddr   string `mapstructure:"listen_addr"`
	DatabaseURL  string `mapstructure:"database_url"`
	HistoryLimit int    `mapstructure:"history_limit"`
	MaxNodes     int    `mapstructure:"max_nodes"`
	MaxEdges     int    `mapstructure:"max_edges"`
	LogLevel     string `mapstructure:"log_level"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   ":3000",
		HistoryLimit: 100,
		MaxNodes:     5000,
		MaxEdges:     20000,
		LogLevel:     "info",
	}
}

// loadConfig reads defaults, then the optional config file at path, then the
// environment. DATABASE_URL is honored as well as DAGEDIT_DATABASE_URL.
func loadConfig(path string) (Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("listen_addr", defaults.ListenAddr)
	v.SetDefault("database_url", defaults.DatabaseURL)
	v.SetDefault("history_limit", defaults.HistoryLimit)
	v.SetDefault("max_nodes", defaults.MaxNodes)
	v.SetDefault("max_edges", defaults.MaxEdges)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if err := v.BindEnv("database_url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL"); err != nil {
		return Config{}, fmt.Errorf("bind database_url: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.MaxNodes <= 0 {
		return fmt.Errorf("max_nodes must be positive, got %d", c.MaxNodes)
	}
	if c.MaxEdges <= 0 {
		return fmt.Errorf("max_edges must be positive, got %d", c.MaxEdges)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	return nil
}

// level returns the configured log level; validate has already checked it.
func (c Config) level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
