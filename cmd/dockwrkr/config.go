package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// =============================================================================
// Config Types
// =============================================================================

// Config holds the tool settings. The container document is loaded
// separately by internal/shell/configfile.
type Config struct {
	Docker DockerConfig `mapstructure:"docker"`
	Log    LogConfig    `mapstructure:"log"`
	Stop   StopConfig   `mapstructure:"stop"`
}

// DockerConfig holds Docker client configuration.
type DockerConfig struct {
	Host string `mapstructure:"host"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StopConfig holds the default grace period for stopping containers.
type StopConfig struct {
	Grace int `mapstructure:"grace"` // Seconds
}

// GraceDuration returns Grace as a duration.
func (c StopConfig) GraceDuration() time.Duration {
	return time.Duration(c.Grace) * time.Second
}

// =============================================================================
// Config Loading
// =============================================================================

// LoadConfig loads settings from an optional file and the environment.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("docker.host", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("stop.grace", 10)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			// A missing settings file falls back to defaults
			if _, ok := err.(viper.ConfigParseError); ok {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix("DOCKWRKR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Stop.Grace < 0 {
		return nil, fmt.Errorf("stop.grace must not be negative, got %d", cfg.Stop.Grace)
	}

	return &cfg, nil
}

// =============================================================================
// Logger Setup
// =============================================================================

// SetupLogger creates a logger writing to w with the configured level and
// format.
func SetupLogger(cfg *Config, w io.Writer) *slog.Logger {
	return slog.New(newLogHandler(cfg.Log, w))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newLogHandler returns a JSON handler for "json" and a human-readable
// charmbracelet handler otherwise.
func newLogHandler(cfg LogConfig, w io.Writer) slog.Handler {
	level := parseLevel(cfg.Level)

	if strings.ToLower(cfg.Format) == "json" {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	}

	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
}
