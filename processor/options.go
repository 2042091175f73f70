package processor

import (
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TarikAI/RevoForms-sub004/config"
	"github.com/TarikAI/RevoForms-sub004/telemetry"
)

// WithLogger installs a custom logger instead of building one from the
// definition's logging section.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) error {
		s.logger = logger
		s.customLogger = true
		return nil
	}
}

// WithConfig provides an already loaded form definition.
func WithConfig(cfg *config.Config) Option {
	return func(s *settings) error {
		if cfg == nil {
			return errors.New("config must not be nil")
		}
		s.config = cfg
		return nil
	}
}

// WithConfigPath points the processor at a definition file or directory and
// optionally registers the reload callback with the caller.
func WithConfigPath(path string, register func(ReloadFunc)) Option {
	return func(s *settings) error {
		if strings.TrimSpace(path) == "" {
			return errors.New("config path must not be empty")
		}
		s.configPath = path
		s.registerReload = register
		return nil
	}
}

// WithTelemetry installs a custom telemetry collector.
func WithTelemetry(collector telemetry.Collector) Option {
	return func(s *settings) error {
		if collector == nil {
			return errors.New("telemetry collector must not be nil")
		}
		s.telemetry = collector
		s.telemetryProvided = true
		return nil
	}
}

// WithPollInterval overrides the interval at which the hot-reload watcher
// checks definition files for changes.
func WithPollInterval(interval time.Duration) Option {
	return func(s *settings) error {
		if interval <= 0 {
			return errors.New("poll interval must be positive")
		}
		s.pollInterval = interval
		s.pollIntervalSet = true
		return nil
	}
}
