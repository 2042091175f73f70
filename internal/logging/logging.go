package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/TarikAI/RevoForms-sub004/config"
)

// serviceName is attached to every log line so form-logic output can be told
// apart from the embedding application's.
const serviceName = "formlogic"

// Setup creates the runtime logger for a form-logic process: JSON or console
// output on stdout per the definition's logging section, optionally fanned out
// to Loki. The returned func flushes and closes the Loki client.
func Setup(cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	return setup(cfg, os.Stdout)
}

func setup(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, func(), error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}

	primary, err := formatWriter(cfg.Format, out)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	writers := []io.Writer{primary}
	cleanup := func() {}

	if cfg.Loki.Enabled {
		sink, closer, err := newLokiSink(cfg.Loki)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, sink)
		cleanup = closer
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger().
		Level(level)
	return logger, cleanup, nil
}

func formatWriter(format string, out io.Writer) (io.Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return out, nil
	case "text", "console":
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}, nil
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

// lokiSink forwards rendered log lines to Loki under a fixed label set.
type lokiSink struct {
	client *loki.Client
	labels model.LabelSet
}

func newLokiSink(cfg config.LokiConfig) (io.Writer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}

	labels := model.LabelSet{"app": serviceName}
	for k, v := range cfg.Labels {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}

	sink := &lokiSink{client: client, labels: labels}
	return sink, func() { client.Stop() }, nil
}

func (s *lokiSink) Write(p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	err := s.client.Handle(s.labels, time.Now(), entry)
	return len(p), err
}
