package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/TarikAI/RevoForms-sub004/config"
)

func TestSetupWritesJSONWithServiceField(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := setup(config.LoggingConfig{Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer cleanup()

	logger.Info().Str("form", "registration").Msg("definition loaded")

	line := buf.String()
	if !strings.Contains(line, `"service":"formlogic"`) {
		t.Fatalf("missing service field in %q", line)
	}
	if !strings.Contains(line, `"form":"registration"`) {
		t.Fatalf("missing form field in %q", line)
	}
	if !strings.Contains(line, `"level":"info"`) {
		t.Fatalf("missing level in %q", line)
	}
}

func TestSetupFiltersBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := setup(config.LoggingConfig{Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer cleanup()

	logger.Info().Msg("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("info line must be filtered at warn level, got %q", buf.String())
	}

	logger.Warn().Msg("kept")
	if buf.Len() == 0 {
		t.Fatalf("warn line must pass at warn level")
	}
}

func TestSetupDefaultsToInfoLevel(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := setup(config.LoggingConfig{}, &buf)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer cleanup()

	logger.Debug().Msg("suppressed")
	if buf.Len() != 0 {
		t.Fatalf("debug line must be filtered by default, got %q", buf.String())
	}
}

func TestSetupRejectsUnknownLevelAndFormat(t *testing.T) {
	if _, _, err := setup(config.LoggingConfig{Level: "verbose"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, _, err := setup(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestSetupConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, cleanup, err := setup(config.LoggingConfig{Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("setup() error = %v", err)
	}
	defer cleanup()

	logger.Info().Msg("console line")
	if out := buf.String(); !strings.Contains(out, "console line") {
		t.Fatalf("console output missing message: %q", out)
	}
}

func TestLokiSinkRequiresURL(t *testing.T) {
	if _, _, err := newLokiSink(config.LokiConfig{Enabled: true}); err == nil {
		t.Fatalf("expected error for missing loki url")
	}
}
