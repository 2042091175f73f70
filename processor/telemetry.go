package processor

import (
	"fmt"

	"github.com/TarikAI/RevoForms-sub004/config"
	"github.com/TarikAI/RevoForms-sub004/telemetry"
)

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil
	}
	switch cfg.Provider {
	case "", "prometheus":
		return telemetry.NewPrometheusCollector(nil)
	default:
		return nil, fmt.Errorf("unsupported telemetry provider %q", cfg.Provider)
	}
}
