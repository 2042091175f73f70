package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func resetCollectors() {
	evaluationCounterLock.Lock()
	evaluationCounter = nil
	evaluationCounterLock.Unlock()
	ruleWarningCounterLock.Lock()
	ruleWarningCounter = nil
	ruleWarningCounterLock.Unlock()
	graphReloadCounterLock.Lock()
	graphReloadCounter = nil
	graphReloadCounterLock.Unlock()
	graphRuleGaugeLock.Lock()
	graphRuleGauge = nil
	graphRuleGaugeLock.Unlock()
}

func TestNoopCollector(t *testing.T) {
	collector := Noop()
	require.NotNil(t, collector)
	collector.IncEvaluation("form", "change")
	collector.IncRuleWarnings("form", "change", 2)
	collector.IncGraphReload("form")
	collector.SetGraphRules("form", 3)
}

func TestPrometheusCollectorRegistersAndReusesMetrics(t *testing.T) {
	resetCollectors()
	t.Cleanup(resetCollectors)

	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.NotNil(t, collector)

	collector.IncEvaluation("registration", "change")
	collector.IncRuleWarnings("registration", "change", 3)
	collector.IncGraphReload("registration")
	collector.SetGraphRules("registration", 7)

	metrics := gatherByName(t, reg)
	requireCounterValue(t, metrics["formlogic_evaluations_total"], 1)
	requireCounterValue(t, metrics["formlogic_rule_warnings_total"], 3)
	requireCounterValue(t, metrics["formlogic_graph_reloads_total"], 1)

	gauge := metrics["formlogic_graph_rules"]
	require.NotNil(t, gauge)
	require.Len(t, gauge.Metric, 1)
	require.NotNil(t, gauge.Metric[0].Gauge)
	require.Equal(t, 7.0, gauge.Metric[0].Gauge.GetValue())

	again, err := NewPrometheusCollector(reg)
	require.NoError(t, err)
	require.Same(t, collector.evaluations, again.evaluations)

	again.IncEvaluation("registration", "change")
	metrics = gatherByName(t, reg)
	requireCounterValue(t, metrics["formlogic_evaluations_total"], 2)
}

func TestPrometheusCollectorSkipsZeroWarningCounts(t *testing.T) {
	resetCollectors()
	t.Cleanup(resetCollectors)

	reg := prometheus.NewRegistry()
	collector, err := NewPrometheusCollector(reg)
	require.NoError(t, err)

	collector.IncRuleWarnings("registration", "change", 0)

	metrics := gatherByName(t, reg)
	require.Nil(t, metrics["formlogic_rule_warnings_total"])
}

func gatherByName(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}
	return byName
}

func requireCounterValue(t *testing.T, mf *dto.MetricFamily, value float64) {
	t.Helper()
	require.NotNil(t, mf)
	require.Len(t, mf.Metric, 1)
	require.NotNil(t, mf.Metric[0].Counter)
	require.Equal(t, value, mf.Metric[0].Counter.GetValue())
}
