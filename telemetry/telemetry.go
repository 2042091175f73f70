package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector captures telemetry events emitted by the form-logic runtime.
//
// Implementations may forward metrics to Prometheus, loggers or other
// monitoring systems. They should be inexpensive to call because hooks are
// executed inline with critical paths such as rule evaluation.
type Collector interface {
	IncEvaluation(form, trigger string)
	IncRuleWarnings(form, trigger string, count uint64)
	IncGraphReload(form string)
	SetGraphRules(form string, count int)
}

type noopCollector struct{}

// Noop returns a collector that discards all metrics.
func Noop() Collector {
	return noopCollector{}
}

func (noopCollector) IncEvaluation(string, string)           {}
func (noopCollector) IncRuleWarnings(string, string, uint64) {}
func (noopCollector) IncGraphReload(string)                  {}
func (noopCollector) SetGraphRules(string, int)              {}

// PrometheusCollector exposes runtime counters via Prometheus.
type PrometheusCollector struct {
	evaluations  *prometheus.CounterVec
	ruleWarnings *prometheus.CounterVec
	graphReloads *prometheus.CounterVec
	graphRules   *prometheus.GaugeVec
}

var (
	evaluationCounter      *prometheus.CounterVec
	evaluationCounterLock  sync.Mutex
	ruleWarningCounter     *prometheus.CounterVec
	ruleWarningCounterLock sync.Mutex
	graphReloadCounter     *prometheus.CounterVec
	graphReloadCounterLock sync.Mutex
	graphRuleGauge         *prometheus.GaugeVec
	graphRuleGaugeLock     sync.Mutex
)

// NewPrometheusCollector registers the required metrics with the provided registerer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	evaluationCounterLock.Lock()
	if evaluationCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formlogic_evaluations_total",
			Help: "Number of rule evaluation passes per form and trigger.",
		}, []string{"form", "trigger"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			evaluationCounterLock.Unlock()
			return nil, err
		}
		evaluationCounter = registered
	}
	evaluationCounterLock.Unlock()

	ruleWarningCounterLock.Lock()
	if ruleWarningCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formlogic_rule_warnings_total",
			Help: "Number of non-fatal rule warnings collected per form and trigger.",
		}, []string{"form", "trigger"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			ruleWarningCounterLock.Unlock()
			return nil, err
		}
		ruleWarningCounter = registered
	}
	ruleWarningCounterLock.Unlock()

	graphReloadCounterLock.Lock()
	if graphReloadCounter == nil {
		counter := prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "formlogic_graph_reloads_total",
			Help: "Number of rule graph recompilations triggered per form.",
		}, []string{"form"})
		registered, err := registerCounterVec(reg, counter)
		if err != nil {
			graphReloadCounterLock.Unlock()
			return nil, err
		}
		graphReloadCounter = registered
	}
	graphReloadCounterLock.Unlock()

	graphRuleGaugeLock.Lock()
	if graphRuleGauge == nil {
		gauge := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "formlogic_graph_rules",
			Help: "Number of enabled rules in the currently compiled graph per form.",
		}, []string{"form"})
		registered, err := registerGaugeVec(reg, gauge)
		if err != nil {
			graphRuleGaugeLock.Unlock()
			return nil, err
		}
		graphRuleGauge = registered
	}
	graphRuleGaugeLock.Unlock()

	return &PrometheusCollector{
		evaluations:  evaluationCounter,
		ruleWarnings: ruleWarningCounter,
		graphReloads: graphReloadCounter,
		graphRules:   graphRuleGauge,
	}, nil
}

func registerCounterVec(reg prometheus.Registerer, counter *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(counter); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return counter, nil
}

func registerGaugeVec(reg prometheus.Registerer, gauge *prometheus.GaugeVec) (*prometheus.GaugeVec, error) {
	if err := reg.Register(gauge); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return gauge, nil
}

// IncEvaluation counts one evaluation pass.
func (c *PrometheusCollector) IncEvaluation(form, trigger string) {
	if c == nil || c.evaluations == nil {
		return
	}
	c.evaluations.WithLabelValues(form, trigger).Inc()
}

// IncRuleWarnings counts the warnings collected by one evaluation pass.
func (c *PrometheusCollector) IncRuleWarnings(form, trigger string, count uint64) {
	if c == nil || c.ruleWarnings == nil || count == 0 {
		return
	}
	c.ruleWarnings.WithLabelValues(form, trigger).Add(float64(count))
}

// IncGraphReload counts one graph recompilation.
func (c *PrometheusCollector) IncGraphReload(form string) {
	if c == nil || c.graphReloads == nil {
		return
	}
	c.graphReloads.WithLabelValues(form).Inc()
}

// SetGraphRules records the size of the currently active graph.
func (c *PrometheusCollector) SetGraphRules(form string, count int) {
	if c == nil || c.graphRules == nil {
		return
	}
	c.graphRules.WithLabelValues(form).Set(float64(count))
}
