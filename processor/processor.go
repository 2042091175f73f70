package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/TarikAI/RevoForms-sub004/config"
	"github.com/TarikAI/RevoForms-sub004/engine"
	"github.com/TarikAI/RevoForms-sub004/internal/logging"
	"github.com/TarikAI/RevoForms-sub004/internal/reload"
	"github.com/TarikAI/RevoForms-sub004/telemetry"
)

// ReloadFunc represents a function that reloads the processor's definition.
type ReloadFunc func(ctx context.Context) error

// Option configures the processor during construction.
type Option func(*settings) error

type settings struct {
	config            *config.Config
	configPath        string
	registerReload    func(ReloadFunc)
	logger            zerolog.Logger
	customLogger      bool
	telemetry         telemetry.Collector
	telemetryProvided bool
	pollInterval      time.Duration
	pollIntervalSet   bool
}

// Processor owns the lifecycle around a compiled rule graph: definition
// loading, logger and telemetry setup, session creation, and hot reload with
// an atomic graph swap. Sessions opened before a reload keep running against
// the graph they were bound to.
type Processor struct {
	mu sync.Mutex

	config     *config.Config
	configPath string
	graph      *engine.Graph

	collector    telemetry.Collector
	customLogger bool
	logger       zerolog.Logger
	cleanup      func()

	watcher      *reload.Watcher
	pollInterval time.Duration
}

// New builds a processor from the provided options. Either WithConfig or
// WithConfigPath is required.
func New(ctx context.Context, opts ...Option) (*Processor, error) {
	if ctx != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}

	cfg := settings{
		logger:       zerolog.Nop(),
		telemetry:    telemetry.Noop(),
		pollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if cfg.config == nil {
		if cfg.configPath == "" {
			return nil, errors.New("definition path required")
		}
		loaded, err := config.Load(cfg.configPath)
		if err != nil {
			return nil, fmt.Errorf("load definition: %w", err)
		}
		cfg.config = loaded
	}

	if !cfg.pollIntervalSet && cfg.config.PollInterval.Duration > 0 {
		cfg.pollInterval = cfg.config.PollInterval.Duration
	}

	if !cfg.telemetryProvided {
		collector, err := newTelemetryCollector(cfg.config.Telemetry)
		if err != nil {
			fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
			cfg.telemetry = telemetry.Noop()
		} else {
			cfg.telemetry = collector
		}
	}

	proc := &Processor{
		config:       cfg.config,
		configPath:   cfg.configPath,
		collector:    cfg.telemetry,
		customLogger: cfg.customLogger,
		pollInterval: cfg.pollInterval,
		cleanup:      func() {},
	}

	if cfg.customLogger {
		proc.logger = cfg.logger
	} else {
		logger, cleanup, err := logging.Setup(cfg.config.Logging)
		if err != nil {
			return nil, err
		}
		proc.logger = logger
		proc.cleanup = cleanup
	}

	graph, err := engine.CompileConfig(cfg.config)
	if err != nil {
		proc.cleanup()
		return nil, fmt.Errorf("compile rules: %w", err)
	}
	proc.graph = graph
	proc.collector.SetGraphRules(graph.FormID(), len(graph.RuleIDs()))

	if cfg.config.HotReload && cfg.configPath != "" {
		watcher, err := reload.NewWatcher(cfg.configPath, cfg.config)
		if err != nil {
			proc.cleanup()
			return nil, fmt.Errorf("init watcher: %w", err)
		}
		proc.watcher = watcher
	}

	if cfg.registerReload != nil {
		cfg.registerReload(proc.Reload)
	}

	return proc, nil
}

// Graph returns the currently active compiled graph.
func (p *Processor) Graph() *engine.Graph {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graph
}

// Config returns the currently active definition.
func (p *Processor) Config() *config.Config {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.config
}

// NewSession opens a form-filling session bound to the current graph.
func (p *Processor) NewSession() (*engine.Session, error) {
	p.mu.Lock()
	graph := p.graph
	logger := p.logger
	collector := p.collector
	p.mu.Unlock()
	return engine.NewSession(graph, logger, collector)
}

// Reload re-reads the definition from disk, recompiles the graph and swaps
// it atomically. Compile errors leave the previous graph active.
func (p *Processor) Reload(ctx context.Context) error {
	if ctx != nil && ctx.Err() != nil {
		return ctx.Err()
	}

	p.mu.Lock()
	path := p.configPath
	p.mu.Unlock()
	if path == "" {
		return errors.New("reload not supported without definition path")
	}

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load definition: %w", err)
	}
	graph, err := engine.CompileConfig(cfg)
	if err != nil {
		return fmt.Errorf("compile rules: %w", err)
	}

	p.mu.Lock()
	p.config = cfg
	p.graph = graph
	watcher := p.watcher
	p.mu.Unlock()

	if watcher != nil {
		if err := watcher.Update(path, cfg); err != nil {
			return err
		}
	}

	p.collector.IncGraphReload(graph.FormID())
	p.collector.SetGraphRules(graph.FormID(), len(graph.RuleIDs()))
	p.logger.Info().Str("form", graph.FormID()).Int("rules", len(graph.RuleIDs())).Msg("definition reloaded")
	return nil
}

// Run blocks until the context is cancelled. When hot reload is enabled it
// polls the definition files and recompiles on change; a failing reload is
// logged and the previous graph stays active.
func (p *Processor) Run(ctx context.Context) error {
	p.mu.Lock()
	watcher := p.watcher
	interval := p.pollInterval
	p.mu.Unlock()

	if watcher == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			changed, err := watcher.Check()
			if err != nil {
				p.logger.Error().Err(err).Msg("watch definition files")
				continue
			}
			if len(changed) == 0 {
				continue
			}
			p.logger.Info().Strs("files", changed).Msg("definition change detected")
			if err := p.Reload(ctx); err != nil {
				p.logger.Error().Err(err).Msg("reload failed, keeping previous graph")
			}
		}
	}
}

// Close releases resources managed by the processor.
func (p *Processor) Close() {
	p.mu.Lock()
	cleanup := p.cleanup
	p.cleanup = func() {}
	p.mu.Unlock()
	cleanup()
}
