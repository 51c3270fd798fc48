package app

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"mcpdeck/internal/infra/mcpconfig"
	"mcpdeck/internal/infra/registry"
	"mcpdeck/internal/infra/telemetry"
	"mcpdeck/internal/infra/transport"
	"mcpdeck/internal/manager"
)

// App is the composition root: it wires the config loader, lifecycle
// registry, MCP transport and manager, and runs them until the context
// is cancelled.
type App struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{logger: logger.Named("app")}
}

// ServeConfig carries the per-run knobs from the command line.
type ServeConfig struct {
	WorkingDir   string
	SettingsPath string

	// MetricsAddr overrides the settings file when non-empty.
	MetricsAddr string
}

func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	settings, err := LoadSettings(cfg.SettingsPath)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		settings.MetricsListenAddr = cfg.MetricsAddr
	}

	store := mcpconfig.NewFileStore(a.logger)
	parser := mcpconfig.NewParser(a.logger)
	sources := mcpconfig.DefaultSources(cfg.WorkingDir)
	loader := mcpconfig.NewLoader(store, parser, sources, a.logger)

	promRegistry := prometheus.NewRegistry()
	metrics := telemetry.NewPrometheusMetrics(promRegistry)

	reg := registry.New(registry.Options{
		Transport:           transport.NewMCPTransport(a.logger),
		Logger:              a.logger,
		Metrics:             metrics,
		HealthCheckInterval: settings.HealthCheckInterval,
		ReconnectDelay:      settings.ReconnectDelay,
		RestartSettleDelay:  settings.RestartSettleDelay,
		ProbeTimeout:        settings.ProbeTimeout,
	})
	defer reg.Close(context.Background())

	mgr := manager.New(loader, store, reg, a.logger)
	if err := mgr.Reload(ctx); err != nil {
		return err
	}

	if settings.ReloadOnChange {
		watcher := mcpconfig.NewWatcher(sources, mgr.Reload, a.logger)
		go watcher.Run(ctx)
	}

	if settings.MetricsListenAddr == "" {
		<-ctx.Done()
		return nil
	}
	return telemetry.StartMetricsServer(ctx, settings.MetricsListenAddr, promRegistry, a.logger)
}

// Validate loads and merges every config scope without starting
// anything, reporting per-server validation problems.
func (a *App) Validate(ctx context.Context, workingDir string) error {
	store := mcpconfig.NewFileStore(a.logger)
	parser := mcpconfig.NewParser(a.logger)
	loader := mcpconfig.NewLoader(store, parser, mcpconfig.DefaultSources(workingDir), a.logger)

	configs, err := loader.LoadMerged(ctx)
	if err != nil {
		return err
	}
	for _, server := range configs {
		result := mcpconfig.Validate(server)
		if result.Valid {
			a.logger.Info("config ok",
				telemetry.ServerField(server.Name),
				telemetry.ScopeField(string(server.Scope)),
			)
			continue
		}
		a.logger.Warn("config invalid",
			telemetry.ServerField(server.Name),
			telemetry.ScopeField(string(server.Scope)),
			zap.Strings("errors", result.Errors),
		)
	}
	return nil
}
