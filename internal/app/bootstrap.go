package app

import (
	"context"
	"fmt"
	"os"

	"svcore/internal/config"
	"svcore/internal/orchestrator"
	"svcore/internal/reporting"
	"svcore/pkg/logging"
)

// Application is the main application structure that bootstraps and runs svcore
type Application struct {
	config   *Config
	services *Services
}

// NewApplication creates and initializes a new application instance
func NewApplication(cfg *Config) (*Application, error) {
	if cfg.SvcoreConfig == nil {
		svcoreCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load svcore configuration: %w", err)
		}
		cfg.SvcoreConfig = &svcoreCfg
	}

	if err := initLogging(cfg); err != nil {
		return nil, err
	}
	logging.Debug("Bootstrap", "Environment %s, backend %s", cfg.SvcoreConfig.Environment, cfg.SvcoreConfig.Transport.BaseURL)

	services, err := InitializeServices(cfg)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
	}, nil
}

// initLogging applies command line overrides on top of the configured logger.
func initLogging(cfg *Config) error {
	levelName := cfg.SvcoreConfig.Logging.Level
	if cfg.LogLevel != "" {
		levelName = cfg.LogLevel
	}
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return err
	}

	format := logging.Format(cfg.SvcoreConfig.Logging.Format)
	if cfg.LogFormat != "" {
		format = logging.Format(cfg.LogFormat)
	}
	if format != logging.FormatText && format != logging.FormatJSON && format != "" {
		return fmt.Errorf("unknown log format %q", format)
	}

	// Logs go to stderr so that stdout stays parseable.
	logging.InitForCLI(level, os.Stderr, format)
	return nil
}

// Orchestrator returns the orchestrator holding the bundled packages.
func (a *Application) Orchestrator() *orchestrator.Orchestrator {
	return a.services.Orchestrator
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Run starts the initialization run and waits for its report. The metrics
// endpoint, when configured, is served for the duration of the run.
func (a *Application) Run(ctx context.Context) (*orchestrator.Report, error) {
	if a.config.MetricsAddr != "" {
		server, err := startMetricsServer(a.config.MetricsAddr, a.services.Metrics.Handler())
		if err != nil {
			return nil, fmt.Errorf("failed to start metrics server on %s: %w", a.config.MetricsAddr, err)
		}
		defer server.Stop()
	}

	reporterCtx, stopReporter := context.WithCancel(context.Background())
	reporter := reporting.NewConsoleReporter()
	reporterDone := reporter.Watch(reporterCtx, a.services.Orchestrator.SubscribeToStateChanges())

	logging.Info("Bootstrap", "Initializing %d packages", len(a.services.Packages))
	report, err := a.services.Orchestrator.BeginInitialization(ctx)
	stopReporter()
	<-reporterDone
	if err != nil {
		return nil, err
	}

	if report.State == orchestrator.StateFailed {
		logging.Warn("Bootstrap", "Initialization finished with %d failed and %d skipped packages", len(report.Failed()), len(report.Skipped()))
	} else {
		logging.Info("Bootstrap", "Initialization completed")
	}
	return report, nil
}
