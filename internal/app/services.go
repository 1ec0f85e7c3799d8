package app

import (
	"fmt"

	"svcore/internal/idstore"
	"svcore/internal/metrics"
	"svcore/internal/orchestrator"
	"svcore/internal/packages"
	"svcore/internal/transport"
)

// Services holds everything a run needs.
type Services struct {
	Orchestrator *orchestrator.Orchestrator
	Metrics      *metrics.Metrics
	Store        *idstore.FileStore
	Transport    *transport.Client

	// Packages lists the bundled packages submitted to the orchestrator
	Packages []string
}

// InitializeServices creates the orchestrator and submits the bundled
// packages that are not disabled.
func InitializeServices(cfg *Config) (*Services, error) {
	svcCfg := cfg.SvcoreConfig

	store, err := idstore.OpenFile(svcCfg.Identifiers.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open identifier store: %w", err)
	}

	client, err := transport.New(transport.Config{
		BaseURL:           svcCfg.Transport.BaseURL,
		Timeout:           svcCfg.Transport.Timeout,
		RequestsPerSecond: svcCfg.Transport.RequestsPerSecond,
		Burst:             svcCfg.Transport.Burst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create transport: %w", err)
	}

	m := metrics.New()
	orch := orchestrator.New(orchestrator.Config{
		PackageTimeout: svcCfg.Initialization.PackageTimeout,
		MaxConcurrency: svcCfg.Initialization.MaxConcurrency,
		SkipCycleCheck: !svcCfg.Initialization.CycleDetection(),
		Metrics:        m,
	})

	submitted, err := packages.RegisterBuiltins(orch, packages.Deps{
		Store:       store,
		Sender:      client,
		Environment: svcCfg.Environment,
	}, svcCfg.Packages.Disabled)
	if err != nil {
		return nil, err
	}

	return &Services{
		Orchestrator: orch,
		Metrics:      m,
		Store:        store,
		Transport:    client,
		Packages:     submitted,
	}, nil
}
