package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"svcore/internal/config"
	"svcore/internal/idstore"
	"svcore/internal/metrics"
	"svcore/internal/orchestrator"
	"svcore/internal/packages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, authStatus int) *httptest.Server {
	t.Helper()
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		if authStatus != http.StatusOK {
			http.Error(w, "unavailable", authStatus)
			return
		}
		reply(w, map[string]any{"accessToken": "tok", "expiresIn": 60})
	})
	mux.HandleFunc("POST /lobby/sessions", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"sessionId": "sess"})
	})
	mux.HandleFunc("POST /relay/allocations", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"allocationId": "a", "address": "relay:1"})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, baseURL string) *Config {
	t.Helper()
	svcoreCfg := config.GetDefaultConfig()
	svcoreCfg.Environment = "staging"
	svcoreCfg.Transport.BaseURL = baseURL
	svcoreCfg.Identifiers.Path = filepath.Join(t.TempDir(), "identifiers.yaml")

	cfg := NewConfig("", "error", "")
	cfg.SvcoreConfig = &svcoreCfg
	return cfg
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/etc/svcore.yaml", "debug", "json")

	assert.Equal(t, "/etc/svcore.yaml", cfg.ConfigPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Empty(t, cfg.MetricsAddr)
	assert.Nil(t, cfg.SvcoreConfig, "configuration is loaded by NewApplication")
}

func TestApplication_Run(t *testing.T) {
	backend := newBackend(t, http.StatusOK)
	cfg := testConfig(t, backend.URL)

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	assert.ElementsMatch(t, packages.IDs(), application.Services().Packages)

	report, err := application.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateCompleted, report.State)
	assert.ElementsMatch(t, packages.IDs(), report.Completed())

	// The installation id survives into the next process.
	store, err := idstore.OpenFile(cfg.SvcoreConfig.Identifiers.Path)
	require.NoError(t, err)
	first, ok := store.GetString("installation-id")
	require.True(t, ok)

	next := testConfig(t, backend.URL)
	next.SvcoreConfig.Identifiers.Path = cfg.SvcoreConfig.Identifiers.Path
	again, err := NewApplication(next)
	require.NoError(t, err)
	_, err = again.Run(context.Background())
	require.NoError(t, err)

	store, err = idstore.OpenFile(cfg.SvcoreConfig.Identifiers.Path)
	require.NoError(t, err)
	second, _ := store.GetString("installation-id")
	assert.Equal(t, first, second)
}

func TestApplication_DisabledPackages(t *testing.T) {
	backend := newBackend(t, http.StatusOK)
	cfg := testConfig(t, backend.URL)
	cfg.SvcoreConfig.Packages.Disabled = []string{packages.LobbyID, packages.RelayID}

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	assert.NotContains(t, application.Services().Packages, packages.LobbyID)
	assert.NotContains(t, application.Services().Packages, packages.RelayID)

	report, err := application.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateCompleted, report.State)
	assert.Len(t, report.Outcomes, 3)
}

func TestApplication_BackendFailure(t *testing.T) {
	backend := newBackend(t, http.StatusBadGateway)
	application, err := NewApplication(testConfig(t, backend.URL))
	require.NoError(t, err)

	report, err := application.Run(context.Background())
	require.NoError(t, err, "package failures are reported, not returned")
	assert.Equal(t, orchestrator.StateFailed, report.State)
	assert.Equal(t, []string{packages.AuthID}, report.Failed())
	assert.Equal(t, []string{packages.LobbyID, packages.RelayID}, report.Skipped())
}

func TestApplication_CycleDetectionSetting(t *testing.T) {
	backend := newBackend(t, http.StatusOK)
	cfg := testConfig(t, backend.URL)
	disabled := false
	cfg.SvcoreConfig.Initialization.DetectCycles = &disabled
	cfg.SvcoreConfig.Initialization.MaxConcurrency = 1

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	report, err := application.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StateCompleted, report.State)
}

func TestNewApplication_Errors(t *testing.T) {
	t.Run("unknown log format", func(t *testing.T) {
		cfg := testConfig(t, "http://localhost")
		cfg.LogFormat = "xml"
		_, err := NewApplication(cfg)
		assert.ErrorContains(t, err, "unknown log format")
	})

	t.Run("unknown log level", func(t *testing.T) {
		cfg := testConfig(t, "http://localhost")
		cfg.LogLevel = "verbose"
		_, err := NewApplication(cfg)
		assert.Error(t, err)
	})

	t.Run("corrupt identifier store", func(t *testing.T) {
		cfg := testConfig(t, "http://localhost")
		require.NoError(t, os.WriteFile(cfg.SvcoreConfig.Identifiers.Path, []byte("identifiers: [unclosed"), 0o600))
		_, err := NewApplication(cfg)
		assert.ErrorContains(t, err, "identifier store")
	})

	t.Run("missing config file", func(t *testing.T) {
		cfg := NewConfig(filepath.Join(t.TempDir(), "absent.yaml"), "", "")
		_, err := NewApplication(cfg)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}

func TestMetricsServer(t *testing.T) {
	m := metrics.New()
	m.RunFinished("Completed", 0)

	server, err := startMetricsServer("127.0.0.1:0", m.Handler())
	require.NoError(t, err)
	defer server.Stop()

	resp, err := http.Get("http://" + server.Addr() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "svcore_init_runs_total")
}

func TestApplication_MetricsAddrInUse(t *testing.T) {
	m := metrics.New()
	occupied, err := startMetricsServer("127.0.0.1:0", m.Handler())
	require.NoError(t, err)
	defer occupied.Stop()

	cfg := testConfig(t, "http://localhost")
	cfg.SvcoreConfig.Packages.Disabled = packages.IDs()
	cfg.MetricsAddr = occupied.Addr()

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	_, err = application.Run(context.Background())
	assert.ErrorContains(t, err, "metrics server")
}
