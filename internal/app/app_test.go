package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vigia-data/registry-harvester/internal/config"
)

func testConfig() config.Config {
	return config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Browser: config.BrowserConfig{Headless: true, NavTimeoutSeconds: 5},
		Sources: config.SourcesConfig{
			RegistryBaseURL: "https://registry.example.cl/sociedades?fecha=",
			GazetteBaseURL:  "https://gazette.example.cl/edicion/",
		},
		Storage: config.StorageConfig{Provider: "memory", Prefix: "harvester"},
		Query:   config.QueryConfig{PollIntervalMs: 100, MaxWaitSeconds: 5},
		Report:  config.ReportConfig{Subject: "reporte", FileName: "reporte"},
		Logging: config.LoggingConfig{Development: true},
	}
}

func TestNewWiresMemoryProvider(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.Runner)
	require.NotNil(t, a.Store)
	require.NotNil(t, a.Logger)
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Storage.Provider = "tape"
	_, err := New(context.Background(), cfg)
	require.ErrorContains(t, err, "storage.provider")
}
