package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/xmatch/internal/catalog"
	"github.com/roach88/xmatch/internal/xmatch"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "gaia_sao_xmatch.db", cfg.Output)
	assert.Equal(t, 9.0, cfg.MaxMagnitude)
	assert.Equal(t, 5.0, cfg.RadiusArcsec)
	assert.Equal(t, "first", cfg.Selection)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 50, cfg.PauseEvery)
	assert.Equal(t, time.Second, cfg.PauseDuration)
	assert.Equal(t, 100, cfg.ProgressEvery)
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, catalog.SAOCatalog, cfg.Source.Catalog)
	assert.Equal(t, catalog.DefaultGaiaTable, cfg.Target.Table)
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "xmatch.yaml", `
output: "bright.db"
max_magnitude: 6.5
radius_arcsec: 3
selection: nearest
workers: 4
pause_duration: "250ms"
source:
  timeout: "30s"
target:
  url: "https://tap.example.org/tap"
  retries: 5
logging:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bright.db", cfg.Output)
	assert.Equal(t, 6.5, cfg.MaxMagnitude)
	assert.Equal(t, 3.0, cfg.RadiusArcsec)
	assert.Equal(t, "nearest", cfg.Selection)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 250*time.Millisecond, cfg.PauseDuration)
	assert.Equal(t, 30*time.Second, cfg.Source.Timeout)
	assert.Equal(t, "https://tap.example.org/tap", cfg.Target.URL)
	assert.Equal(t, 5, cfg.Target.Retries)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	// Unset keys keep defaults.
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, catalog.DefaultVizieRURL, cfg.Source.URL)
	assert.Equal(t, catalog.DefaultTimeout, cfg.Target.Timeout)
}

func TestLoad_TOML(t *testing.T) {
	path := writeConfig(t, "xmatch.toml", `
output = "from-toml.db"
max_magnitude = 8.0
batch_size = 250
requests_per_second = 5.0

[target]
timeout = "45s"

[logging]
level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-toml.db", cfg.Output)
	assert.Equal(t, 8.0, cfg.MaxMagnitude)
	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, 5.0, cfg.RequestsPerSecond)
	assert.Equal(t, 45*time.Second, cfg.Target.Timeout)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("XMATCH_TEST_OUTPUT", "expanded.db")
	path := writeConfig(t, "xmatch.yml", `output: "${XMATCH_TEST_OUTPUT}"`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "expanded.db", cfg.Output)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvVizieRURL, "http://localhost:9001/asu-tsv")
	t.Setenv(EnvGaiaTAPURL, "http://localhost:9002/tap")
	path := writeConfig(t, "xmatch.yaml", `max_magnitude: 7`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9001/asu-tsv", cfg.Source.URL)
	assert.Equal(t, "http://localhost:9002/tap", cfg.Target.URL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{"missing file", "", "", "reading config file"},
		{"unknown extension", "xmatch.json", `{}`, "unsupported config format"},
		{"bad yaml", "xmatch.yaml", "output: [unterminated", "parsing config file"},
		{"bad toml", "xmatch.toml", "output = ", "parsing config file"},
		{"bad duration", "xmatch.yaml", `pause_duration: "soon"`, "pause_duration"},
		{"negative duration", "xmatch.yaml", `pause_duration: "-1s"`, "must not be negative"},
		{"magnitude too faint", "xmatch.yaml", `max_magnitude: 31`, "validating config"},
		{"zero radius", "xmatch.yaml", `radius_arcsec: 0`, "validating config"},
		{"unknown selection", "xmatch.yaml", `selection: brightest`, "validating config"},
		{"too many workers", "xmatch.yaml", `workers: 64`, "validating config"},
		{"zero batch", "xmatch.yaml", `batch_size: 0`, "validating config"},
		{"bad log level", "xmatch.yaml", "logging:\n  level: loud", "validating config"},
		{"non-http url", "xmatch.yaml", "target:\n  url: ftp://example.org", "validating config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if tt.file != "" {
				path = writeConfig(t, tt.file, tt.content)
			}
			_, err := Load(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_NegativeMagnitudeBound(t *testing.T) {
	cfg := Default()
	cfg.MaxMagnitude = -2
	assert.Error(t, cfg.Validate())

	cfg.MaxMagnitude = -1.5
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, LoadEnvFile(filepath.Join(dir, ".env")))

	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("XMATCH_DOTENV_PROBE=from-dotenv\n"), 0o644))
	t.Setenv("XMATCH_DOTENV_PROBE", "")
	os.Unsetenv("XMATCH_DOTENV_PROBE")

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-dotenv", os.Getenv("XMATCH_DOTENV_PROBE"))
}

func TestBuilderConversion(t *testing.T) {
	cfg := Default()
	cfg.Selection = "nearest"
	cfg.Limit = 100

	b, err := cfg.Builder()
	require.NoError(t, err)
	assert.Equal(t, xmatch.SelectNearest, b.Selection)
	assert.Equal(t, 100, b.Limit)
	assert.Equal(t, cfg.Output, b.Output)
	assert.Equal(t, catalog.SAOCatalog, b.SourceCatalog)
	assert.Equal(t, time.Second, b.PauseDuration)

	cfg.Selection = "bogus"
	_, err = cfg.Builder()
	assert.Error(t, err)
}

func TestCatalogs(t *testing.T) {
	cfg := Default()
	cfg.Source.Timeout = 5 * time.Second
	cfg.Target.Retries = 0

	c := cfg.Catalogs(nil)
	vizier, ok := c.SourceCatalog.(*catalog.VizieR)
	require.True(t, ok)
	assert.Equal(t, 5*time.Second, vizier.Client.Timeout)

	gaia, ok := c.TargetCatalog.(*catalog.GaiaTAP)
	require.True(t, ok)
	assert.Equal(t, 0, gaia.Client.Retries)
	assert.Equal(t, catalog.DefaultGaiaTable, gaia.Table)
}
