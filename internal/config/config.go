package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/roach88/xmatch/internal/builder"
	"github.com/roach88/xmatch/internal/catalog"
	"github.com/roach88/xmatch/internal/xmatch"
)

// Environment variables that override service endpoints.
const (
	EnvVizieRURL  = "XMATCH_VIZIER_URL"
	EnvGaiaTAPURL = "XMATCH_GAIA_TAP_URL"
)

//go:embed schema.cue
var schemaCUE string

// Config is the full set of build settings.
type Config struct {
	Output            string  `yaml:"output" toml:"output"`
	MaxMagnitude      float64 `yaml:"max_magnitude" toml:"max_magnitude"`
	RadiusArcsec      float64 `yaml:"radius_arcsec" toml:"radius_arcsec"`
	Selection         string  `yaml:"selection" toml:"selection"`
	BatchSize         int     `yaml:"batch_size" toml:"batch_size"`
	PauseEvery        int     `yaml:"pause_every" toml:"pause_every"`
	ProgressEvery     int     `yaml:"progress_every" toml:"progress_every"`
	Workers           int     `yaml:"workers" toml:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	Limit             int     `yaml:"limit" toml:"limit"`

	// Parsed from PauseDurationRaw
	PauseDuration time.Duration `yaml:"-" toml:"-"`

	PauseDurationRaw string `yaml:"pause_duration" toml:"pause_duration"`

	Source  SourceConfig  `yaml:"source" toml:"source"`
	Target  TargetConfig  `yaml:"target" toml:"target"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

// SourceConfig describes the VizieR endpoint.
type SourceConfig struct {
	URL     string `yaml:"url" toml:"url"`
	Catalog string `yaml:"catalog" toml:"catalog"`
	Retries int    `yaml:"retries" toml:"retries"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// TargetConfig describes the Gaia TAP endpoint.
type TargetConfig struct {
	URL     string `yaml:"url" toml:"url"`
	Table   string `yaml:"table" toml:"table"`
	Retries int    `yaml:"retries" toml:"retries"`

	Timeout    time.Duration `yaml:"-" toml:"-"`
	TimeoutRaw string        `yaml:"timeout" toml:"timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns the documented defaults.
func Default() *Config {
	b := builder.DefaultConfig()
	return &Config{
		Output:           b.Output,
		MaxMagnitude:     b.MaxMagnitude,
		RadiusArcsec:     b.RadiusArcsec,
		Selection:        string(b.Selection),
		BatchSize:        b.BatchSize,
		PauseEvery:       b.PauseEvery,
		PauseDuration:    b.PauseDuration,
		PauseDurationRaw: b.PauseDuration.String(),
		ProgressEvery:    b.ProgressEvery,
		Workers:          b.Workers,
		Source: SourceConfig{
			URL:        catalog.DefaultVizieRURL,
			Catalog:    catalog.SAOCatalog,
			Retries:    catalog.DefaultRetries,
			Timeout:    catalog.DefaultTimeout,
			TimeoutRaw: catalog.DefaultTimeout.String(),
		},
		Target: TargetConfig{
			URL:        catalog.DefaultGaiaTAPURL,
			Table:      catalog.DefaultGaiaTable,
			Retries:    catalog.DefaultRetries,
			Timeout:    catalog.DefaultTimeout,
			TimeoutRaw: catalog.DefaultTimeout.String(),
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads a configuration file on top of the defaults.
// The format is chosen by extension: .yaml, .yml or .toml.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case ".toml":
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (want .yaml, .yml or .toml)", ext)
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadEnvFile loads variables from a .env file into the process
// environment. A missing file is not an error. Existing variables win.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv applies endpoint overrides from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvVizieRURL); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv(EnvGaiaTAPURL); v != "" {
		c.Target.URL = v
	}
}

// expandEnvVars replaces ${VAR} with environment variable values.
// Unset variables expand to the empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"pause_duration", cfg.PauseDurationRaw, &cfg.PauseDuration},
		{"source.timeout", cfg.Source.TimeoutRaw, &cfg.Source.Timeout},
		{"target.timeout", cfg.Target.TimeoutRaw, &cfg.Target.Timeout},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		if d < 0 {
			return fmt.Errorf("parsing %s %q: must not be negative", f.name, f.raw)
		}
		*f.dst = d
	}
	return nil
}

// Validate checks the configuration against the embedded CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compiling config schema: %w", err)
	}

	value := ctx.Encode(c.document())
	if err := value.Err(); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Config")).Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// document returns the config keyed by its file names.
func (c *Config) document() map[string]any {
	return map[string]any{
		"output":              c.Output,
		"max_magnitude":       c.MaxMagnitude,
		"radius_arcsec":       c.RadiusArcsec,
		"selection":           c.Selection,
		"batch_size":          c.BatchSize,
		"pause_every":         c.PauseEvery,
		"pause_duration":      c.PauseDuration.String(),
		"progress_every":      c.ProgressEvery,
		"workers":             c.Workers,
		"requests_per_second": c.RequestsPerSecond,
		"limit":               c.Limit,
		"source": map[string]any{
			"url":     c.Source.URL,
			"catalog": c.Source.Catalog,
			"timeout": c.Source.Timeout.String(),
			"retries": c.Source.Retries,
		},
		"target": map[string]any{
			"url":     c.Target.URL,
			"table":   c.Target.Table,
			"timeout": c.Target.Timeout.String(),
			"retries": c.Target.Retries,
		},
		"logging": map[string]any{
			"level":  c.Logging.Level,
			"format": c.Logging.Format,
		},
	}
}

// Builder converts the settings into a build configuration.
func (c *Config) Builder() (builder.Config, error) {
	sel, err := xmatch.ParseSelection(c.Selection)
	if err != nil {
		return builder.Config{}, err
	}
	return builder.Config{
		Output:            c.Output,
		MaxMagnitude:      c.MaxMagnitude,
		SourceCatalog:     c.Source.Catalog,
		TargetCatalog:     c.Target.Table,
		RadiusArcsec:      c.RadiusArcsec,
		Selection:         sel,
		BatchSize:         c.BatchSize,
		PauseEvery:        c.PauseEvery,
		PauseDuration:     c.PauseDuration,
		ProgressEvery:     c.ProgressEvery,
		Workers:           c.Workers,
		RequestsPerSecond: c.RequestsPerSecond,
		Limit:             c.Limit,
	}, nil
}

// Catalogs builds the source and target adapters described by c.
func (c *Config) Catalogs(logger *slog.Logger) catalog.Composite {
	if logger == nil {
		logger = slog.Default()
	}

	src := catalog.NewHTTPClient("vizier")
	src.Timeout = c.Source.Timeout
	src.Retries = c.Source.Retries
	src.Logger = logger

	tgt := catalog.NewHTTPClient("gaia")
	tgt.Timeout = c.Target.Timeout
	tgt.Retries = c.Target.Retries
	tgt.Logger = logger

	vizier := catalog.NewVizieR(c.Source.URL, src)
	vizier.Logger = logger

	return catalog.Composite{
		SourceCatalog: vizier,
		TargetCatalog: catalog.NewGaiaTAP(c.Target.URL, c.Target.Table, tgt),
	}
}
