package builder

import (
	"time"

	"github.com/roach88/xmatch/internal/catalog"
	"github.com/roach88/xmatch/internal/store"
	"github.com/roach88/xmatch/internal/xmatch"
)

// Defaults for a build.
const (
	DefaultOutput        = "gaia_sao_xmatch.db"
	DefaultMaxMagnitude  = 9.0
	DefaultPauseEvery    = 50
	DefaultPauseDuration = time.Second
	DefaultProgressEvery = 100
	DefaultWorkers       = 1
	TestModeLimit        = 100
)

// Config holds the parameters of one build.
type Config struct {
	Output       string
	MaxMagnitude float64

	// SourceCatalog is passed to the source adapter; TargetCatalog is only
	// recorded in metadata.
	SourceCatalog string
	TargetCatalog string

	RadiusArcsec float64
	Selection    xmatch.Selection

	BatchSize     int
	PauseEvery    int
	PauseDuration time.Duration
	ProgressEvery int

	Workers           int
	RequestsPerSecond float64

	// Limit caps the number of entries matched. Zero means no cap.
	Limit int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Output:        DefaultOutput,
		MaxMagnitude:  DefaultMaxMagnitude,
		SourceCatalog: catalog.SAOCatalog,
		TargetCatalog: catalog.DefaultGaiaTable,
		RadiusArcsec:  xmatch.DefaultRadiusArcsec,
		Selection:     xmatch.SelectFirst,
		BatchSize:     store.DefaultBatchSize,
		PauseEvery:    DefaultPauseEvery,
		PauseDuration: DefaultPauseDuration,
		ProgressEvery: DefaultProgressEvery,
		Workers:       DefaultWorkers,
	}
}

// withDefaults fills zero values so a partially populated Config is usable.
// MaxMagnitude is kept as given since zero is a real limit. PauseDuration of
// zero is kept too: it disables pacing.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Output == "" {
		c.Output = d.Output
	}
	if c.SourceCatalog == "" {
		c.SourceCatalog = d.SourceCatalog
	}
	if c.TargetCatalog == "" {
		c.TargetCatalog = d.TargetCatalog
	}
	if c.RadiusArcsec <= 0 {
		c.RadiusArcsec = d.RadiusArcsec
	}
	if c.Selection == "" {
		c.Selection = d.Selection
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.PauseEvery <= 0 {
		c.PauseEvery = d.PauseEvery
	}
	if c.ProgressEvery <= 0 {
		c.ProgressEvery = d.ProgressEvery
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}
