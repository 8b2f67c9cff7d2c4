package store

import (
	"strconv"
	"time"
)

// SchemaVersion is written to metadata as "version".
const SchemaVersion = "1.0"

// timeLayout matches SQLite's CURRENT_TIMESTAMP text format.
const timeLayout = "2006-01-02 15:04:05"

// Record is one accepted cross-match.
type Record struct {
	GaiaSourceID int64     `json:"gaia_source_id"`
	SAONumber    int64     `json:"sao_number"`
	RA           float64   `json:"ra"`
	Dec          float64   `json:"dec"`
	Magnitude    float64   `json:"magnitude"`
	Separation   float64   `json:"separation"` // arcseconds
	CreatedAt    time.Time `json:"created_at"`
}

// Metadata describes how a store was built. It is written once by Create.
type Metadata struct {
	MaxMagnitude  float64
	RunID         string
	SourceCatalog string
	TargetCatalog string
	RadiusArcsec  float64
	Selection     string
}

// pairs returns the metadata rows to insert, version and created first.
func (m Metadata) pairs(created time.Time) [][2]string {
	out := [][2]string{
		{"version", SchemaVersion},
		{"created", created.UTC().Format(timeLayout)},
		{"max_magnitude", strconv.FormatFloat(m.MaxMagnitude, 'f', -1, 64)},
	}
	optional := [][2]string{
		{"run_id", m.RunID},
		{"source_catalog", m.SourceCatalog},
		{"target_catalog", m.TargetCatalog},
		{"selection", m.Selection},
	}
	if m.RadiusArcsec > 0 {
		optional = append(optional, [2]string{"radius_arcsec", strconv.FormatFloat(m.RadiusArcsec, 'f', -1, 64)})
	}
	for _, kv := range optional {
		if kv[1] != "" {
			out = append(out, kv)
		}
	}
	return out
}
