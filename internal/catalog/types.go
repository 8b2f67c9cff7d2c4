package catalog

import "context"

// UnknownMagnitude is substituted when the source catalog has no magnitude.
const UnknownMagnitude = 99.0

// SourceEntry is one star of the source catalog.
type SourceEntry struct {
	ID        int64   `json:"id"`
	RA        float64 `json:"ra"`  // degrees [0,360)
	Dec       float64 `json:"dec"` // degrees [-90,90]
	Magnitude float64 `json:"magnitude"`
}

// Candidate is one point returned by a cone search.
type Candidate struct {
	ID  int64   `json:"id"`
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

// FetchResult is the outcome of a full catalog fetch.
// Skipped holds rows that were dropped because a required field was missing.
type FetchResult struct {
	Entries []SourceEntry
	Skipped []*MalformedEntryError
}

// SourceCatalog lists the entries of a catalog below a magnitude limit.
type SourceCatalog interface {
	// FetchAllBelowMagnitude returns ErrEmptyResult when no rows come back.
	FetchAllBelowMagnitude(ctx context.Context, catalogID string, maxMag float64) (*FetchResult, error)
}

// TargetCatalog answers cone searches.
type TargetCatalog interface {
	// ConeSearch returns candidates within radiusArcsec of (ra, dec), in no
	// particular order. Zero candidates is not an error.
	ConeSearch(ctx context.Context, ra, dec, radiusArcsec float64) ([]Candidate, error)
}

// Source is both halves of a cross-match.
type Source interface {
	SourceCatalog
	TargetCatalog
}

// Composite pairs a SourceCatalog with a TargetCatalog.
type Composite struct {
	SourceCatalog
	TargetCatalog
}

var _ Source = Composite{}
