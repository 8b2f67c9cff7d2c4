package xmatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/roach88/xmatch/internal/catalog"
	"github.com/roach88/xmatch/internal/sky"
)

// DefaultRadiusArcsec is the cone radius used when none is configured.
const DefaultRadiusArcsec = 5.0

// Selection chooses one candidate out of a cone search response.
type Selection string

const (
	// SelectFirst takes the first candidate in service order.
	SelectFirst Selection = "first"

	// SelectNearest takes the candidate with the smallest separation.
	SelectNearest Selection = "nearest"
)

// ParseSelection validates a selection name.
func ParseSelection(s string) (Selection, error) {
	switch Selection(s) {
	case SelectFirst, SelectNearest:
		return Selection(s), nil
	case "":
		return SelectFirst, nil
	}
	return "", fmt.Errorf("unknown selection %q: must be %q or %q", s, SelectFirst, SelectNearest)
}

// Reason explains why an entry produced no match.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonNoCandidates Reason = "no_candidates"
	ReasonServiceError Reason = "service_error"
	ReasonInvalidEntry Reason = "invalid_entry"
	ReasonCanceled     Reason = "canceled"
)

// Match is an accepted pairing of a source entry and a target candidate.
type Match struct {
	TargetID   int64
	SourceID   int64
	RA         float64 // source position, degrees
	Dec        float64
	Magnitude  float64
	Separation float64 // arcseconds
	Candidates int     // size of the cone response
}

// Outcome is the typed result of matching one entry.
// Exactly one of Match and Reason is set.
type Outcome struct {
	Entry  catalog.SourceEntry
	Match  *Match
	Reason Reason
	Err    error // underlying failure for ReasonServiceError and ReasonCanceled
}

// Matched reports whether the entry found a counterpart.
func (o Outcome) Matched() bool {
	return o.Match != nil
}

// Matcher performs cone-search cross-matching against a target catalog.
type Matcher struct {
	target    catalog.TargetCatalog
	radius    float64
	selection Selection
	logger    *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithRadius sets the cone radius in arcseconds.
func WithRadius(arcsec float64) Option {
	return func(m *Matcher) {
		if arcsec > 0 {
			m.radius = arcsec
		}
	}
}

// WithSelection sets the candidate selection policy.
func WithSelection(s Selection) Option {
	return func(m *Matcher) {
		if s != "" {
			m.selection = s
		}
	}
}

// WithLogger sets the logger used for per-entry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(m *Matcher) {
		if l != nil {
			m.logger = l
		}
	}
}

// New creates a Matcher over target.
func New(target catalog.TargetCatalog, opts ...Option) *Matcher {
	m := &Matcher{
		target:    target,
		radius:    DefaultRadiusArcsec,
		selection: SelectFirst,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Radius returns the configured cone radius in arcseconds.
func (m *Matcher) Radius() float64 { return m.radius }

// Selection returns the configured selection policy.
func (m *Matcher) Selection() Selection { return m.selection }

// Match looks up entry in the target catalog. It never returns an error;
// failures are reported through Outcome.Reason.
func (m *Matcher) Match(ctx context.Context, entry catalog.SourceEntry) Outcome {
	out := Outcome{Entry: entry}

	if !sky.Valid(entry.RA, entry.Dec) {
		out.Reason = ReasonInvalidEntry
		out.Err = fmt.Errorf("source %d: coordinates (%v, %v) out of range: %w",
			entry.ID, entry.RA, entry.Dec, catalog.ErrMalformedEntry)
		return out
	}

	start := time.Now()
	candidates, err := m.target.ConeSearch(ctx, entry.RA, entry.Dec, m.radius)
	if err != nil {
		out.Err = err
		out.Reason = ReasonServiceError
		if errors.Is(err, context.Canceled) {
			out.Reason = ReasonCanceled
		}
		m.logger.Debug("cone search failed", "source_id", entry.ID, "error", err)
		return out
	}

	best, ok := m.pick(entry, candidates)
	if !ok {
		out.Reason = ReasonNoCandidates
		return out
	}

	out.Match = &Match{
		TargetID:   best.ID,
		SourceID:   entry.ID,
		RA:         entry.RA,
		Dec:        entry.Dec,
		Magnitude:  entry.Magnitude,
		Separation: sky.Separation(entry.RA, entry.Dec, best.RA, best.Dec),
		Candidates: len(candidates),
	}
	m.logger.Debug("matched",
		"source_id", entry.ID, "target_id", best.ID,
		"separation_arcsec", out.Match.Separation, "candidates", len(candidates),
		"elapsed", time.Since(start))
	return out
}

func (m *Matcher) pick(entry catalog.SourceEntry, candidates []catalog.Candidate) (catalog.Candidate, bool) {
	if len(candidates) == 0 {
		return catalog.Candidate{}, false
	}
	if m.selection != SelectNearest {
		return candidates[0], true
	}

	best := candidates[0]
	bestSep := math.Inf(1)
	for _, c := range candidates {
		sep := sky.Separation(entry.RA, entry.Dec, c.RA, c.Dec)
		if sep < bestSep || (sep == bestSep && c.ID < best.ID) {
			best, bestSep = c, sep
		}
	}
	return best, true
}
