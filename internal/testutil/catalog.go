package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/roach88/xmatch/internal/catalog"
)

// Point is a sky position used to key stubbed cone searches.
type Point struct {
	RA, Dec float64
}

// StubCatalog is an in-memory catalog.Source.
//
// Cone searches are answered from Cones by exact center position; an
// unknown center returns no candidates. Errors in ConeErrs take priority.
type StubCatalog struct {
	Entries  []catalog.SourceEntry
	Skipped  []*catalog.MalformedEntryError
	FetchErr error

	Cones    map[Point][]catalog.Candidate
	ConeErrs map[Point]error

	// OnCone runs before each cone search is answered.
	OnCone func(ctx context.Context, p Point)

	mu        sync.Mutex
	coneCalls []Point
}

var _ catalog.Source = (*StubCatalog)(nil)

// FetchAllBelowMagnitude returns the configured entries filtered by maxMag.
func (s *StubCatalog) FetchAllBelowMagnitude(_ context.Context, _ string, maxMag float64) (*catalog.FetchResult, error) {
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	result := &catalog.FetchResult{Skipped: s.Skipped}
	for _, e := range s.Entries {
		if e.Magnitude < maxMag || e.Magnitude == catalog.UnknownMagnitude {
			result.Entries = append(result.Entries, e)
		}
	}
	if len(result.Entries) == 0 {
		return result, catalog.ErrEmptyResult
	}
	return result, nil
}

// ConeSearch answers from Cones and records the call.
func (s *StubCatalog) ConeSearch(ctx context.Context, ra, dec, _ float64) ([]catalog.Candidate, error) {
	p := Point{RA: ra, Dec: dec}

	s.mu.Lock()
	s.coneCalls = append(s.coneCalls, p)
	hook := s.OnCone
	s.mu.Unlock()

	if hook != nil {
		hook(ctx, p)
	}
	if err, ok := s.ConeErrs[p]; ok {
		return nil, err
	}
	return s.Cones[p], nil
}

// ConeCalls returns the centers searched so far, in call order.
func (s *StubCatalog) ConeCalls() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Point, len(s.coneCalls))
	copy(out, s.coneCalls)
	return out
}

// RecordingSleeper records requested pauses without waiting.
type RecordingSleeper struct {
	mu     sync.Mutex
	Pauses []time.Duration
}

// Sleep records d and returns ctx.Err().
func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.Pauses = append(r.Pauses, d)
	r.mu.Unlock()
	return ctx.Err()
}

// Count returns the number of recorded pauses.
func (r *RecordingSleeper) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Pauses)
}
