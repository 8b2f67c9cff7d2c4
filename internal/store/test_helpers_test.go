package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

var testNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// createTestStore creates a fresh store in a temp dir with a frozen clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Create(context.Background(), path, Metadata{MaxMagnitude: 9.0})
	if err != nil {
		t.Fatalf("Create() failed: %v", err)
	}
	s.Now = func() time.Time { return testNow }
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record with fixed magnitude and separation.
func createTestRecord(gaiaID, sao int64, ra, dec float64) Record {
	return Record{
		GaiaSourceID: gaiaID,
		SAONumber:    sao,
		RA:           ra,
		Dec:          dec,
		Magnitude:    8.0,
		Separation:   0.5,
	}
}

// countRows returns the number of rows in gaia_sao_xmatch.
func countRows(t *testing.T, s *Store) int64 {
	t.Helper()
	n, err := s.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() failed: %v", err)
	}
	return n
}
