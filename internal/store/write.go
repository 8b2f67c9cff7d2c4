package store

import (
	"context"
	"fmt"
)

// DefaultBatchSize is the number of records buffered before an automatic flush.
const DefaultBatchSize = 100

// Writer buffers records and writes them to a Store in batches.
// A Writer is not safe for concurrent use.
type Writer struct {
	store     *Store
	batchSize int
	buf       []Record

	flushed int // rows written across all batches
	batches int
}

// NewWriter creates a Writer. A batchSize below 1 uses DefaultBatchSize.
func NewWriter(s *Store, batchSize int) *Writer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Writer{
		store:     s,
		batchSize: batchSize,
		buf:       make([]Record, 0, batchSize),
	}
}

// Append buffers rec and flushes once the buffer reaches the batch size.
func (w *Writer) Append(ctx context.Context, rec Record) error {
	w.buf = append(w.buf, rec)
	if len(w.buf) >= w.batchSize {
		return w.Flush(ctx)
	}
	return nil
}

// Flush writes every buffered record in one transaction and clears the buffer.
//
// Uses ON CONFLICT(gaia_source_id) DO UPDATE so the last record for a Gaia
// source wins. On error the transaction is rolled back and the buffer is
// kept so the caller may retry.
func (w *Writer) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}

	tx, err := w.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("flush batch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO gaia_sao_xmatch
		(gaia_source_id, sao_number, ra, dec, magnitude, separation, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(gaia_source_id) DO UPDATE SET
			sao_number = excluded.sao_number,
			ra = excluded.ra,
			dec = excluded.dec,
			magnitude = excluded.magnitude,
			separation = excluded.separation,
			created_at = excluded.created_at
	`)
	if err != nil {
		return fmt.Errorf("flush batch: prepare: %w", err)
	}
	defer stmt.Close()

	now := w.store.now()
	for _, rec := range w.buf {
		created := rec.CreatedAt
		if created.IsZero() {
			created = now
		}
		_, err := stmt.ExecContext(ctx,
			rec.GaiaSourceID,
			rec.SAONumber,
			rec.RA,
			rec.Dec,
			rec.Magnitude,
			rec.Separation,
			created.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("flush batch: insert gaia %d: %w", rec.GaiaSourceID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("flush batch: commit: %w", err)
	}

	w.flushed += len(w.buf)
	w.batches++
	w.buf = w.buf[:0]
	return nil
}

// Buffered returns the number of records waiting for a flush.
func (w *Writer) Buffered() int {
	return len(w.buf)
}

// Flushed returns the number of records written so far. Upserts of an
// existing Gaia source count again.
func (w *Writer) Flushed() int {
	return w.flushed
}

// Batches returns the number of committed flushes.
func (w *Writer) Batches() int {
	return w.batches
}

// BatchSize returns the configured batch size.
func (w *Writer) BatchSize() int {
	return w.batchSize
}

// Index names created by BuildIndices.
var indexDDL = []struct {
	Name string
	SQL  string
}{
	{"idx_gaia_source_id", "CREATE INDEX IF NOT EXISTS idx_gaia_source_id ON gaia_sao_xmatch(gaia_source_id)"},
	{"idx_sao_number", "CREATE INDEX IF NOT EXISTS idx_sao_number ON gaia_sao_xmatch(sao_number)"},
	{"idx_ra", "CREATE INDEX IF NOT EXISTS idx_ra ON gaia_sao_xmatch(ra)"},
	{"idx_dec", "CREATE INDEX IF NOT EXISTS idx_dec ON gaia_sao_xmatch(dec)"},
	{"idx_magnitude", "CREATE INDEX IF NOT EXISTS idx_magnitude ON gaia_sao_xmatch(magnitude)"},
	{"idx_ra_dec", "CREATE INDEX IF NOT EXISTS idx_ra_dec ON gaia_sao_xmatch(ra, dec)"},
}

// IndexNames returns the names of the indices BuildIndices creates.
func IndexNames() []string {
	names := make([]string, len(indexDDL))
	for i, idx := range indexDDL {
		names[i] = idx.Name
	}
	return names
}

// BuildIndices creates the lookup indices. Safe to call more than once.
func (s *Store) BuildIndices(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("build indices: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, idx := range indexDDL {
		if _, err := tx.ExecContext(ctx, idx.SQL); err != nil {
			return fmt.Errorf("build indices: %s: %w", idx.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("build indices: commit: %w", err)
	}
	return nil
}

// Compact reclaims free pages and refreshes planner statistics.
// VACUUM rewrites the whole file, so call it once after the last flush.
func (s *Store) Compact(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return fmt.Errorf("compact: vacuum: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "ANALYZE"); err != nil {
		return fmt.Errorf("compact: analyze: %w", err)
	}
	return nil
}
