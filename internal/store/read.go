package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/roach88/xmatch/internal/sky"
)

const selectRecord = `SELECT gaia_source_id, sao_number, ra, dec, magnitude, separation, created_at FROM gaia_sao_xmatch`

// Get returns the record for a Gaia source. Returns ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, gaiaSourceID int64) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE gaia_source_id = ? LIMIT 1`, gaiaSourceID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("gaia %d: %w", gaiaSourceID, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get gaia %d: %w", gaiaSourceID, err)
	}
	return rec, nil
}

// FindSAOByGaiaID returns the SAO number matched to a Gaia source.
func (s *Store) FindSAOByGaiaID(ctx context.Context, gaiaSourceID int64) (int64, error) {
	rec, err := s.Get(ctx, gaiaSourceID)
	if err != nil {
		return 0, err
	}
	return rec.SAONumber, nil
}

// FindBySAO returns every Gaia record matched to an SAO star, nearest first.
// Returns an empty slice (not nil) if none exist.
func (s *Store) FindBySAO(ctx context.Context, saoNumber int64) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+`
		WHERE sao_number = ?
		ORDER BY separation ASC, gaia_source_id ASC
	`, saoNumber)
	if err != nil {
		return nil, fmt.Errorf("find sao %d: %w", saoNumber, err)
	}
	return collect(rows)
}

// ConeSearch returns records within radiusDeg of (ra, dec), brightest first.
// A bounding box narrows the scan through the ra/dec indices; the exact
// great-circle distance decides membership. limit <= 0 means no limit.
func (s *Store) ConeSearch(ctx context.Context, ra, dec, radiusDeg float64, limit int) ([]Record, error) {
	where, args := coneBounds(ra, dec, radiusDeg)
	rows, err := s.db.QueryContext(ctx, selectRecord+` WHERE `+where+` ORDER BY magnitude ASC, gaia_source_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("cone search: %w", err)
	}
	candidates, err := collect(rows)
	if err != nil {
		return nil, fmt.Errorf("cone search: %w", err)
	}

	radiusArcsec := radiusDeg * sky.ArcsecPerDegree
	out := make([]Record, 0, len(candidates))
	for _, rec := range candidates {
		if sky.Separation(ra, dec, rec.RA, rec.Dec) <= radiusArcsec {
			out = append(out, rec)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// NearestSAO returns the record closest to (ra, dec) within radiusArcsec.
// Returns ErrNotFound when the cone is empty.
func (s *Store) NearestSAO(ctx context.Context, ra, dec, radiusArcsec float64) (Record, error) {
	recs, err := s.ConeSearch(ctx, ra, dec, radiusArcsec/sky.ArcsecPerDegree, 0)
	if err != nil {
		return Record{}, err
	}
	if len(recs) == 0 {
		return Record{}, fmt.Errorf("nearest to (%g, %g): %w", ra, dec, ErrNotFound)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return sky.Separation(ra, dec, recs[i].RA, recs[i].Dec) < sky.Separation(ra, dec, recs[j].RA, recs[j].Dec)
	})
	return recs[0], nil
}

// coneBounds builds the bounding-box predicate for a cone, splitting the RA
// range when it crosses 0/360 and dropping it when the cone covers a pole.
func coneBounds(ra, dec, radiusDeg float64) (string, []any) {
	decMin := math.Max(-90, dec-radiusDeg)
	decMax := math.Min(90, dec+radiusDeg)
	clauses := []string{"dec BETWEEN ? AND ?"}
	args := []any{decMin, decMax}

	if decMin <= -90 || decMax >= 90 {
		return strings.Join(clauses, " AND "), args
	}

	cosDec := math.Cos(math.Max(math.Abs(decMin), math.Abs(decMax)) * math.Pi / 180)
	span := radiusDeg / cosDec
	if span >= 180 {
		return strings.Join(clauses, " AND "), args
	}

	raMin, raMax := ra-span, ra+span
	switch {
	case raMin < 0:
		clauses = append(clauses, "(ra >= ? OR ra <= ?)")
		args = append(args, raMin+360, raMax)
	case raMax >= 360:
		clauses = append(clauses, "(ra >= ? OR ra <= ?)")
		args = append(args, raMin, raMax-360)
	default:
		clauses = append(clauses, "ra BETWEEN ? AND ?")
		args = append(args, raMin, raMax)
	}
	return strings.Join(clauses, " AND "), args
}

// Count returns the number of records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM gaia_sao_xmatch`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// Stats summarizes the store contents.
// Aggregates are zero when the store is empty.
type Stats struct {
	Count         int64   `json:"count"`
	MinMagnitude  float64 `json:"min_magnitude"`
	MaxMagnitude  float64 `json:"max_magnitude"`
	AvgMagnitude  float64 `json:"avg_magnitude"`
	AvgSeparation float64 `json:"avg_separation_arcsec"`
	MaxSeparation float64 `json:"max_separation_arcsec"`
	SizeBytes     int64   `json:"size_bytes"`
}

// Stats computes counts, magnitude range and separation statistics.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var minMag, maxMag, avgMag, avgSep, maxSep sql.NullFloat64

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), MIN(magnitude), MAX(magnitude), AVG(magnitude), AVG(separation), MAX(separation)
		FROM gaia_sao_xmatch
	`).Scan(&st.Count, &minMag, &maxMag, &avgMag, &avgSep, &maxSep)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	st.MinMagnitude = minMag.Float64
	st.MaxMagnitude = maxMag.Float64
	st.AvgMagnitude = avgMag.Float64
	st.AvgSeparation = avgSep.Float64
	st.MaxSeparation = maxSep.Float64

	err = s.db.QueryRowContext(ctx, `
		SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()
	`).Scan(&st.SizeBytes)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: size: %w", err)
	}
	return st, nil
}

// Metadata returns every metadata key/value pair.
func (s *Store) Metadata(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM metadata ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k string
		var v sql.NullString
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan metadata: %w", err)
		}
		out[k] = v.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate metadata: %w", err)
	}
	return out, nil
}

// VerifyIntegrity runs SQLite's integrity check.
func (s *Store) VerifyIntegrity(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `PRAGMA integrity_check`)
	if err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	defer rows.Close()

	var problems []string
	for rows.Next() {
		var msg string
		if err := rows.Scan(&msg); err != nil {
			return fmt.Errorf("integrity check: %w", err)
		}
		if msg != "ok" {
			problems = append(problems, msg)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if len(problems) > 0 {
		return fmt.Errorf("integrity check: %s", strings.Join(problems, "; "))
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(r rowScanner) (Record, error) {
	var rec Record
	var mag, sep sql.NullFloat64
	var created sql.NullString
	if err := r.Scan(&rec.GaiaSourceID, &rec.SAONumber, &rec.RA, &rec.Dec, &mag, &sep, &created); err != nil {
		return Record{}, err
	}
	rec.Magnitude = mag.Float64
	rec.Separation = sep.Float64
	if created.Valid {
		if t, err := time.ParseInLocation(timeLayout, created.String, time.UTC); err == nil {
			rec.CreatedAt = t
		}
	}
	return rec, nil
}

func collect(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}
