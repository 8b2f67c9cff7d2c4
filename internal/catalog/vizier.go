package catalog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
)

// VizieR defaults.
const (
	DefaultVizieRURL = "https://vizier.cds.unistra.fr/viz-bin/asu-tsv"
	SAOCatalog       = "I/131A/sao"
)

// Column names requested from VizieR.
const (
	colSAO  = "SAO"
	colRA   = "_RAJ2000"
	colDec  = "_DEJ2000"
	colVmag = "Vmag"
)

// VizieR fetches source catalogs through the ASU-TSV interface.
type VizieR struct {
	BaseURL string
	Client  *HTTPClient
	Logger  *slog.Logger
}

// NewVizieR creates a VizieR adapter. An empty baseURL uses DefaultVizieRURL.
func NewVizieR(baseURL string, client *HTTPClient) *VizieR {
	if baseURL == "" {
		baseURL = DefaultVizieRURL
	}
	if client == nil {
		client = NewHTTPClient("vizier")
	}
	return &VizieR{BaseURL: baseURL, Client: client, Logger: slog.Default()}
}

var _ SourceCatalog = (*VizieR)(nil)

// FetchAllBelowMagnitude downloads every row of catalogID with Vmag < maxMag.
func (v *VizieR) FetchAllBelowMagnitude(ctx context.Context, catalogID string, maxMag float64) (*FetchResult, error) {
	if catalogID == "" {
		catalogID = SAOCatalog
	}

	reqURL, err := v.queryURL(catalogID, maxMag)
	if err != nil {
		return nil, fmt.Errorf("vizier fetch: %w", err)
	}

	body, err := v.Client.Get(ctx, reqURL)
	if err != nil {
		return nil, fmt.Errorf("vizier fetch %s: %w", catalogID, err)
	}

	result, err := ParseASUTSV(body)
	if err != nil {
		return nil, fmt.Errorf("vizier fetch %s: %w", catalogID, err)
	}

	log := v.Logger
	if log == nil {
		log = slog.Default()
	}
	for _, skipped := range result.Skipped {
		log.Warn("skipping malformed catalog row", "catalog", catalogID, "error", skipped)
	}

	if len(result.Entries) == 0 {
		return result, fmt.Errorf("vizier fetch %s: %w", catalogID, ErrEmptyResult)
	}
	return result, nil
}

func (v *VizieR) queryURL(catalogID string, maxMag float64) (string, error) {
	u, err := url.Parse(v.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("-source", catalogID)
	q.Set("-out", colSAO+","+colVmag)
	q.Set("-out.add", "_RAJ,_DEJ")
	q.Set("-oc.form", "dec")
	q.Set("-out.max", "unlimited")
	q.Set(colVmag, "<"+strconv.FormatFloat(maxMag, 'f', -1, 64))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ParseASUTSV parses a VizieR ASU-TSV body.
//
// The body is a block of '#' comment lines followed by one or more tables.
// Each table is a header row, a units row, a row of dashes and data rows.
// Tables are separated by blank lines.
func ParseASUTSV(body []byte) (*FetchResult, error) {
	result := &FetchResult{}

	const (
		wantHeader = iota
		wantUnits
		wantDashes
		inData
	)

	state := wantHeader
	var cols map[string]int

	sc := bufio.NewScanner(bytes.NewReader(body))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")

		if strings.HasPrefix(text, "#") {
			continue
		}
		if strings.TrimSpace(text) == "" {
			if state == inData {
				state = wantHeader
			}
			continue
		}

		switch state {
		case wantHeader:
			cols = indexColumns(strings.Split(text, "\t"))
			for _, name := range []string{colSAO, colRA, colDec} {
				if _, ok := cols[name]; !ok {
					return nil, fmt.Errorf("line %d: missing column %s", line, name)
				}
			}
			state = wantUnits
		case wantUnits:
			state = wantDashes
		case wantDashes:
			if !strings.HasPrefix(strings.TrimSpace(text), "-") {
				return nil, fmt.Errorf("line %d: expected separator row", line)
			}
			state = inData
		case inData:
			entry, malformed := parseSAORow(strings.Split(text, "\t"), cols, line)
			if malformed != nil {
				result.Skipped = append(result.Skipped, malformed)
				continue
			}
			result.Entries = append(result.Entries, entry)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan body: %w", err)
	}

	return result, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	return cols
}

func parseSAORow(fields []string, cols map[string]int, line int) (SourceEntry, *MalformedEntryError) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	var entry SourceEntry

	raw := get(colSAO)
	if raw == "" {
		return entry, &MalformedEntryError{Line: line, Field: colSAO, Reason: "missing"}
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return entry, &MalformedEntryError{Line: line, Field: colSAO, Reason: err.Error()}
	}
	entry.ID = id

	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{colRA, &entry.RA},
		{colDec, &entry.Dec},
	} {
		raw := get(f.name)
		if raw == "" {
			return entry, &MalformedEntryError{Line: line, Field: f.name, Reason: "missing"}
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return entry, &MalformedEntryError{Line: line, Field: f.name, Reason: err.Error()}
		}
		*f.dst = v
	}

	entry.Magnitude = UnknownMagnitude
	if raw := get(colVmag); raw != "" {
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			entry.Magnitude = v
		}
	}

	return entry, nil
}
