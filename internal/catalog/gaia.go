package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Gaia archive defaults.
const (
	DefaultGaiaTAPURL   = "https://gea.esac.esa.int/tap-server/tap"
	DefaultGaiaTable    = "gaiadr3.gaia_source"
	DefaultMaxCandidate = 50
)

// GaiaTAP runs cone searches against the Gaia archive TAP service.
type GaiaTAP struct {
	BaseURL       string
	Table         string
	MaxCandidates int
	Client        *HTTPClient
}

// NewGaiaTAP creates a Gaia adapter. Empty arguments take defaults.
func NewGaiaTAP(baseURL, table string, client *HTTPClient) *GaiaTAP {
	if baseURL == "" {
		baseURL = DefaultGaiaTAPURL
	}
	if table == "" {
		table = DefaultGaiaTable
	}
	if client == nil {
		client = NewHTTPClient("gaia")
	}
	return &GaiaTAP{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		Table:         table,
		MaxCandidates: DefaultMaxCandidate,
		Client:        client,
	}
}

var _ TargetCatalog = (*GaiaTAP)(nil)

// ConeSearch returns Gaia sources within radiusArcsec of (ra, dec).
func (g *GaiaTAP) ConeSearch(ctx context.Context, ra, dec, radiusArcsec float64) ([]Candidate, error) {
	body, err := g.Client.Get(ctx, g.queryURL(ra, dec, radiusArcsec))
	if err != nil {
		return nil, fmt.Errorf("gaia cone search: %w", err)
	}

	candidates, err := ParseTAPJSON(body)
	if err != nil {
		// A body we cannot read is as useless as no answer.
		return nil, fmt.Errorf("gaia cone search: %w", &ServiceError{Service: "gaia", Attempts: 1, Err: err})
	}
	return candidates, nil
}

// ADQL builds the cone query for (ra, dec, radiusArcsec).
// Rows come back nearest first, so TOP never drops a closer candidate.
func (g *GaiaTAP) ADQL(ra, dec, radiusArcsec float64) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if g.MaxCandidates > 0 {
		fmt.Fprintf(&b, "TOP %d ", g.MaxCandidates)
	}
	fmt.Fprintf(&b, "source_id, ra, dec, DISTANCE(POINT('ICRS', ra, dec), POINT('ICRS', %.8f, %.8f)) AS dist", ra, dec)
	fmt.Fprintf(&b, " FROM %s WHERE 1=CONTAINS(POINT('ICRS', ra, dec), CIRCLE('ICRS', %.8f, %.8f, %.10f))",
		g.Table, ra, dec, radiusArcsec/3600.0)
	b.WriteString(" ORDER BY dist ASC")
	return b.String()
}

func (g *GaiaTAP) queryURL(ra, dec, radiusArcsec float64) string {
	q := url.Values{}
	q.Set("REQUEST", "doQuery")
	q.Set("LANG", "ADQL")
	q.Set("FORMAT", "json")
	q.Set("QUERY", g.ADQL(ra, dec, radiusArcsec))
	return g.BaseURL + "/sync?" + q.Encode()
}

// tapResponse is the archive's JSON output format.
type tapResponse struct {
	Metadata []struct {
		Name     string `json:"name"`
		Datatype string `json:"datatype"`
	} `json:"metadata"`
	Data [][]any `json:"data"`
}

// ParseTAPJSON decodes a TAP JSON result with source_id, ra and dec columns.
// Rows with null coordinates are dropped.
func ParseTAPJSON(body []byte) ([]Candidate, error) {
	var resp tapResponse
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode tap json: %w", err)
	}

	idCol, raCol, decCol := -1, -1, -1
	for i, m := range resp.Metadata {
		switch strings.ToLower(m.Name) {
		case "source_id":
			idCol = i
		case "ra":
			raCol = i
		case "dec":
			decCol = i
		}
	}
	if idCol < 0 || raCol < 0 || decCol < 0 {
		return nil, fmt.Errorf("decode tap json: missing source_id/ra/dec columns")
	}

	out := make([]Candidate, 0, len(resp.Data))
	for i, row := range resp.Data {
		if len(row) <= max(idCol, raCol, decCol) {
			return nil, fmt.Errorf("decode tap json: row %d: short row", i)
		}
		id, err := jsonInt(row[idCol])
		if err != nil {
			return nil, fmt.Errorf("decode tap json: row %d: source_id: %w", i, err)
		}
		ra, okRA := jsonFloat(row[raCol])
		de, okDec := jsonFloat(row[decCol])
		if !okRA || !okDec {
			continue
		}
		out = append(out, Candidate{ID: id, RA: ra, Dec: de})
	}
	return out, nil
}

func jsonInt(v any) (int64, error) {
	switch n := v.(type) {
	case json.Number:
		return strconv.ParseInt(n.String(), 10, 64)
	case string:
		return strconv.ParseInt(n, 10, 64)
	case nil:
		return 0, fmt.Errorf("null")
	}
	return 0, fmt.Errorf("unexpected type %T", v)
}

func jsonFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}
