package testutil

// FixedRunID generates the same run identifier every time.
//
// Builds stamp their run identifier into store metadata and summaries.
// A fixed value keeps golden output byte-identical between test runs.
//
// Thread-safety: FixedRunID is stateless and safe for concurrent use.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a fixed run ID generator.
// If id is empty, Generate returns "test-run-default".
func NewFixedRunID(id string) *FixedRunID {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunID{id: id}
}

// Generate returns the fixed run ID.
func (g *FixedRunID) Generate() string {
	return g.id
}
