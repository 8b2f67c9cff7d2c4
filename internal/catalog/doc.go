// Package catalog adapts the remote star catalogs used by the cross-match.
//
// Two capabilities are consumed:
//   - SourceCatalog: fetch every entry of a catalog below a magnitude limit
//     (SAO via the VizieR ASU-TSV interface)
//   - TargetCatalog: cone search around a coordinate (Gaia DR3 via the
//     archive's synchronous TAP endpoint)
//
// The two services answer in different shapes (tab separated text with a
// header block, and TAP JSON with column metadata). Both are mapped into
// SourceEntry and Candidate values and into one error taxonomy:
//
//   - ErrServiceUnavailable: transport failure, timeout or error status
//   - ErrEmptyResult: a catalog fetch returned zero rows
//   - ErrMalformedEntry: a row lacks a required field (skipped, reported)
//
// Retries belong to HTTPClient. Callers above this package never retry.
//
// Cone search results carry no ordering guarantee.
package catalog
