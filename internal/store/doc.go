// Package store provides the SQLite file that holds the Gaia/SAO cross-match.
//
// The file is the shareable artifact of a build. It has two tables:
//   - gaia_sao_xmatch: one row per Gaia source, keyed by gaia_source_id
//   - metadata: key/value pairs written once when the file is created
//
// # Lifecycle
//
// Create always starts from an empty file: an existing file at the path is
// deleted first, never merged. A Writer buffers records and flushes them in
// bounded transactions. After the last flush the builder calls BuildIndices
// and then Compact. Open reopens a finished file for lookups.
//
// # Write semantics
//
// Flush uses INSERT ... ON CONFLICT(gaia_source_id) DO UPDATE, so a later
// record for the same Gaia source replaces the earlier one (last write wins).
// Each flush is one transaction; a failed flush leaves the buffer intact.
//
// # Database Configuration
//
//   - journal_mode=DELETE: no -wal sidecar, the artifact is one file
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - single connection: the builder is the only writer
package store
