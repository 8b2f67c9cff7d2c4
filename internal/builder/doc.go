// Package builder runs a complete cross-match build.
//
// A build moves through a fixed sequence of states:
//
//	Created → StoreReady → CatalogFetched → CrossMatching → Indexed → Compacted → Done
//
// Any step may end the run in Failed. Which failures are fatal:
//   - store creation: nothing to write to, the run stops before fetching
//   - source fetch, including an empty result: nothing to match
//   - cancellation during matching: buffered records are flushed first
//   - a failed store write: no new entries are dispatched, in-flight ones
//     are counted, and the kept batch gets one more flush attempt
//   - indexing or compaction: reported, the populated file is kept
//
// Individual entries never fail the run. A cone search that errors or finds
// nothing increments the failed counter and matching continues.
//
// # Pacing
//
// The remote target catalog has a request budget. The builder pauses for
// PauseDuration after every PauseEvery dispatched entries, once all of them
// have returned, and can also hold a token bucket of RequestsPerSecond. Both are global: with Workers > 1 all
// workers share the same pacer and limiter.
//
// # Ordering
//
// Workers may finish out of order. Outcomes are re-sequenced into source
// order before a single goroutine hands them to the store writer, so the
// last-write-wins upsert is deterministic for any worker count.
package builder
