// Package xmatch pairs source catalog entries with target catalog counterparts.
//
// A Matcher issues one cone search per entry and turns the response into an
// Outcome. Failures never escape as errors: an unreachable service, an empty
// cone or an unusable entry all become an Outcome with a Reason, so one bad
// entry cannot stop a batch.
//
// Candidate selection is a policy:
//   - SelectFirst takes the first candidate the service returned. The
//     service does not promise nearest-first order, so this is a positional
//     approximation kept for parity with catalogs built the same way.
//   - SelectNearest recomputes every separation and takes the minimum,
//     breaking ties on the lower identifier.
//
// Either way the recorded separation is recomputed from the coordinates.
package xmatch
