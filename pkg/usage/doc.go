// Package usage persists day-bucketed consumption counters for
// rate-measured resources (widget requests, QR scans).
//
// Counters are keyed by (kind, tenant, calendar day) where the day is the
// UTC date in YYYY-MM-DD form. Buckets are created lazily on the first
// increment of a day; a missing bucket always reads as zero. The store
// never deletes rows; pruning old days is left to an external retention
// job.
//
// The one correctness-critical point is Increment: it must be a single
// atomic create-or-increment at the storage layer. PGStore implements it
// as one INSERT ... ON CONFLICT DO UPDATE ... RETURNING statement;
// MemStore holds a mutex across the map update. An application-level
// read-then-write would lose updates under concurrent requests for the
// same tenant and day, which is exactly where limit enforcement could be
// bypassed under burst traffic.
package usage
