package usage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a rate-measured resource whose consumption is counted
// per tenant per calendar day.
type Kind string

const (
	KindWidgetRequests Kind = "widget_requests"
	KindQRScans        Kind = "qr_scans"
)

// dayFormat is the canonical bucket key form: a UTC date truncated to day.
const dayFormat = "2006-01-02"

// Day returns the canonical bucket key for t (UTC, YYYY-MM-DD).
func Day(t time.Time) string {
	return t.UTC().Format(dayFormat)
}

// Today returns the bucket key for the current calendar day.
func Today() string {
	return Day(time.Now())
}

// Store persists day-bucketed usage counters. Buckets are keyed by
// (kind, tenantID, day); rows are created lazily on first increment and
// never deleted here (retention pruning is an external job).
type Store interface {
	// Get returns the counter for the given bucket. A missing bucket
	// reads as 0, not an error.
	Get(ctx context.Context, kind Kind, tenantID uuid.UUID, day string) (int64, error)

	// Increment atomically creates-or-increments the bucket by one and
	// returns the post-increment value. Implementations must not use a
	// read-then-write sequence: concurrent increments for the same
	// bucket must not lose updates.
	Increment(ctx context.Context, kind Kind, tenantID uuid.UUID, day string) (int64, error)
}
