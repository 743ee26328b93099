package usage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DB is the minimal query surface PGStore needs. *pgxpool.Pool satisfies it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// counterTables maps each counter kind to its own table. One logical
// table per rate-resource kind keeps contention partitioned by
// (tenant_id, day) and makes retention jobs trivial.
var counterTables = map[Kind]string{
	KindWidgetRequests: "widget_request_counters",
	KindQRScans:        "qr_scan_counters",
}

// PGStore is the Postgres-backed Store. Increment is a single atomic
// upsert statement, so concurrent increments for the same bucket cannot
// lose updates.
type PGStore struct {
	db DB
}

// NewPGStore returns a Store backed by the given database handle.
func NewPGStore(db DB) *PGStore {
	return &PGStore{db: db}
}

// Get returns the counter for the given bucket, 0 if no row exists yet.
func (s *PGStore) Get(ctx context.Context, kind Kind, tenantID uuid.UUID, day string) (int64, error) {
	table, ok := counterTables[kind]
	if !ok {
		return 0, errors.Join(ErrUnknownKind, fmt.Errorf("kind %q", kind))
	}

	query := fmt.Sprintf(`SELECT count FROM %s WHERE tenant_id = $1 AND day = $2`, table)

	var count int64
	if err := s.db.QueryRow(ctx, query, tenantID, day).Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, errors.Join(ErrStoreFailure, err)
	}
	return count, nil
}

// Increment creates-or-increments the bucket in one statement and
// returns the post-increment value.
func (s *PGStore) Increment(ctx context.Context, kind Kind, tenantID uuid.UUID, day string) (int64, error) {
	table, ok := counterTables[kind]
	if !ok {
		return 0, errors.Join(ErrUnknownKind, fmt.Errorf("kind %q", kind))
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (tenant_id, day, count)
		VALUES ($1, $2, 1)
		ON CONFLICT (tenant_id, day)
		DO UPDATE SET count = %s.count + 1
		RETURNING count`, table, table)

	var count int64
	if err := s.db.QueryRow(ctx, query, tenantID, day).Scan(&count); err != nil {
		return 0, errors.Join(ErrStoreFailure, err)
	}
	return count, nil
}
