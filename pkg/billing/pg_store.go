package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore persists subscriptions in PostgreSQL, one row per tenant.
type PGStore struct {
	db DB
}

// NewPGStore creates a subscription store backed by the given pool.
func NewPGStore(db DB) *PGStore {
	if db == nil {
		panic("billing: db is required")
	}
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	var sub Subscription
	err := s.db.QueryRow(ctx, `
		SELECT tenant_id, plan_id, status, provider_sub_id, created_at, updated_at, cancelled_at
		FROM subscriptions
		WHERE tenant_id = $1`, tenantID).
		Scan(&sub.TenantID, &sub.PlanID, &sub.Status, &sub.ProviderSubID,
			&sub.CreatedAt, &sub.UpdatedAt, &sub.CancelledAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

func (s *PGStore) Save(ctx context.Context, sub *Subscription) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO subscriptions (tenant_id, plan_id, status, provider_sub_id, created_at, updated_at, cancelled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			provider_sub_id = EXCLUDED.provider_sub_id,
			updated_at = EXCLUDED.updated_at,
			cancelled_at = EXCLUDED.cancelled_at`,
		sub.TenantID, sub.PlanID, sub.Status, sub.ProviderSubID,
		sub.CreatedAt, sub.UpdatedAt, sub.CancelledAt)
	if err != nil {
		return errors.Join(ErrFailedToSaveSubscription, err)
	}
	return nil
}
