package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
)

// DB is the subset of pgxpool.Pool the provider needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGProvider loads and updates tenant records in PostgreSQL.
type PGProvider struct {
	db DB
}

// NewPGProvider creates a tenant provider backed by the given pool.
func NewPGProvider(db DB) *PGProvider {
	if db == nil {
		panic("tenant: db is required")
	}
	return &PGProvider{db: db}
}

func (p *PGProvider) GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error) {
	var t Tenant
	err := p.db.QueryRow(ctx, `
		SELECT id, subdomain, name, email, plan_id, api_key_hash, active, created_at
		FROM tenants
		WHERE id = $1`, id).
		Scan(&t.ID, &t.Subdomain, &t.Name, &t.Email, &t.PlanID, &t.APIKeyHash, &t.Active, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTenantNotFound
		}
		return nil, fmt.Errorf("get tenant: %w", err)
	}
	return &t, nil
}

// UpdatePlan changes the tenant's plan. Wired as the billing plan
// assigner so subscription changes land on the tenant record.
func (p *PGProvider) UpdatePlan(ctx context.Context, id uuid.UUID, planID limits.PlanID) error {
	tag, err := p.db.Exec(ctx, `UPDATE tenants SET plan_id = $2 WHERE id = $1`, id, planID)
	if err != nil {
		return fmt.Errorf("update tenant plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTenantNotFound
	}
	return nil
}
