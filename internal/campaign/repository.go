package campaign

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGRepository stores campaigns in PostgreSQL.
type PGRepository struct {
	db DB
}

// NewPGRepository creates a campaign repository backed by the given pool.
func NewPGRepository(db DB) *PGRepository {
	if db == nil {
		panic("campaign: db is required")
	}
	return &PGRepository{db: db}
}

const campaignColumns = "id, tenant_id, name, slug, status, created_at, updated_at"

func scanCampaign(row pgx.Row) (*Campaign, error) {
	var c Campaign
	err := row.Scan(&c.ID, &c.TenantID, &c.Name, &c.Slug, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan campaign: %w", err)
	}
	return &c, nil
}

func (r *PGRepository) Create(ctx context.Context, c *Campaign) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO campaigns (id, tenant_id, name, slug, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.TenantID, c.Name, c.Slug, c.Status, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrSlugTaken
		}
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Campaign, error) {
	return scanCampaign(r.db.QueryRow(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE tenant_id = $1 AND id = $2",
		tenantID, id))
}

func (r *PGRepository) GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Campaign, error) {
	return scanCampaign(r.db.QueryRow(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE tenant_id = $1 AND slug = $2",
		tenantID, slug))
}

func (r *PGRepository) GetAny(ctx context.Context, id uuid.UUID) (*Campaign, error) {
	return scanCampaign(r.db.QueryRow(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE id = $1", id))
}

func (r *PGRepository) List(ctx context.Context, tenantID uuid.UUID) ([]Campaign, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+campaignColumns+" FROM campaigns WHERE tenant_id = $1 ORDER BY created_at DESC",
		tenantID)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Slug, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func (r *PGRepository) Update(ctx context.Context, c *Campaign) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE campaigns SET name = $1, slug = $2, status = $3, updated_at = $4
		WHERE tenant_id = $5 AND id = $6`,
		c.Name, c.Slug, c.Status, c.UpdatedAt, c.TenantID, c.ID)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM campaigns WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM campaigns WHERE tenant_id = $1", tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count campaigns: %w", err)
	}
	return count, nil
}
