package qr

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

// PGRepository stores QR codes in PostgreSQL.
type PGRepository struct {
	db DB
}

// NewPGRepository creates a QR code repository backed by the given pool.
func NewPGRepository(db DB) *PGRepository {
	if db == nil {
		panic("qr: db is required")
	}
	return &PGRepository{db: db}
}

const codeColumns = "id, tenant_id, campaign_id, label, target_url, created_at"

func scanCode(row pgx.Row) (*Code, error) {
	var c Code
	err := row.Scan(&c.ID, &c.TenantID, &c.CampaignID, &c.Label, &c.TargetURL, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan qr code: %w", err)
	}
	return &c, nil
}

func (r *PGRepository) Create(ctx context.Context, c *Code) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO qr_codes (id, tenant_id, campaign_id, label, target_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.TenantID, c.CampaignID, c.Label, c.TargetURL, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("create qr code: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Code, error) {
	return scanCode(r.db.QueryRow(ctx,
		"SELECT "+codeColumns+" FROM qr_codes WHERE tenant_id = $1 AND id = $2", tenantID, id))
}

func (r *PGRepository) GetAny(ctx context.Context, id uuid.UUID) (*Code, error) {
	return scanCode(r.db.QueryRow(ctx,
		"SELECT "+codeColumns+" FROM qr_codes WHERE id = $1", id))
}

func (r *PGRepository) ListByCampaign(ctx context.Context, tenantID, campaignID uuid.UUID) ([]Code, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+codeColumns+" FROM qr_codes WHERE tenant_id = $1 AND campaign_id = $2 ORDER BY created_at DESC",
		tenantID, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list qr codes: %w", err)
	}
	defer rows.Close()

	var codes []Code
	for rows.Next() {
		var c Code
		if err := rows.Scan(&c.ID, &c.TenantID, &c.CampaignID, &c.Label, &c.TargetURL, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan qr code: %w", err)
		}
		codes = append(codes, c)
	}
	return codes, rows.Err()
}

func (r *PGRepository) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		"DELETE FROM qr_codes WHERE tenant_id = $1 AND id = $2", tenantID, id)
	if err != nil {
		return fmt.Errorf("delete qr code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM qr_codes WHERE tenant_id = $1", tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count qr codes: %w", err)
	}
	return count, nil
}
