package testimonial

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

// PGRepository stores testimonials in PostgreSQL.
type PGRepository struct {
	db DB
}

// NewPGRepository creates a testimonial repository backed by the given pool.
func NewPGRepository(db DB) *PGRepository {
	if db == nil {
		panic("testimonial: db is required")
	}
	return &PGRepository{db: db}
}

const testimonialColumns = "id, tenant_id, campaign_id, author_name, author_email, rating, text, photo_url, status, created_at, updated_at"

func scanTestimonial(row pgx.Row) (*Testimonial, error) {
	var t Testimonial
	err := row.Scan(&t.ID, &t.TenantID, &t.CampaignID, &t.AuthorName, &t.AuthorEmail,
		&t.Rating, &t.Text, &t.PhotoURL, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan testimonial: %w", err)
	}
	return &t, nil
}

func scanTestimonials(rows pgx.Rows) ([]Testimonial, error) {
	defer rows.Close()
	var out []Testimonial
	for rows.Next() {
		var t Testimonial
		if err := rows.Scan(&t.ID, &t.TenantID, &t.CampaignID, &t.AuthorName, &t.AuthorEmail,
			&t.Rating, &t.Text, &t.PhotoURL, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan testimonial: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PGRepository) Create(ctx context.Context, t *Testimonial) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO testimonials (id, tenant_id, campaign_id, author_name, author_email, rating, text, photo_url, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.TenantID, t.CampaignID, t.AuthorName, t.AuthorEmail,
		t.Rating, t.Text, t.PhotoURL, t.Status, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create testimonial: %w", err)
	}
	return nil
}

func (r *PGRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Testimonial, error) {
	return scanTestimonial(r.db.QueryRow(ctx,
		"SELECT "+testimonialColumns+" FROM testimonials WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL",
		tenantID, id))
}

// ListByCampaign returns a campaign's testimonials, optionally filtered
// by status (empty status means all), newest first.
func (r *PGRepository) ListByCampaign(ctx context.Context, tenantID, campaignID uuid.UUID, status Status) ([]Testimonial, error) {
	query := "SELECT " + testimonialColumns + ` FROM testimonials
		WHERE tenant_id = $1 AND campaign_id = $2 AND deleted_at IS NULL`
	args := []any{tenantID, campaignID}
	if status != "" {
		query += " AND status = $3"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list testimonials: %w", err)
	}
	return scanTestimonials(rows)
}

// ListApproved returns a campaign's approved testimonials for public
// surfaces, newest first, capped at limit.
func (r *PGRepository) ListApproved(ctx context.Context, campaignID uuid.UUID, limit int) ([]Testimonial, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+testimonialColumns+` FROM testimonials
		WHERE campaign_id = $1 AND status = $2 AND deleted_at IS NULL
		ORDER BY created_at DESC LIMIT $3`,
		campaignID, StatusApproved, limit)
	if err != nil {
		return nil, fmt.Errorf("list approved testimonials: %w", err)
	}
	return scanTestimonials(rows)
}

func (r *PGRepository) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE testimonials SET status = $1, updated_at = now()
		WHERE tenant_id = $2 AND id = $3 AND deleted_at IS NULL`,
		status, tenantID, id)
	if err != nil {
		return fmt.Errorf("update testimonial status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE testimonials SET deleted_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND deleted_at IS NULL`,
		tenantID, id)
	if err != nil {
		return fmt.Errorf("soft delete testimonial: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepository) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM testimonials WHERE campaign_id = $1 AND deleted_at IS NULL",
		campaignID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count campaign testimonials: %w", err)
	}
	return count, nil
}

func (r *PGRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx,
		"SELECT COUNT(*) FROM testimonials WHERE tenant_id = $1 AND deleted_at IS NULL",
		tenantID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count tenant testimonials: %w", err)
	}
	return count, nil
}
