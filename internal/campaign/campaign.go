package campaign

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the campaign lifecycle state. Paused campaigns stop
// accepting testimonials but keep serving the widget; archived
// campaigns serve nothing.
type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusArchived Status = "archived"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusArchived:
		return true
	}
	return false
}

// Campaign is a testimonial collection campaign. The slug is unique per
// tenant and forms the public collection page URL.
type Campaign struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenantId"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var (
	ErrNotFound      = errors.New("campaign not found")
	ErrInvalidName   = errors.New("campaign name is required")
	ErrInvalidStatus = errors.New("invalid campaign status")
	ErrSlugTaken     = errors.New("campaign slug already in use")
)

// Repository persists campaigns.
type Repository interface {
	Create(ctx context.Context, c *Campaign) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Campaign, error)
	GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*Campaign, error)
	// GetAny looks a campaign up without a tenant scope. Used by public
	// surfaces (widget, QR redirect) that address campaigns by ID.
	GetAny(ctx context.Context, id uuid.UUID) (*Campaign, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]Campaign, error)
	Update(ctx context.Context, c *Campaign) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
