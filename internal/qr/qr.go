package qr

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Code is a printable QR code pointing at a campaign's collection page.
// Scans are tracked per tenant per day through the scan redirect.
type Code struct {
	ID         uuid.UUID `json:"id"`
	TenantID   uuid.UUID `json:"tenantId"`
	CampaignID uuid.UUID `json:"campaignId"`
	Label      string    `json:"label"`
	TargetURL  string    `json:"targetUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}

var (
	ErrNotFound      = errors.New("qr code not found")
	ErrInvalidLabel  = errors.New("qr code label is required")
	ErrInvalidTarget = errors.New("qr code target URL is required")
)

// Repository persists QR codes.
type Repository interface {
	Create(ctx context.Context, c *Code) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Code, error)
	// GetAny looks a code up without a tenant scope. Used by the public
	// scan redirect, which only knows the code ID.
	GetAny(ctx context.Context, id uuid.UUID) (*Code, error)
	ListByCampaign(ctx context.Context, tenantID, campaignID uuid.UUID) ([]Code, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
