package testimonial

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the moderation state. Only approved testimonials appear in
// the widget and on public pages.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusHidden   Status = "hidden"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusHidden:
		return true
	}
	return false
}

// Testimonial is a customer review collected through a campaign.
// Deleted testimonials are soft-deleted and excluded from all counts,
// so deleting frees plan quota.
type Testimonial struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenantId"`
	CampaignID  uuid.UUID  `json:"campaignId"`
	AuthorName  string     `json:"authorName"`
	AuthorEmail string     `json:"authorEmail,omitempty"`
	Rating      int        `json:"rating"`
	Text        string     `json:"text"`
	PhotoURL    string     `json:"photoUrl,omitempty"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DeletedAt   *time.Time `json:"-"`
}

var (
	ErrNotFound          = errors.New("testimonial not found")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidAuthor     = errors.New("author name is required")
	ErrInvalidText       = errors.New("testimonial text is required")
	ErrInvalidStatus     = errors.New("invalid testimonial status")
	ErrCampaignNotOpen   = errors.New("campaign is not accepting testimonials")
	ErrExportNotAllowed  = errors.New("CSV export is not available on the current plan")
)

// Repository persists testimonials. All reads and counts exclude
// soft-deleted rows.
type Repository interface {
	Create(ctx context.Context, t *Testimonial) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Testimonial, error)
	ListByCampaign(ctx context.Context, tenantID, campaignID uuid.UUID, status Status) ([]Testimonial, error)
	ListApproved(ctx context.Context, campaignID uuid.UUID, limit int) ([]Testimonial, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error
	SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error
	CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
