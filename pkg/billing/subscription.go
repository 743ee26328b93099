package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
)

// Subscription links a tenant to a plan and, for paid plans, to the
// provider's subscription record. One subscription per tenant.
type Subscription struct {
	TenantID      uuid.UUID          `json:"tenantId"`
	PlanID        limits.PlanID      `json:"planId"`
	Status        SubscriptionStatus `json:"status"`
	ProviderSubID string             `json:"providerSubId,omitempty"` // empty for free plans
	CreatedAt     time.Time          `json:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt"`
	CancelledAt   *time.Time         `json:"cancelledAt,omitempty"`
}

// IsActive reports whether the subscription currently grants plan access.
func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// SubscriptionStore persists subscriptions.
type SubscriptionStore interface {
	// Get returns the tenant's subscription or ErrSubscriptionNotFound.
	Get(ctx context.Context, tenantID uuid.UUID) (*Subscription, error)

	// Save inserts or updates the tenant's subscription.
	Save(ctx context.Context, sub *Subscription) error
}
