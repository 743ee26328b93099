package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
)

var (
	// ErrTenantNotFound is returned when a tenant cannot be found.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidAPIKey is returned when an API key fails parsing or verification.
	ErrInvalidAPIKey = errors.New("invalid API key")

	// ErrNoTenantInContext is returned when no tenant is found in context.
	ErrNoTenantInContext = errors.New("no tenant in context")

	// ErrInactiveTenant is returned when trying to use an inactive tenant.
	ErrInactiveTenant = errors.New("tenant is inactive")
)

// Tenant is the account on whose behalf campaigns, testimonials and QR
// codes are created and limited.
type Tenant struct {
	ID         uuid.UUID     `json:"id"`
	Subdomain  string        `json:"subdomain"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	PlanID     limits.PlanID `json:"planId"`
	APIKeyHash string        `json:"-"` // bcrypt hash of the API key secret
	Active     bool          `json:"active"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Provider loads tenant records from the data store.
type Provider interface {
	// GetByID retrieves a tenant by its ID.
	// Returns ErrTenantNotFound if no tenant matches.
	GetByID(ctx context.Context, id uuid.UUID) (*Tenant, error)
}

// PlanResolver adapts a Provider into a limits.PlanResolver. It prefers
// the tenant already resolved by the request middleware (one lookup per
// request) and falls back to the store otherwise.
func PlanResolver(provider Provider) limits.PlanResolver {
	return func(ctx context.Context, tenantID uuid.UUID) (limits.PlanID, error) {
		if t, ok := FromContext(ctx); ok && t.ID == tenantID {
			return t.PlanID, nil
		}
		t, err := provider.GetByID(ctx, tenantID)
		if err != nil {
			return "", err
		}
		return t.PlanID, nil
	}
}
