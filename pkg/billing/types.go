package billing

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
)

// SubscriptionStatus represents the current state of a subscription.
type SubscriptionStatus string

const (
	StatusTrialing  SubscriptionStatus = "trialing"
	StatusActive    SubscriptionStatus = "active"
	StatusPastDue   SubscriptionStatus = "past_due"
	StatusCancelled SubscriptionStatus = "cancelled"
	StatusExpired   SubscriptionStatus = "expired"
)

// CheckoutOptions contains options for creating a checkout session.
type CheckoutOptions struct {
	Email      string // pre-fill billing email if known
	SuccessURL string // redirect after successful payment
	CancelURL  string // redirect if the customer cancels
}

// CheckoutRequest contains data passed to the billing provider.
type CheckoutRequest struct {
	PriceID    string // provider's price identifier
	CustomerID string // our tenant ID
	Email      string
	SuccessURL string
	CancelURL  string
}

// CheckoutLink represents a hosted checkout session.
type CheckoutLink struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// PortalLink represents a customer portal session where users update
// payment methods, cancel, or change plans.
type PortalLink struct {
	URL              string
	CancelURL        string
	UpdatePaymentURL string
	ExpiresAt        time.Time
}

// EventType is the normalized billing event type. Provider
// implementations map their specific event names onto these.
type EventType string

const (
	EventSubscriptionCreated   EventType = "subscription_created"
	EventSubscriptionUpdated   EventType = "subscription_updated"
	EventSubscriptionCancelled EventType = "subscription_cancelled"
	EventSubscriptionResumed   EventType = "subscription_resumed"
	EventPaymentSucceeded      EventType = "payment_succeeded"
	EventPaymentFailed         EventType = "payment_failed"
)

// WebhookEvent is a normalized webhook event from the billing provider.
type WebhookEvent struct {
	Type           EventType
	ProviderEvent  string // original provider event name
	SubscriptionID string // provider's subscription ID
	CustomerID     string // our tenant ID carried in custom data
	Status         string
	PriceID        string // the price the customer subscribed to
	Raw            map[string]any
}

// Provider is the minimal interface to the payment provider. The
// provider handles all payment complexity through hosted checkouts and
// customer portals; we never touch card data.
type Provider interface {
	// CreateCheckoutLink creates a hosted checkout session.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// GetCustomerPortalLink returns a temporary customer portal link.
	GetCustomerPortalLink(ctx context.Context, sub *Subscription) (*PortalLink, error)

	// ParseWebhook validates the signature and normalizes the payload.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*WebhookEvent, error)
}

// PlanAssigner applies a plan change to the tenant record. Wired to the
// tenant repository at startup so billing does not depend on storage.
type PlanAssigner func(ctx context.Context, tenantID uuid.UUID, planID limits.PlanID) error
