package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
)

// Service manages subscription lifecycle: checkout, portal access and
// webhook processing. Plan definitions (and their price IDs) come from
// the limits service so billing and enforcement can never disagree on
// what a plan contains.
type Service struct {
	limits   *limits.Service
	provider Provider
	store    SubscriptionStore
	assign   PlanAssigner
	log      *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithPlanAssigner sets the callback that applies plan changes to the
// tenant record after billing events.
func WithPlanAssigner(fn PlanAssigner) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.assign = fn
		}
	}
}

// WithLogger sets the logger used for webhook processing.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates a billing service. Panics on nil required
// dependencies to fail fast during startup.
func NewService(limitsSvc *limits.Service, provider Provider, store SubscriptionStore, opts ...ServiceOption) *Service {
	if limitsSvc == nil {
		panic("billing: limits service is required")
	}
	if provider == nil {
		panic("billing: provider is required")
	}
	if store == nil {
		panic("billing: store is required")
	}

	s := &Service{
		limits:   limitsSvc,
		provider: provider,
		store:    store,
		assign:   func(context.Context, uuid.UUID, limits.PlanID) error { return nil },
		log:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetSubscription retrieves a tenant's subscription.
func (s *Service) GetSubscription(ctx context.Context, tenantID uuid.UUID) (*Subscription, error) {
	return s.store.Get(ctx, tenantID)
}

// CreateCheckoutLink generates a checkout link for the tenant to
// subscribe to a plan. Downgrades are refused while current usage would
// exceed the target plan's limits. Plans without a price ID are free and
// activate immediately without touching the payment provider.
func (s *Service) CreateCheckoutLink(ctx context.Context, tenantID uuid.UUID, planID limits.PlanID, opts CheckoutOptions) (*CheckoutLink, error) {
	plan, err := s.limits.Plan(planID)
	if err != nil {
		// The plan ID comes from the request body here, so an unknown
		// plan is the caller's mistake rather than a broken tenant record.
		return nil, errors.Join(ErrInvalidPlan, err)
	}

	if err := s.limits.CanDowngrade(ctx, tenantID, planID); err != nil {
		return nil, err
	}

	if plan.PriceID == "" {
		now := time.Now().UTC()
		sub := &Subscription{
			TenantID:  tenantID,
			PlanID:    planID,
			Status:    StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if existing, err := s.store.Get(ctx, tenantID); err == nil {
			sub.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, ErrSubscriptionNotFound) {
			return nil, err
		}
		if err := s.store.Save(ctx, sub); err != nil {
			return nil, err
		}
		if err := s.assign(ctx, tenantID, planID); err != nil {
			return nil, fmt.Errorf("assign plan %s to tenant %s: %w", planID, tenantID, err)
		}

		// No payment step, so send the customer straight to the success page.
		return &CheckoutLink{
			URL:       opts.SuccessURL,
			ExpiresAt: time.Now().Add(5 * time.Minute),
		}, nil
	}

	return s.provider.CreateCheckoutLink(ctx, CheckoutRequest{
		PriceID:    plan.PriceID,
		CustomerID: tenantID.String(),
		Email:      opts.Email,
		SuccessURL: opts.SuccessURL,
		CancelURL:  opts.CancelURL,
	})
}

// GetCustomerPortalLink returns a link to the provider's customer portal.
func (s *Service) GetCustomerPortalLink(ctx context.Context, tenantID uuid.UUID) (*PortalLink, error) {
	sub, err := s.store.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sub.ProviderSubID == "" {
		return nil, ErrNoPortalForFreePlan
	}
	return s.provider.GetCustomerPortalLink(ctx, sub)
}

// HandleWebhook processes a billing provider webhook. Subscription
// events update the stored subscription and push the plan change onto
// the tenant record; unrecognized events are logged and acknowledged so
// the provider stops retrying them.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.provider.ParseWebhook(ctx, payload, signature)
	if err != nil {
		return err
	}

	log := s.log.With(
		slog.String("event", string(event.Type)),
		slog.String("provider_event", event.ProviderEvent),
	)

	tenantID, err := uuid.Parse(event.CustomerID)
	if err != nil {
		return errors.Join(ErrInvalidWebhookPayload, fmt.Errorf("tenant ID %q: %w", event.CustomerID, err))
	}
	log = log.With(slog.String("tenant_id", tenantID.String()))

	switch event.Type {
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionResumed:
		planID, err := s.planByPrice(event.PriceID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		sub := &Subscription{
			TenantID:      tenantID,
			PlanID:        planID,
			Status:        mapPaddleStatus(event.Status),
			ProviderSubID: event.SubscriptionID,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if existing, err := s.store.Get(ctx, tenantID); err == nil {
			sub.CreatedAt = existing.CreatedAt
		} else if !errors.Is(err, ErrSubscriptionNotFound) {
			return err
		}
		if err := s.store.Save(ctx, sub); err != nil {
			return err
		}
		if sub.IsActive() {
			if err := s.assign(ctx, tenantID, planID); err != nil {
				return fmt.Errorf("assign plan %s to tenant %s: %w", planID, tenantID, err)
			}
		}
		log.InfoContext(ctx, "subscription updated", slog.String("plan_id", string(planID)), slog.String("status", string(sub.Status)))

	case EventSubscriptionCancelled:
		sub, err := s.store.Get(ctx, tenantID)
		if err != nil {
			return fmt.Errorf("subscription not found for tenant %s: %w", tenantID, err)
		}
		now := time.Now().UTC()
		sub.Status = StatusCancelled
		sub.CancelledAt = &now
		sub.UpdatedAt = now
		if err := s.store.Save(ctx, sub); err != nil {
			return err
		}
		// Cancelled tenants fall back to the smallest tier.
		if err := s.assign(ctx, tenantID, limits.PlanStarter); err != nil {
			return fmt.Errorf("assign plan %s to tenant %s: %w", limits.PlanStarter, tenantID, err)
		}
		log.InfoContext(ctx, "subscription cancelled")

	case EventPaymentFailed:
		sub, err := s.store.Get(ctx, tenantID)
		if err != nil {
			if errors.Is(err, ErrSubscriptionNotFound) {
				return nil
			}
			return err
		}
		sub.Status = StatusPastDue
		sub.UpdatedAt = time.Now().UTC()
		if err := s.store.Save(ctx, sub); err != nil {
			return err
		}
		log.WarnContext(ctx, "payment failed, subscription past due")

	case EventPaymentSucceeded:
		log.InfoContext(ctx, "payment succeeded")

	default:
		log.DebugContext(ctx, "ignoring unhandled billing event")
	}

	return nil
}

// planByPrice maps the provider's price ID back to a plan.
func (s *Service) planByPrice(priceID string) (limits.PlanID, error) {
	if priceID == "" {
		return "", fmt.Errorf("%w: empty price ID", ErrUnknownPriceID)
	}
	for _, id := range limits.PlanOrder {
		plan, err := s.limits.Plan(id)
		if err != nil {
			continue
		}
		if plan.PriceID == priceID {
			return plan.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownPriceID, priceID)
}
