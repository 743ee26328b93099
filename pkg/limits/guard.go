package limits

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/pkg/usage"
)

// Guard answers "is this tenant allowed to perform action X right now?".
// It is request-scoped: bind one per inbound request via Service.Guard.
// CanX checks are idempotent pure reads. CheckAndIncrementX records the
// consumption on success; call it once per confirmed action, after the
// underlying action is known to happen but before expensive work. The
// small race this allows (increment lands, action then fails) is an
// accepted tradeoff, not something to fix with two-phase commit.
type Guard struct {
	svc      *Service
	tenantID uuid.UUID
}

// TenantID returns the tenant this guard is bound to.
func (g *Guard) TenantID() uuid.UUID {
	return g.tenantID
}

// PlanID returns the tenant's current plan ID. Used by callers to
// annotate denial responses with upgrade prompts.
func (g *Guard) PlanID(ctx context.Context) (PlanID, error) {
	return g.svc.planResolver(ctx, g.tenantID)
}

// CanCreateCampaign checks whether the tenant may create another campaign.
func (g *Guard) CanCreateCampaign(ctx context.Context) (Result, error) {
	return g.canCreate(ctx, ResourceCampaigns)
}

// CanCreateQRCode checks whether the tenant may create another QR code.
func (g *Guard) CanCreateQRCode(ctx context.Context) (Result, error) {
	return g.canCreate(ctx, ResourceQRCodes)
}

// CanAddTestimonial checks whether the given campaign may accept another
// testimonial. Campaign ownership must already be verified by the caller.
func (g *Guard) CanAddTestimonial(ctx context.Context, campaignID uuid.UUID) (Result, error) {
	plan, err := g.svc.planFor(ctx, g.tenantID)
	if err != nil {
		return Result{}, err
	}

	limit, exists := plan.Limits[ResourceTestimonialsPerCampaign]
	if !exists {
		return Result{}, ErrInvalidResource
	}

	if g.svc.campaignCounter == nil {
		return Result{}, ErrNoCampaignCounter
	}
	current, err := g.svc.campaignCounter(ctx, campaignID)
	if err != nil {
		return Result{}, errors.Join(ErrFailedToCountUsage, err)
	}

	return g.decide(plan, ResourceTestimonialsPerCampaign, current, limit), nil
}

// CheckAndIncrementWidgetRequest admits and records one widget request
// for today's bucket.
func (g *Guard) CheckAndIncrementWidgetRequest(ctx context.Context) (Result, error) {
	return g.checkAndIncrement(ctx, ResourceWidgetRequestsPerDay, usage.KindWidgetRequests)
}

// CheckAndIncrementQrScan admits and records one QR scan for today's bucket.
func (g *Guard) CheckAndIncrementQrScan(ctx context.Context) (Result, error) {
	return g.checkAndIncrement(ctx, ResourceQRScansPerDay, usage.KindQRScans)
}

// canCreate is the shared path for persistent resources: one plan lookup,
// one live count, compare current < limit. No side effects.
func (g *Guard) canCreate(ctx context.Context, res Resource) (Result, error) {
	plan, err := g.svc.planFor(ctx, g.tenantID)
	if err != nil {
		return Result{}, err
	}

	limit, exists := plan.Limits[res]
	if !exists {
		return Result{}, ErrInvalidResource
	}

	counter, exists := g.svc.counters[res]
	if !exists {
		return Result{}, ErrNoCounterRegistered
	}
	current, err := counter(ctx, g.tenantID)
	if err != nil {
		return Result{}, errors.Join(ErrFailedToCountUsage, err)
	}

	return g.decide(plan, res, current, limit), nil
}

// checkAndIncrement is the shared path for rate resources. A tenant at or
// over the day limit is denied without incrementing, so denied requests
// are never charged and retries cannot grow the counter. The increment
// itself is atomic at the store, so concurrent admits cannot lose updates.
func (g *Guard) checkAndIncrement(ctx context.Context, res Resource, kind usage.Kind) (Result, error) {
	plan, err := g.svc.planFor(ctx, g.tenantID)
	if err != nil {
		return Result{}, err
	}

	limit, exists := plan.Limits[res]
	if !exists {
		return Result{}, ErrInvalidResource
	}

	day := usage.Today()
	current, err := g.svc.buckets.Get(ctx, kind, g.tenantID, day)
	if err != nil {
		return Result{}, errors.Join(ErrFailedToCountUsage, err)
	}

	if limit != Unlimited && current >= limit {
		return g.deny(plan, res, current, limit), nil
	}

	// Usage is still recorded on unlimited plans so the dashboard keeps
	// reporting real traffic.
	count, err := g.svc.buckets.Increment(ctx, kind, g.tenantID, day)
	if err != nil {
		return Result{}, err
	}

	return Result{Allowed: true, Current: count, Limit: limit, PlanID: plan.ID}, nil
}

// decide applies the admission rule for persistent resources: the
// unlimited sentinel short-circuits to allowed without comparison.
func (g *Guard) decide(plan Plan, res Resource, current, limit int64) Result {
	if limit == Unlimited || current < limit {
		return Result{Allowed: true, Current: current, Limit: limit, PlanID: plan.ID}
	}
	return g.deny(plan, res, current, limit)
}

func (g *Guard) deny(plan Plan, res Resource, current, limit int64) Result {
	return Result{
		Allowed: false,
		Current: current,
		Limit:   limit,
		PlanID:  plan.ID,
		Message: denyMessage(plan, res, current, limit),
	}
}

// resourceNouns names resources in user-facing denial messages.
var resourceNouns = map[Resource]string{
	ResourceCampaigns:               "campaigns",
	ResourceTestimonialsPerCampaign: "testimonials for this campaign",
	ResourceQRCodes:                 "QR codes",
	ResourceWidgetRequestsPerDay:    "widget requests today",
	ResourceQRScansPerDay:           "QR scans today",
}

func denyMessage(plan Plan, res Resource, current, limit int64) string {
	noun, ok := resourceNouns[res]
	if !ok {
		noun = string(res)
	}
	return fmt.Sprintf("You have reached the %s plan limit of %d %s (%d/%d used). Upgrade your plan to raise this limit.",
		plan.Name, limit, noun, current, limit)
}
