package limits

import (
	"context"
	"errors"
	"slices"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/pkg/usage"
)

// PlanResolver resolves the plan ID assigned to a tenant. A tenant
// without a resolvable plan is a data-integrity problem upstream, so
// resolver failures propagate as errors and callers must fail closed.
type PlanResolver func(ctx context.Context, tenantID uuid.UUID) (PlanID, error)

// Service holds the immutable plan table and answers usage questions for
// tenants. All maps are treated as immutable after construction, which is
// what makes the service safe for concurrent use without locking.
type Service struct {
	plans           map[PlanID]Plan
	counters        CounterRegistry
	campaignCounter CampaignCounterFunc
	buckets         usage.Store
	planResolver    PlanResolver
}

// Option configures a Service instance.
type Option func(*Service)

// WithCounter registers a live-count function for a persistent resource.
// For ResourceTestimonialsPerCampaign the registered counter must return
// the tenant-wide testimonial total; it is used by UsageStats and
// downgrade checks only, while guard decisions use the per-campaign
// counter (see WithCampaignCounter).
func WithCounter(res Resource, fn CounterFunc) Option {
	return func(s *Service) {
		s.counters.Register(res, fn)
	}
}

// WithCampaignCounter registers the per-campaign testimonial counter used
// by Guard.CanAddTestimonial.
func WithCampaignCounter(fn CampaignCounterFunc) Option {
	return func(s *Service) {
		s.campaignCounter = fn
	}
}

// NewService loads plans from src, validates them and returns a Service.
// Construction fails if any tier is missing, a guarded resource has no
// limit, or limits are not monotonically non-decreasing across tiers.
func NewService(ctx context.Context, src Source, buckets usage.Store, resolver PlanResolver, opts ...Option) (*Service, error) {
	if src == nil {
		panic("limits: Source is required")
	}
	if buckets == nil {
		panic("limits: usage.Store is required")
	}
	if resolver == nil {
		panic("limits: PlanResolver is required")
	}

	plans, err := src.Load(ctx)
	if err != nil {
		return nil, errors.Join(ErrFailedToLoadPlans, err)
	}
	if err := validatePlans(plans); err != nil {
		return nil, err
	}

	s := &Service{
		plans:        plans,
		counters:     NewRegistry(),
		buckets:      buckets,
		planResolver: resolver,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Guard returns a request-scoped guard bound to one tenant.
func (s *Service) Guard(tenantID uuid.UUID) *Guard {
	return &Guard{svc: s, tenantID: tenantID}
}

// Plan returns the plan definition for the given ID.
func (s *Service) Plan(planID PlanID) (Plan, error) {
	plan, exists := s.plans[planID]
	if !exists {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}

// VerifyPlan checks if a plan ID is valid.
func (s *Service) VerifyPlan(planID PlanID) error {
	if _, exists := s.plans[planID]; !exists {
		return ErrPlanNotFound
	}
	return nil
}

// PublicPlans returns the plans available for self-service signup,
// ordered from smallest to largest tier.
func (s *Service) PublicPlans() []Plan {
	plans := make([]Plan, 0, len(s.plans))
	for _, id := range PlanOrder {
		if plan, exists := s.plans[id]; exists && plan.Public {
			plans = append(plans, plan)
		}
	}
	return plans
}

// HasFeature reports whether a capability flag is enabled for the
// tenant's current plan. Returns false on any error to fail closed.
func (s *Service) HasFeature(ctx context.Context, tenantID uuid.UUID, feature Feature) bool {
	plan, err := s.planFor(ctx, tenantID)
	if err != nil {
		return false
	}
	return slices.Contains(plan.Features, feature)
}

// persistent resources checked on downgrade. Rate resources reset daily
// and testimonial counts are per-campaign, so neither can strand usage.
var downgradeChecked = []Resource{ResourceCampaigns, ResourceQRCodes}

// CanDowngrade checks whether the tenant's current usage fits within the
// target plan's limits.
func (s *Service) CanDowngrade(ctx context.Context, tenantID uuid.UUID, targetPlanID PlanID) error {
	targetPlan, exists := s.plans[targetPlanID]
	if !exists {
		return ErrPlanNotFound
	}

	for _, res := range downgradeChecked {
		targetLimit, hasLimit := targetPlan.Limits[res]
		if !hasLimit || targetLimit == Unlimited {
			continue
		}
		counter, exists := s.counters[res]
		if !exists {
			continue
		}
		current, err := counter(ctx, tenantID)
		if err != nil {
			return errors.Join(ErrFailedToCountUsage, err)
		}
		if current > targetLimit {
			return ErrDowngradeNotPossible
		}
	}
	return nil
}

// UsageStats produces the consolidated dashboard read model: one read,
// five resource kinds. It never denies anything; counter and bucket
// failures degrade to 0 so the dashboard always renders. A plan lookup
// failure still propagates, since there is nothing sensible to display.
func (s *Service) UsageStats(ctx context.Context, tenantID uuid.UUID) (*UsageStats, error) {
	plan, err := s.planFor(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	stats := &UsageStats{
		Campaigns:      UsageInfo{Limit: plan.Limits[ResourceCampaigns]},
		Testimonials:   UsageInfo{Limit: plan.Limits[ResourceTestimonialsPerCampaign]},
		QRCodes:        UsageInfo{Limit: plan.Limits[ResourceQRCodes]},
		WidgetRequests: RateUsageInfo{Limit: plan.Limits[ResourceWidgetRequestsPerDay]},
		QRScans:        RateUsageInfo{Limit: plan.Limits[ResourceQRScansPerDay]},
	}

	stats.Campaigns.Current = s.countSafe(ctx, ResourceCampaigns, tenantID)
	stats.Testimonials.Current = s.countSafe(ctx, ResourceTestimonialsPerCampaign, tenantID)
	stats.QRCodes.Current = s.countSafe(ctx, ResourceQRCodes, tenantID)

	today := usage.Today()
	if count, err := s.buckets.Get(ctx, usage.KindWidgetRequests, tenantID, today); err == nil {
		stats.WidgetRequests.Today = count
	}
	if count, err := s.buckets.Get(ctx, usage.KindQRScans, tenantID, today); err == nil {
		stats.QRScans.Today = count
	}

	return stats, nil
}

// countSafe returns the live count for a resource, 0 on any failure.
func (s *Service) countSafe(ctx context.Context, res Resource, tenantID uuid.UUID) int64 {
	counter, exists := s.counters[res]
	if !exists {
		return 0
	}
	count, err := counter(ctx, tenantID)
	if err != nil {
		return 0
	}
	return count
}

// planFor resolves the tenant's plan. Exactly one plan lookup per check;
// no caching across calls, so the staleness window is one request.
func (s *Service) planFor(ctx context.Context, tenantID uuid.UUID) (Plan, error) {
	planID, err := s.planResolver(ctx, tenantID)
	if err != nil {
		return Plan{}, err
	}
	plan, exists := s.plans[planID]
	if !exists {
		return Plan{}, ErrPlanNotFound
	}
	return plan, nil
}
