package limits

import (
	"errors"
	"fmt"
	"slices"
)

// Plan describes a subscription tier and its resource/feature constraints.
// Plans are immutable after service construction.
type Plan struct {
	ID          PlanID
	Name        string
	Description string
	Limits      map[Resource]int64 // Unlimited (-1) disables the ceiling
	Features    []Feature
	Public      bool   // available for self-service signup
	PriceID     string // billing provider's price ID (empty for free tiers)
}

// HasFeature reports whether the plan enables the given capability flag.
func (p Plan) HasFeature(f Feature) bool {
	return slices.Contains(p.Features, f)
}

// guardedResources are the resources every plan must define a limit for.
var guardedResources = []Resource{
	ResourceCampaigns,
	ResourceTestimonialsPerCampaign,
	ResourceQRCodes,
	ResourceWidgetRequestsPerDay,
	ResourceQRScansPerDay,
}

// DefaultPlans returns the built-in plan table.
func DefaultPlans() map[PlanID]Plan {
	return map[PlanID]Plan{
		PlanStarter: {
			ID:          PlanStarter,
			Name:        "Starter",
			Description: "Try it out with a single campaign",
			Limits: map[Resource]int64{
				ResourceCampaigns:               1,
				ResourceTestimonialsPerCampaign: 10,
				ResourceQRCodes:                 2,
				ResourceWidgetRequestsPerDay:    1000,
				ResourceQRScansPerDay:           100,
			},
			Features: []Feature{},
			Public:   true,
		},
		PlanPro: {
			ID:          PlanPro,
			Name:        "Pro",
			Description: "For growing businesses",
			Limits: map[Resource]int64{
				ResourceCampaigns:               5,
				ResourceTestimonialsPerCampaign: 100,
				ResourceQRCodes:                 10,
				ResourceWidgetRequestsPerDay:    10000,
				ResourceQRScansPerDay:           1000,
			},
			Features: []Feature{
				FeatureCSVExport,
				FeatureWidgetCustomization,
				FeatureAPIAccess,
			},
			Public:  true,
			PriceID: "price_pro_monthly",
		},
		PlanBusiness: {
			ID:          PlanBusiness,
			Name:        "Business",
			Description: "No ceilings, white-label widget",
			Limits: map[Resource]int64{
				ResourceCampaigns:               Unlimited,
				ResourceTestimonialsPerCampaign: Unlimited,
				ResourceQRCodes:                 Unlimited,
				ResourceWidgetRequestsPerDay:    Unlimited,
				ResourceQRScansPerDay:           Unlimited,
			},
			Features: []Feature{
				FeatureCSVExport,
				FeatureWidgetCustomization,
				FeatureAPIAccess,
				FeatureWhiteLabel,
				FeaturePrioritySupport,
			},
			Public:  true,
			PriceID: "price_business_monthly",
		},
	}
}

// validatePlans checks plan configurations for validity:
// every tier in PlanOrder must exist, every tier must define a limit for
// each guarded resource, and limits must be monotonically non-decreasing
// across starter -> pro -> business. Upgrade/downgrade logic relies on
// the monotonicity invariant.
func validatePlans(plans map[PlanID]Plan) error {
	for _, id := range PlanOrder {
		plan, exists := plans[id]
		if !exists {
			return errors.Join(ErrInvalidPlanConfiguration,
				fmt.Errorf("plan %q is missing", id))
		}
		for _, res := range guardedResources {
			limit, ok := plan.Limits[res]
			if !ok {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %q defines no limit for %q", id, res))
			}
			if limit < 0 && limit != Unlimited {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %q has invalid limit %d for %q", id, limit, res))
			}
		}
	}

	for i := 1; i < len(PlanOrder); i++ {
		lower, higher := plans[PlanOrder[i-1]], plans[PlanOrder[i]]
		for _, res := range guardedResources {
			if limitLess(higher.Limits[res], lower.Limits[res]) {
				return errors.Join(ErrInvalidPlanConfiguration,
					fmt.Errorf("plan %q limit for %q is below plan %q", higher.ID, res, lower.ID))
			}
		}
	}

	return nil
}

// limitLess reports whether a < b with Unlimited treated as infinity.
func limitLess(a, b int64) bool {
	if a == Unlimited {
		return false
	}
	if b == Unlimited {
		return true
	}
	return a < b
}

// ResourceChange represents a change in a resource limit between two plans.
type ResourceChange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// PlanComparison contains the differences between two plans. Used to
// validate downgrades and communicate changes to users.
type PlanComparison struct {
	NewFeatures     []Feature
	LostFeatures    []Feature
	IncreasedLimits map[Resource]ResourceChange
	DecreasedLimits map[Resource]ResourceChange
}

// HasResourceDecreases returns true if any resources have decreased limits.
func (c *PlanComparison) HasResourceDecreases() bool {
	return len(c.DecreasedLimits) > 0
}

// ComparePlans returns the differences between current and target plans.
func ComparePlans(current, target *Plan) *PlanComparison {
	if current == nil || target == nil {
		return nil
	}

	comparison := &PlanComparison{
		NewFeatures:     make([]Feature, 0),
		LostFeatures:    make([]Feature, 0),
		IncreasedLimits: make(map[Resource]ResourceChange),
		DecreasedLimits: make(map[Resource]ResourceChange),
	}

	for _, feature := range target.Features {
		if !slices.Contains(current.Features, feature) {
			comparison.NewFeatures = append(comparison.NewFeatures, feature)
		}
	}
	for _, feature := range current.Features {
		if !slices.Contains(target.Features, feature) {
			comparison.LostFeatures = append(comparison.LostFeatures, feature)
		}
	}

	for resource, targetLimit := range target.Limits {
		currentLimit, exists := current.Limits[resource]
		if !exists || targetLimit == currentLimit {
			continue
		}
		change := ResourceChange{From: currentLimit, To: targetLimit}
		if limitLess(targetLimit, currentLimit) {
			comparison.DecreasedLimits[resource] = change
		} else {
			comparison.IncreasedLimits[resource] = change
		}
	}

	return comparison
}
