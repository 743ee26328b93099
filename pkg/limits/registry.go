package limits

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// CounterFunc returns the live count of a persistent resource owned by a
// tenant. Counts are always recomputed, never tracked separately; keep
// implementations fast (an indexed COUNT at the repository level).
type CounterFunc func(ctx context.Context, tenantID uuid.UUID) (int64, error)

// CampaignCounterFunc returns the live count of testimonials belonging to
// one campaign. Campaign ownership is the caller's precondition; the
// counter does not re-verify the tenant/campaign association.
type CampaignCounterFunc func(ctx context.Context, campaignID uuid.UUID) (int64, error)

// CounterRegistry maps a Resource to its CounterFunc.
// Not thread-safe: register all counters at startup only.
type CounterRegistry map[Resource]CounterFunc

// NewRegistry returns a new, empty CounterRegistry.
func NewRegistry() CounterRegistry {
	return make(CounterRegistry)
}

// Register sets or replaces the CounterFunc for the given resource. Panics if fn is nil.
func (r CounterRegistry) Register(res Resource, fn CounterFunc) {
	if fn == nil {
		panic(fmt.Sprintf("limits: CounterFunc for resource %q cannot be nil", res))
	}
	r[res] = fn
}
