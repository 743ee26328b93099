package limits_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
	"github.com/kundenmagnet/kundenmagnet/pkg/usage"
)

// fixture wires a Service against adjustable in-memory counters so tests
// can move live counts around without a database.
type fixture struct {
	svc     *limits.Service
	store   *usage.MemStore
	planID  limits.PlanID
	planErr error

	mu           sync.Mutex
	campaigns    int64
	qrCodes      int64
	testimonials int64
	perCampaign  map[uuid.UUID]int64
}

func (f *fixture) set(res limits.Resource, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch res {
	case limits.ResourceCampaigns:
		f.campaigns = n
	case limits.ResourceQRCodes:
		f.qrCodes = n
	case limits.ResourceTestimonialsPerCampaign:
		f.testimonials = n
	}
}

func (f *fixture) setCampaign(id uuid.UUID, n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.perCampaign[id] = n
}

func newFixture(t *testing.T, planID limits.PlanID) *fixture {
	t.Helper()

	f := &fixture{
		store:       usage.NewMemStore(),
		planID:      planID,
		perCampaign: make(map[uuid.UUID]int64),
	}

	resolver := func(ctx context.Context, tenantID uuid.UUID) (limits.PlanID, error) {
		if f.planErr != nil {
			return "", f.planErr
		}
		return f.planID, nil
	}

	read := func(p *int64) limits.CounterFunc {
		return func(ctx context.Context, tenantID uuid.UUID) (int64, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return *p, nil
		}
	}

	svc, err := limits.NewService(context.Background(), limits.NewDefaultSource(), f.store, resolver,
		limits.WithCounter(limits.ResourceCampaigns, read(&f.campaigns)),
		limits.WithCounter(limits.ResourceQRCodes, read(&f.qrCodes)),
		limits.WithCounter(limits.ResourceTestimonialsPerCampaign, read(&f.testimonials)),
		limits.WithCampaignCounter(func(ctx context.Context, campaignID uuid.UUID) (int64, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return f.perCampaign[campaignID], nil
		}),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestGuardCanCreateCampaign(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("allowed below limit", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		res, err := f.svc.Guard(tenantID).CanCreateCampaign(ctx)

		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(0), res.Current)
		assert.Equal(t, int64(1), res.Limit)
		assert.Equal(t, limits.PlanStarter, res.PlanID)
		assert.Empty(t, res.Message)
	})

	t.Run("denied at limit", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		f.set(limits.ResourceCampaigns, 1)

		res, err := f.svc.Guard(tenantID).CanCreateCampaign(ctx)

		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, int64(1), res.Current)
		assert.Equal(t, int64(1), res.Limit)
		assert.NotEmpty(t, res.Message)
	})

	t.Run("boundary one below the limit", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanPro)
		f.set(limits.ResourceCampaigns, 4)

		res, err := f.svc.Guard(tenantID).CanCreateCampaign(ctx)

		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(4), res.Current)
		assert.Equal(t, int64(5), res.Limit)
	})

	t.Run("unlimited plan bypasses comparison", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanBusiness)
		f.set(limits.ResourceCampaigns, 10000)

		res, err := f.svc.Guard(tenantID).CanCreateCampaign(ctx)

		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(10000), res.Current)
		assert.Equal(t, limits.Unlimited, res.Limit)
	})

	t.Run("plan resolver failure propagates", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		f.planErr = errors.New("tenant has no plan record")

		_, err := f.svc.Guard(tenantID).CanCreateCampaign(ctx)
		assert.Error(t, err)
	})

	t.Run("unknown plan id fails", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanID("enterprise"))

		_, err := f.svc.Guard(tenantID).CanCreateCampaign(ctx)
		assert.ErrorIs(t, err, limits.ErrPlanNotFound)
	})
}

func TestGuardCanCreateQRCode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("frees capacity after deletion", func(t *testing.T) {
		t.Parallel()

		// Starter allows 2 QR codes; the tenant sits at the ceiling,
		// deletes one, and can create again.
		f := newFixture(t, limits.PlanStarter)
		guard := f.svc.Guard(tenantID)

		f.set(limits.ResourceQRCodes, 2)
		res, err := guard.CanCreateQRCode(ctx)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, int64(2), res.Current)
		assert.Equal(t, int64(2), res.Limit)
		assert.NotEmpty(t, res.Message)

		f.set(limits.ResourceQRCodes, 1)
		res, err = guard.CanCreateQRCode(ctx)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(1), res.Current)
		assert.Equal(t, int64(2), res.Limit)
	})
}

func TestGuardCanAddTestimonial(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("scoped to one campaign", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		full := uuid.New()
		empty := uuid.New()
		f.setCampaign(full, 10)

		guard := f.svc.Guard(tenantID)

		res, err := guard.CanAddTestimonial(ctx, full)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, int64(10), res.Current)

		res, err = guard.CanAddTestimonial(ctx, empty)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(0), res.Current)
	})
}

func TestGuardCheckAndIncrement(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("returns post-increment count", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		guard := f.svc.Guard(uuid.New())

		res, err := guard.CheckAndIncrementWidgetRequest(ctx)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(1), res.Current)

		res, err = guard.CheckAndIncrementWidgetRequest(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Current)
	})

	t.Run("denied at limit without charging", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		tenantID := uuid.New()
		guard := f.svc.Guard(tenantID)
		today := usage.Today()

		// Starter allows 100 scans per day.
		for range 100 {
			res, err := guard.CheckAndIncrementQrScan(ctx)
			require.NoError(t, err)
			require.True(t, res.Allowed)
		}

		for range 3 {
			res, err := guard.CheckAndIncrementQrScan(ctx)
			require.NoError(t, err)
			assert.False(t, res.Allowed)
			assert.Equal(t, int64(100), res.Current)
			assert.NotEmpty(t, res.Message)
		}

		count, err := f.store.Get(ctx, usage.KindQRScans, tenantID, today)
		require.NoError(t, err)
		assert.Equal(t, int64(100), count, "denied requests must not grow the counter")
	})

	t.Run("unlimited plan always admits and still records", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanBusiness)
		tenantID := uuid.New()
		guard := f.svc.Guard(tenantID)
		today := usage.Today()

		// Simulate a day with heavy traffic already recorded.
		for range 50 {
			_, err := f.store.Increment(ctx, usage.KindQRScans, tenantID, today)
			require.NoError(t, err)
		}

		res, err := guard.CheckAndIncrementQrScan(ctx)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, int64(51), res.Current)
		assert.Equal(t, limits.Unlimited, res.Limit)
	})

	t.Run("no lost updates under concurrency", func(t *testing.T) {
		t.Parallel()

		const n = 50

		f := newFixture(t, limits.PlanPro) // 1000 scans/day, limit >= n
		tenantID := uuid.New()
		guard := f.svc.Guard(tenantID)

		var wg sync.WaitGroup
		for range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := guard.CheckAndIncrementQrScan(ctx)
				assert.NoError(t, err)
				assert.True(t, res.Allowed)
			}()
		}
		wg.Wait()

		count, err := f.store.Get(ctx, usage.KindQRScans, tenantID, usage.Today())
		require.NoError(t, err)
		assert.Equal(t, int64(n), count)
	})
}

func TestGuardPlanID(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanPro)

	planID, err := f.svc.Guard(uuid.New()).PlanID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, limits.PlanPro, planID)
}
