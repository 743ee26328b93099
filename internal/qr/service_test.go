package qr_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundenmagnet/kundenmagnet/internal/campaign"
	"github.com/kundenmagnet/kundenmagnet/internal/qr"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
	"github.com/kundenmagnet/kundenmagnet/pkg/usage"
)

type memRepo struct {
	mu    sync.Mutex
	codes map[uuid.UUID]qr.Code
}

func newMemRepo() *memRepo {
	return &memRepo{codes: make(map[uuid.UUID]qr.Code)}
}

func (r *memRepo) Create(ctx context.Context, c *qr.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[c.ID] = *c
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*qr.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok || c.TenantID != tenantID {
		return nil, qr.ErrNotFound
	}
	return &c, nil
}

func (r *memRepo) GetAny(ctx context.Context, id uuid.UUID) (*qr.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok {
		return nil, qr.ErrNotFound
	}
	return &c, nil
}

func (r *memRepo) ListByCampaign(ctx context.Context, tenantID, campaignID uuid.UUID) ([]qr.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []qr.Code
	for _, c := range r.codes {
		if c.TenantID == tenantID && c.CampaignID == campaignID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok || c.TenantID != tenantID {
		return qr.ErrNotFound
	}
	delete(r.codes, id)
	return nil
}

func (r *memRepo) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, c := range r.codes {
		if c.TenantID == tenantID {
			count++
		}
	}
	return count, nil
}

type stubCampaigns struct {
	campaigns map[uuid.UUID]campaign.Campaign
}

func (r *stubCampaigns) Create(ctx context.Context, c *campaign.Campaign) error { return nil }

func (r *stubCampaigns) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*campaign.Campaign, error) {
	c, ok := r.campaigns[id]
	if !ok || c.TenantID != tenantID {
		return nil, campaign.ErrNotFound
	}
	return &c, nil
}

func (r *stubCampaigns) GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*campaign.Campaign, error) {
	return nil, campaign.ErrNotFound
}

func (r *stubCampaigns) GetAny(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	c, ok := r.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return &c, nil
}

func (r *stubCampaigns) List(ctx context.Context, tenantID uuid.UUID) ([]campaign.Campaign, error) {
	return nil, nil
}

func (r *stubCampaigns) Update(ctx context.Context, c *campaign.Campaign) error  { return nil }
func (r *stubCampaigns) Delete(ctx context.Context, tenantID, id uuid.UUID) error { return nil }
func (r *stubCampaigns) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	return 0, nil
}

type fixture struct {
	svc        *qr.Service
	repo       *memRepo
	tenantID   uuid.UUID
	campaignID uuid.UUID
}

func newFixture(t *testing.T, planID limits.PlanID) *fixture {
	t.Helper()

	tenantID, campaignID := uuid.New(), uuid.New()
	campaigns := &stubCampaigns{campaigns: map[uuid.UUID]campaign.Campaign{
		campaignID: {ID: campaignID, TenantID: tenantID, Name: "Launch", Slug: "launch", Status: campaign.StatusActive},
	}}
	repo := newMemRepo()

	resolver := func(ctx context.Context, id uuid.UUID) (limits.PlanID, error) {
		return planID, nil
	}
	limitsSvc, err := limits.NewService(context.Background(), limits.NewDefaultSource(), usage.NewMemStore(), resolver,
		limits.WithCounter(limits.ResourceQRCodes, repo.CountByTenant))
	require.NoError(t, err)

	return &fixture{
		svc:        qr.NewService(repo, campaigns, limitsSvc, "https://kundenmagnet.app", nil),
		repo:       repo,
		tenantID:   tenantID,
		campaignID: campaignID,
	}
}

func TestCreate(t *testing.T) {
	t.Parallel()

	t.Run("targets the collection page", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanPro)
		code, err := f.svc.Create(context.Background(), f.tenantID, f.campaignID, "Counter sticker")
		require.NoError(t, err)
		assert.Equal(t, "https://kundenmagnet.app/c/"+f.tenantID.String()+"/launch", code.TargetURL)
	})

	t.Run("denied at starter limit", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		for i := range 2 {
			_, err := f.svc.Create(context.Background(), f.tenantID, f.campaignID, "Sticker "+string(rune('A'+i)))
			require.NoError(t, err)
		}

		_, err := f.svc.Create(context.Background(), f.tenantID, f.campaignID, "One too many")
		var denial *limits.DenialError
		require.ErrorAs(t, err, &denial)
		assert.Equal(t, int64(2), denial.Result.Limit)
	})

	t.Run("foreign campaign rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanPro)
		_, err := f.svc.Create(context.Background(), uuid.New(), f.campaignID, "Sticker")
		assert.ErrorIs(t, err, campaign.ErrNotFound)
	})
}

func TestPNG(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanPro)
	code, err := f.svc.Create(context.Background(), f.tenantID, f.campaignID, "Sticker")
	require.NoError(t, err)

	png, err := f.svc.PNG(context.Background(), f.tenantID, code.ID, 256)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestScan(t *testing.T) {
	t.Parallel()

	t.Run("redirects and charges the owner", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanPro)
		code, err := f.svc.Create(context.Background(), f.tenantID, f.campaignID, "Sticker")
		require.NoError(t, err)

		target, res, err := f.svc.Scan(context.Background(), code.ID)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, code.TargetURL, target)
		assert.Equal(t, int64(1), res.Current)
	})

	t.Run("denied past the daily limit", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		code, err := f.svc.Create(context.Background(), f.tenantID, f.campaignID, "Sticker")
		require.NoError(t, err)

		for range 100 {
			_, res, err := f.svc.Scan(context.Background(), code.ID)
			require.NoError(t, err)
			require.True(t, res.Allowed)
		}

		target, res, err := f.svc.Scan(context.Background(), code.ID)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Empty(t, target)
		assert.Equal(t, int64(100), res.Current, "denied scan must not be charged")
	})

	t.Run("unknown code", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanPro)
		_, _, err := f.svc.Scan(context.Background(), uuid.New())
		assert.ErrorIs(t, err, qr.ErrNotFound)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)
	code, err := f.svc.Create(context.Background(), f.tenantID, f.campaignID, "Sticker")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), f.tenantID, code.ID))

	count, err := f.repo.CountByTenant(context.Background(), f.tenantID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
