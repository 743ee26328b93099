package limits_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
)

func TestInMemSource(t *testing.T) {
	t.Parallel()

	t.Run("serves a deep copy", func(t *testing.T) {
		t.Parallel()

		plans := limits.DefaultPlans()
		src := limits.NewInMemSource(plans)

		// Mutating the input after construction must not leak through.
		starter := plans[limits.PlanStarter]
		starter.Limits[limits.ResourceCampaigns] = 99
		plans[limits.PlanStarter] = starter

		loaded, err := src.Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), loaded[limits.PlanStarter].Limits[limits.ResourceCampaigns])
	})
}

func TestYAMLSource(t *testing.T) {
	t.Parallel()

	t.Run("parses plan table", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "plans.yaml")
		content := `
starter:
  name: Starter
  public: true
  limits:
    campaigns: 2
    testimonials_per_campaign: 20
    qr_codes: 4
    widget_requests_per_day: 2000
    qr_scans_per_day: 200
pro:
  name: Pro
  public: true
  price_id: price_pro_monthly
  features: [csv_export]
  limits:
    campaigns: 10
    testimonials_per_campaign: 200
    qr_codes: 20
    widget_requests_per_day: 20000
    qr_scans_per_day: 2000
business:
  name: Business
  public: true
  price_id: price_business_monthly
  features: [csv_export, white_label]
  limits:
    campaigns: -1
    testimonials_per_campaign: -1
    qr_codes: -1
    widget_requests_per_day: -1
    qr_scans_per_day: -1
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		plans, err := limits.NewYAMLSource(path).Load(context.Background())
		require.NoError(t, err)
		require.Len(t, plans, 3)

		assert.Equal(t, int64(2), plans[limits.PlanStarter].Limits[limits.ResourceCampaigns])
		assert.Equal(t, "price_pro_monthly", plans[limits.PlanPro].PriceID)
		assert.Equal(t, limits.Unlimited, plans[limits.PlanBusiness].Limits[limits.ResourceQRCodes])
		assert.True(t, plans[limits.PlanBusiness].HasFeature(limits.FeatureWhiteLabel))
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()

		_, err := limits.NewYAMLSource("/nonexistent/plans.yaml").Load(context.Background())
		assert.ErrorIs(t, err, limits.ErrFailedToLoadPlans)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "plans.yaml")
		require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o600))

		_, err := limits.NewYAMLSource(path).Load(context.Background())
		assert.ErrorIs(t, err, limits.ErrFailedToLoadPlans)
	})
}
