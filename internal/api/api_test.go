package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kundenmagnet/kundenmagnet/internal/api"
	"github.com/kundenmagnet/kundenmagnet/internal/campaign"
	"github.com/kundenmagnet/kundenmagnet/internal/qr"
	"github.com/kundenmagnet/kundenmagnet/internal/testimonial"
	"github.com/kundenmagnet/kundenmagnet/internal/widget"
	"github.com/kundenmagnet/kundenmagnet/pkg/billing"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
	"github.com/kundenmagnet/kundenmagnet/pkg/tenant"
	"github.com/kundenmagnet/kundenmagnet/pkg/usage"
)

// tinyPlans keeps rate limits small so exhaustion tests stay fast.
func tinyPlans() map[limits.PlanID]limits.Plan {
	return map[limits.PlanID]limits.Plan{
		limits.PlanStarter: {
			ID: limits.PlanStarter, Name: "Starter", Public: true,
			Limits: map[limits.Resource]int64{
				limits.ResourceCampaigns:               1,
				limits.ResourceTestimonialsPerCampaign: 2,
				limits.ResourceQRCodes:                 1,
				limits.ResourceWidgetRequestsPerDay:    3,
				limits.ResourceQRScansPerDay:           2,
			},
		},
		limits.PlanPro: {
			ID: limits.PlanPro, Name: "Pro", Public: true, PriceID: "price_pro_monthly",
			Limits: map[limits.Resource]int64{
				limits.ResourceCampaigns:               5,
				limits.ResourceTestimonialsPerCampaign: 10,
				limits.ResourceQRCodes:                 5,
				limits.ResourceWidgetRequestsPerDay:    100,
				limits.ResourceQRScansPerDay:           50,
			},
			Features: []limits.Feature{limits.FeatureCSVExport, limits.FeatureWidgetCustomization, limits.FeatureAPIAccess},
		},
		limits.PlanBusiness: {
			ID: limits.PlanBusiness, Name: "Business", Public: true, PriceID: "price_business_monthly",
			Limits: map[limits.Resource]int64{
				limits.ResourceCampaigns:               limits.Unlimited,
				limits.ResourceTestimonialsPerCampaign: limits.Unlimited,
				limits.ResourceQRCodes:                 limits.Unlimited,
				limits.ResourceWidgetRequestsPerDay:    limits.Unlimited,
				limits.ResourceQRScansPerDay:           limits.Unlimited,
			},
			Features: []limits.Feature{limits.FeatureCSVExport, limits.FeatureWidgetCustomization, limits.FeatureAPIAccess, limits.FeatureWhiteLabel},
		},
	}
}

type campaignRepo struct {
	mu        sync.Mutex
	items     map[uuid.UUID]campaign.Campaign
	createErr error
}

func (r *campaignRepo) Create(ctx context.Context, c *campaign.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, e := range r.items {
		if e.TenantID == c.TenantID && e.Slug == c.Slug {
			return campaign.ErrSlugTaken
		}
	}
	r.items[c.ID] = *c
	return nil
}

func (r *campaignRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*campaign.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || c.TenantID != tenantID {
		return nil, campaign.ErrNotFound
	}
	return &c, nil
}

func (r *campaignRepo) GetBySlug(ctx context.Context, tenantID uuid.UUID, slug string) (*campaign.Campaign, error) {
	return nil, campaign.ErrNotFound
}

func (r *campaignRepo) GetAny(ctx context.Context, id uuid.UUID) (*campaign.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return &c, nil
}

func (r *campaignRepo) List(ctx context.Context, tenantID uuid.UUID) ([]campaign.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []campaign.Campaign
	for _, c := range r.items {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *campaignRepo) Update(ctx context.Context, c *campaign.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = *c
	return nil
}

func (r *campaignRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *campaignRepo) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.items {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type testimonialRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]testimonial.Testimonial
}

func (r *testimonialRepo) Create(ctx context.Context, t *testimonial.Testimonial) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[t.ID] = *t
	return nil
}

func (r *testimonialRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*testimonial.Testimonial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok || t.TenantID != tenantID || t.DeletedAt != nil {
		return nil, testimonial.ErrNotFound
	}
	return &t, nil
}

func (r *testimonialRepo) ListByCampaign(ctx context.Context, tenantID, campaignID uuid.UUID, status testimonial.Status) ([]testimonial.Testimonial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []testimonial.Testimonial
	for _, t := range r.items {
		if t.TenantID == tenantID && t.CampaignID == campaignID && t.DeletedAt == nil {
			if status == "" || t.Status == status {
				out = append(out, t)
			}
		}
	}
	return out, nil
}

func (r *testimonialRepo) ListApproved(ctx context.Context, campaignID uuid.UUID, limit int) ([]testimonial.Testimonial, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []testimonial.Testimonial
	for _, t := range r.items {
		if t.CampaignID == campaignID && t.Status == testimonial.StatusApproved && t.DeletedAt == nil && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *testimonialRepo) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status testimonial.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok || t.TenantID != tenantID || t.DeletedAt != nil {
		return testimonial.ErrNotFound
	}
	t.Status = status
	r.items[id] = t
	return nil
}

func (r *testimonialRepo) SoftDelete(ctx context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.items[id]
	if !ok || t.TenantID != tenantID || t.DeletedAt != nil {
		return testimonial.ErrNotFound
	}
	now := time.Now().UTC()
	t.DeletedAt = &now
	r.items[id] = t
	return nil
}

func (r *testimonialRepo) CountByCampaign(ctx context.Context, campaignID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.items {
		if t.CampaignID == campaignID && t.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

func (r *testimonialRepo) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, t := range r.items {
		if t.TenantID == tenantID && t.DeletedAt == nil {
			n++
		}
	}
	return n, nil
}

type qrRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]qr.Code
}

func (r *qrRepo) Create(ctx context.Context, c *qr.Code) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = *c
	return nil
}

func (r *qrRepo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*qr.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || c.TenantID != tenantID {
		return nil, qr.ErrNotFound
	}
	return &c, nil
}

func (r *qrRepo) GetAny(ctx context.Context, id uuid.UUID) (*qr.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, qr.ErrNotFound
	}
	return &c, nil
}

func (r *qrRepo) ListByCampaign(ctx context.Context, tenantID, campaignID uuid.UUID) ([]qr.Code, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []qr.Code
	for _, c := range r.items {
		if c.TenantID == tenantID && c.CampaignID == campaignID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *qrRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *qrRepo) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.items {
		if c.TenantID == tenantID {
			n++
		}
	}
	return n, nil
}

type tenantStore struct {
	tenants map[uuid.UUID]*tenant.Tenant
}

func (s *tenantStore) GetByID(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error) {
	t, ok := s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	return t, nil
}

type nopBillingProvider struct{}

func (nopBillingProvider) CreateCheckoutLink(ctx context.Context, req billing.CheckoutRequest) (*billing.CheckoutLink, error) {
	return &billing.CheckoutLink{URL: "https://pay.example.com/" + req.PriceID}, nil
}

func (nopBillingProvider) GetCustomerPortalLink(ctx context.Context, sub *billing.Subscription) (*billing.PortalLink, error) {
	return &billing.PortalLink{URL: "https://portal.example.com"}, nil
}

func (nopBillingProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*billing.WebhookEvent, error) {
	var event billing.WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

type billingStore struct {
	mu      sync.Mutex
	subs    map[uuid.UUID]billing.Subscription
	saveErr error
}

func (s *billingStore) Get(ctx context.Context, tenantID uuid.UUID) (*billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[tenantID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	return &sub, nil
}

func (s *billingStore) Save(ctx context.Context, sub *billing.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.subs[sub.TenantID] = *sub
	return nil
}

type fixture struct {
	handler   http.Handler
	apiKey    string
	tenantID  uuid.UUID
	campaigns *campaignRepo
	subs      *billingStore
}

func newFixture(t *testing.T, planID limits.PlanID) *fixture {
	t.Helper()

	tenantID := uuid.New()
	rawKey, hash, err := tenant.NewAPIKey(tenantID)
	require.NoError(t, err)

	tenants := &tenantStore{tenants: map[uuid.UUID]*tenant.Tenant{
		tenantID: {
			ID: tenantID, Subdomain: "acme", Name: "Acme GmbH", Email: "owner@acme.test",
			PlanID: planID, APIKeyHash: hash, Active: true, CreatedAt: time.Now().UTC(),
		},
	}}

	campaigns := &campaignRepo{items: make(map[uuid.UUID]campaign.Campaign)}
	testimonials := &testimonialRepo{items: make(map[uuid.UUID]testimonial.Testimonial)}
	qrcodes := &qrRepo{items: make(map[uuid.UUID]qr.Code)}

	limitsSvc, err := limits.NewService(context.Background(),
		limits.NewInMemSource(tinyPlans()), usage.NewMemStore(), tenant.PlanResolver(tenants),
		limits.WithCounter(limits.ResourceCampaigns, campaigns.CountByTenant),
		limits.WithCounter(limits.ResourceQRCodes, qrcodes.CountByTenant),
		limits.WithCounter(limits.ResourceTestimonialsPerCampaign, testimonials.CountByTenant),
		limits.WithCampaignCounter(testimonials.CountByCampaign),
	)
	require.NoError(t, err)

	subs := &billingStore{subs: make(map[uuid.UUID]billing.Subscription)}
	billingSvc := billing.NewService(limitsSvc, nopBillingProvider{}, subs)

	handler := api.NewRouter(api.Deps{
		Campaigns:    campaign.NewService(campaigns, limitsSvc, nil),
		Testimonials: testimonial.NewService(testimonials, campaigns, limitsSvc, nil),
		QRCodes:      qr.NewService(qrcodes, campaigns, limitsSvc, "https://kundenmagnet.app", nil),
		Widget:       widget.NewService(testimonials, campaigns, limitsSvc, nil),
		Billing:      billingSvc,
		Limits:       limitsSvc,
		Tenants:      tenants,
	})

	return &fixture{handler: handler, apiKey: rawKey, tenantID: tenantID, campaigns: campaigns, subs: subs}
}

func (f *fixture) do(t *testing.T, method, path string, body any, authed bool) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) createCampaign(t *testing.T, name string) campaign.Campaign {
	t.Helper()

	rec := f.do(t, http.MethodPost, "/api/v1/campaigns", map[string]string{"name": name}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var c campaign.Campaign
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	return c
}

func TestAuthentication(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)

	rec := f.do(t, http.MethodGet, "/api/v1/campaigns", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/campaigns", nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCampaignLimitEnvelope(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)
	f.createCampaign(t, "First")

	rec := f.do(t, http.MethodPost, "/api/v1/campaigns", map[string]string{"name": "Second"}, true)
	require.Equal(t, http.StatusForbidden, rec.Code)

	var envelope struct {
		Error   string `json:"error"`
		Code    string `json:"code"`
		Current int64  `json:"current"`
		Limit   int64  `json:"limit"`
		PlanID  string `json:"planId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "LIMIT_EXCEEDED", envelope.Code)
	assert.Equal(t, int64(1), envelope.Current)
	assert.Equal(t, int64(1), envelope.Limit)
	assert.Equal(t, "starter", envelope.PlanID)
	assert.Contains(t, envelope.Error, "Upgrade your plan")
}

func TestPublicSubmission(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)
	c := f.createCampaign(t, "Reviews")

	submit := func() *httptest.ResponseRecorder {
		return f.do(t, http.MethodPost, "/api/public/campaigns/"+c.ID.String()+"/testimonials", map[string]any{
			"authorName": "Jane",
			"rating":     5,
			"text":       "Great!",
		}, false)
	}

	require.Equal(t, http.StatusCreated, submit().Code)
	require.Equal(t, http.StatusCreated, submit().Code)

	rec := submit()
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "LIMIT_EXCEEDED")
}

func TestWidgetFeedRateLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)
	c := f.createCampaign(t, "Reviews")

	for i := range 3 {
		rec := f.do(t, http.MethodGet, "/widget/"+c.ID.String(), nil, false)
		require.Equal(t, http.StatusOK, rec.Code, "request %d", i)
	}

	rec := f.do(t, http.MethodGet, "/widget/"+c.ID.String(), nil, false)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "LIMIT_EXCEEDED")
}

func TestScanRedirect(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)
	c := f.createCampaign(t, "Reviews")

	rec := f.do(t, http.MethodPost, "/api/v1/campaigns/"+c.ID.String()+"/qrcodes", map[string]string{"label": "Sticker"}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		ID      uuid.UUID `json:"id"`
		ScanURL string    `json:"scanUrl"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "https://kundenmagnet.app/s/"+created.ID.String(), created.ScanURL)

	for range 2 {
		rec := f.do(t, http.MethodGet, "/s/"+created.ID.String(), nil, false)
		require.Equal(t, http.StatusFound, rec.Code)
		assert.Contains(t, rec.Header().Get("Location"), "/c/"+f.tenantID.String()+"/reviews")
	}

	rec = f.do(t, http.MethodGet, "/s/"+created.ID.String(), nil, false)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestUsageStats(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)
	c := f.createCampaign(t, "Reviews")

	// One widget hit so the rate bucket is non-zero.
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/widget/"+c.ID.String(), nil, false).Code)

	rec := f.do(t, http.MethodGet, "/api/v1/usage", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats map[string]map[string]int64
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats["campaigns"]["current"])
	assert.Equal(t, int64(1), stats["campaigns"]["limit"])
	assert.Equal(t, int64(1), stats["widgetRequests"]["today"])
	assert.Equal(t, int64(3), stats["widgetRequests"]["limit"])
}

func TestPublicPlans(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)
	rec := f.do(t, http.MethodGet, "/api/public/plans", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)

	var plans []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plans))
	require.Len(t, plans, 3)
	assert.Equal(t, "starter", plans[0]["id"])
	assert.Equal(t, "business", plans[2]["id"])
}

func TestUnresolvablePlanFailsClosed(t *testing.T) {
	t.Parallel()

	// A tenant whose stored plan no longer exists in the plan table is a
	// data problem, not a client error: the mutation is blocked with an
	// opaque 500 and no internals leak into the body.
	f := newFixture(t, limits.PlanID("legacy"))

	rec := f.do(t, http.MethodPost, "/api/v1/campaigns", map[string]string{"name": "First"}, true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
	assert.NotContains(t, rec.Body.String(), "plan")
}

func TestCheckoutUnknownPlan(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)

	rec := f.do(t, http.MethodPost, "/api/v1/billing/checkout", map[string]string{
		"planId":     "enterprise",
		"successUrl": "https://acme.test/done",
	}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid plan")
}

func TestSlugConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)
	f.campaigns.createErr = campaign.ErrSlugTaken

	rec := f.do(t, http.MethodPost, "/api/v1/campaigns", map[string]string{"name": "Reviews"}, true)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "slug")
}

func TestBillingWebhookStatuses(t *testing.T) {
	t.Parallel()

	t.Run("malformed payload rejected", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		rec := f.do(t, http.MethodPost, "/webhooks/billing", map[string]string{
			"Type":       "subscription_created",
			"CustomerID": "not-a-uuid",
			"PriceID":    "price_pro_monthly",
			"Status":     "active",
		}, false)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("store failure retryable", func(t *testing.T) {
		t.Parallel()

		f := newFixture(t, limits.PlanStarter)
		f.subs.saveErr = errors.New("connection reset")

		rec := f.do(t, http.MethodPost, "/webhooks/billing", map[string]string{
			"Type":       "subscription_created",
			"CustomerID": f.tenantID.String(),
			"PriceID":    "price_pro_monthly",
			"Status":     "active",
		}, false)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	t.Parallel()

	f := newFixture(t, limits.PlanStarter)
	rec := f.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
