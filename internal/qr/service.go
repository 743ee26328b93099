package qr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/internal/campaign"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
	"github.com/kundenmagnet/kundenmagnet/pkg/qrcode"
)

// Service implements QR code management and the public scan redirect,
// both gated by the tenant's plan.
type Service struct {
	repo      Repository
	campaigns campaign.Repository
	limits    *limits.Service
	baseURL   string // public base for scan redirect URLs
	log       *slog.Logger
}

// NewService creates a QR code service. baseURL is the public origin
// the scan redirect is served from, e.g. "https://kundenmagnet.app".
func NewService(repo Repository, campaigns campaign.Repository, limitsSvc *limits.Service, baseURL string, log *slog.Logger) *Service {
	if repo == nil {
		panic("qr: repository is required")
	}
	if campaigns == nil {
		panic("qr: campaign repository is required")
	}
	if limitsSvc == nil {
		panic("qr: limits service is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		repo:      repo,
		campaigns: campaigns,
		limits:    limitsSvc,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		log:       log,
	}
}

// Create registers a QR code for a campaign after checking the plan
// limit. The code's target defaults to the campaign's collection page.
func (s *Service) Create(ctx context.Context, tenantID, campaignID uuid.UUID, label string) (*Code, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, ErrInvalidLabel
	}

	c, err := s.campaigns.GetByID(ctx, tenantID, campaignID)
	if err != nil {
		return nil, err
	}

	res, err := s.limits.Guard(tenantID).CanCreateQRCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("check qr code limit: %w", err)
	}
	if !res.Allowed {
		return nil, limits.Denied(res)
	}

	code := &Code{
		ID:         uuid.New(),
		TenantID:   tenantID,
		CampaignID: campaignID,
		Label:      label,
		TargetURL:  fmt.Sprintf("%s/c/%s/%s", s.baseURL, tenantID, c.Slug),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, code); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "qr code created",
		slog.String("tenant_id", tenantID.String()),
		slog.String("campaign_id", campaignID.String()),
		slog.String("qr_code_id", code.ID.String()))
	return code, nil
}

// Get returns a tenant's QR code by ID.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Code, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns a campaign's QR codes, newest first.
func (s *Service) List(ctx context.Context, tenantID, campaignID uuid.UUID) ([]Code, error) {
	return s.repo.ListByCampaign(ctx, tenantID, campaignID)
}

// Delete removes a QR code, freeing a plan slot. Printed codes keep
// resolving to a 404 afterwards.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return s.repo.Delete(ctx, tenantID, id)
}

// ScanURL returns the tracked redirect URL a printed code encodes.
func (s *Service) ScanURL(id uuid.UUID) string {
	return fmt.Sprintf("%s/s/%s", s.baseURL, id)
}

// PNG renders the QR code image encoding its tracked scan URL.
func (s *Service) PNG(ctx context.Context, tenantID, id uuid.UUID, size int) ([]byte, error) {
	code, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	return qrcode.PNG(s.ScanURL(code.ID), size)
}

// Scan resolves a scanned code and charges one scan against the owning
// tenant's daily limit. The returned target URL is where the visitor is
// redirected; a denied result means the tenant's scan budget for today
// is exhausted and the caller must not redirect.
func (s *Service) Scan(ctx context.Context, id uuid.UUID) (string, limits.Result, error) {
	code, err := s.repo.GetAny(ctx, id)
	if err != nil {
		return "", limits.Result{}, err
	}

	res, err := s.limits.Guard(code.TenantID).CheckAndIncrementQrScan(ctx)
	if err != nil {
		return "", limits.Result{}, fmt.Errorf("record qr scan: %w", err)
	}
	if !res.Allowed {
		s.log.WarnContext(ctx, "qr scan denied by plan limit",
			slog.String("tenant_id", code.TenantID.String()),
			slog.String("qr_code_id", id.String()),
			slog.Int64("limit", res.Limit))
		return "", res, nil
	}
	return code.TargetURL, res, nil
}

// Counter returns the live QR code counter in the form the limits
// service expects.
func (s *Service) Counter() limits.CounterFunc {
	return s.repo.CountByTenant
}
