package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
	"github.com/kundenmagnet/kundenmagnet/pkg/slug"
)

// Service implements campaign management with plan limit enforcement.
type Service struct {
	repo   Repository
	limits *limits.Service
	log    *slog.Logger
}

// NewService creates a campaign service.
func NewService(repo Repository, limitsSvc *limits.Service, log *slog.Logger) *Service {
	if repo == nil {
		panic("campaign: repository is required")
	}
	if limitsSvc == nil {
		panic("campaign: limits service is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, limits: limitsSvc, log: log}
}

// UpdateParams carries the mutable campaign fields. Nil fields are left
// unchanged.
type UpdateParams struct {
	Name   *string `json:"name,omitempty"`
	Status *Status `json:"status,omitempty"`
}

// Create creates a campaign after checking the tenant's plan limit.
// A denied check returns a limits.DenialError; the campaign is not
// created and nothing is charged.
func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, name string) (*Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	res, err := s.limits.Guard(tenantID).CanCreateCampaign(ctx)
	if err != nil {
		return nil, fmt.Errorf("check campaign limit: %w", err)
	}
	if !res.Allowed {
		return nil, limits.Denied(res)
	}

	now := time.Now().UTC()
	c := &Campaign{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      name,
		Slug:      slug.Make(name),
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.repo.Create(ctx, c)
	if errors.Is(err, ErrSlugTaken) {
		// One retry with a random suffix resolves per-tenant collisions.
		c.Slug = slug.MakeUnique(name, 4)
		err = s.repo.Create(ctx, c)
	}
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "campaign created",
		slog.String("tenant_id", tenantID.String()),
		slog.String("campaign_id", c.ID.String()),
		slog.String("slug", c.Slug))
	return c, nil
}

// Get returns a tenant's campaign by ID.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Campaign, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// GetBySlug returns a tenant's campaign by its public slug.
func (s *Service) GetBySlug(ctx context.Context, tenantID uuid.UUID, campaignSlug string) (*Campaign, error) {
	return s.repo.GetBySlug(ctx, tenantID, campaignSlug)
}

// List returns all of the tenant's campaigns, newest first.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Campaign, error) {
	return s.repo.List(ctx, tenantID)
}

// Update applies the given changes to a campaign. Renaming keeps the
// slug stable so collection page URLs and printed QR codes stay valid.
func (s *Service) Update(ctx context.Context, tenantID, id uuid.UUID, params UpdateParams) (*Campaign, error) {
	c, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return nil, ErrInvalidName
		}
		c.Name = name
	}
	if params.Status != nil {
		if !params.Status.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, *params.Status)
		}
		c.Status = *params.Status
	}

	c.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a campaign and everything under it. Frees a campaign
// slot immediately; the database cascades testimonials and QR codes.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, tenantID, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "campaign deleted",
		slog.String("tenant_id", tenantID.String()),
		slog.String("campaign_id", id.String()))
	return nil
}

// Counter returns the live campaign counter in the form the limits
// service expects.
func (s *Service) Counter() limits.CounterFunc {
	return s.repo.CountByTenant
}
