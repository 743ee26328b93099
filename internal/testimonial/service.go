package testimonial

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/internal/campaign"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
)

// PhotoUploader stores author photos and returns their public URLs.
// Satisfied by internal/storage.PhotoStore.
type PhotoUploader interface {
	Upload(ctx context.Context, tenantID, testimonialID uuid.UUID, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, photoURL string) error
}

// Notifier is called after a testimonial is accepted. Implementations
// must not block the submission path on slow delivery.
type Notifier interface {
	TestimonialReceived(ctx context.Context, t *Testimonial)
}

// Service implements testimonial collection and moderation with plan
// limit enforcement.
type Service struct {
	repo      Repository
	campaigns campaign.Repository
	limits    *limits.Service
	photos    PhotoUploader
	notifier  Notifier
	log       *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithPhotoUploader enables author photo uploads.
func WithPhotoUploader(p PhotoUploader) Option {
	return func(s *Service) {
		s.photos = p
	}
}

// WithNotifier enables new-testimonial notifications.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// NewService creates a testimonial service.
func NewService(repo Repository, campaigns campaign.Repository, limitsSvc *limits.Service, log *slog.Logger, opts ...Option) *Service {
	if repo == nil {
		panic("testimonial: repository is required")
	}
	if campaigns == nil {
		panic("testimonial: campaign repository is required")
	}
	if limitsSvc == nil {
		panic("testimonial: limits service is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Service{repo: repo, campaigns: campaigns, limits: limitsSvc, log: log}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitParams carries a public testimonial submission.
type SubmitParams struct {
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"authorEmail"`
	Rating      int    `json:"rating"`
	Text        string `json:"text"`

	// Optional author photo, uploaded when a photo store is configured.
	Photo            []byte `json:"-"`
	PhotoContentType string `json:"-"`
}

func (p SubmitParams) validate() error {
	if strings.TrimSpace(p.AuthorName) == "" {
		return ErrInvalidAuthor
	}
	if p.Rating < 1 || p.Rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, p.Rating)
	}
	if strings.TrimSpace(p.Text) == "" {
		return ErrInvalidText
	}
	return nil
}

// Submit accepts a testimonial for an active campaign. The campaign's
// per-campaign limit is checked before anything is stored; a denied
// check returns a limits.DenialError and stores nothing. New
// testimonials start in pending and never appear publicly until the
// tenant approves them.
func (s *Service) Submit(ctx context.Context, campaignID uuid.UUID, params SubmitParams) (*Testimonial, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	c, err := s.campaigns.GetAny(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != campaign.StatusActive {
		return nil, ErrCampaignNotOpen
	}

	res, err := s.limits.Guard(c.TenantID).CanAddTestimonial(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("check testimonial limit: %w", err)
	}
	if !res.Allowed {
		return nil, limits.Denied(res)
	}

	now := time.Now().UTC()
	t := &Testimonial{
		ID:          uuid.New(),
		TenantID:    c.TenantID,
		CampaignID:  campaignID,
		AuthorName:  strings.TrimSpace(params.AuthorName),
		AuthorEmail: strings.TrimSpace(params.AuthorEmail),
		Rating:      params.Rating,
		Text:        strings.TrimSpace(params.Text),
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if len(params.Photo) > 0 && s.photos != nil {
		url, err := s.photos.Upload(ctx, c.TenantID, t.ID, params.Photo, params.PhotoContentType)
		if err != nil {
			return nil, err
		}
		t.PhotoURL = url
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "testimonial submitted",
		slog.String("tenant_id", t.TenantID.String()),
		slog.String("campaign_id", campaignID.String()),
		slog.String("testimonial_id", t.ID.String()),
		slog.Int("rating", t.Rating))

	if s.notifier != nil {
		s.notifier.TestimonialReceived(ctx, t)
	}
	return t, nil
}

// Get returns a tenant's testimonial by ID.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (*Testimonial, error) {
	return s.repo.GetByID(ctx, tenantID, id)
}

// List returns a campaign's testimonials for the dashboard, optionally
// filtered by status.
func (s *Service) List(ctx context.Context, tenantID, campaignID uuid.UUID, status Status) ([]Testimonial, error) {
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	if _, err := s.campaigns.GetByID(ctx, tenantID, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListByCampaign(ctx, tenantID, campaignID, status)
}

// SetStatus moderates a testimonial (approve or hide).
func (s *Service) SetStatus(ctx context.Context, tenantID, id uuid.UUID, status Status) error {
	if status != StatusApproved && status != StatusHidden {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	return s.repo.UpdateStatus(ctx, tenantID, id, status)
}

// Delete soft-deletes a testimonial. The row is kept for audit but
// stops counting against the campaign's limit, so a slot frees up
// immediately. The author photo is removed from storage.
func (s *Service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	t, err := s.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, tenantID, id); err != nil {
		return err
	}
	if t.PhotoURL != "" && s.photos != nil {
		if err := s.photos.Delete(ctx, t.PhotoURL); err != nil {
			s.log.WarnContext(ctx, "failed to delete testimonial photo",
				slog.String("testimonial_id", id.String()),
				slog.Any("error", err))
		}
	}
	return nil
}

// ExportCSV writes a campaign's testimonials as CSV. Available on plans
// with the csv_export feature; checked against the live plan so a
// downgrade revokes access immediately.
func (s *Service) ExportCSV(ctx context.Context, tenantID, campaignID uuid.UUID, w io.Writer) error {
	if !s.limits.HasFeature(ctx, tenantID, limits.FeatureCSVExport) {
		return ErrExportNotAllowed
	}
	if _, err := s.campaigns.GetByID(ctx, tenantID, campaignID); err != nil {
		return err
	}

	testimonials, err := s.repo.ListByCampaign(ctx, tenantID, campaignID, "")
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"id", "author_name", "author_email", "rating", "text", "status", "created_at"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, t := range testimonials {
		record := []string{
			t.ID.String(),
			t.AuthorName,
			t.AuthorEmail,
			strconv.Itoa(t.Rating),
			t.Text,
			string(t.Status),
			t.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CampaignCounter returns the per-campaign testimonial counter in the
// form the limits service expects.
func (s *Service) CampaignCounter() limits.CampaignCounterFunc {
	return s.repo.CountByCampaign
}

// TenantCounter returns the tenant-wide testimonial counter used for
// dashboard usage stats.
func (s *Service) TenantCounter() limits.CounterFunc {
	return s.repo.CountByTenant
}
