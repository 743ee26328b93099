package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/internal/campaign"
	"github.com/kundenmagnet/kundenmagnet/internal/testimonial"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
)

// feedSize caps how many testimonials one widget load returns.
const feedSize = 50

var ErrNotAvailable = errors.New("widget is not available for this campaign")

// Entry is one testimonial in the public feed. Author emails never
// leave the backend.
type Entry struct {
	AuthorName string    `json:"authorName"`
	Rating     int       `json:"rating"`
	Text       string    `json:"text"`
	PhotoURL   string    `json:"photoUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Feed is the embeddable widget payload.
type Feed struct {
	CampaignID   uuid.UUID `json:"campaignId"`
	CampaignName string    `json:"campaignName"`
	Testimonials []Entry   `json:"testimonials"`
	// Branding is false only on plans with the white_label feature.
	Branding bool `json:"branding"`
	// Themeable reports whether the embed may apply custom styling.
	Themeable bool `json:"themeable"`
}

// Service assembles the public widget feed. Every load is charged
// against the owning tenant's daily widget request limit.
type Service struct {
	testimonials testimonial.Repository
	campaigns    campaign.Repository
	limits       *limits.Service
	log          *slog.Logger
}

// NewService creates a widget service.
func NewService(testimonials testimonial.Repository, campaigns campaign.Repository, limitsSvc *limits.Service, log *slog.Logger) *Service {
	if testimonials == nil {
		panic("widget: testimonial repository is required")
	}
	if campaigns == nil {
		panic("widget: campaign repository is required")
	}
	if limitsSvc == nil {
		panic("widget: limits service is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{testimonials: testimonials, campaigns: campaigns, limits: limitsSvc, log: log}
}

// Feed returns the approved testimonials for a campaign, charging one
// widget request against the owning tenant. A denied result means the
// tenant's daily budget is exhausted; the feed is nil and the caller
// should respond with 429 so embeds back off.
func (s *Service) Feed(ctx context.Context, campaignID uuid.UUID) (*Feed, limits.Result, error) {
	c, err := s.campaigns.GetAny(ctx, campaignID)
	if err != nil {
		return nil, limits.Result{}, err
	}
	// Paused campaigns stop collecting but keep serving; only archived
	// campaigns disappear from embeds.
	if c.Status == campaign.StatusArchived {
		return nil, limits.Result{}, ErrNotAvailable
	}

	res, err := s.limits.Guard(c.TenantID).CheckAndIncrementWidgetRequest(ctx)
	if err != nil {
		return nil, limits.Result{}, fmt.Errorf("record widget request: %w", err)
	}
	if !res.Allowed {
		s.log.WarnContext(ctx, "widget request denied by plan limit",
			slog.String("tenant_id", c.TenantID.String()),
			slog.String("campaign_id", campaignID.String()),
			slog.Int64("limit", res.Limit))
		return nil, res, nil
	}

	items, err := s.testimonials.ListApproved(ctx, campaignID, feedSize)
	if err != nil {
		return nil, limits.Result{}, err
	}

	feed := &Feed{
		CampaignID:   c.ID,
		CampaignName: c.Name,
		Testimonials: make([]Entry, 0, len(items)),
		Branding:     !s.limits.HasFeature(ctx, c.TenantID, limits.FeatureWhiteLabel),
		Themeable:    s.limits.HasFeature(ctx, c.TenantID, limits.FeatureWidgetCustomization),
	}
	for _, t := range items {
		feed.Testimonials = append(feed.Testimonials, Entry{
			AuthorName: t.AuthorName,
			Rating:     t.Rating,
			Text:       t.Text,
			PhotoURL:   t.PhotoURL,
			CreatedAt:  t.CreatedAt,
		})
	}
	return feed, res, nil
}
