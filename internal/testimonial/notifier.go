package testimonial

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/kundenmagnet/kundenmagnet/pkg/email"
	"github.com/kundenmagnet/kundenmagnet/pkg/tenant"
)

// EmailNotifier emails the tenant owner when a new testimonial arrives.
// Delivery runs in the background; failures are logged, never surfaced
// to the submitting customer.
type EmailNotifier struct {
	sender  email.Sender
	tenants tenant.Provider
	appURL  string
	log     *slog.Logger
}

// NewEmailNotifier creates a notifier that delivers via the given sender.
func NewEmailNotifier(sender email.Sender, tenants tenant.Provider, appURL string, log *slog.Logger) *EmailNotifier {
	if sender == nil {
		panic("testimonial: email sender is required")
	}
	if tenants == nil {
		panic("testimonial: tenant provider is required")
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &EmailNotifier{
		sender:  sender,
		tenants: tenants,
		appURL:  strings.TrimSuffix(appURL, "/"),
		log:     log,
	}
}

func (n *EmailNotifier) TestimonialReceived(ctx context.Context, t *Testimonial) {
	// Detach from the request context so delivery survives the response.
	go n.deliver(context.WithoutCancel(ctx), t)
}

func (n *EmailNotifier) deliver(ctx context.Context, t *Testimonial) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	owner, err := n.tenants.GetByID(ctx, t.TenantID)
	if err != nil {
		n.log.ErrorContext(ctx, "failed to load tenant for notification",
			slog.String("tenant_id", t.TenantID.String()),
			slog.Any("error", err))
		return
	}

	msg := email.Message{
		To:       owner.Email,
		Subject:  fmt.Sprintf("New %d-star testimonial from %s", t.Rating, t.AuthorName),
		BodyHTML: n.body(t),
		Tag:      "new-testimonial",
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		n.log.ErrorContext(ctx, "failed to send testimonial notification",
			slog.String("tenant_id", t.TenantID.String()),
			slog.String("testimonial_id", t.ID.String()),
			slog.Any("error", err))
	}
}

func (n *EmailNotifier) body(t *Testimonial) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>New testimonial received</h2>")
	fmt.Fprintf(&b, "<p><strong>%s</strong> rated you %s</p>",
		html.EscapeString(t.AuthorName), strings.Repeat("★", t.Rating))
	fmt.Fprintf(&b, "<blockquote>%s</blockquote>", html.EscapeString(t.Text))
	fmt.Fprintf(&b, `<p><a href="%s/campaigns/%s/testimonials">Review and approve it</a> to publish it in your widget.</p>`,
		n.appURL, t.CampaignID)
	return b.String()
}
