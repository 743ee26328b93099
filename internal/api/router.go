package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/kundenmagnet/kundenmagnet/internal/campaign"
	"github.com/kundenmagnet/kundenmagnet/internal/qr"
	"github.com/kundenmagnet/kundenmagnet/internal/testimonial"
	"github.com/kundenmagnet/kundenmagnet/internal/widget"
	"github.com/kundenmagnet/kundenmagnet/pkg/billing"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
	"github.com/kundenmagnet/kundenmagnet/pkg/tenant"
)

// Deps bundles everything the router needs.
type Deps struct {
	Campaigns    *campaign.Service
	Testimonials *testimonial.Service
	QRCodes      *qr.Service
	Widget       *widget.Service
	Billing      *billing.Service
	Limits       *limits.Service
	Tenants      tenant.Provider
	TenantCache  tenant.Cache
	Healthcheck  func(r *http.Request) error
	Log          *slog.Logger
}

// handlers carries the wired services into the route handlers.
type handlers struct {
	campaigns    *campaign.Service
	testimonials *testimonial.Service
	qrcodes      *qr.Service
	widget       *widget.Service
	billing      *billing.Service
	limits       *limits.Service
	log          *slog.Logger
}

// NewRouter assembles the HTTP surface: a public side (testimonial
// submission, widget feed, QR scan redirect, billing webhook) and an
// API-key-authenticated dashboard side.
func NewRouter(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = slog.New(slog.DiscardHandler)
	}
	h := &handlers{
		campaigns:    deps.Campaigns,
		testimonials: deps.Testimonials,
		qrcodes:      deps.QRCodes,
		widget:       deps.Widget,
		billing:      deps.Billing,
		limits:       deps.Limits,
		log:          deps.Log,
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.health(deps.Healthcheck))

	// Public surfaces. The widget feed is CORS-open since embeds load it
	// from arbitrary customer sites.
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
		r.Get("/widget/{campaignID}", h.widgetFeed)
		r.Post("/api/public/campaigns/{campaignID}/testimonials", h.submitTestimonial)
	})
	r.Get("/s/{qrID}", h.scanRedirect)
	r.Post("/webhooks/billing", h.billingWebhook)
	r.Get("/api/public/plans", h.listPlans)

	// Dashboard API, authenticated by tenant API key.
	r.Route("/api/v1", func(r chi.Router) {
		opts := []tenant.Option{}
		if deps.TenantCache != nil {
			opts = append(opts, tenant.WithCache(deps.TenantCache))
		}
		r.Use(tenant.Middleware(deps.Tenants, opts...))

		r.Get("/usage", h.usageStats)

		r.Route("/campaigns", func(r chi.Router) {
			r.Post("/", h.createCampaign)
			r.Get("/", h.listCampaigns)
			r.Route("/{campaignID}", func(r chi.Router) {
				r.Get("/", h.getCampaign)
				r.Patch("/", h.updateCampaign)
				r.Delete("/", h.deleteCampaign)

				r.Get("/testimonials", h.listTestimonials)
				r.Get("/testimonials/export", h.exportTestimonials)

				r.Post("/qrcodes", h.createQRCode)
				r.Get("/qrcodes", h.listQRCodes)
			})
		})

		r.Route("/testimonials/{testimonialID}", func(r chi.Router) {
			r.Patch("/status", h.moderateTestimonial)
			r.Delete("/", h.deleteTestimonial)
		})

		r.Route("/qrcodes/{qrID}", func(r chi.Router) {
			r.Get("/image", h.qrCodePNG)
			r.Delete("/", h.deleteQRCode)
		})

		r.Route("/billing", func(r chi.Router) {
			r.Get("/subscription", h.getSubscription)
			r.Post("/checkout", h.createCheckout)
			r.Get("/portal", h.customerPortal)
		})
	})

	return r
}

func (h *handlers) health(check func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r); err != nil {
				h.log.ErrorContext(r.Context(), "health check failed", slog.Any("error", err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
