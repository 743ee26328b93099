package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/kundenmagnet/kundenmagnet/pkg/billing"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
	"github.com/kundenmagnet/kundenmagnet/pkg/tenant"
)

func (h *handlers) getSubscription(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())

	sub, err := h.billing.GetSubscription(r.Context(), t.ID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *handlers) createCheckout(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())

	var req struct {
		PlanID     limits.PlanID `json:"planId"`
		SuccessURL string        `json:"successUrl"`
		CancelURL  string        `json:"cancelUrl"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	link, err := h.billing.CreateCheckoutLink(r.Context(), t.ID, req.PlanID, billing.CheckoutOptions{
		Email:      t.Email,
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *handlers) customerPortal(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())

	link, err := h.billing.GetCustomerPortalLink(r.Context(), t.ID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// billingWebhook receives provider events. Forged or malformed calls
// read as 400; anything else (store failures, unknown prices) reads as
// 500 so the provider retries it.
func (h *handlers) billingWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read payload")
		return
	}
	defer func() { _ = r.Body.Close() }()

	signature := r.Header.Get("Paddle-Signature")
	if err := h.billing.HandleWebhook(r.Context(), payload, signature); err != nil {
		h.log.ErrorContext(r.Context(), "billing webhook failed", "error", err)
		if errors.Is(err, billing.ErrWebhookVerification) || errors.Is(err, billing.ErrInvalidWebhookPayload) {
			writeError(w, http.StatusBadRequest, "webhook rejected")
			return
		}
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
		return
	}
	w.WriteHeader(http.StatusOK)
}
