package api

import (
	"net/http"
)

// widgetFeed serves the embeddable testimonial feed. Over-limit tenants
// get 429 so embeds back off until the daily budget resets.
func (h *handlers) widgetFeed(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign ID")
		return
	}

	feed, res, err := h.widget.Feed(r.Context(), campaignID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if !res.Allowed {
		writeLimitDenied(w, http.StatusTooManyRequests, res)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=60")
	writeJSON(w, http.StatusOK, feed)
}
