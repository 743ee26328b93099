package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/kundenmagnet/kundenmagnet/internal/campaign"
	"github.com/kundenmagnet/kundenmagnet/internal/qr"
	"github.com/kundenmagnet/kundenmagnet/internal/storage"
	"github.com/kundenmagnet/kundenmagnet/internal/testimonial"
	"github.com/kundenmagnet/kundenmagnet/internal/widget"
	"github.com/kundenmagnet/kundenmagnet/pkg/billing"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
)

// limitEnvelope is the response body for plan limit denials.
type limitEnvelope struct {
	Error   string        `json:"error"`
	Code    string        `json:"code"`
	Current int64         `json:"current"`
	Limit   int64         `json:"limit"`
	PlanID  limits.PlanID `json:"planId"`
}

type errorEnvelope struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorEnvelope{Error: msg})
}

// writeLimitDenied renders a denial Result. Persistent resource denials
// are 403 (the tenant acted, the plan says no); rate denials are 429
// (back off, the budget resets at midnight UTC).
func writeLimitDenied(w http.ResponseWriter, status int, res limits.Result) {
	writeJSON(w, status, limitEnvelope{
		Error:   res.Message,
		Code:    "LIMIT_EXCEEDED",
		Current: res.Current,
		Limit:   res.Limit,
		PlanID:  res.PlanID,
	})
}

// writeServiceError maps domain errors onto HTTP responses. Unknown
// errors are logged and become opaque 500s: plan lookup and counter
// failures must deny, never silently allow.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var denial *limits.DenialError
	if errors.As(err, &denial) {
		writeLimitDenied(w, http.StatusForbidden, denial.Result)
		return
	}

	switch {
	case errors.Is(err, campaign.ErrNotFound),
		errors.Is(err, testimonial.ErrNotFound),
		errors.Is(err, qr.ErrNotFound),
		errors.Is(err, billing.ErrSubscriptionNotFound),
		errors.Is(err, widget.ErrNotAvailable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, campaign.ErrInvalidName),
		errors.Is(err, campaign.ErrInvalidStatus),
		errors.Is(err, testimonial.ErrInvalidRating),
		errors.Is(err, testimonial.ErrInvalidAuthor),
		errors.Is(err, testimonial.ErrInvalidText),
		errors.Is(err, testimonial.ErrInvalidStatus),
		errors.Is(err, qr.ErrInvalidLabel),
		errors.Is(err, storage.ErrUnsupportedMIMEType),
		errors.Is(err, storage.ErrPhotoTooLarge),
		errors.Is(err, billing.ErrInvalidPlan):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, testimonial.ErrCampaignNotOpen),
		errors.Is(err, campaign.ErrSlugTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, testimonial.ErrExportNotAllowed),
		errors.Is(err, billing.ErrNoPortalForFreePlan):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, limits.ErrDowngradeNotPossible):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
