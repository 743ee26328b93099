package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kundenmagnet/kundenmagnet/internal/storage"
	"github.com/kundenmagnet/kundenmagnet/internal/testimonial"
	"github.com/kundenmagnet/kundenmagnet/pkg/limits"
	"github.com/kundenmagnet/kundenmagnet/pkg/tenant"
)

// submitTestimonial is the public submission endpoint behind collection
// pages. JSON for text-only submissions, multipart when a photo rides
// along. Rate denial here is 403: the campaign is full, not throttled.
func (h *handlers) submitTestimonial(w http.ResponseWriter, r *http.Request) {
	campaignID, ok := pathUUID(r, "campaignID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign ID")
		return
	}

	params, err := decodeSubmission(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	t, err := h.testimonials.Submit(r.Context(), campaignID, params)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func decodeSubmission(r *http.Request) (testimonial.SubmitParams, error) {
	var params testimonial.SubmitParams

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(storage.MaxPhotoSize + 1<<20); err != nil {
			return params, errors.New("invalid multipart form")
		}
		params.AuthorName = r.FormValue("authorName")
		params.AuthorEmail = r.FormValue("authorEmail")
		params.Text = r.FormValue("text")
		if _, err := fmt.Sscanf(r.FormValue("rating"), "%d", &params.Rating); err != nil {
			return params, errors.New("invalid rating")
		}

		file, header, err := r.FormFile("photo")
		if err == nil {
			defer func() { _ = file.Close() }()
			data, err := io.ReadAll(io.LimitReader(file, storage.MaxPhotoSize+1))
			if err != nil {
				return params, errors.New("failed to read photo")
			}
			params.Photo = data
			params.PhotoContentType = header.Header.Get("Content-Type")
		}
		return params, nil
	}

	if err := decodeJSON(r, &params); err != nil {
		return params, errors.New("invalid request body")
	}
	return params, nil
}

func (h *handlers) listTestimonials(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	campaignID, ok := pathUUID(r, "campaignID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign ID")
		return
	}

	status := testimonial.Status(r.URL.Query().Get("status"))
	items, err := h.testimonials.List(r.Context(), t.ID, campaignID, status)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if items == nil {
		items = []testimonial.Testimonial{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handlers) moderateTestimonial(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	id, ok := pathUUID(r, "testimonialID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid testimonial ID")
		return
	}

	var req struct {
		Status testimonial.Status `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.testimonials.SetStatus(r.Context(), t.ID, id, req.Status); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) deleteTestimonial(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	id, ok := pathUUID(r, "testimonialID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid testimonial ID")
		return
	}

	if err := h.testimonials.Delete(r.Context(), t.ID, id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportTestimonials streams a campaign's testimonials as CSV. Gated on
// the csv_export plan feature.
func (h *handlers) exportTestimonials(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	campaignID, ok := pathUUID(r, "campaignID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign ID")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="testimonials.csv"`)
	if err := h.testimonials.ExportCSV(r.Context(), t.ID, campaignID, w); err != nil {
		// Reset the headers only if nothing was written yet.
		w.Header().Del("Content-Disposition")
		writeServiceError(w, r, h.log, err)
		return
	}
}

func (h *handlers) usageStats(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())

	stats, err := h.limits.UsageStats(r.Context(), t.ID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handlers) listPlans(w http.ResponseWriter, r *http.Request) {
	type planView struct {
		ID          limits.PlanID             `json:"id"`
		Name        string                    `json:"name"`
		Description string                    `json:"description"`
		Limits      map[limits.Resource]int64 `json:"limits"`
		Features    []limits.Feature          `json:"features"`
	}

	plans := h.limits.PublicPlans()
	views := make([]planView, 0, len(plans))
	for _, p := range plans {
		features := p.Features
		if features == nil {
			features = []limits.Feature{}
		}
		views = append(views, planView{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Limits:      p.Limits,
			Features:    features,
		})
	}
	writeJSON(w, http.StatusOK, views)
}
