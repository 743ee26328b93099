package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kundenmagnet/kundenmagnet/internal/campaign"
	"github.com/kundenmagnet/kundenmagnet/pkg/tenant"
)

func pathUUID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	return id, err == nil
}

func (h *handlers) createCampaign(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())

	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.campaigns.Create(r.Context(), t.ID, req.Name)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *handlers) listCampaigns(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())

	campaigns, err := h.campaigns.List(r.Context(), t.ID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if campaigns == nil {
		campaigns = []campaign.Campaign{}
	}
	writeJSON(w, http.StatusOK, campaigns)
}

func (h *handlers) getCampaign(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	id, ok := pathUUID(r, "campaignID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign ID")
		return
	}

	c, err := h.campaigns.Get(r.Context(), t.ID, id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) updateCampaign(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	id, ok := pathUUID(r, "campaignID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign ID")
		return
	}

	var params campaign.UpdateParams
	if err := decodeJSON(r, &params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	c, err := h.campaigns.Update(r.Context(), t.ID, id, params)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *handlers) deleteCampaign(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	id, ok := pathUUID(r, "campaignID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign ID")
		return
	}

	if err := h.campaigns.Delete(r.Context(), t.ID, id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
