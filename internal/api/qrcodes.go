package api

import (
	"net/http"
	"strconv"

	"github.com/kundenmagnet/kundenmagnet/internal/qr"
	"github.com/kundenmagnet/kundenmagnet/pkg/tenant"
)

func (h *handlers) createQRCode(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	campaignID, ok := pathUUID(r, "campaignID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign ID")
		return
	}

	var req struct {
		Label string `json:"label"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	code, err := h.qrcodes.Create(r.Context(), t.ID, campaignID, req.Label)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		*qr.Code
		ScanURL string `json:"scanUrl"`
	}{Code: code, ScanURL: h.qrcodes.ScanURL(code.ID)})
}

func (h *handlers) listQRCodes(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	campaignID, ok := pathUUID(r, "campaignID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid campaign ID")
		return
	}

	codes, err := h.qrcodes.List(r.Context(), t.ID, campaignID)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if codes == nil {
		codes = []qr.Code{}
	}
	writeJSON(w, http.StatusOK, codes)
}

// qrCodePNG serves the printable QR image.
func (h *handlers) qrCodePNG(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	id, ok := pathUUID(r, "qrID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid QR code ID")
		return
	}

	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	png, err := h.qrcodes.PNG(r.Context(), t.ID, id, size)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=86400")
	_, _ = w.Write(png)
}

func (h *handlers) deleteQRCode(w http.ResponseWriter, r *http.Request) {
	t := tenant.MustFromContext(r.Context())
	id, ok := pathUUID(r, "qrID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid QR code ID")
		return
	}

	if err := h.qrcodes.Delete(r.Context(), t.ID, id); err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// scanRedirect resolves a printed QR code and forwards the visitor to
// the campaign's collection page. Over-limit tenants get a 429 so
// scanners see a clear error rather than a broken page.
func (h *handlers) scanRedirect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(r, "qrID")
	if !ok {
		writeError(w, http.StatusNotFound, "unknown QR code")
		return
	}

	target, res, err := h.qrcodes.Scan(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err)
		return
	}
	if !res.Allowed {
		writeLimitDenied(w, http.StatusTooManyRequests, res)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}
