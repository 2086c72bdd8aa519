package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainlyyy/pds-api/internal/application/pickup"
	"github.com/grainlyyy/pds-api/internal/domain"
)

// PickupHandler serves admin chain operations and ABI document management.
type PickupHandler struct {
	svc pickup.Service
}

func NewPickupHandler(svc pickup.Service) *PickupHandler { return &PickupHandler{svc: svc} }

func (h *PickupHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req domain.AssignPickupRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.Assign(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{
		"message":     "Ration pickup assigned",
		"pickupId":    res.PickupID,
		"txHash":      res.TxHash,
		"explorerUrl": res.ExplorerURL,
		"assignment":  res.Assignment,
	})
}

func (h *PickupHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	tx, err := h.svc.Confirm(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"message": "Ration receipt confirmed", "transaction": tx})
}

func (h *PickupHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	var req domain.MarkDeliveredRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	tx, err := h.svc.MarkDelivered(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"message": "Ration marked as delivered", "transaction": tx})
}

// UploadABI takes the raw facet document as the request body.
func (h *PickupHandler) UploadABI(w http.ResponseWriter, r *http.Request) {
	doc, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	up, err := h.svc.UploadABI(r.Context(), doc)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"message": "ABI document updated", "abi": up})
}

func (h *PickupHandler) ABIURL(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.ABIURL(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"url": url, "expiresIn": int(pickup.ABIURLTTL.Seconds())})
}
