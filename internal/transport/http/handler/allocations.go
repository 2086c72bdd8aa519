package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainlyyy/pds-api/internal/application/allocation"
	"github.com/grainlyyy/pds-api/internal/domain"
)

type AllocationHandler struct {
	svc allocation.Service
}

func NewAllocationHandler(svc allocation.Service) *AllocationHandler {
	return &AllocationHandler{svc: svc}
}

func (h *AllocationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.List(r.Context(), domain.AllocationFilter{
		Status:     q.Get("status"),
		Shopkeeper: q.Get("shopkeeper"),
		Rider:      q.Get("rider"),
	})
	if err != nil {
		httpError(w, err)
		return
	}
	if items == nil {
		items = []domain.Allocation{}
	}
	writeOK(w, http.StatusOK, Envelope{"allocations": items, "count": len(items)})
}

func (h *AllocationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAllocationRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	a, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, Envelope{"allocation": a})
}

func (h *AllocationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateAllocationRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	a, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"allocation": a})
}

func (h *AllocationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"message": "allocation deleted"})
}
