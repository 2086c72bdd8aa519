package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainlyyy/pds-api/internal/application/identity"
	"github.com/grainlyyy/pds-api/internal/domain"
)

type IdentityHandler struct {
	svc identity.Service
}

func NewIdentityHandler(svc identity.Service) *IdentityHandler { return &IdentityHandler{svc: svc} }

// Get resolves /identities/{role}/{key}: a wallet address for shopkeepers and
// delivery agents, an Aadhaar number for consumers.
func (h *IdentityHandler) Get(w http.ResponseWriter, r *http.Request) {
	role, err := domain.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpError(w, err)
		return
	}
	id, err := h.svc.Resolve(r.Context(), role, chi.URLParam(r, "key"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"identity": id, "source": id.Provenance})
}
