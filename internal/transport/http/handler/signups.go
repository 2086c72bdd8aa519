package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainlyyy/pds-api/internal/application/signup"
	"github.com/grainlyyy/pds-api/internal/domain"
	"github.com/grainlyyy/pds-api/internal/transport/http/middleware"
)

type SignupHandler struct {
	svc signup.Service
}

func NewSignupHandler(svc signup.Service) *SignupHandler { return &SignupHandler{svc: svc} }

func signupKind(r *http.Request) (domain.SignupKind, error) {
	switch k := domain.SignupKind(chi.URLParam(r, "kind")); k {
	case domain.SignupConsumer, domain.SignupDelivery, domain.SignupShopkeeper:
		return k, nil
	default:
		return "", fmt.Errorf("unknown signup kind %q: %w", k, domain.ErrNotFound)
	}
}

func (h *SignupHandler) Submit(w http.ResponseWriter, r *http.Request) {
	kind, err := signupKind(r)
	if err != nil {
		httpError(w, err)
		return
	}
	var rec interface{}
	switch kind {
	case domain.SignupConsumer:
		var req domain.ConsumerSignupRequest
		if err = decode(r, &req); err == nil {
			rec, err = h.svc.SubmitConsumer(r.Context(), req)
		}
	case domain.SignupDelivery:
		var req domain.DeliverySignupRequest
		if err = decode(r, &req); err == nil {
			rec, err = h.svc.SubmitDelivery(r.Context(), req)
		}
	case domain.SignupShopkeeper:
		var req domain.ShopkeeperSignupRequest
		if err = decode(r, &req); err == nil {
			rec, err = h.svc.SubmitShopkeeper(r.Context(), req)
		}
	}
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, Envelope{
		"message": "Signup request submitted, an administrator will review it",
		"request": rec,
	})
}

func (h *SignupHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, err := signupKind(r)
	if err != nil {
		httpError(w, err)
		return
	}
	q := signup.ListQuery{
		Status: r.URL.Query().Get("status"),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}
	var page interface{}
	switch kind {
	case domain.SignupConsumer:
		page, err = h.svc.ListConsumers(r.Context(), q)
	case domain.SignupDelivery:
		page, err = h.svc.ListDelivery(r.Context(), q)
	case domain.SignupShopkeeper:
		page, err = h.svc.ListShopkeepers(r.Context(), q)
	}
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"data": page})
}

func (h *SignupHandler) Get(w http.ResponseWriter, r *http.Request) {
	kind, err := signupKind(r)
	if err != nil {
		httpError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	var rec interface{}
	switch kind {
	case domain.SignupConsumer:
		rec, err = h.svc.GetConsumer(r.Context(), id)
	case domain.SignupDelivery:
		rec, err = h.svc.GetDelivery(r.Context(), id)
	case domain.SignupShopkeeper:
		rec, err = h.svc.GetShopkeeper(r.Context(), id)
	}
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"request": rec})
}

func (h *SignupHandler) Review(w http.ResponseWriter, r *http.Request) {
	kind, err := signupKind(r)
	if err != nil {
		httpError(w, err)
		return
	}
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.ReviewRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	var rec interface{}
	switch kind {
	case domain.SignupConsumer:
		rec, err = h.svc.ReviewConsumer(r.Context(), id, claims.Subject, req)
	case domain.SignupDelivery:
		rec, err = h.svc.ReviewDelivery(r.Context(), id, claims.Subject, req)
	case domain.SignupShopkeeper:
		rec, err = h.svc.ReviewShopkeeper(r.Context(), id, claims.Subject, req)
	}
	if err != nil {
		httpError(w, err)
		return
	}
	msg := "Request approved"
	if req.Action == domain.ReviewReject {
		msg = "Request rejected"
	}
	writeOK(w, http.StatusOK, Envelope{"message": msg, "request": rec})
}

// Categories lists the ration categories accepted on consumer approval.
func (h *SignupHandler) Categories(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Categories(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"categories": list.Categories, "stats": list.Stats, "source": list.Source})
}

func (h *SignupHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Reconcile(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"report": report})
}
