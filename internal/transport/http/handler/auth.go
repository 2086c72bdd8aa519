package handler

import (
	"net/http"

	"github.com/grainlyyy/pds-api/internal/application/auth"
	"github.com/grainlyyy/pds-api/internal/domain"
)

type AuthHandler struct {
	svc auth.Service
}

func NewAuthHandler(svc auth.Service) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.AdminLoginRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.AdminLogin(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeLogin(w, res)
}

func (h *AuthHandler) ConsumerLogin(w http.ResponseWriter, r *http.Request) {
	var req domain.ConsumerLoginRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.ConsumerLogin(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeLogin(w, res)
}

func (h *AuthHandler) ShopkeeperLogin(w http.ResponseWriter, r *http.Request) {
	h.walletLogin(w, r, domain.RoleShopkeeper)
}

func (h *AuthHandler) DeliveryLogin(w http.ResponseWriter, r *http.Request) {
	h.walletLogin(w, r, domain.RoleDeliveryAgent)
}

func (h *AuthHandler) walletLogin(w http.ResponseWriter, r *http.Request, role domain.Role) {
	var req domain.WalletLoginRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	res, err := h.svc.WalletLogin(r.Context(), role, req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeLogin(w, res)
}

func writeLogin(w http.ResponseWriter, res *domain.LoginResult) {
	payload := Envelope{"message": "Login successful", "role": res.Role, "subject": res.Subject}
	if res.Token != "" {
		payload["token"] = res.Token
		payload["expiresAt"] = res.ExpiresAt
	}
	if res.User != nil {
		payload["user"] = res.User
	}
	writeOK(w, http.StatusOK, payload)
}
