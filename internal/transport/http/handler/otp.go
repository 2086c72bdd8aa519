package handler

import (
	"net/http"

	"github.com/grainlyyy/pds-api/internal/application/otp"
	"github.com/grainlyyy/pds-api/internal/domain"
)

type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler { return &OTPHandler{svc: svc} }

func (h *OTPHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req domain.GenerateOTPRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	gen, err := h.svc.Generate(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{
		"message":       "OTP generated successfully",
		"pickupId":      gen.PickupID,
		"otpCode":       gen.OTPCode,
		"expiresAt":     gen.ExpiresAt,
		"remainingTime": gen.RemainingTime,
	})
}

func (h *OTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	v, err := h.svc.Verify(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"message": "OTP verified successfully", "verification": v})
}

func (h *OTPHandler) Details(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d, err := h.svc.Details(r.Context(), q.Get("pickupId"), q.Get("userAddress"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"otp": d})
}

func (h *OTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"stats": stats})
}

func (h *OTPHandler) Cleanup(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Cleanup(r.Context())
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"message": "expired OTPs removed", "deletedCount": n})
}
