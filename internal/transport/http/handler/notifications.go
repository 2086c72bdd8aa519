package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/grainlyyy/pds-api/internal/application/notification"
	"github.com/grainlyyy/pds-api/internal/domain"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.List(r.Context(), domain.NotificationFilter{
		RecipientAddress: q.Get("recipientAddress"),
		RecipientType:    q.Get("recipientType"),
		UnreadOnly:       q.Get("unreadOnly") == "true",
	})
	if err != nil {
		httpError(w, err)
		return
	}
	if items == nil {
		items = []domain.Notification{}
	}
	writeOK(w, http.StatusOK, Envelope{"notifications": items})
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNotificationRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	n, err := h.svc.Create(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, Envelope{"notification": n})
}

func (h *NotificationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateNotificationRequest
	if err := decode(r, &req); err != nil {
		httpError(w, err)
		return
	}
	n, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeOK(w, http.StatusOK, Envelope{"notification": n})
}
