package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sqlgate/internal/domain"
)

type accessRequestRequest struct {
	RoleID     string     `json:"role_id"`
	Reason     string     `json:"reason"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`
}

func (h *Handler) CreateAccessRequest(w http.ResponseWriter, r *http.Request) {
	var req accessRequestRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.requests.Create(r.Context(), req.RoleID, req.Reason, req.ValidFrom, req.ValidUntil)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) ListAccessRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	reqs, err := h.requests.List(r.Context(), q.Get("user_id"), domain.RequestStatus(q.Get("status")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"requests": reqs})
}

func (h *Handler) CountPendingRequests(w http.ResponseWriter, r *http.Request) {
	count, err := h.requests.CountPending(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"pending": count})
}

func (h *Handler) ApproveAccessRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.requests.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) RejectAccessRequest(w http.ResponseWriter, r *http.Request) {
	var body rejectRequest
	if err := decode(r, &body); err != nil {
		h.writeError(w, err)
		return
	}
	req, err := h.requests.Reject(r.Context(), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}
