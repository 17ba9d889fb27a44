package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"sqlgate/internal/domain"
)

type exceptionRequest struct {
	SubjectType       string    `json:"subject_type"`
	SubjectID         string    `json:"subject_id"`
	ResourceID        *string   `json:"resource_id"`
	OverridePrivilege string    `json:"override_privilege"`
	Scope             string    `json:"scope"`
	Purpose           string    `json:"purpose"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	RiskLevel         string    `json:"risk_level"`
}

func (h *Handler) RequestException(w http.ResponseWriter, r *http.Request) {
	var req exceptionRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.exceptions.Request(r.Context(), &domain.PolicyException{
		SubjectType:       domain.SubjectType(req.SubjectType),
		SubjectID:         req.SubjectID,
		ResourceID:        req.ResourceID,
		OverridePrivilege: req.OverridePrivilege,
		Scope:             domain.ResourceType(req.Scope),
		Purpose:           req.Purpose,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		RiskLevel:         domain.RiskLevel(req.RiskLevel),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetException(w http.ResponseWriter, r *http.Request) {
	exc, err := h.exceptions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exc)
}

func (h *Handler) ListExceptions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	excs, err := h.exceptions.List(r.Context(), domain.ExceptionStatus(q.Get("status")), q.Get("subject_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"exceptions": excs})
}

func (h *Handler) ApproveException(w http.ResponseWriter, r *http.Request) {
	exc, err := h.exceptions.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exc)
}

func (h *Handler) RejectException(w http.ResponseWriter, r *http.Request) {
	exc, err := h.exceptions.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exc)
}

func (h *Handler) RevokeException(w http.ResponseWriter, r *http.Request) {
	exc, err := h.exceptions.Revoke(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, exc)
}

func (h *Handler) ListExceptionAudits(w http.ResponseWriter, r *http.Request) {
	audits, err := h.exceptions.Audits(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"audits": audits})
}
