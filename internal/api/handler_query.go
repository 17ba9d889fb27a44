package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sqlgate/internal/domain"
)

type executeQueryRequest struct {
	SQL string `json:"sql"`
}

func (h *Handler) ExecuteQuery(w http.ResponseWriter, r *http.Request) {
	var req executeQueryRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.SQL == "" {
		h.writeError(w, domain.ErrValidation("sql is required"))
		return
	}
	out, err := h.query.Execute(r.Context(), req.SQL)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"columns":           out.Result.Columns,
		"rows":              out.Result.Rows,
		"sql":               out.SQL,
		"rewritten":         out.Rewritten,
		"masked_columns":    out.MaskedColumns,
		"ambiguous_columns": out.AmbiguousColumns,
		"execution_ms":      out.ExecutionMS,
	})
}

type checkAccessRequest struct {
	Privilege string `json:"privilege"`
	Resource  string `json:"resource"`
}

func (h *Handler) CheckAccess(w http.ResponseWriter, r *http.Request) {
	var req checkAccessRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.Privilege == "" {
		h.writeError(w, domain.ErrValidation("privilege is required"))
		return
	}
	allowed, err := h.query.CheckAccess(r.Context(), req.Privilege, req.Resource)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"allowed": allowed})
}

func (h *Handler) EffectivePrivileges(w http.ResponseWriter, r *http.Request) {
	roles, privs, err := h.query.EffectivePrivileges(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"roles":      roles,
		"privileges": privs,
	})
}

func (h *Handler) QueryHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	entries, err := h.query.History(r.Context(), q.Get("principal"), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"history": entries})
}

func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.audit.List(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"audit": entries})
}
