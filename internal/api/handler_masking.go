package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sqlgate/internal/domain"
)

type maskingRuleRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Schema      string  `json:"schema"`
	Table       string  `json:"table"`
	Column      string  `json:"column"`
	RoleID      *string `json:"role_id"`
	Kind        string  `json:"kind"`
	PrefixLen   int     `json:"prefix_len"`
	SuffixLen   int     `json:"suffix_len"`
	MaskToken   string  `json:"mask_token"`
	Pattern     string  `json:"pattern"`
	Replacement string  `json:"replacement"`
	Enabled     *bool   `json:"enabled"`
	Priority    int     `json:"priority"`
}

func (req maskingRuleRequest) toDomain(id string) *domain.MaskingRule {
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	return &domain.MaskingRule{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		Schema:      req.Schema,
		Table:       req.Table,
		Column:      req.Column,
		RoleID:      req.RoleID,
		Kind:        domain.MaskKind(req.Kind),
		Params: domain.MaskParams{
			PrefixLen:   req.PrefixLen,
			SuffixLen:   req.SuffixLen,
			MaskToken:   req.MaskToken,
			Pattern:     req.Pattern,
			Replacement: req.Replacement,
		},
		Enabled:  enabled,
		Priority: req.Priority,
	}
}

func (h *Handler) CreateMaskingRule(w http.ResponseWriter, r *http.Request) {
	var req maskingRuleRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.masking.Create(r.Context(), req.toDomain(""))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetMaskingRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.masking.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rule)
}

func (h *Handler) ListMaskingRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.masking.List(r.Context(), r.URL.Query().Get("table"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

func (h *Handler) UpdateMaskingRule(w http.ResponseWriter, r *http.Request) {
	var req maskingRuleRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.masking.Update(r.Context(), req.toDomain(chi.URLParam(r, "id")))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteMaskingRule(w http.ResponseWriter, r *http.Request) {
	if err := h.masking.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type previewRequest struct {
	SQL    string `json:"sql"`
	RoleID string `json:"role_id"`
}

// PreviewMasking dry-runs the rewriter against a role's rules.
func (h *Handler) PreviewMasking(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	if req.SQL == "" {
		h.writeError(w, domain.ErrValidation("sql is required"))
		return
	}
	out, err := h.masking.Preview(r.Context(), req.SQL, req.RoleID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"sql":               out.SQL,
		"rewritten":         out.Rewritten,
		"masked_columns":    out.MaskedColumns,
		"ambiguous_columns": out.AmbiguousColumns,
	})
}
