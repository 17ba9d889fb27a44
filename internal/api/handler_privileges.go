package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sqlgate/internal/domain"
)

type privilegeTypeRequest struct {
	Code        string `json:"code"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

func (h *Handler) CreatePrivilegeType(w http.ResponseWriter, r *http.Request) {
	var req privilegeTypeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.privileges.CreateType(r.Context(), &domain.PrivilegeType{
		Code:        req.Code,
		Category:    domain.PrivilegeCategory(req.Category),
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetPrivilegeType(w http.ResponseWriter, r *http.Request) {
	pt, err := h.privileges.GetType(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, pt)
}

func (h *Handler) ListPrivilegeTypes(w http.ResponseWriter, r *http.Request) {
	category := domain.PrivilegeCategory(r.URL.Query().Get("category"))
	types, err := h.privileges.ListTypes(r.Context(), category)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"privilege_types": types})
}

func (h *Handler) UpdatePrivilegeType(w http.ResponseWriter, r *http.Request) {
	var req privilegeTypeRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	updated, err := h.privileges.UpdateType(r.Context(), &domain.PrivilegeType{
		ID:          chi.URLParam(r, "id"),
		Code:        req.Code,
		Category:    domain.PrivilegeCategory(req.Category),
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeletePrivilegeType(w http.ResponseWriter, r *http.Request) {
	if err := h.privileges.DeleteType(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bindingRequest struct {
	RoleID          string  `json:"role_id"`
	PrivilegeTypeID string  `json:"privilege_type_id"`
	ResourceType    string  `json:"resource_type"`
	ResourceID      *string `json:"resource_id"`
	ConditionExpr   *string `json:"condition_expr"`
}

func (h *Handler) AssignPrivilege(w http.ResponseWriter, r *http.Request) {
	var req bindingRequest
	if err := decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.privileges.Assign(r.Context(), &domain.RolePrivilege{
		RoleID:          req.RoleID,
		PrivilegeTypeID: req.PrivilegeTypeID,
		ResourceType:    domain.ResourceType(req.ResourceType),
		ResourceID:      req.ResourceID,
		ConditionExpr:   req.ConditionExpr,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) RevokePrivilege(w http.ResponseWriter, r *http.Request) {
	if err := h.privileges.Revoke(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListBindings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bindings, err := h.privileges.ListBindings(r.Context(), domain.BindingFilter{
		RoleID:       q.Get("role_id"),
		ResourceType: domain.ResourceType(q.Get("resource_type")),
		ResourceID:   q.Get("resource_id"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"bindings": bindings})
}
