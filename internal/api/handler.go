// Package api provides the HTTP handlers for the governance REST API.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"sqlgate/internal/domain"
	"sqlgate/internal/service"
)

// Handler holds the service dependencies for every route.
type Handler struct {
	roles      *service.RoleService
	privileges *service.PrivilegeService
	masking    *service.MaskingService
	exceptions *service.ExceptionService
	requests   *service.AccessRequestService
	users      *service.UserService
	query      *service.QueryService
	audit      *service.AuditService
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required services.
func NewHandler(
	roles *service.RoleService,
	privileges *service.PrivilegeService,
	masking *service.MaskingService,
	exceptions *service.ExceptionService,
	requests *service.AccessRequestService,
	users *service.UserService,
	query *service.QueryService,
	audit *service.AuditService,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		roles:      roles,
		privileges: privileges,
		masking:    masking,
		exceptions: exceptions,
		requests:   requests,
		users:      users,
		query:      query,
		audit:      audit,
		logger:     logger,
	}
}

// httpStatusFromDomainError maps domain errors to HTTP status codes.
func httpStatusFromDomainError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var conflict *domain.ConflictError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := httpStatusFromDomainError(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("internal error", "error", err)
		h.writeJSON(w, status, map[string]interface{}{"code": status, "message": "internal error"})
		return
	}
	h.writeJSON(w, status, map[string]interface{}{"code": status, "message": err.Error()})
}

func decode(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.ErrValidation("invalid request body: %s", err)
	}
	return nil
}
