package service

import (
	"context"
	"time"

	"sqlgate/internal/domain"
)

// AccessRequestService manages the role request workflow.
type AccessRequestService struct {
	requests domain.AccessRequestRepository
	roles    domain.RoleRepository
	audit    domain.AuditRepository
	now      func() time.Time
}

// NewAccessRequestService creates a new AccessRequestService.
func NewAccessRequestService(requests domain.AccessRequestRepository, roles domain.RoleRepository, audit domain.AuditRepository) *AccessRequestService {
	return &AccessRequestService{requests: requests, roles: roles, audit: audit, now: time.Now}
}

// Create files a request for a role grant on behalf of the caller. A user
// may have at most one pending request per role.
func (s *AccessRequestService) Create(ctx context.Context, roleID, reason string, validFrom, validUntil *time.Time) (*domain.AccessRequest, error) {
	userID := callerID(ctx)
	if userID == "" {
		return nil, domain.ErrAccessDenied("authentication required")
	}
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return nil, err
	}
	if validFrom != nil && validUntil != nil && !validFrom.Before(*validUntil) {
		return nil, domain.ErrValidation("valid_from must precede valid_until")
	}
	pending, err := s.requests.PendingExists(ctx, userID, roleID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, domain.ErrConflict("a pending request for this role already exists")
	}
	return s.requests.Create(ctx, &domain.AccessRequest{
		UserID:        userID,
		RoleID:        roleID,
		Status:        domain.RequestPending,
		RequestReason: reason,
		ValidFrom:     validFrom,
		ValidUntil:    validUntil,
	})
}

// List returns requests, optionally filtered by user and status. Non-admin
// callers only see their own requests.
func (s *AccessRequestService) List(ctx context.Context, userID string, status domain.RequestStatus) ([]domain.AccessRequestDetail, error) {
	p, ok := domain.PrincipalFromContext(ctx)
	if !ok {
		return nil, domain.ErrAccessDenied("authentication required")
	}
	if !p.IsAdmin {
		userID = p.UserID
	}
	if status != "" && !status.Valid() {
		return nil, domain.ErrValidation("invalid status %q", status)
	}
	return s.requests.List(ctx, userID, status)
}

// CountPending returns the number of requests awaiting review.
func (s *AccessRequestService) CountPending(ctx context.Context) (int64, error) {
	if err := requireAdmin(ctx); err != nil {
		return 0, err
	}
	return s.requests.CountPending(ctx)
}

// Approve grants the requested role, materializing a user-role assignment
// carrying the request's validity window.
func (s *AccessRequestService) Approve(ctx context.Context, id string) (*domain.AccessRequest, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrConflict("request %s is already %s", id, req.Status)
	}
	if err := s.roles.UpsertAssignment(ctx, domain.UserRole{
		UserID:     req.UserID,
		RoleID:     req.RoleID,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
	}); err != nil {
		return nil, err
	}
	reviewer := callerID(ctx)
	reviewedAt := s.now()
	req.Status = domain.RequestApproved
	req.ReviewerID = &reviewer
	req.ReviewedAt = &reviewedAt
	updated, err := s.requests.Update(ctx, req)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "APPROVE_ACCESS_REQUEST",
		Resource:  req.RoleID,
		Outcome:   domain.OutcomeAllowed,
		Detail:    "user " + req.UserID,
	})
	return updated, nil
}

// Reject declines a pending request, recording the reviewer and reason.
func (s *AccessRequestService) Reject(ctx context.Context, id, reason string) (*domain.AccessRequest, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.RequestPending {
		return nil, domain.ErrConflict("request %s is already %s", id, req.Status)
	}
	reviewer := callerID(ctx)
	reviewedAt := s.now()
	req.Status = domain.RequestRejected
	req.ReviewerID = &reviewer
	req.ReviewedAt = &reviewedAt
	req.RejectionReason = &reason
	updated, err := s.requests.Update(ctx, req)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "REJECT_ACCESS_REQUEST",
		Resource:  req.RoleID,
		Outcome:   domain.OutcomeAllowed,
		Detail:    "user " + req.UserID,
	})
	return updated, nil
}
