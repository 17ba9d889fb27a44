package service

import (
	"context"
	"time"

	"sqlgate/internal/domain"
)

// ExceptionService manages the policy exception lifecycle. Every transition
// is recorded in the exception audit trail.
type ExceptionService struct {
	exceptions domain.ExceptionRepository
	now        func() time.Time
}

// NewExceptionService creates a new ExceptionService.
func NewExceptionService(exceptions domain.ExceptionRepository) *ExceptionService {
	return &ExceptionService{exceptions: exceptions, now: time.Now}
}

// Request files a new exception in PENDING state.
func (s *ExceptionService) Request(ctx context.Context, e *domain.PolicyException) (*domain.PolicyException, error) {
	if e.SubjectType != domain.SubjectUser && e.SubjectType != domain.SubjectRole {
		return nil, domain.ErrValidation("invalid subject type %q", e.SubjectType)
	}
	if e.SubjectID == "" {
		return nil, domain.ErrValidation("subject id is required")
	}
	if e.OverridePrivilege == "" {
		return nil, domain.ErrValidation("override privilege is required")
	}
	if !e.Scope.Valid() {
		return nil, domain.ErrValidation("invalid scope %q", e.Scope)
	}
	if !e.StartTime.Before(e.EndTime) {
		return nil, domain.ErrValidation("start time must precede end time")
	}
	if e.RiskLevel == "" {
		e.RiskLevel = domain.RiskMedium
	}
	if !e.RiskLevel.Valid() {
		return nil, domain.ErrValidation("invalid risk level %q", e.RiskLevel)
	}
	e.ID = newExceptionID()
	e.Status = domain.ExceptionPending
	e.ApprovedBy = nil

	created, err := s.exceptions.Create(ctx, e)
	if err != nil {
		return nil, err
	}
	_ = s.exceptions.InsertAudit(ctx, &domain.ExceptionAudit{
		ExceptionID: created.ID,
		UserID:      callerID(ctx),
		Action:      "REQUESTED",
		Resource:    created.OverridePrivilege,
		Context:     created.Purpose,
	})
	return created, nil
}

// Get returns an exception by ID.
func (s *ExceptionService) Get(ctx context.Context, id string) (*domain.PolicyException, error) {
	return s.exceptions.GetByID(ctx, id)
}

// List returns exceptions, optionally filtered by status and subject.
func (s *ExceptionService) List(ctx context.Context, status domain.ExceptionStatus, subjectID string) ([]domain.PolicyException, error) {
	if status != "" && !status.Valid() {
		return nil, domain.ErrValidation("invalid status %q", status)
	}
	return s.exceptions.List(ctx, status, subjectID)
}

// Approve moves a PENDING exception to APPROVED, recording the approver.
func (s *ExceptionService) Approve(ctx context.Context, id string) (*domain.PolicyException, error) {
	return s.transition(ctx, id, domain.ExceptionApproved, "APPROVED")
}

// Reject moves a PENDING exception to REJECTED.
func (s *ExceptionService) Reject(ctx context.Context, id string) (*domain.PolicyException, error) {
	return s.transition(ctx, id, domain.ExceptionRejected, "REJECTED")
}

// Revoke withdraws an APPROVED exception. The original approver is kept on
// the record for attribution.
func (s *ExceptionService) Revoke(ctx context.Context, id string) (*domain.PolicyException, error) {
	return s.transition(ctx, id, domain.ExceptionRevoked, "REVOKED")
}

func (s *ExceptionService) transition(ctx context.Context, id string, next domain.ExceptionStatus, action string) (*domain.PolicyException, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	existing, err := s.exceptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !existing.Status.CanTransitionTo(next) {
		return nil, domain.ErrConflict("exception %s is %s, cannot become %s", id, existing.Status, next)
	}
	var approver *string
	if next == domain.ExceptionApproved {
		caller := callerID(ctx)
		approver = &caller
	}
	if err := s.exceptions.SetStatus(ctx, id, next, approver); err != nil {
		return nil, err
	}
	_ = s.exceptions.InsertAudit(ctx, &domain.ExceptionAudit{
		ExceptionID: id,
		UserID:      callerID(ctx),
		Action:      action,
		Resource:    existing.OverridePrivilege,
	})
	return s.exceptions.GetByID(ctx, id)
}

// ExpireOverdue marks APPROVED exceptions whose window has closed as
/// EXPIRED. Advisory: the decision path re-derives activity from the window.
func (s *ExceptionService) ExpireOverdue(ctx context.Context) (int64, error) {
	return s.exceptions.MarkExpired(ctx, s.now())
}

// Audits returns the transition history of an exception.
func (s *ExceptionService) Audits(ctx context.Context, id string) ([]domain.ExceptionAudit, error) {
	if _, err := s.exceptions.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.exceptions.ListAudits(ctx, id)
}
