package service

import (
	"context"

	"sqlgate/internal/domain"
)

// AuditService exposes the audit trail to administrators.
type AuditService struct {
	audit domain.AuditRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(audit domain.AuditRepository) *AuditService {
	return &AuditService{audit: audit}
}

// List returns recent audit entries, newest first.
func (s *AuditService) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	return s.audit.List(ctx, limit)
}
