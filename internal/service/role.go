package service

import (
	"context"
	"time"

	"sqlgate/internal/domain"
)

// RoleService provides role CRUD and user-role assignment operations.
type RoleService struct {
	roles domain.RoleRepository
	audit domain.AuditRepository
}

// NewRoleService creates a new RoleService.
func NewRoleService(roles domain.RoleRepository, audit domain.AuditRepository) *RoleService {
	return &RoleService{roles: roles, audit: audit}
}

// Create creates a custom role, optionally parented to an existing role.
func (s *RoleService) Create(ctx context.Context, r *domain.Role) (*domain.Role, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if r.Name == "" {
		return nil, domain.ErrValidation("role name is required")
	}
	if r.Classification == "" {
		r.Classification = domain.RoleCustom
	}
	if !r.Classification.Valid() {
		return nil, domain.ErrValidation("invalid classification %q", r.Classification)
	}
	if r.ParentID != nil {
		if _, err := s.roles.GetByID(ctx, *r.ParentID); err != nil {
			return nil, err
		}
	}
	created, err := s.roles.Create(ctx, r)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "CREATE_ROLE",
		Resource:  created.Name,
		Outcome:   domain.OutcomeAllowed,
	})
	return created, nil
}

// Get returns a role by ID.
func (s *RoleService) Get(ctx context.Context, id string) (*domain.Role, error) {
	return s.roles.GetByID(ctx, id)
}

// List returns all roles.
func (s *RoleService) List(ctx context.Context) ([]domain.Role, error) {
	return s.roles.List(ctx)
}

// Update modifies a role. SYSTEM roles are immutable. A parent change is
// rejected if it would make the role its own ancestor.
func (s *RoleService) Update(ctx context.Context, r *domain.Role) (*domain.Role, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	existing, err := s.roles.GetByID(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	if existing.Classification == domain.RoleSystem {
		return nil, domain.ErrValidation("system role %q cannot be modified", existing.Name)
	}
	if r.Name == "" {
		return nil, domain.ErrValidation("role name is required")
	}
	if r.ParentID != nil {
		if err := s.checkParentCycle(ctx, r.ID, *r.ParentID); err != nil {
			return nil, err
		}
	}
	r.Classification = existing.Classification
	updated, err := s.roles.Update(ctx, r)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "UPDATE_ROLE",
		Resource:  updated.Name,
		Outcome:   domain.OutcomeAllowed,
	})
	return updated, nil
}

// checkParentCycle walks up from the proposed parent and rejects the change
// if roleID is already on that ancestry path. The visited set keeps a
// corrupted graph from looping.
func (s *RoleService) checkParentCycle(ctx context.Context, roleID, parentID string) error {
	if parentID == roleID {
		return domain.ErrValidation("role cannot be its own parent")
	}
	visited := map[string]bool{roleID: true}
	current := parentID
	for current != "" {
		if visited[current] {
			return domain.ErrValidation("parent change would create a role cycle")
		}
		visited[current] = true
		parent, err := s.roles.GetByID(ctx, current)
		if err != nil {
			return err
		}
		if parent.ParentID == nil {
			return nil
		}
		current = *parent.ParentID
	}
	return nil
}

// Delete removes a custom role. SYSTEM roles cannot be deleted.
func (s *RoleService) Delete(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	existing, err := s.roles.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.Classification == domain.RoleSystem {
		return domain.ErrValidation("system role %q cannot be deleted", existing.Name)
	}
	if err := s.roles.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "DELETE_ROLE",
		Resource:  existing.Name,
		Outcome:   domain.OutcomeAllowed,
	})
	return nil
}

// AssignUser grants a role to a user, optionally bounded by a validity
// window. Re-assigning replaces the window.
func (s *RoleService) AssignUser(ctx context.Context, userID, roleID string, validFrom, validUntil *time.Time) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if _, err := s.roles.GetByID(ctx, roleID); err != nil {
		return err
	}
	if validFrom != nil && validUntil != nil && !validFrom.Before(*validUntil) {
		return domain.ErrValidation("valid_from must precede valid_until")
	}
	if err := s.roles.UpsertAssignment(ctx, domain.UserRole{
		UserID:     userID,
		RoleID:     roleID,
		ValidFrom:  validFrom,
		ValidUntil: validUntil,
	}); err != nil {
		return err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "ASSIGN_ROLE",
		Resource:  roleID,
		Outcome:   domain.OutcomeAllowed,
		Detail:    "user " + userID,
	})
	return nil
}

// UnassignUser removes a user-role assignment.
func (s *RoleService) UnassignUser(ctx context.Context, userID, roleID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.roles.DeleteAssignment(ctx, userID, roleID); err != nil {
		return err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "UNASSIGN_ROLE",
		Resource:  roleID,
		Outcome:   domain.OutcomeAllowed,
		Detail:    "user " + userID,
	})
	return nil
}

// ListAssignments returns the role assignments for a user.
func (s *RoleService) ListAssignments(ctx context.Context, userID string) ([]domain.UserRole, error) {
	return s.roles.ListAssignmentsForUser(ctx, userID)
}
