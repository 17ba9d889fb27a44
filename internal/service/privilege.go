package service

import (
	"context"
	"errors"

	"sqlgate/internal/domain"
)

// PrivilegeService provides privilege type CRUD, the default catalog seed,
// and role binding operations.
type PrivilegeService struct {
	privileges domain.PrivilegeRepository
	roles      domain.RoleRepository
	audit      domain.AuditRepository
}

// NewPrivilegeService creates a new PrivilegeService.
func NewPrivilegeService(privileges domain.PrivilegeRepository, roles domain.RoleRepository, audit domain.AuditRepository) *PrivilegeService {
	return &PrivilegeService{privileges: privileges, roles: roles, audit: audit}
}

// CreateType registers a new privilege type.
func (s *PrivilegeService) CreateType(ctx context.Context, p *domain.PrivilegeType) (*domain.PrivilegeType, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if p.Code == "" {
		return nil, domain.ErrValidation("privilege code is required")
	}
	if !p.Category.Valid() {
		return nil, domain.ErrValidation("invalid category %q", p.Category)
	}
	created, err := s.privileges.CreateType(ctx, p)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "CREATE_PRIVILEGE_TYPE",
		Resource:  created.Code,
		Outcome:   domain.OutcomeAllowed,
	})
	return created, nil
}

// GetType returns a privilege type by ID.
func (s *PrivilegeService) GetType(ctx context.Context, id string) (*domain.PrivilegeType, error) {
	return s.privileges.GetTypeByID(ctx, id)
}

// ListTypes returns privilege types, optionally filtered by category.
func (s *PrivilegeService) ListTypes(ctx context.Context, category domain.PrivilegeCategory) ([]domain.PrivilegeType, error) {
	if category != "" && !category.Valid() {
		return nil, domain.ErrValidation("invalid category %q", category)
	}
	return s.privileges.ListTypes(ctx, category)
}

// UpdateType modifies a privilege type's description and category.
func (s *PrivilegeService) UpdateType(ctx context.Context, p *domain.PrivilegeType) (*domain.PrivilegeType, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !p.Category.Valid() {
		return nil, domain.ErrValidation("invalid category %q", p.Category)
	}
	return s.privileges.UpdateType(ctx, p)
}

// DeleteType removes a privilege type and its bindings.
func (s *PrivilegeService) DeleteType(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	return s.privileges.DeleteType(ctx, id)
}

// Assign binds a privilege type to a role, scoped to a resource type and
// optionally a specific resource.
func (s *PrivilegeService) Assign(ctx context.Context, rp *domain.RolePrivilege) (*domain.RolePrivilege, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if !rp.ResourceType.Valid() {
		return nil, domain.ErrValidation("invalid resource type %q", rp.ResourceType)
	}
	if _, err := s.roles.GetByID(ctx, rp.RoleID); err != nil {
		return nil, err
	}
	if _, err := s.privileges.GetTypeByID(ctx, rp.PrivilegeTypeID); err != nil {
		return nil, err
	}
	created, err := s.privileges.Assign(ctx, rp)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "ASSIGN_PRIVILEGE",
		Resource:  rp.RoleID,
		Outcome:   domain.OutcomeAllowed,
	})
	return created, nil
}

// Revoke removes a role privilege binding.
func (s *PrivilegeService) Revoke(ctx context.Context, bindingID string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.privileges.Revoke(ctx, bindingID); err != nil {
		return err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "REVOKE_PRIVILEGE",
		Resource:  bindingID,
		Outcome:   domain.OutcomeAllowed,
	})
	return nil
}

// ListBindings returns bindings matching the filter, with role and privilege
// names joined.
func (s *PrivilegeService) ListBindings(ctx context.Context, f domain.BindingFilter) ([]domain.RolePrivilegeDetail, error) {
	return s.privileges.ListBindings(ctx, f)
}

// defaultCatalog is the built-in privilege catalog seeded on startup.
var defaultCatalog = []struct {
	Code        string
	Category    domain.PrivilegeCategory
	Description string
}{
	{"READ_RAW", domain.CategoryDataAccess, "Read raw, unmasked data"},
	{"READ_MASKED", domain.CategoryDataAccess, "Read data with masking applied"},
	{"READ_AGGREGATE", domain.CategoryDataAccess, "Read aggregated results only"},
	{"READ_METADATA", domain.CategoryDataAccess, "Read schema and table metadata"},
	{"INSERT", domain.CategoryDataMutation, "Insert rows"},
	{"UPDATE", domain.CategoryDataMutation, "Update rows"},
	{"DELETE", domain.CategoryDataMutation, "Delete rows"},
	{"UPSERT", domain.CategoryDataMutation, "Insert or update rows"},
	{"JOIN", domain.CategoryQueryCapability, "Join tables in a query"},
	{"SUBQUERY", domain.CategoryQueryCapability, "Use subqueries"},
	{"FILTER", domain.CategoryQueryCapability, "Apply WHERE filters"},
	{"GROUP_BY", domain.CategoryQueryCapability, "Aggregate with GROUP BY"},
	{"ORDER_BY", domain.CategoryQueryCapability, "Sort results"},
	{"WINDOW_FUNCTION", domain.CategoryQueryCapability, "Use window functions"},
	{"UNION", domain.CategoryQueryCapability, "Combine results with UNION"},
	{"EXPORT_CSV", domain.CategoryExfiltration, "Export results as CSV"},
	{"EXPORT_EXCEL", domain.CategoryExfiltration, "Export results as Excel"},
	{"EXPORT_JSON", domain.CategoryExfiltration, "Export results as JSON"},
	{"COPY_CLIPBOARD", domain.CategoryExfiltration, "Copy results to clipboard"},
	{"DOWNLOAD", domain.CategoryExfiltration, "Download result files"},
	{"API_ACCESS", domain.CategoryExfiltration, "Fetch results via the API"},
	{"VIEW_PII", domain.CategorySensitive, "View personally identifiable information"},
	{"VIEW_SENSITIVE", domain.CategorySensitive, "View sensitive columns"},
	{"DECRYPT", domain.CategorySensitive, "Decrypt encrypted columns"},
	{"UNMASK", domain.CategorySensitive, "Bypass masking rules"},
	{"ADMIN", domain.CategorySystem, "Full administrative access"},
	{"POLICY_WRITE", domain.CategorySystem, "Manage access policies"},
	{"MASKING_CONFIG", domain.CategorySystem, "Manage masking rules"},
	{"SCHEMA_MODIFY", domain.CategorySystem, "Run DDL statements"},
	{"AUDIT_VIEW", domain.CategorySystem, "View audit logs"},
}

// SeedDefaults inserts the built-in privilege catalog. Idempotent: codes
// that already exist get their description and category refreshed, never
// duplicated. Returns how many new types were created.
func (s *PrivilegeService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, def := range defaultCatalog {
		existing, err := s.privileges.GetTypeByCode(ctx, def.Code)
		if err == nil {
			existing.Category = def.Category
			existing.Description = def.Description
			if _, err := s.privileges.UpdateType(ctx, existing); err != nil {
				return created, err
			}
			continue
		}
		var nf *domain.NotFoundError
		if !errors.As(err, &nf) {
			return created, err
		}
		if _, err := s.privileges.CreateType(ctx, &domain.PrivilegeType{
			Code:        def.Code,
			Category:    def.Category,
			Description: def.Description,
		}); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
