// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"
	"time"

	"sqlgate/internal/domain"
)

// === Audit Repository Mock ===

// MockAuditRepo implements domain.AuditRepository for testing.
type MockAuditRepo struct {
	InsertFn func(ctx context.Context, e *domain.AuditEntry) error
	ListFn   func(ctx context.Context, limit int) ([]domain.AuditEntry, error)
	Entries  []*domain.AuditEntry // collected entries for assertions
}

// Insert implements the interface method for testing.
func (m *MockAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.Entries = append(m.Entries, e)
	return nil
}

// List implements the interface method for testing.
func (m *MockAuditRepo) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, limit)
	}
	panic("unexpected call to MockAuditRepo.List")
}

// LastEntry returns the last collected audit entry, or nil if none.
func (m *MockAuditRepo) LastEntry() *domain.AuditEntry {
	if len(m.Entries) == 0 {
		return nil
	}
	return m.Entries[len(m.Entries)-1]
}

// HasAction returns true if any collected entry has the given action.
func (m *MockAuditRepo) HasAction(action string) bool {
	for _, e := range m.Entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

var _ domain.AuditRepository = (*MockAuditRepo)(nil)

// === Role Repository Mock ===

// MockRoleRepo implements domain.RoleRepository for testing.
type MockRoleRepo struct {
	CreateFn                 func(ctx context.Context, r *domain.Role) (*domain.Role, error)
	GetByIDFn                func(ctx context.Context, id string) (*domain.Role, error)
	GetByNameFn              func(ctx context.Context, name string) (*domain.Role, error)
	ListFn                   func(ctx context.Context) ([]domain.Role, error)
	UpdateFn                 func(ctx context.Context, r *domain.Role) (*domain.Role, error)
	DeleteFn                 func(ctx context.Context, id string) error
	ListAssignmentsForUserFn func(ctx context.Context, userID string) ([]domain.UserRole, error)
	UpsertAssignmentFn       func(ctx context.Context, ur domain.UserRole) error
	DeleteAssignmentFn       func(ctx context.Context, userID, roleID string) error
}

func (m *MockRoleRepo) Create(ctx context.Context, r *domain.Role) (*domain.Role, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	panic("unexpected call to MockRoleRepo.Create")
}

func (m *MockRoleRepo) GetByID(ctx context.Context, id string) (*domain.Role, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockRoleRepo.GetByID")
}

func (m *MockRoleRepo) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	if m.GetByNameFn != nil {
		return m.GetByNameFn(ctx, name)
	}
	panic("unexpected call to MockRoleRepo.GetByName")
}

func (m *MockRoleRepo) List(ctx context.Context) ([]domain.Role, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	panic("unexpected call to MockRoleRepo.List")
}

func (m *MockRoleRepo) Update(ctx context.Context, r *domain.Role) (*domain.Role, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, r)
	}
	panic("unexpected call to MockRoleRepo.Update")
}

func (m *MockRoleRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	panic("unexpected call to MockRoleRepo.Delete")
}

func (m *MockRoleRepo) ListAssignmentsForUser(ctx context.Context, userID string) ([]domain.UserRole, error) {
	if m.ListAssignmentsForUserFn != nil {
		return m.ListAssignmentsForUserFn(ctx, userID)
	}
	panic("unexpected call to MockRoleRepo.ListAssignmentsForUser")
}

func (m *MockRoleRepo) UpsertAssignment(ctx context.Context, ur domain.UserRole) error {
	if m.UpsertAssignmentFn != nil {
		return m.UpsertAssignmentFn(ctx, ur)
	}
	panic("unexpected call to MockRoleRepo.UpsertAssignment")
}

func (m *MockRoleRepo) DeleteAssignment(ctx context.Context, userID, roleID string) error {
	if m.DeleteAssignmentFn != nil {
		return m.DeleteAssignmentFn(ctx, userID, roleID)
	}
	panic("unexpected call to MockRoleRepo.DeleteAssignment")
}

var _ domain.RoleRepository = (*MockRoleRepo)(nil)

// === User Repository Mock ===

// MockUserRepo implements domain.UserRepository for testing.
type MockUserRepo struct {
	CreateFn        func(ctx context.Context, u *domain.User) (*domain.User, error)
	GetByIDFn       func(ctx context.Context, id string) (*domain.User, error)
	GetByUsernameFn func(ctx context.Context, username string) (*domain.User, error)
	ListFn          func(ctx context.Context) ([]domain.User, error)
	UpdateFn        func(ctx context.Context, u *domain.User) (*domain.User, error)
	DeleteFn        func(ctx context.Context, id string) error
}

func (m *MockUserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, u)
	}
	panic("unexpected call to MockUserRepo.Create")
}

func (m *MockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockUserRepo.GetByID")
}

func (m *MockUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.GetByUsernameFn != nil {
		return m.GetByUsernameFn(ctx, username)
	}
	panic("unexpected call to MockUserRepo.GetByUsername")
}

func (m *MockUserRepo) List(ctx context.Context) ([]domain.User, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx)
	}
	panic("unexpected call to MockUserRepo.List")
}

func (m *MockUserRepo) Update(ctx context.Context, u *domain.User) (*domain.User, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, u)
	}
	panic("unexpected call to MockUserRepo.Update")
}

func (m *MockUserRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	panic("unexpected call to MockUserRepo.Delete")
}

var _ domain.UserRepository = (*MockUserRepo)(nil)

// === Privilege Repository Mock ===

// MockPrivilegeRepo implements domain.PrivilegeRepository for testing.
type MockPrivilegeRepo struct {
	CreateTypeFn           func(ctx context.Context, p *domain.PrivilegeType) (*domain.PrivilegeType, error)
	GetTypeByIDFn          func(ctx context.Context, id string) (*domain.PrivilegeType, error)
	GetTypeByCodeFn        func(ctx context.Context, code string) (*domain.PrivilegeType, error)
	ListTypesFn            func(ctx context.Context, category domain.PrivilegeCategory) ([]domain.PrivilegeType, error)
	UpdateTypeFn           func(ctx context.Context, p *domain.PrivilegeType) (*domain.PrivilegeType, error)
	DeleteTypeFn           func(ctx context.Context, id string) error
	AssignFn               func(ctx context.Context, rp *domain.RolePrivilege) (*domain.RolePrivilege, error)
	RevokeFn               func(ctx context.Context, bindingID string) error
	ListBindingsFn         func(ctx context.Context, f domain.BindingFilter) ([]domain.RolePrivilegeDetail, error)
	ListBindingsForRolesFn func(ctx context.Context, roleIDs []string) ([]domain.RolePrivilegeDetail, error)
}

func (m *MockPrivilegeRepo) CreateType(ctx context.Context, p *domain.PrivilegeType) (*domain.PrivilegeType, error) {
	if m.CreateTypeFn != nil {
		return m.CreateTypeFn(ctx, p)
	}
	panic("unexpected call to MockPrivilegeRepo.CreateType")
}

func (m *MockPrivilegeRepo) GetTypeByID(ctx context.Context, id string) (*domain.PrivilegeType, error) {
	if m.GetTypeByIDFn != nil {
		return m.GetTypeByIDFn(ctx, id)
	}
	panic("unexpected call to MockPrivilegeRepo.GetTypeByID")
}

func (m *MockPrivilegeRepo) GetTypeByCode(ctx context.Context, code string) (*domain.PrivilegeType, error) {
	if m.GetTypeByCodeFn != nil {
		return m.GetTypeByCodeFn(ctx, code)
	}
	panic("unexpected call to MockPrivilegeRepo.GetTypeByCode")
}

func (m *MockPrivilegeRepo) ListTypes(ctx context.Context, category domain.PrivilegeCategory) ([]domain.PrivilegeType, error) {
	if m.ListTypesFn != nil {
		return m.ListTypesFn(ctx, category)
	}
	panic("unexpected call to MockPrivilegeRepo.ListTypes")
}

func (m *MockPrivilegeRepo) UpdateType(ctx context.Context, p *domain.PrivilegeType) (*domain.PrivilegeType, error) {
	if m.UpdateTypeFn != nil {
		return m.UpdateTypeFn(ctx, p)
	}
	panic("unexpected call to MockPrivilegeRepo.UpdateType")
}

func (m *MockPrivilegeRepo) DeleteType(ctx context.Context, id string) error {
	if m.DeleteTypeFn != nil {
		return m.DeleteTypeFn(ctx, id)
	}
	panic("unexpected call to MockPrivilegeRepo.DeleteType")
}

func (m *MockPrivilegeRepo) Assign(ctx context.Context, rp *domain.RolePrivilege) (*domain.RolePrivilege, error) {
	if m.AssignFn != nil {
		return m.AssignFn(ctx, rp)
	}
	panic("unexpected call to MockPrivilegeRepo.Assign")
}

func (m *MockPrivilegeRepo) Revoke(ctx context.Context, bindingID string) error {
	if m.RevokeFn != nil {
		return m.RevokeFn(ctx, bindingID)
	}
	panic("unexpected call to MockPrivilegeRepo.Revoke")
}

func (m *MockPrivilegeRepo) ListBindings(ctx context.Context, f domain.BindingFilter) ([]domain.RolePrivilegeDetail, error) {
	if m.ListBindingsFn != nil {
		return m.ListBindingsFn(ctx, f)
	}
	panic("unexpected call to MockPrivilegeRepo.ListBindings")
}

func (m *MockPrivilegeRepo) ListBindingsForRoles(ctx context.Context, roleIDs []string) ([]domain.RolePrivilegeDetail, error) {
	if m.ListBindingsForRolesFn != nil {
		return m.ListBindingsForRolesFn(ctx, roleIDs)
	}
	panic("unexpected call to MockPrivilegeRepo.ListBindingsForRoles")
}

var _ domain.PrivilegeRepository = (*MockPrivilegeRepo)(nil)

// === Masking Rule Repository Mock ===

// MockMaskingRepo implements domain.MaskingRuleRepository for testing.
type MockMaskingRepo struct {
	CreateFn             func(ctx context.Context, r *domain.MaskingRule) (*domain.MaskingRule, error)
	GetByIDFn            func(ctx context.Context, id string) (*domain.MaskingRule, error)
	ListFn               func(ctx context.Context, table string) ([]domain.MaskingRule, error)
	UpdateFn             func(ctx context.Context, r *domain.MaskingRule) (*domain.MaskingRule, error)
	DeleteFn             func(ctx context.Context, id string) error
	ListActiveForRolesFn func(ctx context.Context, roleIDs []string) ([]domain.MaskingRule, error)
}

func (m *MockMaskingRepo) Create(ctx context.Context, r *domain.MaskingRule) (*domain.MaskingRule, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	panic("unexpected call to MockMaskingRepo.Create")
}

func (m *MockMaskingRepo) GetByID(ctx context.Context, id string) (*domain.MaskingRule, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockMaskingRepo.GetByID")
}

func (m *MockMaskingRepo) List(ctx context.Context, table string) ([]domain.MaskingRule, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, table)
	}
	panic("unexpected call to MockMaskingRepo.List")
}

func (m *MockMaskingRepo) Update(ctx context.Context, r *domain.MaskingRule) (*domain.MaskingRule, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, r)
	}
	panic("unexpected call to MockMaskingRepo.Update")
}

func (m *MockMaskingRepo) Delete(ctx context.Context, id string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	panic("unexpected call to MockMaskingRepo.Delete")
}

func (m *MockMaskingRepo) ListActiveForRoles(ctx context.Context, roleIDs []string) ([]domain.MaskingRule, error) {
	if m.ListActiveForRolesFn != nil {
		return m.ListActiveForRolesFn(ctx, roleIDs)
	}
	panic("unexpected call to MockMaskingRepo.ListActiveForRoles")
}

var _ domain.MaskingRuleRepository = (*MockMaskingRepo)(nil)

// === Exception Repository Mock ===

// MockExceptionRepo implements domain.ExceptionRepository for testing.
type MockExceptionRepo struct {
	CreateFn                  func(ctx context.Context, e *domain.PolicyException) (*domain.PolicyException, error)
	GetByIDFn                 func(ctx context.Context, id string) (*domain.PolicyException, error)
	ListFn                    func(ctx context.Context, status domain.ExceptionStatus, subjectID string) ([]domain.PolicyException, error)
	SetStatusFn               func(ctx context.Context, id string, status domain.ExceptionStatus, approvedBy *string) error
	ListApprovedForSubjectsFn func(ctx context.Context, subjectIDs []string) ([]domain.PolicyException, error)
	MarkExpiredFn             func(ctx context.Context, now time.Time) (int64, error)
	InsertAuditFn             func(ctx context.Context, a *domain.ExceptionAudit) error
	ListAuditsFn              func(ctx context.Context, exceptionID string) ([]domain.ExceptionAudit, error)

	Audits []*domain.ExceptionAudit // collected transition records
}

func (m *MockExceptionRepo) Create(ctx context.Context, e *domain.PolicyException) (*domain.PolicyException, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, e)
	}
	panic("unexpected call to MockExceptionRepo.Create")
}

func (m *MockExceptionRepo) GetByID(ctx context.Context, id string) (*domain.PolicyException, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockExceptionRepo.GetByID")
}

func (m *MockExceptionRepo) List(ctx context.Context, status domain.ExceptionStatus, subjectID string) ([]domain.PolicyException, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, status, subjectID)
	}
	panic("unexpected call to MockExceptionRepo.List")
}

func (m *MockExceptionRepo) SetStatus(ctx context.Context, id string, status domain.ExceptionStatus, approvedBy *string) error {
	if m.SetStatusFn != nil {
		return m.SetStatusFn(ctx, id, status, approvedBy)
	}
	panic("unexpected call to MockExceptionRepo.SetStatus")
}

func (m *MockExceptionRepo) ListApprovedForSubjects(ctx context.Context, subjectIDs []string) ([]domain.PolicyException, error) {
	if m.ListApprovedForSubjectsFn != nil {
		return m.ListApprovedForSubjectsFn(ctx, subjectIDs)
	}
	panic("unexpected call to MockExceptionRepo.ListApprovedForSubjects")
}

func (m *MockExceptionRepo) MarkExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.MarkExpiredFn != nil {
		return m.MarkExpiredFn(ctx, now)
	}
	panic("unexpected call to MockExceptionRepo.MarkExpired")
}

func (m *MockExceptionRepo) InsertAudit(ctx context.Context, a *domain.ExceptionAudit) error {
	if m.InsertAuditFn != nil {
		if err := m.InsertAuditFn(ctx, a); err != nil {
			return err
		}
	}
	m.Audits = append(m.Audits, a)
	return nil
}

func (m *MockExceptionRepo) ListAudits(ctx context.Context, exceptionID string) ([]domain.ExceptionAudit, error) {
	if m.ListAuditsFn != nil {
		return m.ListAuditsFn(ctx, exceptionID)
	}
	panic("unexpected call to MockExceptionRepo.ListAudits")
}

var _ domain.ExceptionRepository = (*MockExceptionRepo)(nil)

// === Access Request Repository Mock ===

// MockAccessRequestRepo implements domain.AccessRequestRepository for testing.
type MockAccessRequestRepo struct {
	CreateFn        func(ctx context.Context, r *domain.AccessRequest) (*domain.AccessRequest, error)
	GetByIDFn       func(ctx context.Context, id string) (*domain.AccessRequest, error)
	ListFn          func(ctx context.Context, userID string, status domain.RequestStatus) ([]domain.AccessRequestDetail, error)
	UpdateFn        func(ctx context.Context, r *domain.AccessRequest) (*domain.AccessRequest, error)
	PendingExistsFn func(ctx context.Context, userID, roleID string) (bool, error)
	CountPendingFn  func(ctx context.Context) (int64, error)
}

func (m *MockAccessRequestRepo) Create(ctx context.Context, r *domain.AccessRequest) (*domain.AccessRequest, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, r)
	}
	panic("unexpected call to MockAccessRequestRepo.Create")
}

func (m *MockAccessRequestRepo) GetByID(ctx context.Context, id string) (*domain.AccessRequest, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockAccessRequestRepo.GetByID")
}

func (m *MockAccessRequestRepo) List(ctx context.Context, userID string, status domain.RequestStatus) ([]domain.AccessRequestDetail, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, userID, status)
	}
	panic("unexpected call to MockAccessRequestRepo.List")
}

func (m *MockAccessRequestRepo) Update(ctx context.Context, r *domain.AccessRequest) (*domain.AccessRequest, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, r)
	}
	panic("unexpected call to MockAccessRequestRepo.Update")
}

func (m *MockAccessRequestRepo) PendingExists(ctx context.Context, userID, roleID string) (bool, error) {
	if m.PendingExistsFn != nil {
		return m.PendingExistsFn(ctx, userID, roleID)
	}
	panic("unexpected call to MockAccessRequestRepo.PendingExists")
}

func (m *MockAccessRequestRepo) CountPending(ctx context.Context) (int64, error) {
	if m.CountPendingFn != nil {
		return m.CountPendingFn(ctx)
	}
	panic("unexpected call to MockAccessRequestRepo.CountPending")
}

var _ domain.AccessRequestRepository = (*MockAccessRequestRepo)(nil)

// === Query History Repository Mock ===

// MockQueryHistoryRepo implements domain.QueryHistoryRepository for testing.
type MockQueryHistoryRepo struct {
	InsertFn func(ctx context.Context, e *domain.QueryHistoryEntry) error
	ListFn   func(ctx context.Context, principal string, limit int) ([]domain.QueryHistoryEntry, error)
	Entries  []*domain.QueryHistoryEntry
}

func (m *MockQueryHistoryRepo) Insert(ctx context.Context, e *domain.QueryHistoryEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.Entries = append(m.Entries, e)
	return nil
}

func (m *MockQueryHistoryRepo) List(ctx context.Context, principal string, limit int) ([]domain.QueryHistoryEntry, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, principal, limit)
	}
	panic("unexpected call to MockQueryHistoryRepo.List")
}

var _ domain.QueryHistoryRepository = (*MockQueryHistoryRepo)(nil)

// === Executor Mock ===

// MockExecutor implements domain.Executor for testing.
type MockExecutor struct {
	ExecuteFn func(ctx context.Context, sql string) (*domain.QueryResult, error)
	Executed  []string // statements received, for assertions
}

func (m *MockExecutor) Execute(ctx context.Context, sql string) (*domain.QueryResult, error) {
	m.Executed = append(m.Executed, sql)
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, sql)
	}
	return &domain.QueryResult{}, nil
}

var _ domain.Executor = (*MockExecutor)(nil)
