package domain

import (
	"context"
	"time"
)

// RoleRepository provides CRUD over roles and user-role assignments.
type RoleRepository interface {
	Create(ctx context.Context, r *Role) (*Role, error)
	GetByID(ctx context.Context, id string) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]Role, error)
	Update(ctx context.Context, r *Role) (*Role, error)
	Delete(ctx context.Context, id string) error

	ListAssignmentsForUser(ctx context.Context, userID string) ([]UserRole, error)
	UpsertAssignment(ctx context.Context, ur UserRole) error
	DeleteAssignment(ctx context.Context, userID, roleID string) error
}

// BindingFilter narrows ListBindings results. Zero values mean no filter.
type BindingFilter struct {
	RoleID       string
	ResourceType ResourceType
	ResourceID   string
}

// PrivilegeRepository provides CRUD over privilege types and role bindings.
type PrivilegeRepository interface {
	CreateType(ctx context.Context, p *PrivilegeType) (*PrivilegeType, error)
	GetTypeByID(ctx context.Context, id string) (*PrivilegeType, error)
	GetTypeByCode(ctx context.Context, code string) (*PrivilegeType, error)
	ListTypes(ctx context.Context, category PrivilegeCategory) ([]PrivilegeType, error)
	UpdateType(ctx context.Context, p *PrivilegeType) (*PrivilegeType, error)
	DeleteType(ctx context.Context, id string) error

	Assign(ctx context.Context, rp *RolePrivilege) (*RolePrivilege, error)
	Revoke(ctx context.Context, bindingID string) error
	ListBindings(ctx context.Context, f BindingFilter) ([]RolePrivilegeDetail, error)
	ListBindingsForRoles(ctx context.Context, roleIDs []string) ([]RolePrivilegeDetail, error)
}

// MaskingRuleRepository provides CRUD over masking rules.
type MaskingRuleRepository interface {
	Create(ctx context.Context, r *MaskingRule) (*MaskingRule, error)
	GetByID(ctx context.Context, id string) (*MaskingRule, error)
	List(ctx context.Context, table string) ([]MaskingRule, error)
	Update(ctx context.Context, r *MaskingRule) (*MaskingRule, error)
	Delete(ctx context.Context, id string) error

	// ListActiveForRoles returns enabled rules that are either global or
	// scoped to one of the given roles, ordered by priority descending then
	// creation time ascending.
	ListActiveForRoles(ctx context.Context, roleIDs []string) ([]MaskingRule, error)
}

// ExceptionRepository provides CRUD and lifecycle persistence for policy
// exceptions.
type ExceptionRepository interface {
	Create(ctx context.Context, e *PolicyException) (*PolicyException, error)
	GetByID(ctx context.Context, id string) (*PolicyException, error)
	List(ctx context.Context, status ExceptionStatus, subjectID string) ([]PolicyException, error)
	SetStatus(ctx context.Context, id string, status ExceptionStatus, approvedBy *string) error

	// ListApprovedForSubjects returns exceptions in APPROVED status for any
	// of the given subject IDs. Window filtering is the caller's job.
	ListApprovedForSubjects(ctx context.Context, subjectIDs []string) ([]PolicyException, error)

	// MarkExpired flips APPROVED exceptions whose window has closed to
	// EXPIRED, returning how many rows changed. Advisory only.
	MarkExpired(ctx context.Context, now time.Time) (int64, error)

	InsertAudit(ctx context.Context, a *ExceptionAudit) error
	ListAudits(ctx context.Context, exceptionID string) ([]ExceptionAudit, error)
}

// AccessRequestRepository provides CRUD over access requests.
type AccessRequestRepository interface {
	Create(ctx context.Context, r *AccessRequest) (*AccessRequest, error)
	GetByID(ctx context.Context, id string) (*AccessRequest, error)
	List(ctx context.Context, userID string, status RequestStatus) ([]AccessRequestDetail, error)
	Update(ctx context.Context, r *AccessRequest) (*AccessRequest, error)
	PendingExists(ctx context.Context, userID, roleID string) (bool, error)
	CountPending(ctx context.Context) (int64, error)
}

// UserRepository provides CRUD over users.
type UserRepository interface {
	Create(ctx context.Context, u *User) (*User, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	List(ctx context.Context) ([]User, error)
	Update(ctx context.Context, u *User) (*User, error)
	Delete(ctx context.Context, id string) error
}

// AuditRepository is the append-only audit sink.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}

// QueryHistoryRepository records execution attempts.
type QueryHistoryRepository interface {
	Insert(ctx context.Context, e *QueryHistoryEntry) error
	List(ctx context.Context, principal string, limit int) ([]QueryHistoryEntry, error)
}

// Executor runs a (possibly rewritten) statement against the target engine.
// Execution itself is outside this control plane; the server wires in an
// implementation.
type Executor interface {
	Execute(ctx context.Context, sql string) (*QueryResult, error)
}
