package domain

import "time"

// PrivilegeCategory groups privilege types by the kind of capability they
// gate.
type PrivilegeCategory string

// Privilege categories.
const (
	CategoryDataAccess      PrivilegeCategory = "DATA_ACCESS"
	CategoryDataMutation    PrivilegeCategory = "DATA_MUTATION"
	CategoryQueryCapability PrivilegeCategory = "QUERY_CAPABILITY"
	CategoryExfiltration    PrivilegeCategory = "DATA_EXFILTRATION"
	CategorySensitive       PrivilegeCategory = "SENSITIVE"
	CategorySystem          PrivilegeCategory = "SYSTEM"
)

// Valid reports whether the category is a known value.
func (c PrivilegeCategory) Valid() bool {
	switch c {
	case CategoryDataAccess, CategoryDataMutation, CategoryQueryCapability,
		CategoryExfiltration, CategorySensitive, CategorySystem:
		return true
	}
	return false
}

// ResourceType scopes a privilege binding to a class of securable.
type ResourceType string

// Resource types a binding may be scoped to.
const (
	ResourceTable   ResourceType = "TABLE"
	ResourceColumn  ResourceType = "COLUMN"
	ResourceDataset ResourceType = "DATASET"
	ResourceAPI     ResourceType = "API"
	ResourceSystem  ResourceType = "SYSTEM"
)

// Valid reports whether the resource type is a known value.
func (r ResourceType) Valid() bool {
	switch r {
	case ResourceTable, ResourceColumn, ResourceDataset, ResourceAPI, ResourceSystem:
		return true
	}
	return false
}

// Well-known privilege codes referenced by the decision engine.
const (
	PrivReadRaw      = "READ_RAW"
	PrivReadMasked   = "READ_MASKED"
	PrivUnmask       = "UNMASK"
	PrivAdmin        = "ADMIN"
	PrivInsert       = "INSERT"
	PrivUpdate       = "UPDATE"
	PrivDelete       = "DELETE"
	PrivSchemaModify = "SCHEMA_MODIFY"
)

// PrivilegeType is an administrator-defined capability, identified by a
// unique code such as READ_RAW or UNMASK.
type PrivilegeType struct {
	ID          string
	Code        string
	Category    PrivilegeCategory
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RolePrivilege binds a privilege type to a role, scoped to a resource type
// and optionally a specific resource. ConditionExpr is an opaque expression
// evaluated by the execution environment, never by this engine.
type RolePrivilege struct {
	ID              string
	RoleID          string
	PrivilegeTypeID string
	ResourceType    ResourceType
	ResourceID      *string
	ConditionExpr   *string
	CreatedAt       time.Time
}

// RolePrivilegeDetail is a binding joined with its role and privilege names,
// as listed by the admin API.
type RolePrivilegeDetail struct {
	RolePrivilege
	RoleName          string
	PrivilegeCode     string
	PrivilegeCategory PrivilegeCategory
}
