package domain

import "time"

// RoleClassification distinguishes built-in roles from operator-defined ones.
type RoleClassification string

// Role classifications. SYSTEM roles are immutable and cannot be deleted.
const (
	RoleSystem RoleClassification = "SYSTEM"
	RoleCustom RoleClassification = "CUSTOM"
)

// Valid reports whether the classification is a known value.
func (c RoleClassification) Valid() bool {
	switch c {
	case RoleSystem, RoleCustom:
		return true
	}
	return false
}

// Role is a named grant target in the privilege hierarchy. ParentID forms a
// single-parent tree; a role inherits every privilege bound to its ancestors.
type Role struct {
	ID             string
	Name           string
	Description    string
	ParentID       *string
	Classification RoleClassification
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserRole is a materialized (user, role) assignment, optionally bounded by a
// validity window. Assignments outside their window are ignored at resolution
// time.
type UserRole struct {
	UserID     string
	RoleID     string
	ValidFrom  *time.Time
	ValidUntil *time.Time
	CreatedAt  time.Time
}

// ActiveAt reports whether the assignment is valid at the given instant.
// Unset bounds are open-ended.
func (ur UserRole) ActiveAt(now time.Time) bool {
	if ur.ValidFrom != nil && now.Before(*ur.ValidFrom) {
		return false
	}
	if ur.ValidUntil != nil && !now.Before(*ur.ValidUntil) {
		return false
	}
	return true
}
