package domain

import "time"

// ExceptionStatus is the lifecycle state of a policy exception.
//
// PENDING is the only state from which APPROVED or REJECTED are reachable.
// APPROVED may transition to REVOKED at any time. EXPIRED is derived from the
// validity window and persisted lazily for visibility only; the overlay never
// trusts it.
type ExceptionStatus string

// Exception statuses.
const (
	ExceptionPending  ExceptionStatus = "PENDING"
	ExceptionApproved ExceptionStatus = "APPROVED"
	ExceptionRejected ExceptionStatus = "REJECTED"
	ExceptionExpired  ExceptionStatus = "EXPIRED"
	ExceptionRevoked  ExceptionStatus = "REVOKED"
)

// Valid reports whether the status is a known value.
func (s ExceptionStatus) Valid() bool {
	switch s {
	case ExceptionPending, ExceptionApproved, ExceptionRejected, ExceptionExpired, ExceptionRevoked:
		return true
	}
	return false
}

// CanTransitionTo reports whether the state machine permits moving from s to
// next.
func (s ExceptionStatus) CanTransitionTo(next ExceptionStatus) bool {
	switch s {
	case ExceptionPending:
		return next == ExceptionApproved || next == ExceptionRejected
	case ExceptionApproved:
		return next == ExceptionRevoked || next == ExceptionExpired
	}
	return false
}

// RiskLevel classifies how dangerous an exception is considered.
type RiskLevel string

// Risk levels.
const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Valid reports whether the risk level is a known value.
func (r RiskLevel) Valid() bool {
	switch r {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// SubjectType identifies what kind of principal an exception applies to.
type SubjectType string

// Subject types.
const (
	SubjectUser SubjectType = "USER"
	SubjectRole SubjectType = "ROLE"
)

// PolicyException is a time-bounded, approved override that grants a
// privilege outside normal role bindings. The validity window is
// half-open: [StartTime, EndTime).
type PolicyException struct {
	ID                string
	SubjectType       SubjectType
	SubjectID         string
	ResourceID        *string
	OverridePrivilege string
	Scope             ResourceType
	Purpose           string
	StartTime         time.Time
	EndTime           time.Time
	ApprovedBy        *string
	RiskLevel         RiskLevel
	Status            ExceptionStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ActiveAt reports whether the exception should be honored at the given
// instant: it must be APPROVED and inside its window. A stored status of
// APPROVED with EndTime in the past is implicitly expired — the window is the
// source of truth, not the status column.
func (e PolicyException) ActiveAt(now time.Time) bool {
	if e.Status != ExceptionApproved {
		return false
	}
	if now.Before(e.StartTime) {
		return false
	}
	return now.Before(e.EndTime)
}

// ExceptionAudit records an action taken on a policy exception.
type ExceptionAudit struct {
	ID          string
	ExceptionID string
	UserID      string
	Action      string
	Resource    string
	Context     string
	CreatedAt   time.Time
}
