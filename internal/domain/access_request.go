package domain

import "time"

// RequestStatus is the lifecycle state of an access request. A request
// transitions exactly once out of PENDING.
type RequestStatus string

// Request statuses.
const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// Valid reports whether the status is a known value.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestPending, RequestApproved, RequestRejected:
		return true
	}
	return false
}

// AccessRequest is a user's request for a role grant. Approval materializes a
// UserRole assignment carrying the request's validity window.
type AccessRequest struct {
	ID              string
	UserID          string
	RoleID          string
	Status          RequestStatus
	RequestReason   string
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	ReviewerID      *string
	ReviewedAt      *time.Time
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AccessRequestDetail joins a request with user and role names for listings.
type AccessRequestDetail struct {
	AccessRequest
	Username string
	RoleName string
}
