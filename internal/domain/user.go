package domain

import "time"

// User is an authenticated subject of access decisions.
//
// Role assignments are plural via UserRole rows. LegacyRoleID is the
// deprecated single-role column kept for data migrated from older
// deployments; resolution falls back to it only when the plural set is empty.
type User struct {
	ID           string
	Username     string
	Email        string
	Name         string
	PasswordHash string
	LegacyRoleID *string
	IsAdmin      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
