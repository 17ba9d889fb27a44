package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExceptionStatus_CanTransitionTo(t *testing.T) {
	cases := []struct {
		from, to ExceptionStatus
		ok       bool
	}{
		{ExceptionPending, ExceptionApproved, true},
		{ExceptionPending, ExceptionRejected, true},
		{ExceptionPending, ExceptionRevoked, false},
		{ExceptionApproved, ExceptionRevoked, true},
		{ExceptionApproved, ExceptionExpired, true},
		{ExceptionApproved, ExceptionRejected, false},
		{ExceptionRejected, ExceptionApproved, false},
		{ExceptionRevoked, ExceptionApproved, false},
		{ExceptionExpired, ExceptionRevoked, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestPolicyException_ActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	base := PolicyException{
		Status:    ExceptionApproved,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
	}

	assert.True(t, base.ActiveAt(now))

	// End boundary is exclusive.
	atEnd := base
	atEnd.EndTime = now
	assert.False(t, atEnd.ActiveAt(now))

	// APPROVED status with a closed window is implicitly expired.
	past := base
	past.StartTime = now.Add(-3 * time.Hour)
	past.EndTime = now.Add(-time.Hour)
	assert.False(t, past.ActiveAt(now))

	notStarted := base
	notStarted.StartTime = now.Add(time.Minute)
	assert.False(t, notStarted.ActiveAt(now))

	revoked := base
	revoked.Status = ExceptionRevoked
	assert.False(t, revoked.ActiveAt(now))

	pending := base
	pending.Status = ExceptionPending
	assert.False(t, pending.ActiveAt(now))
}

func TestUserRole_ActiveAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	from := now.Add(-time.Hour)
	until := now.Add(time.Hour)

	assert.True(t, UserRole{}.ActiveAt(now), "open-ended assignment")
	assert.True(t, UserRole{ValidFrom: &from, ValidUntil: &until}.ActiveAt(now))
	assert.False(t, UserRole{ValidFrom: &until}.ActiveAt(now), "not yet valid")
	assert.False(t, UserRole{ValidUntil: &from}.ActiveAt(now), "lapsed")
}
