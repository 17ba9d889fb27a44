package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/domain"
	"sqlgate/internal/testutil"
)

// exceptionStore is a minimal in-memory backing for lifecycle tests.
func exceptionStore(existing ...*domain.PolicyException) *testutil.MockExceptionRepo {
	store := map[string]*domain.PolicyException{}
	for _, e := range existing {
		store[e.ID] = e
	}
	return &testutil.MockExceptionRepo{
		CreateFn: func(_ context.Context, e *domain.PolicyException) (*domain.PolicyException, error) {
			store[e.ID] = e
			return e, nil
		},
		GetByIDFn: func(_ context.Context, id string) (*domain.PolicyException, error) {
			e, ok := store[id]
			if !ok {
				return nil, domain.ErrNotFound("exception %s not found", id)
			}
			cp := *e
			return &cp, nil
		},
		SetStatusFn: func(_ context.Context, id string, status domain.ExceptionStatus, approvedBy *string) error {
			store[id].Status = status
			if approvedBy != nil {
				store[id].ApprovedBy = approvedBy
			}
			return nil
		},
	}
}

func validException() *domain.PolicyException {
	now := time.Now()
	return &domain.PolicyException{
		SubjectType:       domain.SubjectUser,
		SubjectID:         "u-1",
		OverridePrivilege: "READ_RAW",
		Scope:             domain.ResourceTable,
		Purpose:           "incident investigation",
		StartTime:         now,
		EndTime:           now.Add(24 * time.Hour),
	}
}

func TestExceptionService_Request(t *testing.T) {
	repo := exceptionStore()
	svc := NewExceptionService(repo)

	created, err := svc.Request(nonAdminCtx(), validException())
	require.NoError(t, err)
	assert.Regexp(t, `^EXC-[0-9A-F]{8}$`, created.ID)
	assert.Equal(t, domain.ExceptionPending, created.Status)
	assert.Equal(t, domain.RiskMedium, created.RiskLevel)

	require.Len(t, repo.Audits, 1)
	assert.Equal(t, "REQUESTED", repo.Audits[0].Action)
	assert.Equal(t, "u-1", repo.Audits[0].UserID)
}

func TestExceptionService_Request_Validation(t *testing.T) {
	svc := NewExceptionService(exceptionStore())
	var invalid *domain.ValidationError

	e := validException()
	e.SubjectID = ""
	_, err := svc.Request(nonAdminCtx(), e)
	assert.ErrorAs(t, err, &invalid)

	e = validException()
	e.EndTime = e.StartTime
	_, err = svc.Request(nonAdminCtx(), e)
	assert.ErrorAs(t, err, &invalid)

	e = validException()
	e.RiskLevel = "EXTREME"
	_, err = svc.Request(nonAdminCtx(), e)
	assert.ErrorAs(t, err, &invalid)
}

func TestExceptionService_ApproveRecordsApprover(t *testing.T) {
	pending := validException()
	pending.ID = "EXC-AAAAAAAA"
	pending.Status = domain.ExceptionPending
	repo := exceptionStore(pending)
	svc := NewExceptionService(repo)

	approved, err := svc.Approve(adminCtx(), "EXC-AAAAAAAA")
	require.NoError(t, err)
	assert.Equal(t, domain.ExceptionApproved, approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "admin-1", *approved.ApprovedBy)

	require.Len(t, repo.Audits, 1)
	assert.Equal(t, "APPROVED", repo.Audits[0].Action)
}

func TestExceptionService_RevokeKeepsApprover(t *testing.T) {
	approver := "admin-1"
	approved := validException()
	approved.ID = "EXC-BBBBBBBB"
	approved.Status = domain.ExceptionApproved
	approved.ApprovedBy = &approver
	repo := exceptionStore(approved)
	svc := NewExceptionService(repo)

	revoked, err := svc.Revoke(adminCtx(), "EXC-BBBBBBBB")
	require.NoError(t, err)
	assert.Equal(t, domain.ExceptionRevoked, revoked.Status)
	require.NotNil(t, revoked.ApprovedBy)
	assert.Equal(t, "admin-1", *revoked.ApprovedBy)
}

func TestExceptionService_IllegalTransitions(t *testing.T) {
	rejected := validException()
	rejected.ID = "EXC-CCCCCCCC"
	rejected.Status = domain.ExceptionRejected
	svc := NewExceptionService(exceptionStore(rejected))

	var conflict *domain.ConflictError
	_, err := svc.Approve(adminCtx(), "EXC-CCCCCCCC")
	assert.ErrorAs(t, err, &conflict)

	_, err = svc.Revoke(adminCtx(), "EXC-CCCCCCCC")
	assert.ErrorAs(t, err, &conflict)
}

func TestExceptionService_TransitionsAdminOnly(t *testing.T) {
	svc := NewExceptionService(exceptionStore())

	_, err := svc.Approve(nonAdminCtx(), "EXC-DDDDDDDD")
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestExceptionService_ExpireOverdue(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	repo := exceptionStore()
	repo.MarkExpiredFn = func(_ context.Context, now time.Time) (int64, error) {
		assert.Equal(t, fixed, now)
		return 3, nil
	}
	svc := NewExceptionService(repo)
	svc.now = func() time.Time { return fixed }

	n, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
