package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/domain"
	"sqlgate/internal/testutil"
)

func TestAccessRequestService_Create(t *testing.T) {
	repo := &testutil.MockAccessRequestRepo{
		PendingExistsFn: func(_ context.Context, userID, roleID string) (bool, error) {
			return false, nil
		},
		CreateFn: func(_ context.Context, r *domain.AccessRequest) (*domain.AccessRequest, error) {
			r.ID = "ar-1"
			return r, nil
		},
	}
	roles := roleRepoWith(map[string]domain.Role{"r-1": {ID: "r-1", Name: "Analyst"}})
	svc := NewAccessRequestService(repo, roles, &testutil.MockAuditRepo{})

	created, err := svc.Create(nonAdminCtx(), "r-1", "need access", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "u-1", created.UserID)
	assert.Equal(t, domain.RequestPending, created.Status)
}

func TestAccessRequestService_Create_PendingDuplicate(t *testing.T) {
	repo := &testutil.MockAccessRequestRepo{
		PendingExistsFn: func(_ context.Context, _, _ string) (bool, error) {
			return true, nil
		},
	}
	roles := roleRepoWith(map[string]domain.Role{"r-1": {ID: "r-1", Name: "Analyst"}})
	svc := NewAccessRequestService(repo, roles, &testutil.MockAuditRepo{})

	_, err := svc.Create(nonAdminCtx(), "r-1", "again", nil, nil)
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAccessRequestService_Approve_MaterializesAssignment(t *testing.T) {
	req := &domain.AccessRequest{ID: "ar-1", UserID: "u-9", RoleID: "r-1", Status: domain.RequestPending}
	repo := &testutil.MockAccessRequestRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.AccessRequest, error) {
			cp := *req
			return &cp, nil
		},
		UpdateFn: func(_ context.Context, r *domain.AccessRequest) (*domain.AccessRequest, error) {
			return r, nil
		},
	}
	var assigned domain.UserRole
	roles := roleRepoWith(map[string]domain.Role{"r-1": {ID: "r-1", Name: "Analyst"}})
	roles.UpsertAssignmentFn = func(_ context.Context, ur domain.UserRole) error {
		assigned = ur
		return nil
	}
	audit := &testutil.MockAuditRepo{}
	svc := NewAccessRequestService(repo, roles, audit)

	updated, err := svc.Approve(adminCtx(), "ar-1")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestApproved, updated.Status)
	require.NotNil(t, updated.ReviewerID)
	assert.Equal(t, "admin-1", *updated.ReviewerID)
	assert.NotNil(t, updated.ReviewedAt)
	assert.Equal(t, "u-9", assigned.UserID)
	assert.Equal(t, "r-1", assigned.RoleID)
	assert.True(t, audit.HasAction("APPROVE_ACCESS_REQUEST"))
}

func TestAccessRequestService_Approve_NonPendingRejected(t *testing.T) {
	req := &domain.AccessRequest{ID: "ar-1", UserID: "u-9", RoleID: "r-1", Status: domain.RequestApproved}
	repo := &testutil.MockAccessRequestRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.AccessRequest, error) {
			return req, nil
		},
	}
	svc := NewAccessRequestService(repo, &testutil.MockRoleRepo{}, &testutil.MockAuditRepo{})

	_, err := svc.Approve(adminCtx(), "ar-1")
	var conflict *domain.ConflictError
	assert.ErrorAs(t, err, &conflict)
}

func TestAccessRequestService_Reject(t *testing.T) {
	req := &domain.AccessRequest{ID: "ar-1", UserID: "u-9", RoleID: "r-1", Status: domain.RequestPending}
	repo := &testutil.MockAccessRequestRepo{
		GetByIDFn: func(_ context.Context, id string) (*domain.AccessRequest, error) {
			cp := *req
			return &cp, nil
		},
		UpdateFn: func(_ context.Context, r *domain.AccessRequest) (*domain.AccessRequest, error) {
			return r, nil
		},
	}
	svc := NewAccessRequestService(repo, &testutil.MockRoleRepo{}, &testutil.MockAuditRepo{})

	updated, err := svc.Reject(adminCtx(), "ar-1", "not justified")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestRejected, updated.Status)
	require.NotNil(t, updated.RejectionReason)
	assert.Equal(t, "not justified", *updated.RejectionReason)
}

func TestAccessRequestService_List_NonAdminScopedToSelf(t *testing.T) {
	repo := &testutil.MockAccessRequestRepo{
		ListFn: func(_ context.Context, userID string, _ domain.RequestStatus) ([]domain.AccessRequestDetail, error) {
			assert.Equal(t, "u-1", userID)
			return nil, nil
		},
	}
	svc := NewAccessRequestService(repo, &testutil.MockRoleRepo{}, &testutil.MockAuditRepo{})

	_, err := svc.List(nonAdminCtx(), "someone-else", "")
	require.NoError(t, err)
}
