package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sqlgate/internal/db"
	"sqlgate/internal/domain"
)

func newException(id, subjectID string, status domain.ExceptionStatus, start, end time.Time) *domain.PolicyException {
	return &domain.PolicyException{
		ID:                id,
		SubjectType:       domain.SubjectUser,
		SubjectID:         subjectID,
		OverridePrivilege: domain.PrivUnmask,
		Scope:             domain.ResourceTable,
		Purpose:           "incident investigation",
		StartTime:         start,
		EndTime:           end,
		RiskLevel:         domain.RiskHigh,
		Status:            status,
	}
}

func TestExceptionRepo_CreateGetList(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewExceptionRepo(writeDB)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	created, err := repo.Create(ctx, newException("EXC-11111111", "user-1", domain.ExceptionPending, now, now.Add(24*time.Hour)))
	require.NoError(t, err)
	require.Equal(t, domain.ExceptionPending, created.Status)
	require.Nil(t, created.ApprovedBy)

	_, err = repo.Create(ctx, newException("EXC-22222222", "user-2", domain.ExceptionPending, now, now.Add(time.Hour)))
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, "EXC-11111111")
	require.NoError(t, err)
	require.Equal(t, "user-1", got.SubjectID)
	require.True(t, got.StartTime.Equal(now))

	all, err := repo.List(ctx, "", "")
	require.NoError(t, err)
	require.Len(t, all, 2)

	forUser, err := repo.List(ctx, domain.ExceptionPending, "user-2")
	require.NoError(t, err)
	require.Len(t, forUser, 1)
	require.Equal(t, "EXC-22222222", forUser[0].ID)

	_, err = repo.GetByID(ctx, "EXC-00000000")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestExceptionRepo_SetStatus(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewExceptionRepo(writeDB)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	_, err := repo.Create(ctx, newException("EXC-11111111", "user-1", domain.ExceptionPending, now, now.Add(time.Hour)))
	require.NoError(t, err)

	approver := "admin-1"
	require.NoError(t, repo.SetStatus(ctx, "EXC-11111111", domain.ExceptionApproved, &approver))

	got, err := repo.GetByID(ctx, "EXC-11111111")
	require.NoError(t, err)
	require.Equal(t, domain.ExceptionApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	require.Equal(t, "admin-1", *got.ApprovedBy)

	// Revoking keeps the original approver.
	require.NoError(t, repo.SetStatus(ctx, "EXC-11111111", domain.ExceptionRevoked, nil))
	got, err = repo.GetByID(ctx, "EXC-11111111")
	require.NoError(t, err)
	require.Equal(t, domain.ExceptionRevoked, got.Status)
	require.NotNil(t, got.ApprovedBy)

	var nf *domain.NotFoundError
	require.ErrorAs(t, repo.SetStatus(ctx, "EXC-00000000", domain.ExceptionApproved, nil), &nf)
}

func TestExceptionRepo_ListApprovedForSubjects(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewExceptionRepo(writeDB)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	_, err := repo.Create(ctx, newException("EXC-11111111", "user-1", domain.ExceptionApproved, now, now.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newException("EXC-22222222", "role-1", domain.ExceptionApproved, now, now.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newException("EXC-33333333", "user-1", domain.ExceptionPending, now, now.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newException("EXC-44444444", "user-9", domain.ExceptionApproved, now, now.Add(time.Hour)))
	require.NoError(t, err)

	out, err := repo.ListApprovedForSubjects(ctx, []string{"user-1", "role-1"})
	require.NoError(t, err)
	require.Len(t, out, 2)

	none, err := repo.ListApprovedForSubjects(ctx, nil)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestExceptionRepo_MarkExpired(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewExceptionRepo(writeDB)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	_, err := repo.Create(ctx, newException("EXC-11111111", "user-1", domain.ExceptionApproved, now.Add(-2*time.Hour), now.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newException("EXC-22222222", "user-1", domain.ExceptionApproved, now, now.Add(time.Hour)))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newException("EXC-33333333", "user-1", domain.ExceptionRejected, now.Add(-2*time.Hour), now.Add(-time.Hour)))
	require.NoError(t, err)

	n, err := repo.MarkExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err := repo.GetByID(ctx, "EXC-11111111")
	require.NoError(t, err)
	require.Equal(t, domain.ExceptionExpired, got.Status)

	// Still inside its window: untouched.
	got, err = repo.GetByID(ctx, "EXC-22222222")
	require.NoError(t, err)
	require.Equal(t, domain.ExceptionApproved, got.Status)
}

func TestExceptionRepo_Audits(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewExceptionRepo(writeDB)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	_, err := repo.Create(ctx, newException("EXC-11111111", "user-1", domain.ExceptionPending, now, now.Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, repo.InsertAudit(ctx, &domain.ExceptionAudit{
		ExceptionID: "EXC-11111111",
		UserID:      "user-1",
		Action:      "CREATE",
	}))
	require.NoError(t, repo.InsertAudit(ctx, &domain.ExceptionAudit{
		ExceptionID: "EXC-11111111",
		UserID:      "admin-1",
		Action:      "APPROVE",
		Context:     "risk accepted",
	}))

	audits, err := repo.ListAudits(ctx, "EXC-11111111")
	require.NoError(t, err)
	require.Len(t, audits, 2)
	for _, a := range audits {
		require.NotEmpty(t, a.ID)
		require.Equal(t, "EXC-11111111", a.ExceptionID)
	}
}
