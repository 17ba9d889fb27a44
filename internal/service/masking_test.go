package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/domain"
	"sqlgate/internal/testutil"
)

func TestMaskingService_Create_Validation(t *testing.T) {
	svc := NewMaskingService(&testutil.MockMaskingRepo{}, &testutil.MockAuditRepo{})

	var invalid *domain.ValidationError
	_, err := svc.Create(adminCtx(), &domain.MaskingRule{Column: "email", Kind: domain.MaskFull})
	assert.ErrorAs(t, err, &invalid)

	_, err = svc.Create(adminCtx(), &domain.MaskingRule{Table: "users", Column: "email", Kind: "BOGUS"})
	assert.ErrorAs(t, err, &invalid)

	_, err = svc.Create(nonAdminCtx(), &domain.MaskingRule{Table: "users", Column: "email", Kind: domain.MaskFull})
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}

func TestMaskingService_Create(t *testing.T) {
	repo := &testutil.MockMaskingRepo{
		CreateFn: func(_ context.Context, r *domain.MaskingRule) (*domain.MaskingRule, error) {
			r.ID = "mr-1"
			return r, nil
		},
	}
	audit := &testutil.MockAuditRepo{}
	svc := NewMaskingService(repo, audit)

	created, err := svc.Create(adminCtx(), &domain.MaskingRule{
		Table: "users", Column: "email", Kind: domain.MaskEmail, Enabled: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "mr-1", created.ID)
	assert.True(t, audit.HasAction("CREATE_MASKING_RULE"))
	assert.Equal(t, "users.email", audit.LastEntry().Resource)
}

func TestMaskingService_Preview(t *testing.T) {
	repo := &testutil.MockMaskingRepo{
		ListActiveForRolesFn: func(_ context.Context, roleIDs []string) ([]domain.MaskingRule, error) {
			assert.Equal(t, []string{"r-1"}, roleIDs)
			return []domain.MaskingRule{
				{ID: "mr-1", Table: "users", Column: "email", Kind: domain.MaskEmail, Enabled: true, RoleID: strPtr("r-1")},
			}, nil
		},
	}
	svc := NewMaskingService(repo, &testutil.MockAuditRepo{})

	out, err := svc.Preview(adminCtx(), "SELECT email, id FROM users", "r-1")
	require.NoError(t, err)
	assert.True(t, out.Rewritten)
	assert.Contains(t, strings.ToLower(out.SQL), "split_part")
	assert.Equal(t, []string{"email"}, out.MaskedColumns)
	assert.Empty(t, out.AmbiguousColumns)
}

func TestMaskingService_Preview_NoMatchIdentity(t *testing.T) {
	repo := &testutil.MockMaskingRepo{
		ListActiveForRolesFn: func(_ context.Context, _ []string) ([]domain.MaskingRule, error) {
			return nil, nil
		},
	}
	svc := NewMaskingService(repo, &testutil.MockAuditRepo{})

	sql := "SELECT email FROM users"
	out, err := svc.Preview(adminCtx(), sql, "")
	require.NoError(t, err)
	assert.False(t, out.Rewritten)
	assert.Equal(t, sql, out.SQL)
}

func TestMaskingService_Preview_AdminOnly(t *testing.T) {
	svc := NewMaskingService(&testutil.MockMaskingRepo{}, &testutil.MockAuditRepo{})

	_, err := svc.Preview(nonAdminCtx(), "SELECT 1", "")
	var denied *domain.AccessDeniedError
	assert.ErrorAs(t, err, &denied)
}
