package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"sqlgate/internal/db"
	"sqlgate/internal/domain"
)

func TestMaskingRuleRepo_CRUD(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	repo := NewMaskingRuleRepo(writeDB)
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.MaskingRule{
		Name:    "mask-emails",
		Table:   "users",
		Column:  "email",
		Kind:    domain.MaskEmail,
		Enabled: true,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, "public", created.Schema)
	require.Equal(t, "******", created.Params.MaskToken)
	require.True(t, created.Enabled)

	created.Kind = domain.MaskPartial
	created.Params.PrefixLen = 2
	created.Params.SuffixLen = 2
	updated, err := repo.Update(ctx, created)
	require.NoError(t, err)
	require.Equal(t, domain.MaskPartial, updated.Kind)
	require.Equal(t, 2, updated.Params.PrefixLen)

	byTable, err := repo.List(ctx, "users")
	require.NoError(t, err)
	require.Len(t, byTable, 1)

	other, err := repo.List(ctx, "orders")
	require.NoError(t, err)
	require.Empty(t, other)

	require.NoError(t, repo.Delete(ctx, created.ID))
	var nf *domain.NotFoundError
	require.ErrorAs(t, repo.Delete(ctx, created.ID), &nf)
}

func TestMaskingRuleRepo_ListActiveForRoles(t *testing.T) {
	writeDB, _ := db.OpenTestSQLite(t)
	ruleRepo := NewMaskingRuleRepo(writeDB)
	roleRepo := NewRoleRepo(writeDB)
	ctx := context.Background()

	analyst, err := roleRepo.Create(ctx, &domain.Role{Name: "analyst"})
	require.NoError(t, err)
	auditor, err := roleRepo.Create(ctx, &domain.Role{Name: "auditor"})
	require.NoError(t, err)

	mk := func(name string, roleID *string, priority int, enabled bool) {
		t.Helper()
		_, err := ruleRepo.Create(ctx, &domain.MaskingRule{
			Name:     name,
			Table:    "users",
			Column:   "email",
			RoleID:   roleID,
			Kind:     domain.MaskFull,
			Enabled:  enabled,
			Priority: priority,
		})
		require.NoError(t, err)
	}

	mk("global-low", nil, 1, true)
	mk("analyst-high", &analyst.ID, 10, true)
	mk("auditor-only", &auditor.ID, 20, true)
	mk("disabled", nil, 99, false)

	rules, err := ruleRepo.ListActiveForRoles(ctx, []string{analyst.ID})
	require.NoError(t, err)
	require.Len(t, rules, 2)
	// Priority descending; the auditor-scoped and disabled rules are filtered
	// out in SQL.
	require.Equal(t, "analyst-high", rules[0].Name)
	require.Equal(t, "global-low", rules[1].Name)

	// No roles resolved still returns the global rules.
	global, err := ruleRepo.ListActiveForRoles(ctx, nil)
	require.NoError(t, err)
	require.Len(t, global, 1)
	require.Equal(t, "global-low", global[0].Name)
}
