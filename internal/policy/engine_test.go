package policy

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/domain"
	"sqlgate/internal/testutil"
)

type engineFixture struct {
	masks  *testutil.MockMaskingRepo
	audit  *testutil.MockAuditRepo
	engine *Engine
}

// newEngineFixture wires an engine for a user "u-1" holding role "analyst",
// with the given bindings, exceptions, and masking rules behind it.
func newEngineFixture(bindings []domain.RolePrivilegeDetail, exceptions []domain.PolicyException, rules []domain.MaskingRule) *engineFixture {
	roles := roleGraph(
		map[string]domain.Role{"analyst": {ID: "analyst", Name: "Analyst"}},
		map[string][]domain.UserRole{"u-1": {{UserID: "u-1", RoleID: "analyst"}}},
	)
	privs := &testutil.MockPrivilegeRepo{
		ListBindingsForRolesFn: func(_ context.Context, _ []string) ([]domain.RolePrivilegeDetail, error) {
			return bindings, nil
		},
	}
	excs := &testutil.MockExceptionRepo{
		ListApprovedForSubjectsFn: func(_ context.Context, _ []string) ([]domain.PolicyException, error) {
			return exceptions, nil
		},
	}
	masks := &testutil.MockMaskingRepo{
		ListActiveForRolesFn: func(_ context.Context, _ []string) ([]domain.MaskingRule, error) {
			return rules, nil
		},
	}
	audit := &testutil.MockAuditRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	engine := NewEngine(NewResolver(roles, &testutil.MockUserRepo{}), NewAggregator(privs), NewOverlay(excs), masks, audit, logger)
	return &engineFixture{masks: masks, audit: audit, engine: engine}
}

func readBinding(code string, resourceID *string) domain.RolePrivilegeDetail {
	return domain.RolePrivilegeDetail{
		RolePrivilege: domain.RolePrivilege{RoleID: "analyst", ResourceType: domain.ResourceTable, ResourceID: resourceID},
		RoleName:      "Analyst",
		PrivilegeCode: code,
	}
}

func analystPrincipal() domain.ContextPrincipal {
	return domain.ContextPrincipal{UserID: "u-1", Username: "ana"}
}

func TestEngine_DenyWithoutReadPrivilege(t *testing.T) {
	f := newEngineFixture(nil, nil, nil)

	d, err := f.engine.Decide(context.Background(), analystPrincipal(), "SELECT id FROM users")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "READ_MASKED")

	entry := f.audit.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, domain.ActionQueryDecision, entry.Action)
	assert.Equal(t, domain.OutcomeDenied, entry.Outcome)
	assert.Equal(t, "SELECT id FROM users", entry.OriginalSQL)
}

func TestEngine_AllowNoRulesUnchanged(t *testing.T) {
	f := newEngineFixture([]domain.RolePrivilegeDetail{readBinding("READ_MASKED", nil)}, nil, nil)

	sql := "SELECT id, email FROM users"
	d, err := f.engine.Decide(context.Background(), analystPrincipal(), sql)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.False(t, d.Rewritten)
	assert.Equal(t, sql, d.SQL)

	entry := f.audit.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, domain.OutcomeAllowed, entry.Outcome)
	assert.Empty(t, entry.RewrittenSQL)
}

func TestEngine_AllowWithMasking(t *testing.T) {
	rules := []domain.MaskingRule{{
		ID: "r1", Table: "users", Column: "email", Kind: domain.MaskEmail, Enabled: true,
	}}
	f := newEngineFixture([]domain.RolePrivilegeDetail{readBinding("READ_MASKED", nil)}, nil, rules)

	d, err := f.engine.Decide(context.Background(), analystPrincipal(), "SELECT email FROM users")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.Rewritten)
	assert.Contains(t, strings.ToLower(d.SQL), "split_part")
	assert.Equal(t, []string{"email"}, d.MaskedColumns)

	entry := f.audit.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, domain.OutcomeAllowed, entry.Outcome)
	assert.Contains(t, strings.ToLower(entry.RewrittenSQL), "split_part")
	assert.Contains(t, entry.Detail, "masked email")
}

func TestEngine_UnmaskSkipsRewrite(t *testing.T) {
	bindings := []domain.RolePrivilegeDetail{
		readBinding("READ_MASKED", nil),
		readBinding("UNMASK", nil),
	}
	// ListActiveForRolesFn left nil: consulting the rules at all would panic.
	f := newEngineFixture(bindings, nil, nil)
	f.masks.ListActiveForRolesFn = nil

	sql := "SELECT email FROM users"
	d, err := f.engine.Decide(context.Background(), analystPrincipal(), sql)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, sql, d.SQL)
}

func TestEngine_UnparseableBypass(t *testing.T) {
	f := newEngineFixture(nil, nil, nil)

	sql := "this is not sql at all"
	d, err := f.engine.Decide(context.Background(), analystPrincipal(), sql)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.Bypassed)
	assert.Equal(t, sql, d.SQL)

	entry := f.audit.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, domain.ActionAccessBypass, entry.Action)
	assert.Equal(t, domain.OutcomeBypass, entry.Outcome)
}

func TestEngine_MultiStatementDenied(t *testing.T) {
	f := newEngineFixture([]domain.RolePrivilegeDetail{readBinding("READ_MASKED", nil)}, nil, nil)

	d, err := f.engine.Decide(context.Background(), analystPrincipal(), "SELECT 1; SELECT 2")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, domain.OutcomeDenied, f.audit.LastEntry().Outcome)
}

func TestEngine_DangerousFunctionDenied(t *testing.T) {
	f := newEngineFixture([]domain.RolePrivilegeDetail{readBinding("READ_MASKED", nil)}, nil, nil)

	d, err := f.engine.Decide(context.Background(), analystPrincipal(), "SELECT pg_read_file('/etc/passwd')")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "pg_read_file")
}

func TestEngine_TableScopedGrant(t *testing.T) {
	bindings := []domain.RolePrivilegeDetail{readBinding("READ_MASKED", strPtr("orders"))}
	f := newEngineFixture(bindings, nil, nil)

	d, err := f.engine.Decide(context.Background(), analystPrincipal(), "SELECT id FROM orders")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = f.engine.Decide(context.Background(), analystPrincipal(), "SELECT id FROM customers")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "customers")
}

func TestEngine_ExceptionGrantAllows(t *testing.T) {
	now := time.Now()
	exc := domain.PolicyException{
		ID: "EXC-12345678", SubjectType: domain.SubjectUser, SubjectID: "u-1",
		OverridePrivilege: "READ_RAW", Scope: domain.ResourceTable,
		StartTime: now.Add(-time.Hour), EndTime: now.Add(time.Hour),
		Status: domain.ExceptionApproved,
	}
	f := newEngineFixture(nil, []domain.PolicyException{exc}, nil)

	d, err := f.engine.Decide(context.Background(), analystPrincipal(), "SELECT id FROM users")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestEngine_ExpiredExceptionDoesNotAllow(t *testing.T) {
	now := time.Now()
	exc := domain.PolicyException{
		ID: "EXC-12345678", SubjectType: domain.SubjectUser, SubjectID: "u-1",
		OverridePrivilege: "READ_RAW", Scope: domain.ResourceTable,
		StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Hour),
		Status: domain.ExceptionApproved,
	}
	f := newEngineFixture(nil, []domain.PolicyException{exc}, nil)

	d, err := f.engine.Decide(context.Background(), analystPrincipal(), "SELECT id FROM users")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestEngine_AdminBypassesPrivilegeCheckNotMasking(t *testing.T) {
	rules := []domain.MaskingRule{{
		ID: "r1", Table: "users", Column: "email", Kind: domain.MaskFull, Enabled: true,
	}}
	f := newEngineFixture(nil, nil, rules)
	admin := domain.ContextPrincipal{UserID: "u-1", Username: "root", IsAdmin: true}

	d, err := f.engine.Decide(context.Background(), admin, "SELECT email FROM users")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, "administrator", d.Reason)
	// Admin skips the privilege check, not the masking pass.
	assert.True(t, d.Rewritten)
	assert.Contains(t, d.SQL, "'*****'")
}

func TestEngine_AmbiguousColumnAuditedAndUnmasked(t *testing.T) {
	rules := []domain.MaskingRule{
		{ID: "r1", Table: "users", Column: "email", Kind: domain.MaskFull, Enabled: true},
		{ID: "r2", Table: "contacts", Column: "email", Kind: domain.MaskFull, Enabled: true},
	}
	f := newEngineFixture([]domain.RolePrivilegeDetail{readBinding("READ_MASKED", nil)}, nil, rules)

	d, err := f.engine.Decide(context.Background(), analystPrincipal(),
		"SELECT email FROM users JOIN contacts ON users.id = contacts.user_id")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.False(t, d.Rewritten)
	assert.Equal(t, []string{"email"}, d.AmbiguousColumns)
	assert.True(t, f.audit.HasAction(domain.ActionMaskingAmbiguous))
}

func TestEngine_Mutations(t *testing.T) {
	f := newEngineFixture([]domain.RolePrivilegeDetail{readBinding("INSERT", nil)}, nil, nil)

	d, err := f.engine.Decide(context.Background(), analystPrincipal(), "INSERT INTO users (id) VALUES (1)")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = f.engine.Decide(context.Background(), analystPrincipal(), "DELETE FROM users")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Contains(t, d.Reason, "DELETE")
}

func TestEngine_CheckAccess(t *testing.T) {
	bindings := []domain.RolePrivilegeDetail{readBinding("EXPORT_CSV", strPtr("orders"))}
	f := newEngineFixture(bindings, nil, nil)

	ok, err := f.engine.CheckAccess(context.Background(), analystPrincipal(), "EXPORT_CSV", "orders")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.engine.CheckAccess(context.Background(), analystPrincipal(), "EXPORT_CSV", "customers")
	require.NoError(t, err)
	assert.False(t, ok)

	admin := domain.ContextPrincipal{UserID: "u-1", Username: "root", IsAdmin: true}
	ok, err = f.engine.CheckAccess(context.Background(), admin, "ADMIN", "")
	require.NoError(t, err)
	assert.True(t, ok)
}
