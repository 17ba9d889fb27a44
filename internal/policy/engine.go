package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"sqlgate/internal/domain"
	"sqlgate/internal/sqlrewrite"
)

// Decision is the engine's verdict on one statement. When Allowed, SQL is
// the statement to execute, rewritten if any masking applied. Bypassed marks
// the unparseable-input escape hatch where the original SQL is passed
// through untouched.
type Decision struct {
	Allowed   bool
	Reason    string
	SQL       string
	Statement sqlrewrite.StatementType
	Rewritten bool
	Bypassed  bool

	MaskedColumns    []string
	AmbiguousColumns []string
	Roles            []ResolvedRole
	Privileges       []EffectivePrivilege
}

// SchemaColumns supplies column metadata for the referenced tables so the
// rewriter can expand bare stars. Returning an empty map is fine; stars over
// tables with no metadata pass through unexpanded.
type SchemaColumns func(ctx context.Context, tables []string) (map[string][]string, error)

// Engine composes role resolution, privilege aggregation, the exception
// overlay, and the masking rewriter into a single access decision.
type Engine struct {
	resolver   *Resolver
	aggregator *Aggregator
	overlay    *Overlay
	maskRules  domain.MaskingRuleRepository
	audit      domain.AuditRepository
	logger     *slog.Logger

	// Columns is optional; without it bare stars are left unexpanded.
	Columns SchemaColumns
	// Now is overridable in tests.
	Now func() time.Time
}

// NewEngine wires the decision engine.
func NewEngine(resolver *Resolver, aggregator *Aggregator, overlay *Overlay,
	maskRules domain.MaskingRuleRepository, audit domain.AuditRepository, logger *slog.Logger) *Engine {
	return &Engine{
		resolver:   resolver,
		aggregator: aggregator,
		overlay:    overlay,
		maskRules:  maskRules,
		audit:      audit,
		logger:     logger,
		Now:        time.Now,
	}
}

// Decide evaluates one SQL statement for the principal and returns
// allow, deny, or allow-with-rewrite.
//
// Denial is wholesale: a single uncovered table rejects the entire
// statement. Masking is a refinement of allow and is attempted for every
// allowed SELECT; only an effective UNMASK grant skips it. Input that the
// parser cannot read at all is passed through unchanged and audited as a
// bypass rather than guessed at. Every decision writes an audit row.
func (e *Engine) Decide(ctx context.Context, principal domain.ContextPrincipal, sqlText string) (*Decision, error) {
	now := e.Now()

	stmtType, err := sqlrewrite.Classify(sqlText)
	if err != nil {
		var perr *sqlrewrite.ParseError
		if errors.As(err, &perr) {
			d := &Decision{Allowed: true, Reason: "unparseable statement passed through", SQL: sqlText, Statement: stmtType, Bypassed: true}
			e.writeAudit(ctx, principal, domain.ActionAccessBypass, "", sqlText, "", domain.OutcomeBypass, perr.Error())
			return d, nil
		}
		return e.deny(ctx, principal, sqlText, stmtType, err.Error()), nil
	}

	tables, err := sqlrewrite.CollectTables(sqlText)
	if err != nil {
		return nil, err
	}
	resource := strings.Join(tables, ",")

	roles, err := e.resolver.Resolve(ctx, principal.UserID, now)
	if err != nil {
		return nil, err
	}
	privs, err := e.aggregator.Aggregate(ctx, roles)
	if err != nil {
		return nil, err
	}
	grants, err := e.overlay.ActiveGrants(ctx, principal.UserID, RoleIDs(roles), now)
	if err != nil {
		return nil, err
	}
	privs = append(privs, grants...)

	d := &Decision{SQL: sqlText, Statement: stmtType, Roles: roles, Privileges: privs}

	codes, ok := requiredCodes(stmtType)
	if !ok {
		return e.denyDecision(ctx, principal, d, resource, "unsupported statement type"), nil
	}

	if !principal.IsAdmin && !hasCode(privs, domain.PrivAdmin) {
		if missing, ok := uncovered(privs, codes, tables); !ok {
			reason := fmt.Sprintf("missing %s", strings.Join(codes, " or "))
			if missing != "" {
				reason += " on " + missing
			}
			return e.denyDecision(ctx, principal, d, resource, reason), nil
		}
	}
	d.Allowed = true
	d.Reason = "privileges satisfied"
	if principal.IsAdmin {
		d.Reason = "administrator"
	}

	if stmtType == sqlrewrite.StmtSelect && !hasCode(privs, domain.PrivUnmask) {
		if err := e.applyMasking(ctx, principal, d, tables); err != nil {
			return e.denyDecision(ctx, principal, d, resource, "masking rewrite failed: "+err.Error()), nil
		}
	}

	detail := d.Reason
	if len(d.MaskedColumns) > 0 {
		detail += "; masked " + strings.Join(d.MaskedColumns, ",")
	}
	e.writeAudit(ctx, principal, domain.ActionQueryDecision, resource, sqlText, d.rewrittenSQL(), domain.OutcomeAllowed, detail)
	return d, nil
}

// applyMasking runs the projection rewriter over an allowed SELECT,
// mutating d in place. A rewrite error propagates so the caller can deny;
// passing a statement through because masking broke would leak the very
// values the rules exist to hide.
func (e *Engine) applyMasking(ctx context.Context, principal domain.ContextPrincipal, d *Decision, tables []string) error {
	rules, err := e.maskRules.ListActiveForRoles(ctx, RoleIDs(d.Roles))
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		return nil
	}

	var tableColumns map[string][]string
	if e.Columns != nil {
		tableColumns, err = e.Columns(ctx, tables)
		if err != nil {
			return err
		}
	}

	roleSet := RoleIDSet(d.Roles)
	ambiguousSeen := map[string]bool{}
	maskFor := func(ref sqlrewrite.ColumnRef, col *pg_query.Node) (*pg_query.Node, bool) {
		m := MatchRule(ref, rules, roleSet)
		if m.Ambiguous {
			if !ambiguousSeen[ref.Column] {
				ambiguousSeen[ref.Column] = true
				d.AmbiguousColumns = append(d.AmbiguousColumns, ref.Column)
			}
			return nil, false
		}
		if !m.Matched {
			return nil, false
		}
		d.MaskedColumns = append(d.MaskedColumns, qualified(ref))
		return sqlrewrite.MaskExpr(m.Rule, col), true
	}

	res, err := sqlrewrite.RewriteProjections(d.SQL, maskFor, tableColumns)
	if err != nil {
		return err
	}
	for _, col := range d.AmbiguousColumns {
		e.writeAudit(ctx, principal, domain.ActionMaskingAmbiguous, col, d.SQL, "", domain.OutcomeAllowed,
			"column "+col+" matches rules on multiple tables, left unmasked")
	}
	if res.Rewritten {
		d.SQL = res.SQL
		d.Rewritten = true
	}
	return nil
}

// Effective returns the principal's resolved roles and flattened privilege
// set, including active exception grants, for explainability endpoints.
func (e *Engine) Effective(ctx context.Context, userID string) ([]ResolvedRole, []EffectivePrivilege, error) {
	now := e.Now()
	roles, err := e.resolver.Resolve(ctx, userID, now)
	if err != nil {
		return nil, nil, err
	}
	privs, err := e.aggregator.Aggregate(ctx, roles)
	if err != nil {
		return nil, nil, err
	}
	grants, err := e.overlay.ActiveGrants(ctx, userID, RoleIDs(roles), now)
	if err != nil {
		return nil, nil, err
	}
	return roles, append(privs, grants...), nil
}

// CheckAccess reports whether the principal holds the named privilege for
// the named resource, without parsing or rewriting anything.
func (e *Engine) CheckAccess(ctx context.Context, principal domain.ContextPrincipal, privilege, resource string) (bool, error) {
	if principal.IsAdmin {
		return true, nil
	}
	_, privs, err := e.Effective(ctx, principal.UserID)
	if err != nil {
		return false, err
	}
	if hasCode(privs, domain.PrivAdmin) {
		return true, nil
	}
	for _, p := range privs {
		if strings.EqualFold(p.Code, privilege) && p.AppliesTo(resource) {
			return true, nil
		}
	}
	return false, nil
}

func (e *Engine) deny(ctx context.Context, principal domain.ContextPrincipal, sqlText string, stmtType sqlrewrite.StatementType, reason string) *Decision {
	d := &Decision{SQL: sqlText, Statement: stmtType}
	return e.denyDecision(ctx, principal, d, "", reason)
}

func (e *Engine) denyDecision(ctx context.Context, principal domain.ContextPrincipal, d *Decision, resource, reason string) *Decision {
	d.Allowed = false
	d.Rewritten = false
	d.Reason = reason
	e.writeAudit(ctx, principal, domain.ActionQueryDecision, resource, d.SQL, "", domain.OutcomeDenied, reason)
	return d
}

func (d *Decision) rewrittenSQL() string {
	if d.Rewritten {
		return d.SQL
	}
	return ""
}

// writeAudit records a decision event. Audit failures are logged, not
// propagated; losing an audit row must not change an access outcome.
func (e *Engine) writeAudit(ctx context.Context, principal domain.ContextPrincipal, action, resource, original, rewritten, outcome, detail string) {
	entry := &domain.AuditEntry{
		Principal:    principal.Username,
		Action:       action,
		Resource:     resource,
		OriginalSQL:  original,
		RewrittenSQL: rewritten,
		Outcome:      outcome,
		Detail:       detail,
	}
	if err := e.audit.Insert(ctx, entry); err != nil {
		e.logger.Warn("audit insert failed", "action", action, "error", err)
	}
}

// requiredCodes maps a statement type to the privilege codes that may
// authorize it. For SELECT either raw or masked read suffices; masking is
// decided separately.
func requiredCodes(t sqlrewrite.StatementType) ([]string, bool) {
	switch t {
	case sqlrewrite.StmtSelect:
		return []string{domain.PrivReadRaw, domain.PrivReadMasked}, true
	case sqlrewrite.StmtInsert:
		return []string{domain.PrivInsert}, true
	case sqlrewrite.StmtUpdate:
		return []string{domain.PrivUpdate}, true
	case sqlrewrite.StmtDelete:
		return []string{domain.PrivDelete}, true
	case sqlrewrite.StmtDDL:
		return []string{domain.PrivSchemaModify}, true
	}
	return nil, false
}

func hasCode(privs []EffectivePrivilege, code string) bool {
	for _, p := range privs {
		if strings.EqualFold(p.Code, code) {
			return true
		}
	}
	return false
}

// uncovered checks that at least one of the codes is held at all and that
// every referenced table is covered by some grant of one of the codes. It
// returns the first uncovered table name, and whether the check passed.
func uncovered(privs []EffectivePrivilege, codes, tables []string) (string, bool) {
	holds := false
	for _, c := range codes {
		if hasCode(privs, c) {
			holds = true
			break
		}
	}
	if !holds {
		return "", false
	}
	for _, table := range tables {
		covered := false
		for _, p := range privs {
			if !p.AppliesTo(table) {
				continue
			}
			for _, c := range codes {
				if strings.EqualFold(p.Code, c) {
					covered = true
					break
				}
			}
			if covered {
				break
			}
		}
		if !covered {
			return table, false
		}
	}
	return "", true
}

func qualified(ref sqlrewrite.ColumnRef) string {
	if ref.Table != "" {
		return ref.Table + "." + ref.Column
	}
	return ref.Column
}
