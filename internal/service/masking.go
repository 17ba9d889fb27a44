package service

import (
	"context"

	pg_query "github.com/pganalyze/pg_query_go/v6"

	"sqlgate/internal/domain"
	"sqlgate/internal/policy"
	"sqlgate/internal/sqlrewrite"
)

// MaskingService provides masking rule CRUD and rewrite previews.
type MaskingService struct {
	rules domain.MaskingRuleRepository
	audit domain.AuditRepository
}

// NewMaskingService creates a new MaskingService.
func NewMaskingService(rules domain.MaskingRuleRepository, audit domain.AuditRepository) *MaskingService {
	return &MaskingService{rules: rules, audit: audit}
}

// Create registers a masking rule.
func (s *MaskingService) Create(ctx context.Context, r *domain.MaskingRule) (*domain.MaskingRule, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateRule(r); err != nil {
		return nil, err
	}
	created, err := s.rules.Create(ctx, r)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "CREATE_MASKING_RULE",
		Resource:  created.Table + "." + created.Column,
		Outcome:   domain.OutcomeAllowed,
	})
	return created, nil
}

// Get returns a masking rule by ID.
func (s *MaskingService) Get(ctx context.Context, id string) (*domain.MaskingRule, error) {
	return s.rules.GetByID(ctx, id)
}

// List returns masking rules, optionally filtered by table.
func (s *MaskingService) List(ctx context.Context, table string) ([]domain.MaskingRule, error) {
	return s.rules.List(ctx, table)
}

// Update modifies a masking rule.
func (s *MaskingService) Update(ctx context.Context, r *domain.MaskingRule) (*domain.MaskingRule, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	if err := validateRule(r); err != nil {
		return nil, err
	}
	updated, err := s.rules.Update(ctx, r)
	if err != nil {
		return nil, err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "UPDATE_MASKING_RULE",
		Resource:  updated.Table + "." + updated.Column,
		Outcome:   domain.OutcomeAllowed,
	})
	return updated, nil
}

// Delete removes a masking rule.
func (s *MaskingService) Delete(ctx context.Context, id string) error {
	if err := requireAdmin(ctx); err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.audit.Insert(ctx, &domain.AuditEntry{
		Principal: callerName(ctx),
		Action:    "DELETE_MASKING_RULE",
		Resource:  id,
		Outcome:   domain.OutcomeAllowed,
	})
	return nil
}

// PreviewResult is the outcome of a dry-run rewrite.
type PreviewResult struct {
	SQL              string
	Rewritten        bool
	MaskedColumns    []string
	AmbiguousColumns []string
}

// Preview rewrites a SELECT as it would appear for a principal holding only
// the given role, without executing anything or consulting privileges. Admin
// only; this is a rule-debugging tool.
func (s *MaskingService) Preview(ctx context.Context, sqlText, roleID string) (*PreviewResult, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	var roleIDs []string
	roleSet := map[string]bool{}
	if roleID != "" {
		roleIDs = []string{roleID}
		roleSet[roleID] = true
	}
	rules, err := s.rules.ListActiveForRoles(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	out := &PreviewResult{SQL: sqlText}
	maskFor := func(ref sqlrewrite.ColumnRef, col *pg_query.Node) (*pg_query.Node, bool) {
		m := policy.MatchRule(ref, rules, roleSet)
		if m.Ambiguous {
			out.AmbiguousColumns = append(out.AmbiguousColumns, ref.Column)
			return nil, false
		}
		if !m.Matched {
			return nil, false
		}
		out.MaskedColumns = append(out.MaskedColumns, ref.Column)
		return sqlrewrite.MaskExpr(m.Rule, col), true
	}
	res, err := sqlrewrite.RewriteProjections(sqlText, maskFor, nil)
	if err != nil {
		return nil, err
	}
	out.SQL = res.SQL
	out.Rewritten = res.Rewritten
	return out, nil
}

func validateRule(r *domain.MaskingRule) error {
	if r.Table == "" || r.Column == "" {
		return domain.ErrValidation("table and column are required")
	}
	if !r.Kind.Valid() {
		return domain.ErrValidation("invalid mask kind %q", r.Kind)
	}
	if r.Kind == domain.MaskPartial && (r.Params.PrefixLen < 0 || r.Params.SuffixLen < 0) {
		return domain.ErrValidation("partial mask lengths must be non-negative")
	}
	return nil
}
