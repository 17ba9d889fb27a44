package policy

import (
	"strings"

	"sqlgate/internal/domain"
	"sqlgate/internal/sqlrewrite"
)

// MatchResult is the outcome of matching one column reference against the
// active masking rules.
type MatchResult struct {
	Rule      domain.MaskingRule
	Matched   bool
	Ambiguous bool
}

// MatchRule selects the single masking rule for a resolved column reference.
//
// Candidate rules are the enabled rules whose (table, column) matches
// case-insensitively and whose role scope, if any, is in the principal's
// resolved set. For an unqualified reference the candidate tables are those
// in the FROM scope; if matching rules exist under more than one of them the
// reference is ambiguous and no rule is applied, so a rule is never applied
// to the wrong column.
//
// Among the survivors a role-scoped rule beats a global one regardless of
// numeric priority; within a bucket higher priority wins, then earlier
// creation, then rule ID as a final deterministic tiebreak.
func MatchRule(ref sqlrewrite.ColumnRef, rules []domain.MaskingRule, roleIDs map[string]bool) MatchResult {
	tables := ref.Candidates
	if ref.Table != "" {
		tables = []string{ref.Table}
	}

	var applicable []domain.MaskingRule
	matchedTables := map[string]bool{}
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		if !strings.EqualFold(rule.Column, ref.Column) {
			continue
		}
		if rule.RoleID != nil && !roleIDs[*rule.RoleID] {
			continue
		}
		table := strings.ToLower(rule.Table)
		if !containsFold(tables, table) {
			continue
		}
		applicable = append(applicable, rule)
		matchedTables[table] = true
	}
	if len(applicable) == 0 {
		return MatchResult{}
	}
	if ref.Table == "" && len(matchedTables) > 1 {
		return MatchResult{Ambiguous: true}
	}

	best := applicable[0]
	for _, rule := range applicable[1:] {
		if beats(rule, best) {
			best = rule
		}
	}
	return MatchResult{Rule: best, Matched: true}
}

// beats reports whether a should be chosen over b.
func beats(a, b domain.MaskingRule) bool {
	if a.RoleScoped() != b.RoleScoped() {
		return a.RoleScoped()
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
